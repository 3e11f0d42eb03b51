package resolver

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/escrow"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
	"github.com/JadeSamLee/cosmos-swap/native/pricing"
)

const (
	listLimitDefault = 30
	listLimitMax     = 100
)

// State is the storage surface the resolver engine depends on. Orders are
// addressable by id, by escrow address through a secondary index and, while a
// factory instantiation is in flight, by the derived salt.
type State interface {
	ResolverConfigPut(*Config) error
	ResolverConfigGet() (*Config, bool)
	OrderPut(*Order) error
	OrderGet(id string) (*Order, bool)
	OrderList(startAfter string, limit int) ([]*Order, error)
	OrderIndexPut(escrowAddr, orderID string) error
	OrderIndexGet(escrowAddr string) (string, bool)
	PendingBindPut(salt string, bind *PendingBind) error
	PendingBindGet(salt string) (*PendingBind, bool)
	PendingBindDelete(salt string) error
	ResolverSequenceNext() (uint64, error)
}

// Engine orchestrates cross-chain swap orders: it spawns escrow legs through
// the factory, mirrors their fill state and gates relayer-driven settlement.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
	self    string
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetSelf configures the resolver's own contract address. The factory derives
// escrow salts from its caller, so the resolver needs its own identity to
// derive the same salt.
func (e *Engine) SetSelf(addr string) { e.self = addr }

func (e *Engine) emit(evt *types.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) config() (*Config, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok := e.state.ResolverConfigGet()
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// requireOperator admits the owner and every allow-listed relayer.
func (e *Engine) requireOperator(caller string) (*Config, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if caller != cfg.Owner && !cfg.IsRelayer(caller) {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

// requireRelayer admits allow-listed relayers only. The owner is deliberately
// not exempt: settlement attestations must come from a relayer identity.
func (e *Engine) requireRelayer(caller string) (*Config, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if !cfg.IsRelayer(caller) {
		return nil, ErrInvalidRelayer
	}
	return cfg, nil
}

func (e *Engine) load(id string) (*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	order, ok := e.state.OrderGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return order, nil
}

// Initialize persists the resolver configuration.
func (e *Engine) Initialize(owner, factoryAddr string, relayers []string) error {
	if e.state == nil {
		return ErrNilState
	}
	normalizedOwner, err := crypto.NormalizeAddress(owner)
	if err != nil {
		return fmt.Errorf("resolver: owner: %w", err)
	}
	normalizedRelayers := make([]string, 0, len(relayers))
	for _, r := range relayers {
		normalized, err := crypto.NormalizeAddress(r)
		if err != nil {
			return fmt.Errorf("resolver: relayer: %w", err)
		}
		normalizedRelayers = append(normalizedRelayers, normalized)
	}
	return e.state.ResolverConfigPut(&Config{
		Owner:    normalizedOwner,
		Factory:  factoryAddr,
		Relayers: normalizedRelayers,
	})
}

// DeploySourceParams describes the source leg of a new order.
type DeploySourceParams struct {
	Maker      string   `json:"maker"`
	Taker      string   `json:"taker,omitempty"`
	SecretHash string   `json:"secret_hash"`
	Timelock   int64    `json:"timelock"`
	Amount     *big.Int `json:"amount"`
	Denom      string   `json:"denom"`
	DstChainID string   `json:"dst_chain_id"`
	DstAsset   string   `json:"dst_asset"`
	DstAmount  *big.Int `json:"dst_amount"`

	InitialPrice   *big.Int `json:"initial_price,omitempty"`
	PriceDecayRate *big.Int `json:"price_decay_rate,omitempty"`
	MinimumPrice   *big.Int `json:"minimum_price,omitempty"`

	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`

	LopOrderData json.RawMessage `json:"lop_order_data,omitempty"`
}

// DeploySource opens a new order and queues the creation of its source escrow
// through the factory. Owner and relayers may deploy. The order id doubles as
// the escrow label, so the salt the factory will derive is known here and the
// pending order is indexed by it.
func (e *Engine) DeploySource(caller string, blockNanos int64, p DeploySourceParams) (*Order, []types.Msg, error) {
	cfg, err := e.requireOperator(caller)
	if err != nil {
		return nil, nil, err
	}
	maker, err := crypto.NormalizeAddress(p.Maker)
	if err != nil {
		return nil, nil, fmt.Errorf("resolver: maker: %w", err)
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if p.InitialPrice != nil && p.MinimumPrice != nil && p.PriceDecayRate != nil {
		if _, err := pricing.NewDecaySchedule(p.InitialPrice, p.MinimumPrice, p.PriceDecayRate, e.nowFn()); err != nil {
			return nil, nil, err
		}
	}

	seq, err := e.state.ResolverSequenceNext()
	if err != nil {
		return nil, nil, err
	}
	order := &Order{
		ID:                fmt.Sprintf("order_%d", seq),
		Maker:             maker,
		Status:            OrderActive,
		SecretHash:        escrow.NormalizeSecretHash(p.SecretHash),
		Timelock:          p.Timelock,
		Amount:            cloneBig(p.Amount),
		Denom:             p.Denom,
		DstChainID:        p.DstChainID,
		DstAsset:          p.DstAsset,
		InitialPrice:      cloneBig(p.InitialPrice),
		PriceDecayRate:    cloneBig(p.PriceDecayRate),
		MinimumPrice:      cloneBig(p.MinimumPrice),
		AuctionStartTime:  e.nowFn(),
		AllowPartialFill:  p.AllowPartialFill,
		MinimumFillAmount: cloneBig(p.MinimumFillAmount),
		FilledAmount:      big.NewInt(0),
		RemainingAmount:   cloneBig(p.Amount),
		LopOrderData:      append(json.RawMessage(nil), p.LopOrderData...),
		CreatedAt:         e.nowFn(),
		UpdatedAt:         e.nowFn(),
	}

	salt := factory.DeriveSalt(e.self, blockNanos, order.ID)
	if err := e.state.OrderPut(order); err != nil {
		return nil, nil, err
	}
	if err := e.state.PendingBindPut(salt, &PendingBind{OrderID: order.ID, Leg: LegSource}); err != nil {
		return nil, nil, err
	}

	params := mustJSON(escrow.SourceParams{
		Maker:             maker,
		Taker:             p.Taker,
		SecretHash:        order.SecretHash,
		Timelock:          p.Timelock,
		DstChainID:        p.DstChainID,
		DstAsset:          p.DstAsset,
		DstAmount:         p.DstAmount,
		InitialPrice:      p.InitialPrice,
		PriceDecayRate:    p.PriceDecayRate,
		MinimumPrice:      p.MinimumPrice,
		AllowPartialFill:  p.AllowPartialFill,
		MinimumFillAmount: p.MinimumFillAmount,
	})
	msgs := []types.Msg{types.ExecMsg{
		Contract: cfg.Factory,
		Msg: mustJSON(factoryExecMsg{CreateSrcEscrow: &createEscrowMsg{
			Label:  order.ID,
			Params: params,
		}}),
	}}

	e.emit(NewOrderCreatedEvent(order, salt))
	return order.Clone(), msgs, nil
}

// DeployDestParams describes the destination leg attached to an order.
type DeployDestParams struct {
	Taker          string   `json:"taker"`
	Timelock       int64    `json:"timelock"`
	SrcChainID     string   `json:"src_chain_id"`
	ExpectedAmount *big.Int `json:"expected_amount"`
}

// DeployDestination queues the destination escrow for an existing order.
// Owner and relayers may deploy.
func (e *Engine) DeployDestination(caller, orderID string, blockNanos int64, p DeployDestParams) ([]types.Msg, error) {
	cfg, err := e.requireOperator(caller)
	if err != nil {
		return nil, err
	}
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	// The destination label is suffixed so the salt never collides with the
	// source leg deployed in the same block.
	label := order.ID + ":dst"
	salt := factory.DeriveSalt(e.self, blockNanos, label)
	if err := e.state.PendingBindPut(salt, &PendingBind{OrderID: order.ID, Leg: LegDestination}); err != nil {
		return nil, err
	}

	params := mustJSON(escrow.DestParams{
		Taker:            p.Taker,
		Maker:            order.Maker,
		SecretHash:       order.SecretHash,
		Timelock:         p.Timelock,
		SrcChainID:       p.SrcChainID,
		SrcEscrowAddress: order.SrcEscrowAddress,
		ExpectedAmount:   p.ExpectedAmount,
	})
	msgs := []types.Msg{types.ExecMsg{
		Contract: cfg.Factory,
		Msg: mustJSON(factoryExecMsg{CreateDstEscrow: &createEscrowMsg{
			Label:  label,
			Params: params,
		}}),
	}}
	return msgs, nil
}

// BindEscrow records the address of a spawned escrow against the order leg
// its salt was registered for, and indexes the address for reverse lookups.
func (e *Engine) BindEscrow(salt, addr string) (*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	bind, ok := e.state.PendingBindGet(salt)
	if !ok {
		return nil, ErrNotFound
	}
	order, err := e.load(bind.OrderID)
	if err != nil {
		return nil, err
	}
	switch bind.Leg {
	case LegDestination:
		order.DstEscrowAddress = addr
	default:
		order.SrcEscrowAddress = addr
	}
	order.UpdatedAt = e.nowFn()
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.OrderIndexPut(addr, order.ID); err != nil {
		return nil, err
	}
	if err := e.state.PendingBindDelete(salt); err != nil {
		return nil, err
	}
	e.emit(NewEscrowBoundEvent(order, string(bind.Leg), addr))
	return order.Clone(), nil
}

// Withdraw settles the full remaining source leg and completes the order.
// Owner and relayers may call.
func (e *Engine) Withdraw(caller, orderID, secret string) ([]types.Msg, error) {
	if _, err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}
	if order.SrcEscrowAddress == "" {
		return nil, ErrEscrowNotBound
	}

	msgs := []types.Msg{types.ExecMsg{
		Contract: order.SrcEscrowAddress,
		Msg:      mustJSON(escrowExecMsg{Withdraw: &withdrawMsg{Secret: secret}}),
	}}

	order.Status = OrderCompleted
	order.FilledAmount = cloneBig(order.Amount)
	order.RemainingAmount = big.NewInt(0)
	order.UpdatedAt = e.nowFn()
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderStatusEvent(order))
	return msgs, nil
}

// PartialWithdraw settles part of the source leg, mirroring the fill ledger
// the escrow keeps. The order completes when the ledger is exhausted.
func (e *Engine) PartialWithdraw(caller, orderID, secret string, amount *big.Int) ([]types.Msg, error) {
	if _, err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}
	if order.SrcEscrowAddress == "" {
		return nil, ErrEscrowNotBound
	}

	ledger := pricing.FillLedger{
		Total:     order.Amount,
		Filled:    order.FilledAmount,
		Remaining: order.RemainingAmount,
	}
	if err := ledger.Apply(amount); err != nil {
		return nil, err
	}
	order.FilledAmount = ledger.Filled
	order.RemainingAmount = ledger.Remaining
	if ledger.Exhausted() {
		order.Status = OrderCompleted
	}

	msgs := []types.Msg{types.ExecMsg{
		Contract: order.SrcEscrowAddress,
		Msg: mustJSON(escrowExecMsg{PartialWithdraw: &partialWithdrawMsg{
			Secret: secret,
			Amount: amount.String(),
		}}),
	}}
	order.UpdatedAt = e.nowFn()
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderStatusEvent(order))
	return msgs, nil
}

// Cancel closes the order and returns the source escrow balance to the maker.
// Owner and relayers may call.
func (e *Engine) Cancel(caller, orderID string) ([]types.Msg, error) {
	if _, err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	var msgs []types.Msg
	if order.SrcEscrowAddress != "" {
		msgs = append(msgs, types.ExecMsg{
			Contract: order.SrcEscrowAddress,
			Msg:      mustJSON(escrowExecMsg{Cancel: &struct{}{}}),
		})
	}
	order.Status = OrderCancelled
	order.UpdatedAt = e.nowFn()
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderStatusEvent(order))
	return msgs, nil
}

// ProcessAction names a relayer-attested settlement step.
type ProcessAction string

const (
	ActionConfirmSource ProcessAction = "confirm_source"
	ActionExecuteSwap   ProcessAction = "execute_swap"
	ActionCancelOrder   ProcessAction = "cancel_order"
)

// ProcessParams carries a relayer attestation. Proof is recorded in the
// emitted event but not verified on-chain.
type ProcessParams struct {
	Action      ProcessAction `json:"action"`
	Secret      string        `json:"secret,omitempty"`
	Proof       string        `json:"proof,omitempty"`
	SrcTxHash   string        `json:"src_tx_hash,omitempty"`
	BlockHeight uint64        `json:"block_height,omitempty"`
}

// ProcessOrder advances an order on a relayer's attestation. Only allow-listed
// relayers may call; the owner is rejected unless also a relayer.
func (e *Engine) ProcessOrder(caller, orderID string, p ProcessParams) ([]types.Msg, error) {
	if _, err := e.requireRelayer(caller); err != nil {
		return nil, err
	}
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	var msgs []types.Msg
	switch p.Action {
	case ActionConfirmSource:
		if order.DstEscrowAddress == "" {
			return nil, ErrEscrowNotBound
		}
		msgs = append(msgs, types.ExecMsg{
			Contract: order.DstEscrowAddress,
			Msg: mustJSON(escrowExecMsg{ConfirmSource: &confirmSourceMsg{
				SrcTxHash:   p.SrcTxHash,
				BlockHeight: p.BlockHeight,
			}}),
		})
		order.Status = OrderMatched
	case ActionExecuteSwap:
		if order.SrcEscrowAddress == "" {
			return nil, ErrEscrowNotBound
		}
		msgs = append(msgs, types.ExecMsg{
			Contract: order.SrcEscrowAddress,
			Msg:      mustJSON(escrowExecMsg{Withdraw: &withdrawMsg{Secret: p.Secret}}),
		})
		order.Status = OrderCompleted
		order.FilledAmount = cloneBig(order.Amount)
		order.RemainingAmount = big.NewInt(0)
	case ActionCancelOrder:
		if order.SrcEscrowAddress != "" {
			msgs = append(msgs, types.ExecMsg{
				Contract: order.SrcEscrowAddress,
				Msg:      mustJSON(escrowExecMsg{Cancel: &struct{}{}}),
			})
		}
		order.Status = OrderCancelled
	default:
		return nil, fmt.Errorf("resolver: unknown action %q", p.Action)
	}

	order.UpdatedAt = e.nowFn()
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderProcessedEvent(order, caller, string(p.Action), p.Proof))
	return msgs, nil
}

// AddRelayer appends addr to the allow-list. Owner only, idempotent.
func (e *Engine) AddRelayer(caller, addr string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	normalized, err := crypto.NormalizeAddress(addr)
	if err != nil {
		return fmt.Errorf("resolver: relayer: %w", err)
	}
	if cfg.IsRelayer(normalized) {
		return nil
	}
	cfg.Relayers = append(cfg.Relayers, normalized)
	return e.state.ResolverConfigPut(cfg)
}

// RemoveRelayer removes addr from the allow-list. Owner only, idempotent.
func (e *Engine) RemoveRelayer(caller, addr string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	normalized, err := crypto.NormalizeAddress(addr)
	if err != nil {
		return fmt.Errorf("resolver: relayer: %w", err)
	}
	kept := cfg.Relayers[:0]
	for _, r := range cfg.Relayers {
		if r != normalized {
			kept = append(kept, r)
		}
	}
	cfg.Relayers = kept
	return e.state.ResolverConfigPut(cfg)
}

// UpdateOwner transfers resolver ownership. Owner only.
func (e *Engine) UpdateOwner(caller, newOwner string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	normalized, err := crypto.NormalizeAddress(newOwner)
	if err != nil {
		return fmt.Errorf("resolver: new owner: %w", err)
	}
	cfg.Owner = normalized
	return e.state.ResolverConfigPut(cfg)
}

// CurrentPrice projects the order's Dutch price at now from the auction
// snapshot. The projection is pure: no order state changes.
func (e *Engine) CurrentPrice(orderID string, now int64) (*big.Int, error) {
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasAuction() {
		return pricing.FixedPrice(order.InitialPrice), nil
	}
	sched, err := pricing.NewDecaySchedule(order.InitialPrice, order.MinimumPrice, order.PriceDecayRate, order.AuctionStartTime)
	if err != nil {
		return nil, err
	}
	return sched.PriceAt(now), nil
}

// GetOrder returns a copy of the stored order.
func (e *Engine) GetOrder(orderID string) (*Order, error) {
	order, err := e.load(orderID)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// OrderStatusAt projects the effective status at now: an active order past
// its timelock reads as expired without a state write.
func (e *Engine) OrderStatusAt(orderID string, now int64) (OrderStatus, error) {
	order, err := e.load(orderID)
	if err != nil {
		return "", err
	}
	if order.Status == OrderActive && order.Timelock > 0 && now >= order.Timelock {
		return OrderExpired, nil
	}
	return order.Status, nil
}

// OrderByEscrow resolves an escrow address to its order via the secondary
// index.
func (e *Engine) OrderByEscrow(escrowAddr string) (*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	orderID, ok := e.state.OrderIndexGet(escrowAddr)
	if !ok {
		return nil, ErrNotFound
	}
	return e.GetOrder(orderID)
}

// ListOrders pages through orders ordered by id.
func (e *Engine) ListOrders(startAfter string, limit int) ([]*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if limit <= 0 {
		limit = listLimitDefault
	}
	if limit > listLimitMax {
		limit = listLimitMax
	}
	return e.state.OrderList(startAfter, limit)
}

// IsAuthorizedRelayer reports whether addr is on the relayer allow-list.
func (e *Engine) IsAuthorizedRelayer(addr string) (bool, error) {
	cfg, err := e.config()
	if err != nil {
		return false, err
	}
	normalized, err := crypto.NormalizeAddress(addr)
	if err != nil {
		return false, err
	}
	return cfg.IsRelayer(normalized), nil
}

// GetConfig returns a copy of the resolver configuration.
func (e *Engine) GetConfig() (*Config, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}
