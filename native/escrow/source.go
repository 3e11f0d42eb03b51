package escrow

import (
	"fmt"
	"math/big"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/pricing"
)

// SourceState is the storage surface the source engine depends on.
type SourceState interface {
	SourceEscrowPut(*SourceEscrow) error
	SourceEscrowGet(addr string) (*SourceEscrow, bool)
}

// SourceParams carries the instantiation arguments for a source escrow.
type SourceParams struct {
	Maker      string   `json:"maker"`
	Taker      string   `json:"taker,omitempty"`
	SecretHash string   `json:"secret_hash"`
	Timelock   int64    `json:"timelock"`
	DstChainID string   `json:"dst_chain_id"`
	DstAsset   string   `json:"dst_asset"`
	DstAmount  *big.Int `json:"dst_amount"`

	InitialPrice   *big.Int `json:"initial_price,omitempty"`
	PriceDecayRate *big.Int `json:"price_decay_rate,omitempty"`
	MinimumPrice   *big.Int `json:"minimum_price,omitempty"`

	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
}

// SourceEngine applies the source-escrow state machine against external state.
type SourceEngine struct {
	state   SourceState
	emitter events.Emitter
	nowFn   func() int64
}

// NewSourceEngine creates a source escrow engine with a no-op emitter.
func NewSourceEngine() *SourceEngine {
	return &SourceEngine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *SourceEngine) SetState(state SourceState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *SourceEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *SourceEngine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *SourceEngine) now() int64 { return e.nowFn() }

func (e *SourceEngine) emit(evt *types.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *SourceEngine) load(addr string) (*SourceEscrow, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	esc, ok := e.state.SourceEscrowGet(addr)
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

func (e *SourceEngine) store(esc *SourceEscrow) error {
	if e.state == nil {
		return ErrNilState
	}
	return e.state.SourceEscrowPut(esc)
}

// Instantiate validates the parameters and persists a fresh escrow at addr.
func (e *SourceEngine) Instantiate(addr string, p SourceParams) (*SourceEscrow, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	maker, err := crypto.NormalizeAddress(p.Maker)
	if err != nil {
		return nil, fmt.Errorf("escrow: maker: %w", err)
	}
	taker := ""
	if p.Taker != "" {
		if taker, err = crypto.NormalizeAddress(p.Taker); err != nil {
			return nil, fmt.Errorf("escrow: taker: %w", err)
		}
	}
	if p.InitialPrice != nil && p.MinimumPrice != nil {
		if p.InitialPrice.Cmp(p.MinimumPrice) <= 0 {
			return nil, ErrInvalidDutchAuctionParams
		}
	}
	esc := &SourceEscrow{
		Address:           addr,
		Maker:             maker,
		Taker:             taker,
		SecretHash:        NormalizeSecretHash(p.SecretHash),
		Timelock:          p.Timelock,
		DstChainID:        p.DstChainID,
		DstAsset:          p.DstAsset,
		DstAmount:         cloneBig(p.DstAmount),
		DepositedAmount:   big.NewInt(0),
		Status:            StatusActive,
		CreatedAt:         e.now(),
		InitialPrice:      cloneBigOrNil(p.InitialPrice),
		PriceDecayRate:    cloneBigOrNil(p.PriceDecayRate),
		MinimumPrice:      cloneBigOrNil(p.MinimumPrice),
		AllowPartialFill:  p.AllowPartialFill,
		MinimumFillAmount: cloneBigOrNil(p.MinimumFillAmount),
		FilledAmount:      big.NewInt(0),
		RemainingAmount:   big.NewInt(0),
	}
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewSourceCreatedEvent(esc))
	return esc.Clone(), nil
}

// Deposit records a native-coin deposit by the maker. Exactly one coin of one
// denomination is accepted, and the amount is set exactly once.
func (e *SourceEngine) Deposit(addr, caller string, funds []types.Coin) error {
	esc, err := e.load(addr)
	if err != nil {
		return err
	}
	if esc.Status != StatusActive {
		return ErrAlreadyWithdrawn
	}
	if caller != esc.Maker {
		return ErrUnauthorized
	}
	if esc.Funded() {
		return ErrAlreadyWithdrawn
	}
	if len(funds) != 1 {
		return ErrInsufficientFunds
	}
	coin := funds[0]
	if err := coin.Validate(); err != nil || coin.Amount.Sign() == 0 {
		return ErrInsufficientFunds
	}
	esc.DepositedAmount = new(big.Int).Set(coin.Amount)
	esc.DepositedDenom = coin.Denom
	esc.RemainingAmount = new(big.Int).Set(coin.Amount)
	if err := e.store(esc); err != nil {
		return err
	}
	e.emit(NewSourceDepositedEvent(esc))
	return nil
}

// DepositToken records a delegated-asset deposit forwarded by a token
// contract on behalf of the maker. Mutually exclusive with native deposits.
func (e *SourceEngine) DepositToken(addr, tokenContract, from string, amount *big.Int) error {
	esc, err := e.load(addr)
	if err != nil {
		return err
	}
	if esc.Status != StatusActive {
		return ErrAlreadyWithdrawn
	}
	if from != esc.Maker {
		return ErrUnauthorized
	}
	if esc.Funded() {
		return ErrAlreadyWithdrawn
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientFunds
	}
	esc.DepositedAmount = new(big.Int).Set(amount)
	esc.TokenContract = tokenContract
	esc.RemainingAmount = new(big.Int).Set(amount)
	if err := e.store(esc); err != nil {
		return err
	}
	e.emit(NewSourceDepositedEvent(esc))
	return nil
}

// Withdraw releases escrowed funds to the taker, or to the caller when no
// taker was configured. Any holder of the secret may call it.
func (e *SourceEngine) Withdraw(addr, caller, secret string) ([]types.Msg, error) {
	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if esc.Status == StatusWithdrawn {
		return nil, ErrAlreadyWithdrawn
	}
	if esc.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if HashSecret(secret) != esc.SecretHash {
		return nil, ErrInvalidSecret
	}

	amount := esc.DepositedAmount
	if esc.AllowPartialFill {
		amount = esc.RemainingAmount
	}
	recipient := esc.Taker
	if recipient == "" {
		recipient = caller
	}
	msgs := payout(esc.TokenContract, esc.DepositedDenom, recipient, amount)

	esc.Status = StatusWithdrawn
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewSourceWithdrawnEvent(esc, recipient, amount))
	return msgs, nil
}

// PartialWithdraw releases amount from the remaining balance, repeatable until
// the escrow is exhausted.
func (e *SourceEngine) PartialWithdraw(addr, caller, secret string, amount *big.Int) ([]types.Msg, error) {
	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if !esc.AllowPartialFill {
		return nil, ErrInvalidPartialFillAmount
	}
	if esc.Status == StatusWithdrawn {
		return nil, ErrAlreadyWithdrawn
	}
	if esc.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidPartialFillAmount
	}
	if amount.Cmp(esc.RemainingAmount) > 0 {
		return nil, ErrInsufficientFunds
	}
	if esc.MinimumFillAmount != nil && amount.Cmp(esc.MinimumFillAmount) < 0 {
		return nil, ErrInvalidPartialFillAmount
	}
	if HashSecret(secret) != esc.SecretHash {
		return nil, ErrInvalidSecret
	}

	recipient := esc.Taker
	if recipient == "" {
		recipient = caller
	}
	msgs := payout(esc.TokenContract, esc.DepositedDenom, recipient, amount)

	ledger := pricing.FillLedger{
		Total:     esc.DepositedAmount,
		Filled:    esc.FilledAmount,
		Remaining: esc.RemainingAmount,
	}
	if err := ledger.Apply(amount); err != nil {
		return nil, ErrInvalidPartialFillAmount
	}
	esc.FilledAmount = ledger.Filled
	esc.RemainingAmount = ledger.Remaining
	if ledger.Exhausted() {
		esc.Status = StatusWithdrawn
	} else {
		esc.Status = StatusPartiallyFilled
	}
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewSourcePartialFillEvent(esc, recipient, amount))
	return msgs, nil
}

// Cancel returns the remaining balance to the maker once the timelock has
// elapsed. now == timelock is sufficient.
func (e *SourceEngine) Cancel(addr, caller string) ([]types.Msg, error) {
	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if esc.Status == StatusWithdrawn {
		return nil, ErrAlreadyWithdrawn
	}
	if esc.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if caller != esc.Maker {
		return nil, ErrUnauthorized
	}
	if e.now() < esc.Timelock {
		return nil, ErrTimelockNotExpired
	}

	returned := esc.RemainingAmount
	if !esc.AllowPartialFill {
		returned = esc.DepositedAmount
	}
	msgs := payout(esc.TokenContract, esc.DepositedDenom, esc.Maker, returned)

	esc.Status = StatusCancelled
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewSourceCancelledEvent(esc, returned))
	return msgs, nil
}

// PriceView is the current-price projection of a source escrow.
type PriceView struct {
	CurrentPrice   *big.Int `json:"current_price"`
	InitialPrice   *big.Int `json:"initial_price,omitempty"`
	MinimumPrice   *big.Int `json:"minimum_price,omitempty"`
	PriceDecayRate *big.Int `json:"price_decay_rate,omitempty"`
	TimeElapsed    int64    `json:"time_elapsed"`
}

// CurrentPrice computes the Dutch price at now via the shared decay schedule.
// Without the complete auction triple the price is the fixed initial price, or
// zero.
func (e *SourceEngine) CurrentPrice(addr string, now int64) (PriceView, error) {
	esc, err := e.load(addr)
	if err != nil {
		return PriceView{}, err
	}
	elapsed := now - esc.CreatedAt
	if elapsed < 0 {
		elapsed = 0
	}
	view := PriceView{
		InitialPrice:   cloneBigOrNil(esc.InitialPrice),
		MinimumPrice:   cloneBigOrNil(esc.MinimumPrice),
		PriceDecayRate: cloneBigOrNil(esc.PriceDecayRate),
		TimeElapsed:    elapsed,
	}
	if !esc.HasAuction() {
		view.CurrentPrice = pricing.FixedPrice(esc.InitialPrice)
		return view, nil
	}
	sched, err := pricing.NewDecaySchedule(esc.InitialPrice, esc.MinimumPrice, esc.PriceDecayRate, esc.CreatedAt)
	if err != nil {
		return PriceView{}, ErrInvalidDutchAuctionParams
	}
	view.CurrentPrice = sched.PriceAt(now)
	return view, nil
}

// FillStatusView reports the cumulative fill accounting of a source escrow.
type FillStatusView struct {
	TotalAmount      *big.Int `json:"total_amount"`
	FilledAmount     *big.Int `json:"filled_amount"`
	RemainingAmount  *big.Int `json:"remaining_amount"`
	IsFullyFilled    bool     `json:"is_fully_filled"`
	AllowPartialFill bool     `json:"allow_partial_fill"`
}

// FillStatus returns the fill accounting view for addr.
func (e *SourceEngine) FillStatus(addr string) (FillStatusView, error) {
	esc, err := e.load(addr)
	if err != nil {
		return FillStatusView{}, err
	}
	return FillStatusView{
		TotalAmount:      cloneBig(esc.DepositedAmount),
		FilledAmount:     cloneBig(esc.FilledAmount),
		RemainingAmount:  cloneBig(esc.RemainingAmount),
		IsFullyFilled:    esc.RemainingAmount != nil && esc.RemainingAmount.Sign() == 0,
		AllowPartialFill: esc.AllowPartialFill,
	}, nil
}

// Get returns a copy of the escrow stored at addr.
func (e *SourceEngine) Get(addr string) (*SourceEscrow, error) {
	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return esc.Clone(), nil
}

// payout queues the release of amount through the channel the deposit arrived
// on: a delegated token transfer or a native bank send, never both.
func payout(tokenContract, denom, recipient string, amount *big.Int) []types.Msg {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if tokenContract != "" {
		return []types.Msg{types.TokenTransferMsg{
			Contract:  tokenContract,
			Recipient: recipient,
			Amount:    new(big.Int).Set(amount),
		}}
	}
	if denom != "" {
		return []types.Msg{types.SendMsg{
			ToAddress: recipient,
			Amount:    []types.Coin{types.NewCoin(denom, amount)},
		}}
	}
	return nil
}
