package escrow

import (
	"fmt"
	"math/big"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

// DestState is the storage surface the destination engine depends on.
type DestState interface {
	DestEscrowPut(*DestinationEscrow) error
	DestEscrowGet(addr string) (*DestinationEscrow, bool)
}

// DestParams carries the instantiation arguments for a destination escrow.
type DestParams struct {
	Taker            string   `json:"taker"`
	Maker            string   `json:"maker"`
	SecretHash       string   `json:"secret_hash"`
	Timelock         int64    `json:"timelock"`
	SrcChainID       string   `json:"src_chain_id"`
	SrcEscrowAddress string   `json:"src_escrow_address"`
	ExpectedAmount   *big.Int `json:"expected_amount"`
}

// DestEngine applies the destination-escrow state machine against external
// state.
type DestEngine struct {
	state   DestState
	emitter events.Emitter
	nowFn   func() int64
}

// NewDestEngine creates a destination escrow engine with a no-op emitter.
func NewDestEngine() *DestEngine {
	return &DestEngine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *DestEngine) SetState(state DestState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *DestEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *DestEngine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *DestEngine) now() int64 { return e.nowFn() }

func (e *DestEngine) emit(evt *types.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *DestEngine) load(addr string) (*DestinationEscrow, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	esc, ok := e.state.DestEscrowGet(addr)
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

func (e *DestEngine) store(esc *DestinationEscrow) error {
	if e.state == nil {
		return ErrNilState
	}
	return e.state.DestEscrowPut(esc)
}

// Instantiate validates the parameters and persists a fresh escrow at addr.
func (e *DestEngine) Instantiate(addr string, p DestParams) (*DestinationEscrow, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	taker, err := crypto.NormalizeAddress(p.Taker)
	if err != nil {
		return nil, fmt.Errorf("escrow: taker: %w", err)
	}
	maker, err := crypto.NormalizeAddress(p.Maker)
	if err != nil {
		return nil, fmt.Errorf("escrow: maker: %w", err)
	}
	esc := &DestinationEscrow{
		Address:          addr,
		Taker:            taker,
		Maker:            maker,
		SecretHash:       NormalizeSecretHash(p.SecretHash),
		Timelock:         p.Timelock,
		SrcChainID:       p.SrcChainID,
		SrcEscrowAddress: p.SrcEscrowAddress,
		ExpectedAmount:   cloneBig(p.ExpectedAmount),
		DepositedAmount:  big.NewInt(0),
		Status:           StatusActive,
		CreatedAt:        e.now(),
	}
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewDestCreatedEvent(esc))
	return esc.Clone(), nil
}

// Deposit records a native-coin deposit by the taker. The transferred amount
// must equal the expected amount exactly.
func (e *DestEngine) Deposit(addr, caller string, funds []types.Coin) error {
	esc, err := e.load(addr)
	if err != nil {
		return err
	}
	if esc.Status != StatusActive {
		return ErrAlreadyWithdrawn
	}
	if caller != esc.Taker {
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
	if coin.Amount.Cmp(esc.ExpectedAmount) != 0 {
		return ErrInvalidAmount
	}
	esc.DepositedAmount = new(big.Int).Set(coin.Amount)
	esc.DepositedDenom = coin.Denom
	if err := e.store(esc); err != nil {
		return err
	}
	e.emit(NewDestDepositedEvent(esc))
	return nil
}

// DepositToken records a delegated-asset deposit forwarded by a token
// contract on behalf of the taker.
func (e *DestEngine) DepositToken(addr, tokenContract, from string, amount *big.Int) error {
	esc, err := e.load(addr)
	if err != nil {
		return err
	}
	if esc.Status != StatusActive {
		return ErrAlreadyWithdrawn
	}
	if from != esc.Taker {
		return ErrUnauthorized
	}
	if esc.Funded() {
		return ErrAlreadyWithdrawn
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientFunds
	}
	if amount.Cmp(esc.ExpectedAmount) != 0 {
		return ErrInvalidAmount
	}
	esc.DepositedAmount = new(big.Int).Set(amount)
	esc.TokenContract = tokenContract
	if err := e.store(esc); err != nil {
		return err
	}
	e.emit(NewDestDepositedEvent(esc))
	return nil
}

// Withdraw releases the deposit to the maker. It requires the relayer-attested
// source confirmation, the maker as caller and the correct secret.
func (e *DestEngine) Withdraw(addr, caller, secret string) ([]types.Msg, error) {
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
	if !esc.SrcConfirmed {
		return nil, ErrSourceEscrowNotConfirmed
	}
	if HashSecret(secret) != esc.SecretHash {
		return nil, ErrInvalidSecret
	}

	msgs := payout(esc.TokenContract, esc.DepositedDenom, esc.Maker, esc.DepositedAmount)

	esc.Status = StatusWithdrawn
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewDestWithdrawnEvent(esc))
	return msgs, nil
}

// Cancel returns the deposit to the taker once the timelock has elapsed.
func (e *DestEngine) Cancel(addr, caller string) ([]types.Msg, error) {
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
	if caller != esc.Taker {
		return nil, ErrUnauthorized
	}
	if e.now() < esc.Timelock {
		return nil, ErrTimelockNotExpired
	}

	msgs := payout(esc.TokenContract, esc.DepositedDenom, esc.Taker, esc.DepositedAmount)

	esc.Status = StatusCancelled
	if err := e.store(esc); err != nil {
		return nil, err
	}
	e.emit(NewDestCancelledEvent(esc))
	return msgs, nil
}

// ConfirmSource records the relayer-attested proof metadata for the source
// leg. The engine enforces no caller authorization here; callers that need a
// gate (the resolver) apply their own allow-list before forwarding. Repeat
// confirmations overwrite the metadata idempotently.
func (e *DestEngine) ConfirmSource(addr, srcTxHash string, blockHeight uint64) error {
	esc, err := e.load(addr)
	if err != nil {
		return err
	}
	esc.SrcConfirmed = true
	esc.SrcTxHash = srcTxHash
	esc.SrcBlockHeight = blockHeight
	if err := e.store(esc); err != nil {
		return err
	}
	e.emit(NewDestConfirmedEvent(esc))
	return nil
}

// Get returns a copy of the escrow stored at addr.
func (e *DestEngine) Get(addr string) (*DestinationEscrow, error) {
	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return esc.Clone(), nil
}
