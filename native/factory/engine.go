package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

const (
	listLimitDefault = 30
	listLimitMax     = 100
)

// State is the storage surface the factory engine depends on.
type State interface {
	FactoryConfigPut(*Config) error
	FactoryConfigGet() (*Config, bool)
	FactoryRecordPut(*EscrowRecord) error
	FactoryRecordGet(salt string) (*EscrowRecord, bool)
	FactoryRecordList(startAfter string, limit int) ([]*EscrowRecord, error)
	FactoryCorrelationPut(id uint64, salt string) error
	FactoryCorrelationGet(id uint64) (string, bool)
	FactorySequenceNext() (uint64, error)
}

// Engine manages the escrow registry: it derives deterministic salts, queues
// instantiate messages for the host and patches registry rows when the
// spawned instance reports back.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
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

func (e *Engine) emit(evt *types.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) config() (*Config, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok := e.state.FactoryConfigGet()
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// Initialize persists the factory configuration. The owner address is
// canonicalized before storage.
func (e *Engine) Initialize(owner, sourceTemplate, destTemplate string) error {
	if e.state == nil {
		return ErrNilState
	}
	normalized, err := crypto.NormalizeAddress(owner)
	if err != nil {
		return fmt.Errorf("factory: owner: %w", err)
	}
	return e.state.FactoryConfigPut(&Config{
		Owner:          normalized,
		SourceTemplate: sourceTemplate,
		DestTemplate:   destTemplate,
	})
}

// CreateResult reports a queued escrow creation: the registry salt, the
// correlation id the spawned instance will report back with, and the
// instantiate message for the host.
type CreateResult struct {
	Salt          string
	CorrelationID uint64
	Msgs          []types.Msg
}

// CreateEscrow registers a pending row under the salt derived from the
// creator, the block time and the label, and queues the instantiation of the
// matching template. Escrow creation is permissionless. A salt collision
// within one block fails.
func (e *Engine) CreateEscrow(kind EscrowKind, creator string, blockNanos int64, label string, params json.RawMessage) (*CreateResult, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	normalized, err := crypto.NormalizeAddress(creator)
	if err != nil {
		return nil, fmt.Errorf("factory: creator: %w", err)
	}
	template := cfg.SourceTemplate
	if kind == KindDest {
		template = cfg.DestTemplate
	}

	salt := DeriveSalt(normalized, blockNanos, label)
	if _, exists := e.state.FactoryRecordGet(salt); exists {
		return nil, ErrEscrowAlreadyExists
	}
	correlationID, err := e.state.FactorySequenceNext()
	if err != nil {
		return nil, err
	}

	record := &EscrowRecord{
		Salt:          salt,
		Kind:          kind,
		Creator:       normalized,
		Label:         label,
		CorrelationID: correlationID,
		CreatedAt:     e.nowFn(),
		Pending:       true,
	}
	if err := e.state.FactoryRecordPut(record); err != nil {
		return nil, err
	}
	if err := e.state.FactoryCorrelationPut(correlationID, salt); err != nil {
		return nil, err
	}

	e.emit(NewEscrowRequestedEvent(record))
	return &CreateResult{
		Salt:          salt,
		CorrelationID: correlationID,
		Msgs: []types.Msg{types.InstantiateMsg{
			Template:      template,
			Msg:           params,
			Label:         label,
			CorrelationID: correlationID,
		}},
	}, nil
}

// OnInstanceCreated patches the registry row identified by the correlation id
// with the address of the freshly spawned instance. The row is addressed
// directly, never found by scanning for pending rows.
func (e *Engine) OnInstanceCreated(correlationID uint64, addr string) (*EscrowRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	salt, ok := e.state.FactoryCorrelationGet(correlationID)
	if !ok {
		return nil, ErrUnknownCorrelation
	}
	record, ok := e.state.FactoryRecordGet(salt)
	if !ok {
		return nil, ErrNotFound
	}
	record.Address = addr
	record.Pending = false
	if err := e.state.FactoryRecordPut(record); err != nil {
		return nil, err
	}
	e.emit(NewEscrowCreatedEvent(record))
	return record.Clone(), nil
}

// UpdateTemplates replaces the escrow templates. Owner only.
func (e *Engine) UpdateTemplates(caller, sourceTemplate, destTemplate string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	if sourceTemplate != "" {
		cfg.SourceTemplate = sourceTemplate
	}
	if destTemplate != "" {
		cfg.DestTemplate = destTemplate
	}
	return e.state.FactoryConfigPut(cfg)
}

// UpdateOwner transfers factory ownership. Owner only.
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
		return fmt.Errorf("factory: new owner: %w", err)
	}
	cfg.Owner = normalized
	return e.state.FactoryConfigPut(cfg)
}

// GetConfig returns a copy of the factory configuration.
func (e *Engine) GetConfig() (*Config, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// EscrowAddress resolves a salt to the spawned instance address. A pending
// row has no address yet and reports not found.
func (e *Engine) EscrowAddress(salt string) (string, error) {
	if e.state == nil {
		return "", ErrNilState
	}
	record, ok := e.state.FactoryRecordGet(salt)
	if !ok || record.Pending {
		return "", ErrNotFound
	}
	return record.Address, nil
}

// EscrowBySalt returns a copy of the registry row for salt.
func (e *Engine) EscrowBySalt(salt string) (*EscrowRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	record, ok := e.state.FactoryRecordGet(salt)
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// EscrowList pages through the registry ordered by salt. A zero limit uses
// the default page size and limits above the maximum are clamped.
func (e *Engine) EscrowList(startAfter string, limit int) ([]*EscrowRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if limit <= 0 {
		limit = listLimitDefault
	}
	if limit > listLimitMax {
		limit = listLimitMax
	}
	return e.state.FactoryRecordList(startAfter, limit)
}
