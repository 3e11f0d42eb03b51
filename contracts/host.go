package contracts

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/state"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/auction"
	"github.com/JadeSamLee/cosmos-swap/native/escrow"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
	"github.com/JadeSamLee/cosmos-swap/native/partialfill"
	"github.com/JadeSamLee/cosmos-swap/native/resolver"
	"github.com/JadeSamLee/cosmos-swap/native/token"
	"github.com/JadeSamLee/cosmos-swap/observability"
	"github.com/JadeSamLee/cosmos-swap/storage"
)

const maxMsgDepth = 16

// Host owns the contract instances. Every external call runs against a write
// overlay of the backing store: the whole call, including all queued
// submessages and bank moves, commits on success or leaves no trace.
type Host struct {
	mu      sync.Mutex
	base    storage.Database
	manager *state.Manager
	logger  *slog.Logger
	nowFn   func() time.Time
}

// NewHost creates a host over db.
func NewHost(db storage.Database, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		base:    db,
		manager: state.NewManager(db),
		logger:  logger,
		nowFn:   time.Now,
	}
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (h *Host) SetNowFunc(now func() time.Time) {
	if now == nil {
		h.nowFn = time.Now
		return
	}
	h.nowFn = now
}

// engines binds every protocol engine to one scoped state manager so a call
// sees a single consistent view.
type engines struct {
	mgr  *state.Manager
	src  *escrow.SourceEngine
	dst  *escrow.DestEngine
	fac  *factory.Engine
	res  *resolver.Engine
	auc  *auction.Engine
	fill *partialfill.Engine
	tok  *token.Engine
	rec  *events.Recorder
}

func newEngines(mgr *state.Manager, now int64) *engines {
	eng := &engines{
		mgr:  mgr,
		src:  escrow.NewSourceEngine(),
		dst:  escrow.NewDestEngine(),
		fac:  factory.NewEngine(),
		res:  resolver.NewEngine(),
		auc:  auction.NewEngine(),
		fill: partialfill.NewEngine(),
		tok:  token.NewEngine(),
		rec:  &events.Recorder{},
	}
	nowFn := func() int64 { return now }
	eng.src.SetState(mgr)
	eng.src.SetNowFunc(nowFn)
	eng.src.SetEmitter(eng.rec)
	eng.dst.SetState(mgr)
	eng.dst.SetNowFunc(nowFn)
	eng.dst.SetEmitter(eng.rec)
	eng.fac.SetState(mgr)
	eng.fac.SetNowFunc(nowFn)
	eng.fac.SetEmitter(eng.rec)
	eng.res.SetState(mgr)
	eng.res.SetNowFunc(nowFn)
	eng.res.SetEmitter(eng.rec)
	eng.auc.SetState(mgr)
	eng.auc.SetNowFunc(nowFn)
	eng.auc.SetEmitter(eng.rec)
	eng.fill.SetState(mgr)
	eng.fill.SetNowFunc(nowFn)
	eng.fill.SetEmitter(eng.rec)
	eng.tok.SetState(mgr)
	eng.tok.SetEmitter(eng.rec)
	return eng
}

func (h *Host) env(contract string) Env {
	now := h.nowFn()
	return Env{
		BlockTime:      now.Unix(),
		BlockTimeNanos: now.UnixNano(),
		Contract:       contract,
	}
}

// Fund credits native coins to an address outside any contract call. Intended
// for genesis and tests.
func (h *Host) Fund(addr string, coins []types.Coin) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range coins {
		if err := c.Validate(); err != nil {
			return err
		}
		bal := h.manager.BankBalance(addr, c.Denom)
		if err := h.manager.BankSet(addr, c.Denom, new(big.Int).Add(bal, c.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// Balance reports the native balance of addr in denom.
func (h *Host) Balance(addr, denom string) *big.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manager.BankBalance(addr, denom)
}

// Instantiate spawns an instance of template and returns its address. The
// entire creation, including any callback wiring, is atomic.
func (h *Host) Instantiate(template, creator, label string, msg []byte, funds []types.Coin) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	overlay := storage.NewOverlay(h.base)
	scoped := h.manager.WithDB(overlay)
	env := h.env("")
	eng := newEngines(scoped, env.BlockTime)

	addr, err := h.instantiate(eng, env, template, creator, label, msg, funds, 0, 0)
	observability.RecordCall(template, "instantiate", err)
	if err != nil {
		overlay.Discard()
		return "", err
	}
	if err := overlay.Commit(); err != nil {
		return "", err
	}
	h.logger.Info("instance spawned", "template", template, "address", addr, "label", label)
	return addr, nil
}

// Execute routes a JSON message to the contract at addr. Funds attached to
// the call are moved to the contract before the handler runs.
func (h *Host) Execute(addr, sender string, funds []types.Coin, msg []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	overlay := storage.NewOverlay(h.base)
	scoped := h.manager.WithDB(overlay)
	env := h.env(addr)
	eng := newEngines(scoped, env.BlockTime)

	inst, ok := scoped.InstanceGet(addr)
	template := "unknown"
	if ok {
		template = inst.Template
	}
	err := h.execute(eng, env, addr, sender, funds, msg, 0)
	observability.RecordCall(template, "execute", err)
	if err != nil {
		overlay.Discard()
		return err
	}
	if err := overlay.Commit(); err != nil {
		return err
	}
	for _, evt := range eng.rec.Events {
		h.logger.Debug("contract event", "type", evt.Type, "attributes", evt.Attributes)
	}
	return nil
}

// Query routes a read-only JSON query to the contract at addr.
func (h *Host) Query(addr string, msg []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := h.env(addr)
	eng := newEngines(h.manager, env.BlockTime)
	inst, ok := h.manager.InstanceGet(addr)
	if !ok {
		return nil, ErrUnknownContract
	}
	out, err := h.query(eng, env, inst, msg)
	observability.RecordCall(inst.Template, "query", err)
	return out, err
}

func (h *Host) instantiate(eng *engines, env Env, template, creator, label string, msg []byte, funds []types.Coin, correlationID uint64, depth int) (string, error) {
	if depth > maxMsgDepth {
		return "", ErrDepthExceeded
	}
	seq, err := eng.mgr.InstanceSequenceNext()
	if err != nil {
		return "", err
	}
	addr := crypto.DeriveAddress(creator, seq).String()

	if len(funds) > 0 {
		if err := h.bankMove(eng.mgr, creator, addr, funds); err != nil {
			return "", err
		}
	}

	if err := h.initInstance(eng, env, template, addr, msg); err != nil {
		return "", err
	}
	if err := eng.mgr.InstancePut(&state.Instance{
		Address:       addr,
		Template:      template,
		Label:         label,
		Creator:       creator,
		CorrelationID: correlationID,
		CreatedAt:     env.BlockTime,
	}); err != nil {
		return "", err
	}
	observability.InstancesSpawned.WithLabelValues(template).Inc()

	// A nonzero correlation id means the factory requested this instance:
	// report the address back so the registry row and any resolver order
	// waiting on the same salt are patched in this transaction.
	if correlationID != 0 {
		record, err := eng.fac.OnInstanceCreated(correlationID, addr)
		if err != nil {
			return "", err
		}
		if _, err := eng.res.BindEscrow(record.Salt, addr); err != nil && !errors.Is(err, resolver.ErrNotFound) {
			return "", err
		}
	}
	return addr, nil
}

func (h *Host) initInstance(eng *engines, env Env, template, addr string, msg []byte) error {
	switch template {
	case TemplateSourceEscrow:
		var params escrow.SourceParams
		if err := unmarshalStrict(msg, &params); err != nil {
			return err
		}
		_, err := eng.src.Instantiate(addr, params)
		return err
	case TemplateDestEscrow:
		var params escrow.DestParams
		if err := unmarshalStrict(msg, &params); err != nil {
			return err
		}
		_, err := eng.dst.Instantiate(addr, params)
		return err
	case TemplateFactory:
		var init factoryInitMsg
		if err := unmarshalStrict(msg, &init); err != nil {
			return err
		}
		return eng.fac.Initialize(init.Owner, init.SourceTemplate, init.DestTemplate)
	case TemplateResolver:
		var init resolverInitMsg
		if err := unmarshalStrict(msg, &init); err != nil {
			return err
		}
		if err := eng.res.Initialize(init.Owner, init.Factory, init.Relayers); err != nil {
			return err
		}
		return nil
	case TemplateAuction:
		var params auction.Params
		if err := unmarshalStrict(msg, &params); err != nil {
			return err
		}
		_, err := eng.auc.Instantiate(addr, params)
		return err
	case TemplateFillBook:
		// The fill book has no per-instance setup.
		return nil
	case TemplateToken:
		var params token.Params
		if err := unmarshalStrict(msg, &params); err != nil {
			return err
		}
		_, err := eng.tok.Instantiate(addr, params)
		return err
	}
	return ErrUnknownTemplate
}

func (h *Host) execute(eng *engines, env Env, addr, sender string, funds []types.Coin, msg []byte, depth int) error {
	if depth > maxMsgDepth {
		return ErrDepthExceeded
	}
	observability.MessageDepth.Observe(float64(depth + 1))

	inst, ok := eng.mgr.InstanceGet(addr)
	if !ok {
		return ErrUnknownContract
	}
	if len(funds) > 0 {
		if err := h.bankMove(eng.mgr, sender, addr, funds); err != nil {
			return err
		}
	}

	info := MsgInfo{Sender: sender, Funds: funds}
	out, err := h.dispatch(eng, env, inst, info, msg)
	if err != nil {
		return err
	}
	return h.applyMsgs(eng, env, addr, out, depth)
}

func (h *Host) applyMsgs(eng *engines, env Env, emitter string, msgs []types.Msg, depth int) error {
	for _, m := range msgs {
		switch msg := m.(type) {
		case types.SendMsg:
			if err := h.bankMove(eng.mgr, emitter, msg.ToAddress, msg.Amount); err != nil {
				return err
			}
		case types.TokenTransferMsg:
			if err := eng.tok.Transfer(msg.Contract, emitter, msg.Recipient, msg.Amount); err != nil {
				return err
			}
		case types.ExecMsg:
			if err := h.execute(eng, env, msg.Contract, emitter, msg.Funds, msg.Msg, depth+1); err != nil {
				return err
			}
		case types.InstantiateMsg:
			if _, err := h.instantiate(eng, env, msg.Template, emitter, msg.Label, msg.Msg, nil, msg.CorrelationID, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Host) bankMove(mgr *state.Manager, from, to string, coins []types.Coin) error {
	for _, c := range coins {
		if err := c.Validate(); err != nil {
			return err
		}
		fromBal := mgr.BankBalance(from, c.Denom)
		if fromBal.Cmp(c.Amount) < 0 {
			return ErrInsufficientFunds
		}
		toBal := mgr.BankBalance(to, c.Denom)
		if err := mgr.BankSet(from, c.Denom, new(big.Int).Sub(fromBal, c.Amount)); err != nil {
			return err
		}
		if err := mgr.BankSet(to, c.Denom, new(big.Int).Add(toBal, c.Amount)); err != nil {
			return err
		}
	}
	return nil
}
