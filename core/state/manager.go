package state

import (
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/JadeSamLee/cosmos-swap/native/auction"
	"github.com/JadeSamLee/cosmos-swap/native/escrow"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
	"github.com/JadeSamLee/cosmos-swap/native/partialfill"
	"github.com/JadeSamLee/cosmos-swap/native/resolver"
	"github.com/JadeSamLee/cosmos-swap/native/token"
	"github.com/JadeSamLee/cosmos-swap/storage"
)

// Key prefixes. Every record type lives under its own namespace so prefix
// iteration stays cheap.
var (
	srcEscrowPrefix    = []byte("escrow/src/")
	dstEscrowPrefix    = []byte("escrow/dst/")
	factoryConfigKey   = []byte("factory/config")
	factoryRecPrefix   = []byte("factory/record/")
	factoryCorrPrefix  = []byte("factory/corr/")
	factorySeqKey      = []byte("factory/seq")
	resolverConfigKey  = []byte("resolver/config")
	orderPrefix        = []byte("resolver/order/")
	orderIndexPrefix   = []byte("resolver/index/")
	pendingBindPrefix  = []byte("resolver/pending/")
	resolverSeqKey     = []byte("resolver/seq")
	auctionPrefix      = []byte("auction/")
	fillOrderPrefix    = []byte("fillbook/")
	tokenInfoPrefix    = []byte("token/info/")
	tokenBalancePrefix = []byte("token/bal/")
	bankPrefix         = []byte("bank/")
	instanceSeqKey     = []byte("host/instance_seq")
	instancePrefix     = []byte("host/instance/")
)

// Manager provides the persistence layer for every engine. Records are JSON
// encoded under prefixed keys; the same Manager can be rebound onto a write
// overlay so a whole contract call commits or rolls back as one unit.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// WithDB returns a Manager bound to another database, typically a write
// overlay of this Manager's backend.
func (m *Manager) WithDB(db storage.Database) *Manager {
	return &Manager{db: db}
}

// DB exposes the underlying database.
func (m *Manager) DB() storage.Database { return m.db }

func (m *Manager) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

func (m *Manager) getJSON(key []byte, v interface{}) bool {
	raw, err := m.db.Get(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (m *Manager) nextSeq(key []byte) (uint64, error) {
	var seq uint64
	if raw, err := m.db.Get(key); err == nil && len(raw) == 8 {
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := m.db.Put(key, buf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

// --- escrow.SourceState / escrow.DestState ---

func (m *Manager) SourceEscrowPut(e *escrow.SourceEscrow) error {
	return m.putJSON(append(srcEscrowPrefix, e.Address...), e)
}

func (m *Manager) SourceEscrowGet(addr string) (*escrow.SourceEscrow, bool) {
	var e escrow.SourceEscrow
	if !m.getJSON(append(srcEscrowPrefix, addr...), &e) {
		return nil, false
	}
	return &e, true
}

func (m *Manager) DestEscrowPut(e *escrow.DestinationEscrow) error {
	return m.putJSON(append(dstEscrowPrefix, e.Address...), e)
}

func (m *Manager) DestEscrowGet(addr string) (*escrow.DestinationEscrow, bool) {
	var e escrow.DestinationEscrow
	if !m.getJSON(append(dstEscrowPrefix, addr...), &e) {
		return nil, false
	}
	return &e, true
}

// --- factory.State ---

func (m *Manager) FactoryConfigPut(cfg *factory.Config) error {
	return m.putJSON(factoryConfigKey, cfg)
}

func (m *Manager) FactoryConfigGet() (*factory.Config, bool) {
	var cfg factory.Config
	if !m.getJSON(factoryConfigKey, &cfg) {
		return nil, false
	}
	return &cfg, true
}

func (m *Manager) FactoryRecordPut(r *factory.EscrowRecord) error {
	return m.putJSON(append(factoryRecPrefix, r.Salt...), r)
}

func (m *Manager) FactoryRecordGet(salt string) (*factory.EscrowRecord, bool) {
	var r factory.EscrowRecord
	if !m.getJSON(append(factoryRecPrefix, salt...), &r) {
		return nil, false
	}
	return &r, true
}

func (m *Manager) FactoryRecordList(startAfter string, limit int) ([]*factory.EscrowRecord, error) {
	var after []byte
	if startAfter != "" {
		after = append(factoryRecPrefix, startAfter...)
	}
	var out []*factory.EscrowRecord
	err := m.db.Iterate(factoryRecPrefix, after, limit, func(_, value []byte) bool {
		var r factory.EscrowRecord
		if json.Unmarshal(value, &r) == nil {
			out = append(out, &r)
		}
		return true
	})
	return out, err
}

func correlationKey(id uint64) []byte {
	key := make([]byte, len(factoryCorrPrefix)+8)
	copy(key, factoryCorrPrefix)
	binary.BigEndian.PutUint64(key[len(factoryCorrPrefix):], id)
	return key
}

func (m *Manager) FactoryCorrelationPut(id uint64, salt string) error {
	return m.db.Put(correlationKey(id), []byte(salt))
}

func (m *Manager) FactoryCorrelationGet(id uint64) (string, bool) {
	raw, err := m.db.Get(correlationKey(id))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (m *Manager) FactorySequenceNext() (uint64, error) {
	return m.nextSeq(factorySeqKey)
}

// --- resolver.State ---

func (m *Manager) ResolverConfigPut(cfg *resolver.Config) error {
	return m.putJSON(resolverConfigKey, cfg)
}

func (m *Manager) ResolverConfigGet() (*resolver.Config, bool) {
	var cfg resolver.Config
	if !m.getJSON(resolverConfigKey, &cfg) {
		return nil, false
	}
	return &cfg, true
}

func (m *Manager) OrderPut(o *resolver.Order) error {
	return m.putJSON(append(orderPrefix, o.ID...), o)
}

func (m *Manager) OrderGet(id string) (*resolver.Order, bool) {
	var o resolver.Order
	if !m.getJSON(append(orderPrefix, id...), &o) {
		return nil, false
	}
	return &o, true
}

func (m *Manager) OrderList(startAfter string, limit int) ([]*resolver.Order, error) {
	var after []byte
	if startAfter != "" {
		after = append(orderPrefix, startAfter...)
	}
	var out []*resolver.Order
	err := m.db.Iterate(orderPrefix, after, limit, func(_, value []byte) bool {
		var o resolver.Order
		if json.Unmarshal(value, &o) == nil {
			out = append(out, &o)
		}
		return true
	})
	return out, err
}

func (m *Manager) OrderIndexPut(escrowAddr, orderID string) error {
	return m.db.Put(append(orderIndexPrefix, escrowAddr...), []byte(orderID))
}

func (m *Manager) OrderIndexGet(escrowAddr string) (string, bool) {
	raw, err := m.db.Get(append(orderIndexPrefix, escrowAddr...))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (m *Manager) PendingBindPut(salt string, bind *resolver.PendingBind) error {
	return m.putJSON(append(pendingBindPrefix, salt...), bind)
}

func (m *Manager) PendingBindGet(salt string) (*resolver.PendingBind, bool) {
	var bind resolver.PendingBind
	if !m.getJSON(append(pendingBindPrefix, salt...), &bind) {
		return nil, false
	}
	return &bind, true
}

func (m *Manager) PendingBindDelete(salt string) error {
	return m.db.Delete(append(pendingBindPrefix, salt...))
}

func (m *Manager) ResolverSequenceNext() (uint64, error) {
	return m.nextSeq(resolverSeqKey)
}

// --- auction.State ---

func (m *Manager) AuctionPut(a *auction.Auction) error {
	return m.putJSON(append(auctionPrefix, a.Address...), a)
}

func (m *Manager) AuctionGet(addr string) (*auction.Auction, bool) {
	var a auction.Auction
	if !m.getJSON(append(auctionPrefix, addr...), &a) {
		return nil, false
	}
	return &a, true
}

// --- partialfill.State ---

func (m *Manager) FillOrderPut(o *partialfill.Order) error {
	return m.putJSON(append(fillOrderPrefix, o.ID...), o)
}

func (m *Manager) FillOrderGet(id string) (*partialfill.Order, bool) {
	var o partialfill.Order
	if !m.getJSON(append(fillOrderPrefix, id...), &o) {
		return nil, false
	}
	return &o, true
}

// --- token.State ---

func (m *Manager) TokenInfoPut(info *token.Info) error {
	return m.putJSON(append(tokenInfoPrefix, info.Address...), info)
}

func (m *Manager) TokenInfoGet(addr string) (*token.Info, bool) {
	var info token.Info
	if !m.getJSON(append(tokenInfoPrefix, addr...), &info) {
		return nil, false
	}
	return &info, true
}

func tokenBalanceKey(tok, holder string) []byte {
	key := make([]byte, 0, len(tokenBalancePrefix)+len(tok)+1+len(holder))
	key = append(key, tokenBalancePrefix...)
	key = append(key, tok...)
	key = append(key, '/')
	key = append(key, holder...)
	return key
}

func (m *Manager) TokenBalancePut(tok, holder string, amount *big.Int) error {
	return m.db.Put(tokenBalanceKey(tok, holder), []byte(amount.String()))
}

func (m *Manager) TokenBalanceGet(tok, holder string) (*big.Int, bool) {
	raw, err := m.db.Get(tokenBalanceKey(tok, holder))
	if err != nil {
		return nil, false
	}
	bal, ok := new(big.Int).SetString(string(raw), 10)
	return bal, ok
}

// --- bank balances ---

func bankKey(addr, denom string) []byte {
	key := make([]byte, 0, len(bankPrefix)+len(addr)+1+len(denom))
	key = append(key, bankPrefix...)
	key = append(key, addr...)
	key = append(key, '/')
	key = append(key, denom...)
	return key
}

// BankBalance returns the native balance of addr in denom, zero when unset.
func (m *Manager) BankBalance(addr, denom string) *big.Int {
	raw, err := m.db.Get(bankKey(addr, denom))
	if err != nil {
		return big.NewInt(0)
	}
	bal, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return big.NewInt(0)
	}
	return bal
}

// BankSet overwrites the native balance of addr in denom.
func (m *Manager) BankSet(addr, denom string, amount *big.Int) error {
	return m.db.Put(bankKey(addr, denom), []byte(amount.String()))
}

// --- host instance registry ---

// Instance records a spawned contract instance.
type Instance struct {
	Address       string `json:"address"`
	Template      string `json:"template"`
	Label         string `json:"label"`
	Creator       string `json:"creator"`
	CorrelationID uint64 `json:"correlation_id,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

func (m *Manager) InstancePut(inst *Instance) error {
	return m.putJSON(append(instancePrefix, inst.Address...), inst)
}

func (m *Manager) InstanceGet(addr string) (*Instance, bool) {
	var inst Instance
	if !m.getJSON(append(instancePrefix, addr...), &inst) {
		return nil, false
	}
	return &inst, true
}

func (m *Manager) InstanceSequenceNext() (uint64, error) {
	return m.nextSeq(instanceSeqKey)
}
