package factory

import (
	"bytes"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

type mockState struct {
	config       *Config
	records      map[string]*EscrowRecord
	correlations map[uint64]string
	sequence     uint64
}

func newMockState() *mockState {
	return &mockState{
		records:      make(map[string]*EscrowRecord),
		correlations: make(map[uint64]string),
	}
}

func (m *mockState) FactoryConfigPut(cfg *Config) error {
	m.config = cfg.Clone()
	return nil
}

func (m *mockState) FactoryConfigGet() (*Config, bool) {
	if m.config == nil {
		return nil, false
	}
	return m.config.Clone(), true
}

func (m *mockState) FactoryRecordPut(r *EscrowRecord) error {
	m.records[r.Salt] = r.Clone()
	return nil
}

func (m *mockState) FactoryRecordGet(salt string) (*EscrowRecord, bool) {
	r, ok := m.records[salt]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

func (m *mockState) FactoryRecordList(startAfter string, limit int) ([]*EscrowRecord, error) {
	salts := make([]string, 0, len(m.records))
	for salt := range m.records {
		if startAfter != "" && salt <= startAfter {
			continue
		}
		salts = append(salts, salt)
	}
	sort.Strings(salts)
	if len(salts) > limit {
		salts = salts[:limit]
	}
	out := make([]*EscrowRecord, 0, len(salts))
	for _, salt := range salts {
		out = append(out, m.records[salt].Clone())
	}
	return out, nil
}

func (m *mockState) FactoryCorrelationPut(id uint64, salt string) error {
	m.correlations[id] = salt
	return nil
}

func (m *mockState) FactoryCorrelationGet(id uint64) (string, bool) {
	salt, ok := m.correlations[id]
	return salt, ok
}

func (m *mockState) FactorySequenceNext() (uint64, error) {
	m.sequence++
	return m.sequence, nil
}

func testAddr(fill byte) string {
	return crypto.NewAddress(crypto.SwapPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func newTestEngine(state State) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_000 })
	return engine
}

func TestCreateEscrowRegistersPendingRow(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	owner := testAddr(0x01)
	require.NoError(t, engine.Initialize(owner, "src-escrow", "dst-escrow"))

	creator := testAddr(0x02)
	params := json.RawMessage(`{"maker":"x"}`)
	res, err := engine.CreateEscrow(KindSource, creator, 42_000, "swap-1", params)
	require.NoError(t, err)
	require.Equal(t, DeriveSalt(creator, 42_000, "swap-1"), res.Salt)
	require.Len(t, res.Msgs, 1)

	inst, ok := res.Msgs[0].(types.InstantiateMsg)
	require.True(t, ok)
	require.Equal(t, "src-escrow", inst.Template)
	require.Equal(t, res.CorrelationID, inst.CorrelationID)

	row, err := engine.EscrowBySalt(res.Salt)
	require.NoError(t, err)
	require.True(t, row.Pending)
	require.Empty(t, row.Address)

	// A pending row resolves to no address.
	_, err = engine.EscrowAddress(res.Salt)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEscrowDuplicateSalt(t *testing.T) {
	engine := newTestEngine(newMockState())
	require.NoError(t, engine.Initialize(testAddr(0x01), "src", "dst"))

	creator := testAddr(0x02)
	_, err := engine.CreateEscrow(KindSource, creator, 42_000, "swap-1", nil)
	require.NoError(t, err)

	// Same creator, block time and label collide.
	_, err = engine.CreateEscrow(KindSource, creator, 42_000, "swap-1", nil)
	require.ErrorIs(t, err, ErrEscrowAlreadyExists)

	// Any component of the salt differing is fine.
	_, err = engine.CreateEscrow(KindSource, creator, 42_001, "swap-1", nil)
	require.NoError(t, err)
	_, err = engine.CreateEscrow(KindSource, creator, 42_000, "swap-2", nil)
	require.NoError(t, err)
}

func TestOnInstanceCreatedPatchesExactRow(t *testing.T) {
	engine := newTestEngine(newMockState())
	require.NoError(t, engine.Initialize(testAddr(0x01), "src", "dst"))

	creator := testAddr(0x02)
	first, err := engine.CreateEscrow(KindSource, creator, 42_000, "a", nil)
	require.NoError(t, err)
	second, err := engine.CreateEscrow(KindDest, creator, 42_000, "b", nil)
	require.NoError(t, err)

	// Two pending rows in flight; the callback must land on the row its
	// correlation id names, not on whichever pending row sorts first.
	addr := testAddr(0xEE)
	row, err := engine.OnInstanceCreated(second.CorrelationID, addr)
	require.NoError(t, err)
	require.Equal(t, second.Salt, row.Salt)
	require.False(t, row.Pending)

	got, err := engine.EscrowAddress(second.Salt)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	// The first row is still pending.
	_, err = engine.EscrowAddress(first.Salt)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = engine.OnInstanceCreated(999, addr)
	require.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestUpdateTemplatesAndOwnerAreOwnerGated(t *testing.T) {
	engine := newTestEngine(newMockState())
	owner := testAddr(0x01)
	require.NoError(t, engine.Initialize(owner, "src", "dst"))

	require.ErrorIs(t, engine.UpdateTemplates(testAddr(0x02), "src2", "dst2"), ErrUnauthorized)
	require.NoError(t, engine.UpdateTemplates(owner, "src2", ""))

	cfg, err := engine.GetConfig()
	require.NoError(t, err)
	require.Equal(t, "src2", cfg.SourceTemplate)
	require.Equal(t, "dst", cfg.DestTemplate)

	next := testAddr(0x03)
	require.ErrorIs(t, engine.UpdateOwner(next, next), ErrUnauthorized)
	require.NoError(t, engine.UpdateOwner(owner, next))

	// The old owner lost its rights.
	require.ErrorIs(t, engine.UpdateTemplates(owner, "x", "y"), ErrUnauthorized)
	require.NoError(t, engine.UpdateTemplates(next, "x", "y"))
}

func TestEscrowListPaging(t *testing.T) {
	engine := newTestEngine(newMockState())
	require.NoError(t, engine.Initialize(testAddr(0x01), "src", "dst"))

	creator := testAddr(0x02)
	for i := int64(0); i < 5; i++ {
		_, err := engine.CreateEscrow(KindSource, creator, 10_000+i, "swap", nil)
		require.NoError(t, err)
	}

	page, err := engine.EscrowList("", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := engine.EscrowList(page[1].Salt, 0)
	require.NoError(t, err)
	require.Len(t, rest, 3)

	clamped, err := engine.EscrowList("", 1_000)
	require.NoError(t, err)
	require.Len(t, clamped, 5)
}

func TestCreateEscrowRequiresInit(t *testing.T) {
	engine := newTestEngine(newMockState())
	_, err := engine.CreateEscrow(KindSource, testAddr(0x02), 1, "x", nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}
