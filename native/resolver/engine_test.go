package resolver

import (
	"bytes"
	"encoding/json"
	"math/big"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/escrow"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
)

type mockState struct {
	config   *Config
	orders   map[string]*Order
	index    map[string]string
	pending  map[string]*PendingBind
	sequence uint64
}

func newMockState() *mockState {
	return &mockState{
		orders:  make(map[string]*Order),
		index:   make(map[string]string),
		pending: make(map[string]*PendingBind),
	}
}

func (m *mockState) ResolverConfigPut(cfg *Config) error {
	m.config = cfg.Clone()
	return nil
}

func (m *mockState) ResolverConfigGet() (*Config, bool) {
	if m.config == nil {
		return nil, false
	}
	return m.config.Clone(), true
}

func (m *mockState) OrderPut(o *Order) error {
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *mockState) OrderGet(id string) (*Order, bool) {
	o, ok := m.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *mockState) OrderList(startAfter string, limit int) ([]*Order, error) {
	ids := make([]string, 0, len(m.orders))
	for id := range m.orders {
		if startAfter != "" && id <= startAfter {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.orders[id].Clone())
	}
	return out, nil
}

func (m *mockState) OrderIndexPut(escrowAddr, orderID string) error {
	m.index[escrowAddr] = orderID
	return nil
}

func (m *mockState) OrderIndexGet(escrowAddr string) (string, bool) {
	id, ok := m.index[escrowAddr]
	return id, ok
}

func (m *mockState) PendingBindPut(salt string, bind *PendingBind) error {
	clone := *bind
	m.pending[salt] = &clone
	return nil
}

func (m *mockState) PendingBindGet(salt string) (*PendingBind, bool) {
	bind, ok := m.pending[salt]
	if !ok {
		return nil, false
	}
	clone := *bind
	return &clone, true
}

func (m *mockState) PendingBindDelete(salt string) error {
	delete(m.pending, salt)
	return nil
}

func (m *mockState) ResolverSequenceNext() (uint64, error) {
	m.sequence++
	return m.sequence, nil
}

func testAddr(fill byte) string {
	return crypto.NewAddress(crypto.SwapPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

var (
	ownerAddr   = testAddr(0x01)
	relayerAddr = testAddr(0x02)
	makerAddr   = testAddr(0x03)
	selfAddr    = testAddr(0xAA)
	factoryAddr = testAddr(0xFA)
)

func newTestEngine(t *testing.T, state State) *Engine {
	t.Helper()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_000 })
	engine.SetSelf(selfAddr)
	require.NoError(t, engine.Initialize(ownerAddr, factoryAddr, []string{relayerAddr}))
	return engine
}

func deployOrder(t *testing.T, engine *Engine, caller string) *Order {
	t.Helper()
	order, msgs, err := engine.DeploySource(caller, 42_000, DeploySourceParams{
		Maker:      makerAddr,
		SecretHash: escrow.HashSecret("s"),
		Timelock:   5_000,
		Amount:     big.NewInt(100),
		Denom:      "uatom",
		DstChainID: "eth-1",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return order
}

func TestDeploySourceAuthorization(t *testing.T) {
	engine := newTestEngine(t, newMockState())

	deployOrder(t, engine, ownerAddr)
	deployOrder(t, engine, relayerAddr)

	_, _, err := engine.DeploySource(testAddr(0x99), 42_000, DeploySourceParams{Maker: makerAddr})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeploySourceRequiresPositiveAmount(t *testing.T) {
	engine := newTestEngine(t, newMockState())

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, _, err := engine.DeploySource(ownerAddr, 42_000, DeploySourceParams{
			Maker:      makerAddr,
			SecretHash: escrow.HashSecret("s"),
			Timelock:   5_000,
			Amount:     amount,
			Denom:      "uatom",
		})
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestDeploySourceQueuesFactoryCall(t *testing.T) {
	engine := newTestEngine(t, newMockState())

	order, msgs, err := engine.DeploySource(ownerAddr, 42_000, DeploySourceParams{
		Maker:      makerAddr,
		SecretHash: escrow.HashSecret("s"),
		Amount:     big.NewInt(100),
		Denom:      "uatom",
	})
	require.NoError(t, err)
	require.Equal(t, "order_1", order.ID)
	require.Equal(t, OrderActive, order.Status)
	require.Equal(t, big.NewInt(0), order.FilledAmount)
	require.Equal(t, big.NewInt(100), order.RemainingAmount)

	exec, ok := msgs[0].(types.ExecMsg)
	require.True(t, ok)
	require.Equal(t, factoryAddr, exec.Contract)

	var envelope struct {
		CreateSrcEscrow *createEscrowMsg `json:"create_src_escrow"`
	}
	require.NoError(t, json.Unmarshal(exec.Msg, &envelope))
	require.NotNil(t, envelope.CreateSrcEscrow)
	require.Equal(t, "order_1", envelope.CreateSrcEscrow.Label)
}

func TestBindEscrowBySalt(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)

	// The resolver derived the same salt the factory will: its own address,
	// the block time and the order id as label.
	salt := factory.DeriveSalt(selfAddr, 42_000, order.ID)
	escrowAddr := testAddr(0xEE)
	bound, err := engine.BindEscrow(salt, escrowAddr)
	require.NoError(t, err)
	require.Equal(t, order.ID, bound.ID)
	require.Equal(t, escrowAddr, bound.SrcEscrowAddress)

	// Reverse lookup via the index, not a scan.
	byEscrow, err := engine.OrderByEscrow(escrowAddr)
	require.NoError(t, err)
	require.Equal(t, order.ID, byEscrow.ID)

	// The pending entry is consumed.
	_, err = engine.BindEscrow(salt, escrowAddr)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeployDestinationBindsSecondLeg(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)
	_, err := engine.BindEscrow(factory.DeriveSalt(selfAddr, 42_000, order.ID), testAddr(0xEE))
	require.NoError(t, err)

	msgs, err := engine.DeployDestination(relayerAddr, order.ID, 43_000, DeployDestParams{
		Taker:          relayerAddr,
		Timelock:       5_000,
		SrcChainID:     "cosmoshub-4",
		ExpectedAmount: big.NewInt(90),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	dstAddr := testAddr(0xDD)
	bound, err := engine.BindEscrow(factory.DeriveSalt(selfAddr, 43_000, order.ID+":dst"), dstAddr)
	require.NoError(t, err)
	require.Equal(t, dstAddr, bound.DstEscrowAddress)
	require.Equal(t, testAddr(0xEE), bound.SrcEscrowAddress)
}

func TestProcessOrderRelayerOnly(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)
	_, err := engine.BindEscrow(factory.DeriveSalt(selfAddr, 42_000, order.ID), testAddr(0xEE))
	require.NoError(t, err)

	// The owner is not exempt from the relayer gate.
	_, err = engine.ProcessOrder(ownerAddr, order.ID, ProcessParams{Action: ActionExecuteSwap, Secret: "s"})
	require.ErrorIs(t, err, ErrInvalidRelayer)
	_, err = engine.ProcessOrder(testAddr(0x99), order.ID, ProcessParams{Action: ActionExecuteSwap, Secret: "s"})
	require.ErrorIs(t, err, ErrInvalidRelayer)

	msgs, err := engine.ProcessOrder(relayerAddr, order.ID, ProcessParams{
		Action: ActionExecuteSwap,
		Secret: "s",
		Proof:  "0xdeadbeef",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	stored, err := engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCompleted, stored.Status)
	require.Equal(t, big.NewInt(0), stored.RemainingAmount)
}

func TestProcessOrderConfirmSource(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)

	// No destination leg bound yet.
	_, err := engine.ProcessOrder(relayerAddr, order.ID, ProcessParams{Action: ActionConfirmSource})
	require.ErrorIs(t, err, ErrEscrowNotBound)

	_, err = engine.DeployDestination(relayerAddr, order.ID, 43_000, DeployDestParams{
		Taker: relayerAddr, ExpectedAmount: big.NewInt(90),
	})
	require.NoError(t, err)
	_, err = engine.BindEscrow(factory.DeriveSalt(selfAddr, 43_000, order.ID+":dst"), testAddr(0xDD))
	require.NoError(t, err)

	msgs, err := engine.ProcessOrder(relayerAddr, order.ID, ProcessParams{
		Action:      ActionConfirmSource,
		SrcTxHash:   "0xabc",
		BlockHeight: 77,
	})
	require.NoError(t, err)
	exec := msgs[0].(types.ExecMsg)
	require.Equal(t, testAddr(0xDD), exec.Contract)

	status, err := engine.OrderStatusAt(order.ID, 1_000)
	require.NoError(t, err)
	require.Equal(t, OrderMatched, status)
}

func TestProcessOrderCancel(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)
	_, err := engine.BindEscrow(factory.DeriveSalt(selfAddr, 42_000, order.ID), testAddr(0xEE))
	require.NoError(t, err)

	msgs, err := engine.ProcessOrder(relayerAddr, order.ID, ProcessParams{Action: ActionCancelOrder})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	stored, err := engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCancelled, stored.Status)

	// Closed orders admit no further processing.
	_, err = engine.ProcessOrder(relayerAddr, order.ID, ProcessParams{Action: ActionExecuteSwap})
	require.ErrorIs(t, err, ErrOrderClosed)
}

func TestPartialWithdrawMirrorsFillLedger(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order, _, err := engine.DeploySource(ownerAddr, 42_000, DeploySourceParams{
		Maker:            makerAddr,
		SecretHash:       escrow.HashSecret("s"),
		Amount:           big.NewInt(100),
		Denom:            "uatom",
		AllowPartialFill: true,
	})
	require.NoError(t, err)
	_, err = engine.BindEscrow(factory.DeriveSalt(selfAddr, 42_000, order.ID), testAddr(0xEE))
	require.NoError(t, err)

	_, err = engine.PartialWithdraw(relayerAddr, order.ID, "s", big.NewInt(30))
	require.NoError(t, err)
	stored, err := engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderActive, stored.Status)
	require.Equal(t, big.NewInt(30), stored.FilledAmount)
	require.Equal(t, big.NewInt(70), stored.RemainingAmount)

	_, err = engine.PartialWithdraw(relayerAddr, order.ID, "s", big.NewInt(70))
	require.NoError(t, err)
	stored, err = engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCompleted, stored.Status)

	_, err = engine.PartialWithdraw(relayerAddr, order.ID, "s", big.NewInt(1))
	require.ErrorIs(t, err, ErrOrderClosed)
}

func TestRelayerManagement(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	next := testAddr(0x44)

	require.ErrorIs(t, engine.AddRelayer(relayerAddr, next), ErrUnauthorized)
	require.NoError(t, engine.AddRelayer(ownerAddr, next))
	// Adding twice is a no-op.
	require.NoError(t, engine.AddRelayer(ownerAddr, next))

	cfg, err := engine.GetConfig()
	require.NoError(t, err)
	require.Equal(t, []string{relayerAddr, next}, cfg.Relayers)

	require.NoError(t, engine.RemoveRelayer(ownerAddr, next))
	require.NoError(t, engine.RemoveRelayer(ownerAddr, next))
	cfg, err = engine.GetConfig()
	require.NoError(t, err)
	require.Equal(t, []string{relayerAddr}, cfg.Relayers)

	// A removed relayer can no longer process orders.
	order := deployOrder(t, engine, ownerAddr)
	require.NoError(t, engine.AddRelayer(ownerAddr, next))
	require.NoError(t, engine.RemoveRelayer(ownerAddr, next))
	_, err = engine.ProcessOrder(next, order.ID, ProcessParams{Action: ActionCancelOrder})
	require.ErrorIs(t, err, ErrInvalidRelayer)
}

func TestIsAuthorizedRelayer(t *testing.T) {
	engine := newTestEngine(t, newMockState())

	ok, err := engine.IsAuthorizedRelayer(relayerAddr)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.IsAuthorizedRelayer(ownerAddr)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = engine.IsAuthorizedRelayer("not-an-address")
	require.Error(t, err)
}

func TestOrderTransitionsTouchUpdatedAt(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	now := int64(1_000)
	engine.SetNowFunc(func() int64 { return now })

	order := deployOrder(t, engine, ownerAddr)
	require.Equal(t, int64(1_000), order.CreatedAt)
	require.Equal(t, int64(1_000), order.UpdatedAt)

	now = 1_500
	salt := factory.DeriveSalt(selfAddr, 42_000, order.ID)
	bound, err := engine.BindEscrow(salt, testAddr(0x10))
	require.NoError(t, err)
	require.Equal(t, int64(1_000), bound.CreatedAt)
	require.Equal(t, int64(1_500), bound.UpdatedAt)

	now = 2_000
	_, err = engine.PartialWithdraw(relayerAddr, order.ID, "s", big.NewInt(30))
	require.NoError(t, err)
	stored, err := engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2_000), stored.UpdatedAt)

	now = 2_500
	_, err = engine.Cancel(relayerAddr, order.ID)
	require.NoError(t, err)
	stored, err = engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2_500), stored.UpdatedAt)
}

func TestOrderStatusExpiryProjection(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order := deployOrder(t, engine, ownerAddr)

	status, err := engine.OrderStatusAt(order.ID, 4_999)
	require.NoError(t, err)
	require.Equal(t, OrderActive, status)

	status, err = engine.OrderStatusAt(order.ID, 5_000)
	require.NoError(t, err)
	require.Equal(t, OrderExpired, status)

	// The projection never mutates the stored status.
	stored, err := engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderActive, stored.Status)
}

func TestCurrentPriceProjection(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	order, _, err := engine.DeploySource(ownerAddr, 42_000, DeploySourceParams{
		Maker:          makerAddr,
		SecretHash:     escrow.HashSecret("s"),
		Amount:         big.NewInt(100),
		Denom:          "uatom",
		InitialPrice:   big.NewInt(200),
		PriceDecayRate: big.NewInt(2),
		MinimumPrice:   big.NewInt(100),
	})
	require.NoError(t, err)

	price, err := engine.CurrentPrice(order.ID, 1_000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200), price)

	price, err = engine.CurrentPrice(order.ID, 1_025)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), price)

	price, err = engine.CurrentPrice(order.ID, 100_000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), price)
}

func TestListOrdersPaging(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	for i := 0; i < 4; i++ {
		_, _, err := engine.DeploySource(ownerAddr, int64(42_000+i), DeploySourceParams{
			Maker:      makerAddr,
			SecretHash: escrow.HashSecret("s"),
			Amount:     big.NewInt(100),
			Denom:      "uatom",
		})
		require.NoError(t, err)
	}

	page, err := engine.ListOrders("", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := engine.ListOrders(page[1].ID, 0)
	require.NoError(t, err)
	require.Len(t, rest, 2)
}
