package state

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/escrow"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
	"github.com/JadeSamLee/cosmos-swap/native/resolver"
	"github.com/JadeSamLee/cosmos-swap/storage"
)

func testAddr(fill byte) string {
	return crypto.NewAddress(crypto.SwapPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func TestSourceEscrowRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	esc := &escrow.SourceEscrow{
		Address:         testAddr(0xEE),
		Maker:           testAddr(0x01),
		SecretHash:      escrow.HashSecret("s"),
		Timelock:        5_000,
		DepositedAmount: big.NewInt(100),
		DepositedDenom:  "uatom",
		FilledAmount:    big.NewInt(30),
		RemainingAmount: big.NewInt(70),
		Status:          escrow.StatusPartiallyFilled,
	}
	require.NoError(t, m.SourceEscrowPut(esc))

	got, ok := m.SourceEscrowGet(esc.Address)
	require.True(t, ok)
	require.Equal(t, esc.Maker, got.Maker)
	require.Equal(t, big.NewInt(70), got.RemainingAmount)
	require.Equal(t, escrow.StatusPartiallyFilled, got.Status)

	_, ok = m.SourceEscrowGet(testAddr(0xDD))
	require.False(t, ok)
}

func TestSequencesAreIndependent(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	a, err := m.FactorySequenceNext()
	require.NoError(t, err)
	b, err := m.FactorySequenceNext()
	require.NoError(t, err)
	require.Equal(t, a+1, b)

	r, err := m.ResolverSequenceNext()
	require.NoError(t, err)
	require.EqualValues(t, 1, r)
}

func TestFactoryRecordListPaging(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	for _, salt := range []string{"a:1:x", "b:2:y", "c:3:z"} {
		require.NoError(t, m.FactoryRecordPut(&factory.EscrowRecord{Salt: salt, Pending: true}))
	}

	page, err := m.FactoryRecordList("", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "a:1:x", page[0].Salt)

	rest, err := m.FactoryRecordList(page[1].Salt, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "c:3:z", rest[0].Salt)
}

func TestResolverOrderIndexAndPending(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	order := &resolver.Order{
		ID:              "order_1",
		Maker:           testAddr(0x01),
		Status:          resolver.OrderActive,
		Amount:          big.NewInt(100),
		FilledAmount:    big.NewInt(0),
		RemainingAmount: big.NewInt(100),
	}
	require.NoError(t, m.OrderPut(order))

	escrowAddr := testAddr(0xEE)
	require.NoError(t, m.OrderIndexPut(escrowAddr, order.ID))
	id, ok := m.OrderIndexGet(escrowAddr)
	require.True(t, ok)
	require.Equal(t, order.ID, id)

	require.NoError(t, m.PendingBindPut("salt-1", &resolver.PendingBind{OrderID: order.ID, Leg: resolver.LegSource}))
	bind, ok := m.PendingBindGet("salt-1")
	require.True(t, ok)
	require.Equal(t, order.ID, bind.OrderID)
	require.NoError(t, m.PendingBindDelete("salt-1"))
	_, ok = m.PendingBindGet("salt-1")
	require.False(t, ok)
}

func TestBankBalances(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x01)

	require.Equal(t, big.NewInt(0), m.BankBalance(addr, "uatom"))
	require.NoError(t, m.BankSet(addr, "uatom", big.NewInt(1_000)))
	require.Equal(t, big.NewInt(1_000), m.BankBalance(addr, "uatom"))

	// Denominations do not bleed into each other.
	require.Equal(t, big.NewInt(0), m.BankBalance(addr, "ucro"))
}

func TestOverlayRebindCommitsAtomically(t *testing.T) {
	base := storage.NewMemDB()
	m := NewManager(base)
	overlay := storage.NewOverlay(base)
	scoped := m.WithDB(overlay)

	require.NoError(t, scoped.BankSet(testAddr(0x01), "uatom", big.NewInt(5)))
	require.NoError(t, scoped.OrderIndexPut(testAddr(0xEE), "order_1"))

	// Nothing visible on the base until commit.
	require.Equal(t, big.NewInt(0), m.BankBalance(testAddr(0x01), "uatom"))
	_, ok := m.OrderIndexGet(testAddr(0xEE))
	require.False(t, ok)

	require.NoError(t, overlay.Commit())
	require.Equal(t, big.NewInt(5), m.BankBalance(testAddr(0x01), "uatom"))
	id, ok := m.OrderIndexGet(testAddr(0xEE))
	require.True(t, ok)
	require.Equal(t, "order_1", id)
}
