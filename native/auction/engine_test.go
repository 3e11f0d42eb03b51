package auction

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

type mockState struct {
	auctions map[string]*Auction
}

func newMockState() *mockState {
	return &mockState{auctions: make(map[string]*Auction)}
}

func (m *mockState) AuctionPut(a *Auction) error {
	m.auctions[a.Address] = a.Clone()
	return nil
}

func (m *mockState) AuctionGet(addr string) (*Auction, bool) {
	a, ok := m.auctions[addr]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func testAddr(fill byte) string {
	return crypto.NewAddress(crypto.SwapPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func coins(denom string, amount int64) []types.Coin {
	return []types.Coin{types.NewCoin(denom, big.NewInt(amount))}
}

func newTestAuction(t *testing.T, now int64) (*Engine, string, string) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	engine.SetNowFunc(func() int64 { return now })
	seller := testAddr(0x01)
	addr := testAddr(0xAC)
	_, err := engine.Instantiate(addr, Params{
		Seller:         seller,
		AssetDenom:     "uatom",
		AssetAmount:    big.NewInt(1_000),
		PaymentDenom:   "ucro",
		InitialPrice:   big.NewInt(500),
		PriceDecayRate: big.NewInt(1),
		MinimumPrice:   big.NewInt(100),
		Duration:       600,
	})
	require.NoError(t, err)
	return engine, addr, seller
}

func TestInstantiateValidation(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())
	engine.SetNowFunc(func() int64 { return 1_000 })

	base := Params{
		Seller:         testAddr(0x01),
		AssetDenom:     "uatom",
		AssetAmount:    big.NewInt(1_000),
		PaymentDenom:   "ucro",
		InitialPrice:   big.NewInt(500),
		PriceDecayRate: big.NewInt(1),
		MinimumPrice:   big.NewInt(100),
		Duration:       600,
	}

	inverted := base
	inverted.MinimumPrice = big.NewInt(500)
	_, err := engine.Instantiate(testAddr(0xAC), inverted)
	require.ErrorIs(t, err, ErrInvalidParams)

	noDuration := base
	noDuration.Duration = 0
	_, err = engine.Instantiate(testAddr(0xAC), noDuration)
	require.ErrorIs(t, err, ErrInvalidParams)

	noAsset := base
	noAsset.AssetAmount = big.NewInt(0)
	_, err = engine.Instantiate(testAddr(0xAC), noAsset)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestCurrentPriceDecays(t *testing.T) {
	engine, addr, _ := newTestAuction(t, 1_000)

	price, err := engine.CurrentPrice(addr, 1_000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), price)

	price, err = engine.CurrentPrice(addr, 1_200)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), price)

	price, err = engine.CurrentPrice(addr, 9_999)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), price)
}

func TestBidMeetsAskAndRefundsPrevious(t *testing.T) {
	engine, addr, _ := newTestAuction(t, 1_000)
	first := testAddr(0x10)
	second := testAddr(0x11)

	// Below the current ask of 500.
	_, err := engine.Bid(addr, first, coins("ucro", 499))
	require.ErrorIs(t, err, ErrBidTooLow)

	// Wrong denom.
	_, err = engine.Bid(addr, first, coins("uatom", 500))
	require.ErrorIs(t, err, ErrInvalidFunds)

	msgs, err := engine.Bid(addr, first, coins("ucro", 500))
	require.NoError(t, err)
	require.Empty(t, msgs)

	// A later, lower bid cannot displace the standing one even though the
	// ask has decayed below it.
	engine.SetNowFunc(func() int64 { return 1_100 })
	_, err = engine.Bid(addr, second, coins("ucro", 450))
	require.ErrorIs(t, err, ErrBidTooLow)

	msgs, err = engine.Bid(addr, second, coins("ucro", 520))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	refund := msgs[0].(types.SendMsg)
	require.Equal(t, first, refund.ToAddress)
	require.Equal(t, big.NewInt(500), refund.Amount[0].Amount)
}

func TestBidAfterEndTime(t *testing.T) {
	engine, addr, _ := newTestAuction(t, 1_000)
	engine.SetNowFunc(func() int64 { return 1_600 })

	_, err := engine.Bid(addr, testAddr(0x10), coins("ucro", 500))
	require.ErrorIs(t, err, ErrClosed)
}

func TestEndWithWinner(t *testing.T) {
	engine, addr, seller := newTestAuction(t, 1_000)
	bidder := testAddr(0x10)
	_, err := engine.Bid(addr, bidder, coins("ucro", 500))
	require.NoError(t, err)

	// Only the seller may close.
	_, err = engine.End(addr, bidder)
	require.ErrorIs(t, err, ErrUnauthorized)

	msgs, err := engine.End(addr, seller)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	asset := msgs[0].(types.SendMsg)
	require.Equal(t, bidder, asset.ToAddress)
	require.Equal(t, "uatom", asset.Amount[0].Denom)
	payment := msgs[1].(types.SendMsg)
	require.Equal(t, seller, payment.ToAddress)
	require.Equal(t, big.NewInt(500), payment.Amount[0].Amount)

	_, err = engine.End(addr, seller)
	require.ErrorIs(t, err, ErrClosed)
}

func TestEndWithoutBids(t *testing.T) {
	engine, addr, seller := newTestAuction(t, 1_000)

	// Still running, nothing to close.
	_, err := engine.End(addr, seller)
	require.ErrorIs(t, err, ErrNothingToClose)

	engine.SetNowFunc(func() int64 { return 1_600 })
	msgs, err := engine.End(addr, seller)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	back := msgs[0].(types.SendMsg)
	require.Equal(t, seller, back.ToAddress)
	require.Equal(t, big.NewInt(1_000), back.Amount[0].Amount)
}
