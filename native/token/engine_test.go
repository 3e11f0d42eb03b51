package token

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

type mockState struct {
	infos    map[string]*Info
	balances map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		infos:    make(map[string]*Info),
		balances: make(map[string]*big.Int),
	}
}

func balKey(token, holder string) string { return token + "/" + holder }

func (m *mockState) TokenInfoPut(info *Info) error {
	clone := *info
	m.infos[info.Address] = &clone
	return nil
}

func (m *mockState) TokenInfoGet(addr string) (*Info, bool) {
	info, ok := m.infos[addr]
	if !ok {
		return nil, false
	}
	clone := *info
	return &clone, true
}

func (m *mockState) TokenBalancePut(token, holder string, amount *big.Int) error {
	m.balances[balKey(token, holder)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) TokenBalanceGet(token, holder string) (*big.Int, bool) {
	bal, ok := m.balances[balKey(token, holder)]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(bal), true
}

func testAddr(fill byte) string {
	return crypto.NewAddress(crypto.SwapPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func newTestToken(t *testing.T, holder string, amount int64) (*Engine, string) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	tokenAddr := testAddr(0x0A)
	_, err := engine.Instantiate(tokenAddr, Params{
		Name:     "Wrapped ATOM",
		Symbol:   "wATOM",
		Decimals: 6,
		InitialBalances: []Balance{
			{Address: holder, Amount: big.NewInt(amount)},
		},
	})
	require.NoError(t, err)
	return engine, tokenAddr
}

func TestTransfer(t *testing.T) {
	alice := testAddr(0x01)
	bob := testAddr(0x02)
	engine, tokenAddr := newTestToken(t, alice, 1_000)

	require.ErrorIs(t, engine.Transfer(tokenAddr, alice, bob, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, engine.Transfer(tokenAddr, alice, bob, big.NewInt(1_001)), ErrInsufficientFunds)
	require.ErrorIs(t, engine.Transfer(tokenAddr, bob, alice, big.NewInt(1)), ErrInsufficientFunds)

	require.NoError(t, engine.Transfer(tokenAddr, alice, bob, big.NewInt(400)))

	got, err := engine.Balance(tokenAddr, alice)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600), got)
	got, err = engine.Balance(tokenAddr, bob)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), got)
}

func TestSendNotifiesContract(t *testing.T) {
	alice := testAddr(0x01)
	contract := testAddr(0xEE)
	engine, tokenAddr := newTestToken(t, alice, 1_000)

	inner := json.RawMessage(`{"deposit":{}}`)
	msgs, err := engine.Send(tokenAddr, alice, contract, big.NewInt(250), inner)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	exec, ok := msgs[0].(types.ExecMsg)
	require.True(t, ok)
	require.Equal(t, contract, exec.Contract)

	var envelope struct {
		Receive ReceiveMsg `json:"receive"`
	}
	require.NoError(t, json.Unmarshal(exec.Msg, &envelope))
	require.Equal(t, alice, envelope.Receive.Sender)
	require.Equal(t, "250", envelope.Receive.Amount)
	require.JSONEq(t, `{"deposit":{}}`, string(envelope.Receive.Msg))

	got, err := engine.Balance(tokenAddr, contract)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(250), got)
}

func TestUnknownToken(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())

	err := engine.Transfer(testAddr(0x0B), testAddr(0x01), testAddr(0x02), big.NewInt(1))
	require.ErrorIs(t, err, ErrNotFound)
}
