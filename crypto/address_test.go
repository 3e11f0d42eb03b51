package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x5A}, 20)
	addr := NewAddress(SwapPrefix, raw)

	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, "swap1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded.Bytes())
	require.Equal(t, SwapPrefix, decoded.Prefix())
}

func TestNormalizeAddress(t *testing.T) {
	addr := NewAddress(SwapPrefix, bytes.Repeat([]byte{0x01}, 20)).String()

	normalized, err := NormalizeAddress("  " + addr + "  ")
	require.NoError(t, err)
	require.Equal(t, addr, normalized)

	_, err = NormalizeAddress("not-an-address")
	require.Error(t, err)

	other := NewAddress("other", bytes.Repeat([]byte{0x02}, 20)).String()
	_, err = NormalizeAddress(other)
	require.Error(t, err)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	creator := NewAddress(SwapPrefix, bytes.Repeat([]byte{0x03}, 20)).String()

	first := DeriveAddress(creator, 1)
	again := DeriveAddress(creator, 1)
	second := DeriveAddress(creator, 2)

	require.Equal(t, first.String(), again.String())
	require.NotEqual(t, first.String(), second.String())
}
