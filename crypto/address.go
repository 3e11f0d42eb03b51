package crypto

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 swap address.
type AddressPrefix string

// SwapPrefix is the prefix used for every account and contract identity in the
// swap protocol.
const SwapPrefix AddressPrefix = "swap"

// Address represents a 20-byte account or contract identity with a
// human-readable prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != 20 {
		panic("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address payload must be 20 bytes, got %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// NormalizeAddress validates a human-supplied identity string and returns its
// canonical form. Invalid input fails before any state is touched.
func NormalizeAddress(addrStr string) (string, error) {
	trimmed := strings.TrimSpace(addrStr)
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return "", err
	}
	if addr.prefix != SwapPrefix {
		return "", fmt.Errorf("unsupported address prefix %q", addr.prefix)
	}
	return addr.String(), nil
}

// DeriveAddress produces a deterministic instance address from the creator
// identity and a host-assigned nonce.
func DeriveAddress(creator string, nonce uint64) Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	digest := ethcrypto.Keccak256([]byte(creator), buf[:])
	return NewAddress(SwapPrefix, digest[12:])
}
