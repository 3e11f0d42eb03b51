package escrow

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// Status represents the lifecycle states of an escrow instance.
type Status uint8

const (
	StatusActive Status = iota
	StatusPartiallyFilled
	StatusWithdrawn
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPartiallyFilled, StatusWithdrawn, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusWithdrawn || s == StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusWithdrawn:
		return "withdrawn"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// HashSecret renders the sha256 digest of the preimage as lowercase hex, the
// exact form secret hashes are published and compared in.
func HashSecret(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// NormalizeSecretHash canonicalises a published hash for byte-for-byte
// comparison against HashSecret output.
func NormalizeSecretHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// SourceEscrow is the authoritative state of one source-chain escrow: funded
// by the maker, released to whoever presents the preimage.
type SourceEscrow struct {
	Address    string `json:"address"`
	Maker      string `json:"maker"`
	Taker      string `json:"taker,omitempty"`
	SecretHash string `json:"secret_hash"`
	Timelock   int64  `json:"timelock"`

	DstChainID string   `json:"dst_chain_id"`
	DstAsset   string   `json:"dst_asset"`
	DstAmount  *big.Int `json:"dst_amount"`

	DepositedAmount *big.Int `json:"deposited_amount"`
	DepositedDenom  string   `json:"deposited_denom,omitempty"`
	TokenContract   string   `json:"token_contract,omitempty"`

	Status    Status `json:"status"`
	CreatedAt int64  `json:"created_at"`

	InitialPrice   *big.Int `json:"initial_price,omitempty"`
	PriceDecayRate *big.Int `json:"price_decay_rate,omitempty"`
	MinimumPrice   *big.Int `json:"minimum_price,omitempty"`

	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
	FilledAmount      *big.Int `json:"filled_amount"`
	RemainingAmount   *big.Int `json:"remaining_amount"`
}

// Funded reports whether a deposit has been recorded through either channel.
func (e *SourceEscrow) Funded() bool {
	return e.TokenContract != "" || (e.DepositedAmount != nil && e.DepositedAmount.Sign() > 0)
}

// HasAuction reports whether the complete auction triple is present.
func (e *SourceEscrow) HasAuction() bool {
	return e.InitialPrice != nil && e.PriceDecayRate != nil && e.MinimumPrice != nil
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (e *SourceEscrow) Clone() *SourceEscrow {
	if e == nil {
		return nil
	}
	clone := *e
	clone.DstAmount = cloneBig(e.DstAmount)
	clone.DepositedAmount = cloneBig(e.DepositedAmount)
	clone.InitialPrice = cloneBigOrNil(e.InitialPrice)
	clone.PriceDecayRate = cloneBigOrNil(e.PriceDecayRate)
	clone.MinimumPrice = cloneBigOrNil(e.MinimumPrice)
	clone.MinimumFillAmount = cloneBigOrNil(e.MinimumFillAmount)
	clone.FilledAmount = cloneBig(e.FilledAmount)
	clone.RemainingAmount = cloneBig(e.RemainingAmount)
	return &clone
}

// DestinationEscrow is the authoritative state of one destination-chain
// escrow: funded by the taker, released to the maker after the relayer attests
// the source leg.
type DestinationEscrow struct {
	Address    string `json:"address"`
	Taker      string `json:"taker"`
	Maker      string `json:"maker"`
	SecretHash string `json:"secret_hash"`
	Timelock   int64  `json:"timelock"`

	SrcChainID       string   `json:"src_chain_id"`
	SrcEscrowAddress string   `json:"src_escrow_address"`
	ExpectedAmount   *big.Int `json:"expected_amount"`

	DepositedAmount *big.Int `json:"deposited_amount"`
	DepositedDenom  string   `json:"deposited_denom,omitempty"`
	TokenContract   string   `json:"token_contract,omitempty"`

	Status    Status `json:"status"`
	CreatedAt int64  `json:"created_at"`

	SrcConfirmed   bool   `json:"src_confirmed"`
	SrcTxHash      string `json:"src_tx_hash,omitempty"`
	SrcBlockHeight uint64 `json:"src_block_height,omitempty"`
}

// Funded reports whether a deposit has been recorded through either channel.
func (e *DestinationEscrow) Funded() bool {
	return e.TokenContract != "" || (e.DepositedAmount != nil && e.DepositedAmount.Sign() > 0)
}

// Clone returns a deep copy of the destination escrow.
func (e *DestinationEscrow) Clone() *DestinationEscrow {
	if e == nil {
		return nil
	}
	clone := *e
	clone.ExpectedAmount = cloneBig(e.ExpectedAmount)
	clone.DepositedAmount = cloneBig(e.DepositedAmount)
	return &clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func cloneBigOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
