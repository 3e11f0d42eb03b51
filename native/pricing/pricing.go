// Package pricing holds the two arithmetic primitives shared across the swap
// protocol: the linearly-decaying Dutch price schedule and cumulative
// partial-fill accounting. Every component that needs either algorithm is
// expected to call into this package rather than carry its own copy.
package pricing

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidSchedule is returned when the initial price does not exceed
	// the floor.
	ErrInvalidSchedule = errors.New("pricing: initial price must exceed minimum price")
	// ErrFillExceedsRemaining is returned when a fill amount is larger than
	// what is left on the ledger.
	ErrFillExceedsRemaining = errors.New("pricing: fill amount exceeds remaining")
	// ErrFillNotPositive is returned for zero or negative fill amounts.
	ErrFillNotPositive = errors.New("pricing: fill amount must be positive")
)

// DecaySchedule describes a price that falls linearly from InitialPrice to
// MinimumPrice at DecayRate units per second, starting at StartTime.
type DecaySchedule struct {
	InitialPrice *big.Int
	MinimumPrice *big.Int
	DecayRate    *big.Int
	StartTime    int64
}

// NewDecaySchedule validates the auction triple. All three values must be
// present; the initial price must strictly exceed the floor.
func NewDecaySchedule(initial, minimum, rate *big.Int, start int64) (DecaySchedule, error) {
	if initial == nil || minimum == nil || rate == nil {
		return DecaySchedule{}, fmt.Errorf("pricing: schedule requires initial, minimum and decay rate")
	}
	if initial.Sign() < 0 || minimum.Sign() < 0 || rate.Sign() < 0 {
		return DecaySchedule{}, fmt.Errorf("pricing: schedule values must be non-negative")
	}
	if initial.Cmp(minimum) <= 0 {
		return DecaySchedule{}, ErrInvalidSchedule
	}
	return DecaySchedule{
		InitialPrice: new(big.Int).Set(initial),
		MinimumPrice: new(big.Int).Set(minimum),
		DecayRate:    new(big.Int).Set(rate),
		StartTime:    start,
	}, nil
}

// PriceAt returns the schedule price at the given time. The decay saturates at
// the floor: elapsed×rate products that meet or exceed the initial price clamp
// to the minimum instead of underflowing, and arbitrary elapsed times are safe
// because all arithmetic runs on big integers.
func (s DecaySchedule) PriceAt(now int64) *big.Int {
	elapsed := now - s.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	decrease := new(big.Int).Mul(s.DecayRate, big.NewInt(elapsed))
	if decrease.Cmp(s.InitialPrice) >= 0 {
		return new(big.Int).Set(s.MinimumPrice)
	}
	price := new(big.Int).Sub(s.InitialPrice, decrease)
	if price.Cmp(s.MinimumPrice) < 0 {
		return new(big.Int).Set(s.MinimumPrice)
	}
	return price
}

// FixedPrice computes the price for instances without a complete schedule: the
// initial price when supplied, otherwise zero. Mirrors PriceAt's contract for
// the degenerate case.
func FixedPrice(initial *big.Int) *big.Int {
	if initial == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(initial)
}

// FillLedger tracks cumulative fills against a fixed total.
// Invariant: Filled + Remaining == Total at every observable point, and
// Remaining never increases.
type FillLedger struct {
	Total     *big.Int `json:"total"`
	Filled    *big.Int `json:"filled"`
	Remaining *big.Int `json:"remaining"`
}

// NewFillLedger opens a ledger for the given total with nothing filled yet.
func NewFillLedger(total *big.Int) FillLedger {
	if total == nil {
		total = big.NewInt(0)
	}
	return FillLedger{
		Total:     new(big.Int).Set(total),
		Filled:    big.NewInt(0),
		Remaining: new(big.Int).Set(total),
	}
}

// Apply consumes amount from the remaining balance.
func (l *FillLedger) Apply(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrFillNotPositive
	}
	if amount.Cmp(l.Remaining) > 0 {
		return ErrFillExceedsRemaining
	}
	l.Filled = new(big.Int).Add(l.Filled, amount)
	l.Remaining = new(big.Int).Sub(l.Remaining, amount)
	return nil
}

// Exhausted reports whether nothing remains to fill.
func (l FillLedger) Exhausted() bool {
	return l.Remaining.Sign() == 0
}

// Percentage returns the filled share in whole percent, zero for an empty
// ledger.
func (l FillLedger) Percentage() uint64 {
	if l.Total.Sign() == 0 {
		return 0
	}
	pct := new(big.Int).Mul(l.Filled, big.NewInt(100))
	pct.Div(pct, l.Total)
	return pct.Uint64()
}

// Clone returns a deep copy so callers can mutate the result safely.
func (l FillLedger) Clone() FillLedger {
	return FillLedger{
		Total:     new(big.Int).Set(l.Total),
		Filled:    new(big.Int).Set(l.Filled),
		Remaining: new(big.Int).Set(l.Remaining),
	}
}
