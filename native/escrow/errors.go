package escrow

import "errors"

var (
	// ErrNotFound is returned when no escrow exists at the given address.
	ErrNotFound = errors.New("escrow: escrow not found")
	// ErrNilState is returned when an engine is used before SetState.
	ErrNilState = errors.New("escrow: state not configured")
	// ErrUnauthorized is returned when the caller is outside the required role.
	ErrUnauthorized = errors.New("escrow: unauthorized")
	// ErrInvalidSecret is returned when the secret's digest does not match the
	// stored hash.
	ErrInvalidSecret = errors.New("escrow: invalid secret")
	// ErrAlreadyWithdrawn is returned for operations against a withdrawn (or
	// already funded, for deposits) escrow.
	ErrAlreadyWithdrawn = errors.New("escrow: already withdrawn")
	// ErrAlreadyCancelled is returned for operations against a cancelled escrow.
	ErrAlreadyCancelled = errors.New("escrow: already cancelled")
	// ErrTimelockNotExpired is returned when cancel runs before the timelock.
	ErrTimelockNotExpired = errors.New("escrow: cannot cancel before timelock expires")
	// ErrInsufficientFunds is returned for malformed deposits and oversized fills.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	// ErrInvalidAmount is returned when a destination deposit does not match the
	// expected amount.
	ErrInvalidAmount = errors.New("escrow: invalid amount")
	// ErrInvalidPartialFillAmount is returned when partial fills are disabled or
	// the amount is outside the configured bounds.
	ErrInvalidPartialFillAmount = errors.New("escrow: invalid partial fill amount")
	// ErrSourceEscrowNotConfirmed is returned when a destination withdrawal runs
	// before the relayer confirmation.
	ErrSourceEscrowNotConfirmed = errors.New("escrow: source escrow not confirmed")
	// ErrInvalidDutchAuctionParams is returned when the auction triple is
	// incomplete or inverted.
	ErrInvalidDutchAuctionParams = errors.New("escrow: invalid dutch auction parameters")
)
