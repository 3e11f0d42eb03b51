package factory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("factory: record not found")
	ErrNilState            = errors.New("factory: state not configured")
	ErrNotInitialized      = errors.New("factory: not initialized")
	ErrUnauthorized        = errors.New("factory: unauthorized")
	ErrEscrowAlreadyExists = errors.New("factory: escrow already exists")
	ErrUnknownCorrelation  = errors.New("factory: unknown correlation id")
)

// EscrowKind distinguishes the two escrow legs the factory can spawn.
type EscrowKind string

const (
	KindSource EscrowKind = "source"
	KindDest   EscrowKind = "destination"
)

// Config holds the factory owner and the instance templates used for
// spawning escrow legs.
type Config struct {
	Owner          string `json:"owner"`
	SourceTemplate string `json:"source_template"`
	DestTemplate   string `json:"dest_template"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// EscrowRecord is one registry row. A row is written before the instance
// exists, with Pending set; the creation callback patches in the address.
type EscrowRecord struct {
	Salt          string     `json:"salt"`
	Kind          EscrowKind `json:"kind"`
	Creator       string     `json:"creator"`
	Label         string     `json:"label"`
	Address       string     `json:"address,omitempty"`
	CorrelationID uint64     `json:"correlation_id"`
	CreatedAt     int64      `json:"created_at"`
	Pending       bool       `json:"pending"`
}

func (r *EscrowRecord) Clone() *EscrowRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// DeriveSalt builds the registry key for an escrow created by creator at the
// given block time. The resolver derives the identical salt within the same
// transaction to correlate its pending order with the factory row.
func DeriveSalt(creator string, blockNanos int64, label string) string {
	return fmt.Sprintf("%s:%d:%s", creator, blockNanos, label)
}
