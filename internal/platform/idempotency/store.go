// Package idempotency provides a keyed reservation store so that retried
// order submissions return the originally committed order instead of
// creating a duplicate.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrFingerprintMismatch is returned when a key is replayed with a
// different request payload.
var ErrFingerprintMismatch = errors.New("idempotency: key reused with different payload")

// ErrInFlight is returned when another request holds the reservation and
// has not recorded a result yet.
var ErrInFlight = errors.New("idempotency: request already in flight")

// Record captures the outcome of a completed commit for replay.
type Record struct {
	Key         string
	Fingerprint string
	OrderID     string
	OrderNumber string
	Completed   bool
	ExpiresAt   time.Time
}

// Store reserves keys and persists commit outcomes.
type Store interface {
	// Reserve claims the key for this request. When the key already holds
	// a completed record with a matching fingerprint that record is
	// returned with ok=false so callers can replay the stored outcome.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (record Record, ok bool, err error)

	// Complete stores the committed order against the reserved key.
	Complete(ctx context.Context, key, orderID, orderNumber string) error

	// Release abandons a reservation after a failed commit so the client
	// may retry with the same key.
	Release(ctx context.Context, key string) error
}
