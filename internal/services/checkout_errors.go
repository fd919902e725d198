package services

import (
	"errors"
	"fmt"
)

// Coupon rejection reasons, checked in this order by the validator.
var (
	ErrCouponNotFound      = errors.New("checkout: coupon not found")
	ErrCouponExpired       = errors.New("checkout: coupon expired")
	ErrCouponExhausted     = errors.New("checkout: coupon usage limit reached")
	ErrCouponMinimumNotMet = errors.New("checkout: order below coupon minimum")
)

var (
	// ErrStoreNotFound indicates an unknown store id.
	ErrStoreNotFound = errors.New("checkout: store not found")
	// ErrCartNotFound indicates the cart snapshot is missing.
	ErrCartNotFound = errors.New("checkout: cart not found")
	// ErrInsufficientPoints indicates the loyalty balance no longer covers
	// the requested redemption at commit time.
	ErrInsufficientPoints = errors.New("checkout: insufficient loyalty points")
	// ErrOrderCommitFailed wraps persistence failures during commit.
	// Submissions carrying an idempotency key may be retried safely.
	ErrOrderCommitFailed = errors.New("checkout: order commit failed")
	// ErrSubmissionInFlight indicates another request with the same
	// idempotency key is still running.
	ErrSubmissionInFlight = errors.New("checkout: submission already in flight")
	// ErrPriceChanged indicates re-pricing no longer matches the grand
	// total the buyer confirmed.
	ErrPriceChanged = errors.New("checkout: price changed since confirmation")
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("checkout: order not found")
)

// ValidationError reports missing or malformed submission input. It
// blocks the submission before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// couponRejectionCode maps validator sentinels onto stable reason codes
// exposed to clients.
func couponRejectionCode(err error) string {
	switch {
	case errors.Is(err, ErrCouponNotFound):
		return "COUPON_NOT_FOUND"
	case errors.Is(err, ErrCouponExpired):
		return "COUPON_EXPIRED"
	case errors.Is(err, ErrCouponExhausted):
		return "COUPON_EXHAUSTED"
	case errors.Is(err, ErrCouponMinimumNotMet):
		return "COUPON_MINIMUM_NOT_MET"
	default:
		return ""
	}
}
