package repositories

import "errors"

// ErrCouponUsageExceeded reports that a guarded coupon increment found
// the usage limit already reached at write time.
var ErrCouponUsageExceeded = errors.New("repositories: coupon usage limit reached")

// ErrCouponUnavailable reports that the coupon referenced by a commit no
// longer exists or was deactivated between quote and commit.
var ErrCouponUnavailable = errors.New("repositories: coupon unavailable")

// ErrInsufficientPoints reports that a loyalty debit would overdraw the
// ledger-derived balance.
var ErrInsufficientPoints = errors.New("repositories: insufficient loyalty points")
