package services

import (
	"strings"
	"time"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

// ValidateCoupon checks a code against the store's coupon set and the
// candidate subtotal. It is stateless: the commit path re-runs it against
// the subtotal current at commit time instead of trusting an earlier
// quote. The returned discount is clamped to [0, subtotal].
func ValidateCoupon(code string, coupons []domain.Coupon, subtotal int64, now time.Time) (int64, domain.Coupon, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return 0, domain.Coupon{}, ErrCouponNotFound
	}

	var coupon domain.Coupon
	found := false
	for _, candidate := range coupons {
		if strings.ToLower(candidate.Code) == normalized {
			coupon = candidate
			found = true
			break
		}
	}
	if !found || !coupon.IsActive {
		return 0, domain.Coupon{}, ErrCouponNotFound
	}
	if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(now) {
		return 0, domain.Coupon{}, ErrCouponExpired
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return 0, domain.Coupon{}, ErrCouponExhausted
	}
	if coupon.MinOrderAmount != nil && subtotal < *coupon.MinOrderAmount {
		return 0, domain.Coupon{}, ErrCouponMinimumNotMet
	}

	var discount int64
	switch coupon.DiscountType {
	case domain.DiscountPercentage:
		discount = subtotal * coupon.DiscountValue / 100
	default:
		discount = coupon.DiscountValue
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, coupon, nil
}
