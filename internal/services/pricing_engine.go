package services

import (
	"fmt"
	"time"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

// PricingInput gathers everything a price computation depends on. The
// engine itself is pure: identical inputs always produce an identical
// result, which is what lets the commit path recompute and verify the
// total instead of trusting a client-supplied figure.
type PricingInput struct {
	Currency string
	Lines    []domain.CartLine

	ShippingRule domain.ShippingRule
	Region       string

	CouponCode string
	Coupons    []domain.Coupon

	PointsBalance  int64
	RedemptionRate int64
	RedeemPoints   bool

	BumpOffer    *domain.BumpOffer
	BumpSelected bool
}

// PricedQuote is the outcome of one pricing pass.
type PricedQuote struct {
	Pricing domain.PricingResult

	// AppliedCoupon is non-nil when the coupon validated successfully.
	AppliedCoupon *domain.Coupon
	// CouponRejection holds the validator sentinel when it did not. A
	// rejection does not fail the quote; the price simply carries no
	// coupon discount.
	CouponRejection error

	// ShippingIndeterminate marks a by-region rule with no region
	// selected. The quote still renders but submission must be blocked.
	ShippingIndeterminate bool

	PointsRedeemed int64
}

// PricingEngine aggregates shipping, coupon and loyalty outcomes into a
// final total.
type PricingEngine struct{}

// NewPricingEngine builds the engine.
func NewPricingEngine() *PricingEngine {
	return &PricingEngine{}
}

// Price computes the full pricing breakdown for the given input.
func (e *PricingEngine) Price(input PricingInput, now time.Time) (PricedQuote, error) {
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return PricedQuote{}, fmt.Errorf("price cart: %w", err)
	}

	var subtotal int64
	for _, line := range input.Lines {
		subtotal += line.UnitPrice * line.Quantity
	}

	quote := PricedQuote{}

	var discount int64
	if input.CouponCode != "" {
		amount, coupon, err := ValidateCoupon(input.CouponCode, input.Coupons, subtotal, now)
		if err != nil {
			quote.CouponRejection = err
		} else {
			discount = amount
			quote.AppliedCoupon = &coupon
		}
	}

	postDiscount := subtotal - discount
	if postDiscount < 0 {
		postDiscount = 0
	}
	pointsDiscount, pointsRedeemed := RedeemPoints(input.PointsBalance, input.RedemptionRate, input.RedeemPoints, postDiscount)
	quote.PointsRedeemed = pointsRedeemed

	shipping := ResolveShipping(input.ShippingRule, input.Region)
	quote.ShippingIndeterminate = !shipping.Determinate

	var bump int64
	if input.BumpSelected && input.BumpOffer != nil {
		bump = input.BumpOffer.Price
	}

	grand := subtotal - discount - pointsDiscount + shipping.Amount + bump
	if grand < 0 {
		grand = 0
	}

	quote.Pricing = domain.PricingResult{
		Currency:             currency,
		Subtotal:             subtotal,
		ShippingCost:         shipping.Amount,
		DiscountAmount:       discount,
		PointsDiscountAmount: pointsDiscount,
		PointsRedeemed:       pointsRedeemed,
		BumpAmount:           bump,
		GrandTotal:           grand,
	}
	return quote, nil
}
