// Package services contains the checkout pricing and order commit logic.
package services

import (
	"context"
	"time"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

// Clock supplies the current time. Injected so tests control expiry and
// timestamps.
type Clock func() time.Time

// Logger emits structured service events. A nil logger is replaced by a
// no-op during construction.
type Logger func(ctx context.Context, event string, fields map[string]any)

// OrderSyncPublisher pushes committed orders to the external fulfillment
// feed. Failures are tolerated; the commit never depends on it.
type OrderSyncPublisher interface {
	PublishOrderCreated(ctx context.Context, order domain.Order, items []domain.OrderItem) error
}

// QuoteCommand asks for a price preview of the current cart.
type QuoteCommand struct {
	StoreID       string
	CartID        string
	Region        string
	CouponCode    string
	RedeemPoints  bool
	CustomerPhone string
	BumpSelected  bool
}

// QuoteResult is the priced preview returned to the checkout surface.
type QuoteResult struct {
	Pricing domain.PricingResult

	// AppliedCouponCode is set when the coupon passed validation.
	AppliedCouponCode string
	// CouponRejection carries the typed rejection reason when it did not.
	CouponRejection string

	// ShippingIndeterminate is true when the store ships by region and no
	// region has been selected yet; submission must be blocked.
	ShippingIndeterminate bool

	PointsBalance int64
}

// SubmitOrderCommand commits the cart as an order.
type SubmitOrderCommand struct {
	StoreID        string
	CartID         string
	Fulfillment    domain.FulfillmentDetails
	CouponCode     string
	RedeemPoints   bool
	BumpSelected   bool
	ReferralCode   string
	IdempotencyKey string

	// ExpectedTotal, when set, is the grand total the buyer confirmed. The
	// submission fails if re-pricing no longer matches it.
	ExpectedTotal *int64
}

// QuickOrderCommand commits a single product directly, bypassing the cart.
// Pricing and commit semantics are identical to a full checkout.
type QuickOrderCommand struct {
	StoreID        string
	ProductID      string
	ProductName    string
	UnitPrice      int64
	Quantity       int64
	Variants       []domain.VariantSelection
	Fulfillment    domain.FulfillmentDetails
	CouponCode     string
	RedeemPoints   bool
	BumpSelected   bool
	ReferralCode   string
	IdempotencyKey string
	ExpectedTotal  *int64
}

// OrderDetails joins a committed order with its customer record for the
// confirmation surface.
type OrderDetails struct {
	Order    domain.Order
	Customer domain.Customer
}

// LoyaltyStatus reports a buyer's balance and recent ledger activity.
type LoyaltyStatus struct {
	Enabled        bool
	PointsBalance  int64
	RedemptionRate int64
	Entries        []domain.LoyaltyEntry
}

// SubmitResult reports the committed order.
type SubmitResult struct {
	OrderID     string
	OrderNumber string
	Pricing     domain.PricingResult

	// Replayed is true when an idempotency key matched a previously
	// committed submission and the stored outcome was returned.
	Replayed bool
}
