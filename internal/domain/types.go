package domain

import (
	"time"
)

// VariantSelection records one chosen product option on a cart line. Price
// modifiers are already folded into the line's unit price upstream; they are
// carried only so order item snapshots can preserve the chosen labels.
type VariantSelection struct {
	VariantID     string
	OptionID      string
	Label         string
	PriceModifier int64
}

// CartLine is one purchasable entry of a buyer's cart with a fully resolved
// unit price in currency minor units. Lines are produced and owned upstream
// and are read-only inside this module.
type CartLine struct {
	ProductID   string
	ProductName string
	UnitPrice   int64
	Quantity    int64
	Variants    []VariantSelection
}

// ShippingRuleKind tags the two supported shipping cost models.
type ShippingRuleKind string

const (
	// ShippingRuleFixed charges a flat amount regardless of destination.
	ShippingRuleFixed ShippingRuleKind = "fixed"
	// ShippingRuleByRegion selects the amount from a region-keyed table.
	ShippingRuleByRegion ShippingRuleKind = "by_region"
)

// ShippingRule is the tagged union of shipping cost models. Amount is used by
// fixed rules; Regions by region-based rules.
type ShippingRule struct {
	Kind    ShippingRuleKind
	Amount  int64
	Regions map[string]int64
}

// DiscountType enumerates the coupon discount models.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed discounts a fixed amount.
	DiscountFixed DiscountType = "fixed"
)

// Coupon is a store-defined discount code. Codes are unique per store and
// matched case-insensitively.
type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  int64
	MinOrderAmount *int64
	UsageLimit     *int64
	UsedCount      int64
	ExpiresAt      *time.Time
	IsActive       bool
}

// LoyaltyAccount carries a customer's point balance and the store's
// redemption rate, expressed as points per currency minor unit.
type LoyaltyAccount struct {
	CustomerID     string
	PointsBalance  int64
	RedemptionRate int64
}

// BumpOffer is a single optional checkout add-on priced independently of the
// cart. Its price joins the grand total unconditionally when selected and is
// never reduced by coupon or points discounts.
type BumpOffer struct {
	Label    string
	Price    int64
	Selected bool
}

// LoyaltyProgram holds the store-level loyalty settings.
type LoyaltyProgram struct {
	Enabled        bool
	RedemptionRate int64
}

// StoreConfig bundles the per-store settings the pricing pipeline consumes.
type StoreConfig struct {
	StoreID      string
	Currency     string
	ShippingRule ShippingRule
	Loyalty      *LoyaltyProgram
	BumpOffer    *BumpOffer
	Coupons      []Coupon
}

// FulfillmentDetails is the buyer-supplied delivery information captured on
// the checkout form.
type FulfillmentDetails struct {
	Name     string
	Phone    string
	AltPhone string
	Address  string
	Region   string
	Notes    string
}

// Customer is the phone-deduped buyer record scoped to a store.
type Customer struct {
	ID          string
	StoreID     string
	Phone       string
	Name        string
	AltPhone    string
	Address     string
	OrdersCount int64
	TotalSpent  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus enumerates order lifecycle states. This module only ever
// creates orders in OrderStatusPending; transitions happen elsewhere.
type OrderStatus string

const (
	// OrderStatusPending is the state every committed order starts in.
	OrderStatusPending OrderStatus = "pending"
)

// AddressSnapshot freezes the fulfillment details at commit time.
type AddressSnapshot struct {
	Name     string
	Phone    string
	AltPhone string
	Address  string
	Region   string
}

// Order is the committed order header. Pricing is the exact PricingResult the
// commit was triggered with; it is persisted once and never recomputed.
type Order struct {
	ID          string
	OrderNumber string
	StoreID     string
	CustomerID  string
	Status      OrderStatus
	Pricing     PricingResult
	CouponCode  *string
	Shipping    AddressSnapshot
	Notes       string
	CreatedAt   time.Time
}

// ProductSnapshot preserves the product identity of an order item at purchase
// time so later catalog edits cannot alter historical orders.
type ProductSnapshot struct {
	Name          string
	VariantLabels []string
}

// OrderItem is one committed order row. A selected bump offer produces one
// synthetic row whose ProductID is the reserved bump marker.
type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  string
	Quantity   int64
	UnitPrice  int64
	TotalPrice int64
	Snapshot   ProductSnapshot
}

// LoyaltyEntry is one append-only loyalty ledger row. Redemptions carry
// negative points and reference the order that consumed them.
type LoyaltyEntry struct {
	ID         string
	CustomerID string
	OrderID    string
	Points     int64
	Reason     string
	CreatedAt  time.Time
}

// ReferralAttribution links a committed order to an external referral code.
type ReferralAttribution struct {
	ID        string
	StoreID   string
	OrderID   string
	Code      string
	CreatedAt time.Time
}
