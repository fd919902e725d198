package domain

// PricingResult captures the aggregated monetary outcome of pricing a
// checkout. All amounts are minor units of Currency. The invariant
// GrandTotal = max(0, Subtotal − DiscountAmount − PointsDiscountAmount +
// ShippingCost + BumpAmount) holds for every result the engine produces.
type PricingResult struct {
	Currency             string
	Subtotal             int64
	ShippingCost         int64
	DiscountAmount       int64
	PointsDiscountAmount int64
	PointsRedeemed       int64
	BumpAmount           int64
	GrandTotal           int64
}

// ShippingCost is the outcome of resolving a shipping rule. A region-based
// rule with no region selected yields Determinate=false; callers must treat
// that as "cost unknown" and block submission, not as a zero-cost answer.
type ShippingCost struct {
	Amount      int64
	Determinate bool
}
