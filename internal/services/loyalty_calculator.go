package services

// RedeemPoints converts a loyalty balance into a bounded discount and the
// point debit backing it. The discount never exceeds what the balance
// covers, nor the post-discount subtotal. The debit is floored so the
// account is never charged more points than the granted discount
// justifies.
func RedeemPoints(pointsBalance, redemptionRate int64, redeem bool, postDiscountSubtotal int64) (pointsDiscount, pointsRedeemed int64) {
	if !redeem || redemptionRate <= 0 || pointsBalance <= 0 || postDiscountSubtotal <= 0 {
		return 0, 0
	}
	maxValue := pointsBalance / redemptionRate
	pointsDiscount = maxValue
	if pointsDiscount > postDiscountSubtotal {
		pointsDiscount = postDiscountSubtotal
	}
	pointsRedeemed = pointsDiscount * redemptionRate
	return pointsDiscount, pointsRedeemed
}
