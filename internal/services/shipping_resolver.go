package services

import "github.com/heshammera/orderly-shop-sub002/internal/domain"

// ResolveShipping turns a shipping rule plus the buyer's region selection
// into a cost. A by-region rule with no selected region yields an
// indeterminate cost; callers must block submission on it rather than
// treat it as free shipping. A selected region missing from the table is
// intentional free shipping and resolves to zero.
func ResolveShipping(rule domain.ShippingRule, region string) domain.ShippingCost {
	switch rule.Kind {
	case domain.ShippingRuleByRegion:
		if region == "" {
			return domain.ShippingCost{Amount: 0, Determinate: false}
		}
		return domain.ShippingCost{Amount: rule.Regions[region], Determinate: true}
	default:
		return domain.ShippingCost{Amount: rule.Amount, Determinate: true}
	}
}
