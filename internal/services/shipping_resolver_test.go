package services

import (
	"testing"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

func TestResolveShippingFixed(t *testing.T) {
	rule := domain.ShippingRule{Kind: domain.ShippingRuleFixed, Amount: 2000}
	cost := ResolveShipping(rule, "")
	if !cost.Determinate || cost.Amount != 2000 {
		t.Fatalf("unexpected cost %+v", cost)
	}
	// A region selection is irrelevant for fixed rules.
	cost = ResolveShipping(rule, "cairo")
	if !cost.Determinate || cost.Amount != 2000 {
		t.Fatalf("unexpected cost with region %+v", cost)
	}
}

func TestResolveShippingByRegion(t *testing.T) {
	rule := domain.ShippingRule{
		Kind:    domain.ShippingRuleByRegion,
		Regions: map[string]int64{"cairo": 3000, "giza": 4500},
	}

	cost := ResolveShipping(rule, "")
	if cost.Determinate {
		t.Fatal("no region selected should be indeterminate")
	}
	if cost.Amount != 0 {
		t.Fatalf("indeterminate cost should carry 0, got %d", cost.Amount)
	}

	cost = ResolveShipping(rule, "giza")
	if !cost.Determinate || cost.Amount != 4500 {
		t.Fatalf("unexpected cost %+v", cost)
	}
}

func TestResolveShippingUnmappedRegionIsFree(t *testing.T) {
	rule := domain.ShippingRule{
		Kind:    domain.ShippingRuleByRegion,
		Regions: map[string]int64{"cairo": 3000},
	}
	cost := ResolveShipping(rule, "alexandria")
	if !cost.Determinate {
		t.Fatal("a selected region is always determinate")
	}
	if cost.Amount != 0 {
		t.Fatalf("unmapped region resolves to free shipping, got %d", cost.Amount)
	}
}
