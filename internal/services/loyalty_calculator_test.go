package services

import "testing"

func TestRedeemPointsDisabled(t *testing.T) {
	discount, redeemed := RedeemPoints(1000, 100, false, 5000)
	if discount != 0 || redeemed != 0 {
		t.Fatalf("redeem flag off must yield zeros, got %d/%d", discount, redeemed)
	}
}

func TestRedeemPointsBoundedBySubtotal(t *testing.T) {
	// balance 1000 at 100 points per unit covers 10, but the order only
	// needs 5.
	discount, redeemed := RedeemPoints(1000, 100, true, 5)
	if discount != 5 {
		t.Fatalf("expected discount 5, got %d", discount)
	}
	if redeemed != 500 {
		t.Fatalf("expected 500 points redeemed, got %d", redeemed)
	}
}

func TestRedeemPointsBoundedByBalance(t *testing.T) {
	discount, redeemed := RedeemPoints(250, 100, true, 5000)
	if discount != 2 {
		t.Fatalf("expected discount 2, got %d", discount)
	}
	if redeemed != 200 {
		t.Fatalf("expected 200 points redeemed, got %d", redeemed)
	}
	if redeemed > 250 {
		t.Fatalf("redeemed %d exceeds balance", redeemed)
	}
}

func TestRedeemPointsNeverExceedsBalance(t *testing.T) {
	cases := []struct {
		balance, rate, subtotal int64
	}{
		{0, 100, 5000},
		{99, 100, 5000},
		{1000, 1, 5000},
		{12345, 7, 999},
	}
	for _, c := range cases {
		discount, redeemed := RedeemPoints(c.balance, c.rate, true, c.subtotal)
		if redeemed > c.balance {
			t.Fatalf("balance=%d rate=%d subtotal=%d: redeemed %d exceeds balance", c.balance, c.rate, c.subtotal, redeemed)
		}
		if discount > c.subtotal {
			t.Fatalf("balance=%d rate=%d subtotal=%d: discount %d exceeds subtotal", c.balance, c.rate, c.subtotal, discount)
		}
		if redeemed != discount*c.rate {
			t.Fatalf("debit %d does not match discount %d at rate %d", redeemed, discount, c.rate)
		}
	}
}

func TestRedeemPointsInvalidRate(t *testing.T) {
	discount, redeemed := RedeemPoints(1000, 0, true, 5000)
	if discount != 0 || redeemed != 0 {
		t.Fatalf("zero rate must yield zeros, got %d/%d", discount, redeemed)
	}
}
