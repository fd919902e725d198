package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/idempotency"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

type fakeStoreRepo struct {
	config domain.StoreConfig
	err    error
}

func (f *fakeStoreRepo) Config(context.Context, string) (domain.StoreConfig, error) {
	if f.err != nil {
		return domain.StoreConfig{}, f.err
	}
	return f.config, nil
}

type fakeCartRepo struct {
	lines []domain.CartLine
	err   error
}

func (f *fakeCartRepo) Snapshot(context.Context, string, string) ([]domain.CartLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lines, nil
}

type fakeLoyaltyRepo struct {
	account domain.LoyaltyAccount
	entries []domain.LoyaltyEntry
	err     error
}

func (f *fakeLoyaltyRepo) Account(context.Context, string, string) (domain.LoyaltyAccount, error) {
	if f.err != nil {
		return domain.LoyaltyAccount{}, f.err
	}
	return f.account, nil
}

func (f *fakeLoyaltyRepo) Entries(context.Context, string, string, int) ([]domain.LoyaltyEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeCustomerRepo struct {
	customer domain.Customer
	err      error
}

func (f *fakeCustomerRepo) Get(context.Context, string, string) (domain.Customer, error) {
	if f.err != nil {
		return domain.Customer{}, f.err
	}
	return f.customer, nil
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	commits []repositories.OrderCommit
	err     error
	seq     int
	stored  map[string]domain.Order

	// completer mirrors the production writer marking a reachable
	// reservation record inside the commit transaction.
	completer func(key, orderID, orderNumber string)
}

func (f *fakeOrderRepo) Commit(_ context.Context, commit repositories.OrderCommit) (repositories.OrderCommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return repositories.OrderCommitResult{}, f.err
	}
	f.seq++
	f.commits = append(f.commits, commit)
	order := commit.Order
	order.OrderNumber = fmt.Sprintf("OS-2026-%06d", f.seq)
	if f.stored == nil {
		f.stored = make(map[string]domain.Order)
	}
	f.stored[order.ID] = order
	if commit.IdempotencyKey != "" && f.completer != nil {
		f.completer(commit.IdempotencyKey, order.ID, order.OrderNumber)
	}
	items := make([]domain.OrderItem, len(commit.Items))
	copy(items, commit.Items)
	return repositories.OrderCommitResult{
		Order:      order,
		Items:      items,
		CustomerID: commit.Customer.ID,
	}, nil
}

func (f *fakeOrderRepo) Get(_ context.Context, storeID, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.stored[orderID]
	if !ok || order.StoreID != storeID {
		return domain.Order{}, repositories.NewNotFoundError("order "+orderID, nil)
	}
	return order, nil
}

type fakeReferralRepo struct {
	mu           sync.Mutex
	attributions []domain.ReferralAttribution
	err          error
}

func (f *fakeReferralRepo) Attribute(_ context.Context, attribution domain.ReferralAttribution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.attributions = append(f.attributions, attribution)
	return nil
}

type fakePublisher struct {
	err       error
	published chan domain.Order
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(chan domain.Order, 4)}
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, order domain.Order, _ []domain.OrderItem) error {
	f.published <- order
	return f.err
}

type checkoutFixture struct {
	stores    *fakeStoreRepo
	customers *fakeCustomerRepo
	carts     *fakeCartRepo
	loyalty   *fakeLoyaltyRepo
	orders    *fakeOrderRepo
	referrals *fakeReferralRepo
	publisher *fakePublisher
	service   *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	return newCheckoutFixtureWithStore(t, idempotency.NewMemoryStore())
}

func newCheckoutFixtureWithStore(t *testing.T, store idempotency.Store) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		stores: &fakeStoreRepo{config: domain.StoreConfig{
			StoreID:      "store-1",
			Currency:     "USD",
			ShippingRule: domain.ShippingRule{Kind: domain.ShippingRuleFixed, Amount: 20},
			Loyalty:      &domain.LoyaltyProgram{Enabled: true, RedemptionRate: 100},
			BumpOffer:    &domain.BumpOffer{Label: "Gift wrap", Price: 5},
			Coupons: []domain.Coupon{{
				ID:             "c1",
				Code:           "TEN",
				DiscountType:   domain.DiscountPercentage,
				DiscountValue:  10,
				MinOrderAmount: int64Ptr(100),
				IsActive:       true,
			}},
		}},
		carts: &fakeCartRepo{lines: []domain.CartLine{
			{ProductID: "p1", ProductName: "Mug", UnitPrice: 150, Quantity: 1},
			{ProductID: "p2", ProductName: "Shirt", UnitPrice: 50, Quantity: 1},
		}},
		customers: &fakeCustomerRepo{err: repositories.NewNotFoundError("customer", nil)},
		loyalty:   &fakeLoyaltyRepo{err: repositories.NewNotFoundError("account", nil)},
		orders:    &fakeOrderRepo{},
		referrals: &fakeReferralRepo{},
		publisher: newFakePublisher(),
	}

	counter := 0
	service, err := NewCheckoutService(CheckoutServiceDeps{
		Stores:      f.stores,
		Carts:       f.carts,
		Customers:   f.customers,
		Loyalty:     f.loyalty,
		Orders:      f.orders,
		Referrals:   f.referrals,
		Idempotency: store,
		Publisher:   f.publisher,
		IDGenerator: func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		},
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	f.service = service
	return f
}

func validSubmit() SubmitOrderCommand {
	return SubmitOrderCommand{
		StoreID: "store-1",
		CartID:  "cart-1",
		Fulfillment: domain.FulfillmentDetails{
			Name:    "Sara Adel",
			Phone:   "+20 100 555 0101",
			Address: "12 Nile St, Cairo",
		},
	}
}

func waitPublished(t *testing.T, f *fakePublisher) domain.Order {
	t.Helper()
	select {
	case order := <-f.published:
		return order
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for order sync publish")
		return domain.Order{}
	}
}

func TestSubmitOrderCommitsOrderAndItems(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.BumpSelected = true

	result, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.OrderNumber == "" {
		t.Fatal("expected an order number")
	}

	if len(f.orders.commits) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(f.orders.commits))
	}
	commit := f.orders.commits[0]
	// Two cart lines plus the synthetic bump row.
	if len(commit.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(commit.Items))
	}
	bump := commit.Items[2]
	if bump.ProductID != "bump_offer" || bump.UnitPrice != 5 || bump.Quantity != 1 {
		t.Fatalf("unexpected bump item %+v", bump)
	}
	if commit.Order.Pricing != result.Pricing {
		t.Fatalf("persisted snapshot differs from result: %+v vs %+v", commit.Order.Pricing, result.Pricing)
	}
	if commit.Order.Pricing.Subtotal != 200 {
		t.Fatalf("expected subtotal 200, got %d", commit.Order.Pricing.Subtotal)
	}
	if commit.Order.Pricing.GrandTotal != 225 {
		t.Fatalf("expected grand total 225, got %d", commit.Order.Pricing.GrandTotal)
	}
	if commit.Customer.ID != domain.CustomerID("store-1", cmd.Fulfillment.Phone) {
		t.Fatalf("customer id not derived from phone: %s", commit.Customer.ID)
	}

	published := waitPublished(t, f.publisher)
	if published.ID != result.OrderID {
		t.Fatalf("published order %s, committed %s", published.ID, result.OrderID)
	}
}

func TestSubmitOrderAppliesCouponAtCommit(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.CouponCode = "ten"

	result, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.Pricing.DiscountAmount != 20 {
		t.Fatalf("expected discount 20, got %d", result.Pricing.DiscountAmount)
	}
	commit := f.orders.commits[0]
	if commit.CouponCode != "TEN" {
		t.Fatalf("commit must carry the coupon, got %q", commit.CouponCode)
	}
	if commit.Order.CouponCode == nil || *commit.Order.CouponCode != "TEN" {
		t.Fatalf("order snapshot missing coupon code: %+v", commit.Order.CouponCode)
	}
}

func TestSubmitOrderRejectsInvalidCoupon(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.CouponCode = "NOPE"

	_, err := f.service.SubmitOrder(context.Background(), cmd)
	if !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
	if len(f.orders.commits) != 0 {
		t.Fatal("rejected coupon must not commit an order")
	}
}

func TestOrderLookupReturnsCommittedOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.customers.err = nil
	f.customers.customer = domain.Customer{Name: "Sara Adel"}

	result, err := f.service.SubmitOrder(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	details, err := f.service.Order(context.Background(), "store-1", result.OrderID)
	if err != nil {
		t.Fatalf("order lookup returned error: %v", err)
	}
	if details.Order.OrderNumber != result.OrderNumber {
		t.Fatalf("lookup returned %q, committed %q", details.Order.OrderNumber, result.OrderNumber)
	}
	if details.Order.Pricing != result.Pricing {
		t.Fatalf("lookup pricing %+v differs from committed %+v", details.Order.Pricing, result.Pricing)
	}
	if details.Customer.Name != "Sara Adel" {
		t.Fatalf("expected customer join, got %+v", details.Customer)
	}
}

func TestOrderLookupUnknownOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.service.Order(context.Background(), "store-1", "missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestLoyaltyStatus(t *testing.T) {
	f := newCheckoutFixture(t)
	f.loyalty.err = nil
	f.loyalty.account = domain.LoyaltyAccount{PointsBalance: 1500}
	f.loyalty.entries = []domain.LoyaltyEntry{
		{OrderID: "id-1", Points: -1000, Reason: "order_redemption"},
	}

	status, err := f.service.LoyaltyStatus(context.Background(), "store-1", "+20 100 555 0101", 10)
	if err != nil {
		t.Fatalf("loyalty status returned error: %v", err)
	}
	if !status.Enabled {
		t.Fatal("expected an enabled program")
	}
	if status.PointsBalance != 1500 {
		t.Fatalf("expected balance 1500, got %d", status.PointsBalance)
	}
	// Account carries no override, so the program rate applies.
	if status.RedemptionRate != 100 {
		t.Fatalf("expected rate 100, got %d", status.RedemptionRate)
	}
	if len(status.Entries) != 1 || status.Entries[0].Points != -1000 {
		t.Fatalf("unexpected entries %+v", status.Entries)
	}
}

func TestLoyaltyStatusProgramDisabled(t *testing.T) {
	f := newCheckoutFixture(t)
	f.stores.config.Loyalty = nil

	status, err := f.service.LoyaltyStatus(context.Background(), "store-1", "+20 100 555 0101", 0)
	if err != nil {
		t.Fatalf("loyalty status returned error: %v", err)
	}
	if status.Enabled || status.PointsBalance != 0 {
		t.Fatalf("expected a disabled zero status, got %+v", status)
	}
}

func TestSubmitOrderExpectedTotal(t *testing.T) {
	f := newCheckoutFixture(t)

	// Grand total for the fixture cart with fixed shipping is 220.
	cmd := validSubmit()
	cmd.ExpectedTotal = int64Ptr(220)
	if _, err := f.service.SubmitOrder(context.Background(), cmd); err != nil {
		t.Fatalf("matching expected total must commit: %v", err)
	}

	stale := validSubmit()
	stale.ExpectedTotal = int64Ptr(199)
	_, err := f.service.SubmitOrder(context.Background(), stale)
	if !errors.Is(err, ErrPriceChanged) {
		t.Fatalf("expected ErrPriceChanged, got %v", err)
	}
	if len(f.orders.commits) != 1 {
		t.Fatalf("stale total must not commit, got %d commits", len(f.orders.commits))
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	tests := []struct {
		name   string
		mutate func(*SubmitOrderCommand)
		field  string
	}{
		{"missing name", func(c *SubmitOrderCommand) { c.Fulfillment.Name = "" }, "name"},
		{"missing phone", func(c *SubmitOrderCommand) { c.Fulfillment.Phone = " - " }, "phone"},
		{"missing address", func(c *SubmitOrderCommand) { c.Fulfillment.Address = "" }, "address"},
		{"missing cart", func(c *SubmitOrderCommand) { c.CartID = "" }, "cartId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validSubmit()
			tt.mutate(&cmd)
			_, err := f.service.SubmitOrder(context.Background(), cmd)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestSubmitOrderRequiresRegionForRegionalShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	f.stores.config.ShippingRule = domain.ShippingRule{
		Kind:    domain.ShippingRuleByRegion,
		Regions: map[string]int64{"cairo": 30},
	}

	cmd := validSubmit()
	_, err := f.service.SubmitOrder(context.Background(), cmd)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "region" {
		t.Fatalf("expected region validation error, got %v", err)
	}

	cmd.Fulfillment.Region = "cairo"
	result, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("submit with region returned error: %v", err)
	}
	if result.Pricing.ShippingCost != 30 {
		t.Fatalf("expected shipping 30, got %d", result.Pricing.ShippingCost)
	}
}

func TestSubmitOrderDebitsPoints(t *testing.T) {
	f := newCheckoutFixture(t)
	f.loyalty = &fakeLoyaltyRepo{account: domain.LoyaltyAccount{
		PointsBalance:  1000,
		RedemptionRate: 100,
	}}
	// Rebuild so the service sees the replaced loyalty repo.
	service, err := NewCheckoutService(CheckoutServiceDeps{
		Stores:  f.stores,
		Carts:   f.carts,
		Loyalty: f.loyalty,
		Orders:  f.orders,
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}

	result, err := service.SubmitOrder(context.Background(), func() SubmitOrderCommand {
		cmd := validSubmit()
		cmd.RedeemPoints = true
		return cmd
	}())
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.Pricing.PointsDiscountAmount != 10 {
		t.Fatalf("expected points discount 10, got %d", result.Pricing.PointsDiscountAmount)
	}
	commit := f.orders.commits[0]
	if commit.PointsDebit != 1000 {
		t.Fatalf("expected debit 1000, got %d", commit.PointsDebit)
	}
	if commit.LoyaltyEntry == nil || commit.LoyaltyEntry.Points != -1000 {
		t.Fatalf("expected ledger entry of -1000, got %+v", commit.LoyaltyEntry)
	}
}

func TestSubmitOrderIdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.IdempotencyKey = "key-1"

	first, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}

	second, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if !second.Replayed {
		t.Fatal("replay must be flagged")
	}
	if second.OrderID != first.OrderID || second.OrderNumber != first.OrderNumber {
		t.Fatalf("replay returned a different order: %+v vs %+v", second, first)
	}
	if len(f.orders.commits) != 1 {
		t.Fatalf("replay must not commit again, got %d commits", len(f.orders.commits))
	}
}

func TestSubmitOrderIdempotencyPayloadMismatch(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.IdempotencyKey = "key-1"

	if _, err := f.service.SubmitOrder(context.Background(), cmd); err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}

	cmd.BumpSelected = true
	_, err := f.service.SubmitOrder(context.Background(), cmd)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "idempotencyKey" {
		t.Fatalf("expected idempotency key validation error, got %v", err)
	}
}

func TestSubmitOrderReleasesKeyOnCommitFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.orders.err = repositories.NewUnavailableError("backend down", nil)

	cmd := validSubmit()
	cmd.IdempotencyKey = "key-1"
	_, err := f.service.SubmitOrder(context.Background(), cmd)
	if !errors.Is(err, ErrOrderCommitFailed) {
		t.Fatalf("expected ErrOrderCommitFailed, got %v", err)
	}

	// The key must be retryable after the failure.
	f.orders.err = nil
	if _, err := f.service.SubmitOrder(context.Background(), cmd); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
}

func TestSubmitOrderCarriesReservedKeyToCommit(t *testing.T) {
	f := newCheckoutFixture(t)

	cmd := validSubmit()
	cmd.IdempotencyKey = "key-1"
	if _, err := f.service.SubmitOrder(context.Background(), cmd); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if got := f.orders.commits[0].IdempotencyKey; got != "key-1" {
		t.Fatalf("expected reserved key on commit, got %q", got)
	}

	// Without a key there is no reservation to mark.
	if _, err := f.service.SubmitOrder(context.Background(), validSubmit()); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if got := f.orders.commits[1].IdempotencyKey; got != "" {
		t.Fatalf("expected no key on commit, got %q", got)
	}
}

// completeFailingStore delegates to a MemoryStore but fails every
// post-commit completion call, as a crashed instance would.
type completeFailingStore struct {
	*idempotency.MemoryStore
}

func (s *completeFailingStore) Complete(context.Context, string, string, string) error {
	return errors.New("instance lost before completion")
}

func TestSubmitOrderReplaysWhenCompletionCallFails(t *testing.T) {
	mem := idempotency.NewMemoryStore()
	f := newCheckoutFixtureWithStore(t, &completeFailingStore{MemoryStore: mem})
	f.orders.completer = func(key, orderID, orderNumber string) {
		if err := mem.Complete(context.Background(), key, orderID, orderNumber); err != nil {
			t.Errorf("completer returned error: %v", err)
		}
	}

	cmd := validSubmit()
	cmd.IdempotencyKey = "key-1"

	first, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}

	// The retry must replay the committed order instead of reporting the
	// key as in flight until it expires.
	second, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if !second.Replayed {
		t.Fatal("retry must replay the committed order")
	}
	if second.OrderID != first.OrderID || second.OrderNumber != first.OrderNumber {
		t.Fatalf("retry returned a different order: %+v vs %+v", second, first)
	}
	if len(f.orders.commits) != 1 {
		t.Fatalf("retry must not commit again, got %d commits", len(f.orders.commits))
	}
}

func TestSubmitOrderMapsGuardFailures(t *testing.T) {
	tests := []struct {
		name string
		repo error
		want error
	}{
		{"coupon exhausted at write", repositories.ErrCouponUsageExceeded, ErrCouponExhausted},
		{"coupon removed at write", repositories.ErrCouponUnavailable, ErrCouponNotFound},
		{"points overdraft at write", repositories.ErrInsufficientPoints, ErrInsufficientPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			f.orders.err = tt.repo
			cmd := validSubmit()
			cmd.CouponCode = "TEN"
			_, err := f.service.SubmitOrder(context.Background(), cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSubmitOrderReferralFailureDoesNotFailOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.referrals.err = errors.New("tracking store down")

	cmd := validSubmit()
	cmd.ReferralCode = "aff-9"
	result, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.OrderID == "" {
		t.Fatal("order must commit despite referral failure")
	}
}

func TestSubmitOrderRecordsReferral(t *testing.T) {
	f := newCheckoutFixture(t)
	cmd := validSubmit()
	cmd.ReferralCode = "aff-9"

	result, err := f.service.SubmitOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	f.referrals.mu.Lock()
	defer f.referrals.mu.Unlock()
	if len(f.referrals.attributions) != 1 {
		t.Fatalf("expected one attribution, got %d", len(f.referrals.attributions))
	}
	if f.referrals.attributions[0].OrderID != result.OrderID {
		t.Fatalf("attribution references order %s, want %s", f.referrals.attributions[0].OrderID, result.OrderID)
	}
}

func TestSubmitOrderSyncFailureDoesNotFailOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.publisher.err = errors.New("broker unreachable")

	result, err := f.service.SubmitOrder(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.OrderID == "" {
		t.Fatal("order must commit despite sync failure")
	}
	waitPublished(t, f.publisher)
}

func TestQuickOrderMatchesFullCheckoutPricing(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.lines = []domain.CartLine{{ProductID: "p1", ProductName: "Mug", UnitPrice: 150, Quantity: 2}}

	full, err := f.service.SubmitOrder(context.Background(), func() SubmitOrderCommand {
		cmd := validSubmit()
		cmd.CouponCode = "TEN"
		return cmd
	}())
	if err != nil {
		t.Fatalf("full submit returned error: %v", err)
	}

	quick, err := f.service.SubmitQuickOrder(context.Background(), QuickOrderCommand{
		StoreID:     "store-1",
		ProductID:   "p1",
		ProductName: "Mug",
		UnitPrice:   150,
		Quantity:    2,
		CouponCode:  "TEN",
		Fulfillment: domain.FulfillmentDetails{
			Name:    "Sara Adel",
			Phone:   "+20 100 555 0101",
			Address: "12 Nile St, Cairo",
		},
	})
	if err != nil {
		t.Fatalf("quick submit returned error: %v", err)
	}
	if quick.Pricing != full.Pricing {
		t.Fatalf("quick order pricing diverged: %+v vs %+v", quick.Pricing, full.Pricing)
	}
}

func TestQuickOrderDefaultsQuantity(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.service.SubmitQuickOrder(context.Background(), QuickOrderCommand{
		StoreID:   "store-1",
		ProductID: "p1",
		UnitPrice: 150,
		Fulfillment: domain.FulfillmentDetails{
			Name:    "Sara Adel",
			Phone:   "+20 100 555 0101",
			Address: "12 Nile St, Cairo",
		},
	})
	if err != nil {
		t.Fatalf("quick submit returned error: %v", err)
	}
	commit := f.orders.commits[0]
	if commit.Items[0].Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", commit.Items[0].Quantity)
	}
}

func TestQuoteSurfacesCouponRejection(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.lines = []domain.CartLine{{ProductID: "p1", UnitPrice: 50, Quantity: 1}}

	result, err := f.service.Quote(context.Background(), QuoteCommand{
		StoreID:    "store-1",
		CartID:     "cart-1",
		CouponCode: "TEN",
	})
	if err != nil {
		t.Fatalf("quote returned error: %v", err)
	}
	if result.CouponRejection != "COUPON_MINIMUM_NOT_MET" {
		t.Fatalf("expected minimum-not-met rejection, got %q", result.CouponRejection)
	}
	if result.Pricing.DiscountAmount != 0 {
		t.Fatalf("rejected coupon must not discount, got %d", result.Pricing.DiscountAmount)
	}
}

func TestQuoteUnknownStore(t *testing.T) {
	f := newCheckoutFixture(t)
	f.stores.err = repositories.NewNotFoundError("store", nil)
	_, err := f.service.Quote(context.Background(), QuoteCommand{StoreID: "ghost", CartID: "cart-1"})
	if !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}
