package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/idempotency"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const defaultIdempotencyTTL = 24 * time.Hour

// CheckoutServiceDeps carries the collaborators of CheckoutService.
type CheckoutServiceDeps struct {
	Stores      repositories.StoreConfigRepository
	Carts       repositories.CartRepository
	Customers   repositories.CustomerRepository
	Loyalty     repositories.LoyaltyRepository
	Orders      repositories.OrderRepository
	Referrals   repositories.ReferralRepository
	Idempotency idempotency.Store
	Publisher   OrderSyncPublisher

	IDGenerator    func() string
	Clock          Clock
	Logger         Logger
	IdempotencyTTL time.Duration
}

// CheckoutService prices carts and commits them as orders. Quote and the
// two submit variants share one pricing pass so their semantics cannot
// drift apart.
type CheckoutService struct {
	stores      repositories.StoreConfigRepository
	carts       repositories.CartRepository
	customers   repositories.CustomerRepository
	loyalty     repositories.LoyaltyRepository
	orders      repositories.OrderRepository
	referrals   repositories.ReferralRepository
	idempotency idempotency.Store
	publisher   OrderSyncPublisher
	engine      *PricingEngine

	newID  func() string
	clock  Clock
	logger Logger
	ttl    time.Duration
}

// NewCheckoutService validates dependencies and builds the service.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Stores == nil {
		return nil, errors.New("checkout service: store repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Loyalty == nil {
		return nil, errors.New("checkout service: loyalty repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	ttl := deps.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &CheckoutService{
		stores:      deps.Stores,
		carts:       deps.Carts,
		customers:   deps.Customers,
		loyalty:     deps.Loyalty,
		orders:      deps.Orders,
		referrals:   deps.Referrals,
		idempotency: deps.Idempotency,
		publisher:   deps.Publisher,
		engine:      NewPricingEngine(),
		newID:       newID,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
		ttl:         ttl,
	}, nil
}

// Quote prices the current cart without writing anything.
func (s *CheckoutService) Quote(ctx context.Context, cmd QuoteCommand) (QuoteResult, error) {
	config, err := s.storeConfig(ctx, cmd.StoreID)
	if err != nil {
		return QuoteResult{}, err
	}
	lines, err := s.cartLines(ctx, cmd.StoreID, cmd.CartID)
	if err != nil {
		return QuoteResult{}, err
	}

	balance, rate := s.loyaltyState(ctx, config, cmd.CustomerPhone)
	quote, err := s.engine.Price(PricingInput{
		Currency:       config.Currency,
		Lines:          lines,
		ShippingRule:   config.ShippingRule,
		Region:         cmd.Region,
		CouponCode:     cmd.CouponCode,
		Coupons:        config.Coupons,
		PointsBalance:  balance,
		RedemptionRate: rate,
		RedeemPoints:   cmd.RedeemPoints,
		BumpOffer:      config.BumpOffer,
		BumpSelected:   cmd.BumpSelected,
	}, s.clock())
	if err != nil {
		return QuoteResult{}, err
	}

	result := QuoteResult{
		Pricing:               quote.Pricing,
		ShippingIndeterminate: quote.ShippingIndeterminate,
		PointsBalance:         balance,
	}
	if quote.AppliedCoupon != nil {
		result.AppliedCouponCode = quote.AppliedCoupon.Code
	}
	if quote.CouponRejection != nil {
		result.CouponRejection = couponRejectionCode(quote.CouponRejection)
	}
	return result, nil
}

// Order loads a committed order for the confirmation page, joined with
// the customer record when one resolves.
func (s *CheckoutService) Order(ctx context.Context, storeID, orderID string) (OrderDetails, error) {
	if storeID == "" {
		return OrderDetails{}, newValidationError("storeId", "is required")
	}
	if orderID == "" {
		return OrderDetails{}, newValidationError("orderId", "is required")
	}
	order, err := s.orders.Get(ctx, storeID, orderID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return OrderDetails{}, ErrOrderNotFound
		}
		return OrderDetails{}, fmt.Errorf("load order: %w", err)
	}
	details := OrderDetails{Order: order}
	if s.customers != nil {
		customer, err := s.customers.Get(ctx, storeID, order.CustomerID)
		switch {
		case err == nil:
			details.Customer = customer
		default:
			var repoErr repositories.RepositoryError
			if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
				s.logger(ctx, "checkout.customer_lookup_failed", map[string]any{
					"store_id": storeID,
					"order_id": orderID,
					"error":    err.Error(),
				})
			}
		}
	}
	return details, nil
}

// LoyaltyStatus resolves a buyer's balance, effective redemption rate and
// recent ledger entries. A store without an enabled program reports
// Enabled false with a zero balance.
func (s *CheckoutService) LoyaltyStatus(ctx context.Context, storeID, phone string, limit int) (LoyaltyStatus, error) {
	config, err := s.storeConfig(ctx, storeID)
	if err != nil {
		return LoyaltyStatus{}, err
	}
	if domain.NormalizePhone(phone) == "" {
		return LoyaltyStatus{}, newValidationError("phone", "is required")
	}
	if config.Loyalty == nil || !config.Loyalty.Enabled {
		return LoyaltyStatus{}, nil
	}
	balance, rate := s.loyaltyState(ctx, config, phone)
	status := LoyaltyStatus{Enabled: true, PointsBalance: balance, RedemptionRate: rate}

	entries, err := s.loyalty.Entries(ctx, storeID, domain.CustomerID(storeID, phone), limit)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return status, nil
		}
		return LoyaltyStatus{}, fmt.Errorf("load loyalty entries: %w", err)
	}
	status.Entries = entries
	return status, nil
}

// SubmitOrder commits the cart as an order.
func (s *CheckoutService) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (SubmitResult, error) {
	if cmd.CartID == "" {
		return SubmitResult{}, newValidationError("cartId", "is required")
	}
	lines, err := s.cartLines(ctx, cmd.StoreID, cmd.CartID)
	if err != nil {
		return SubmitResult{}, err
	}
	return s.submit(ctx, submission{
		StoreID:        cmd.StoreID,
		Lines:          lines,
		Fulfillment:    cmd.Fulfillment,
		CouponCode:     cmd.CouponCode,
		RedeemPoints:   cmd.RedeemPoints,
		BumpSelected:   cmd.BumpSelected,
		ReferralCode:   cmd.ReferralCode,
		IdempotencyKey: cmd.IdempotencyKey,
		ExpectedTotal:  cmd.ExpectedTotal,
	})
}

// SubmitQuickOrder commits a single product directly. It funnels through
// the same submission path as a full checkout.
func (s *CheckoutService) SubmitQuickOrder(ctx context.Context, cmd QuickOrderCommand) (SubmitResult, error) {
	if cmd.ProductID == "" {
		return SubmitResult{}, newValidationError("productId", "is required")
	}
	if cmd.UnitPrice < 0 {
		return SubmitResult{}, newValidationError("unitPrice", "must not be negative")
	}
	quantity := cmd.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	line := domain.CartLine{
		ProductID:   cmd.ProductID,
		ProductName: cmd.ProductName,
		UnitPrice:   cmd.UnitPrice,
		Quantity:    quantity,
		Variants:    cmd.Variants,
	}
	return s.submit(ctx, submission{
		StoreID:        cmd.StoreID,
		Lines:          []domain.CartLine{line},
		Fulfillment:    cmd.Fulfillment,
		CouponCode:     cmd.CouponCode,
		RedeemPoints:   cmd.RedeemPoints,
		BumpSelected:   cmd.BumpSelected,
		ReferralCode:   cmd.ReferralCode,
		IdempotencyKey: cmd.IdempotencyKey,
		ExpectedTotal:  cmd.ExpectedTotal,
	})
}

type submission struct {
	StoreID        string
	Lines          []domain.CartLine
	Fulfillment    domain.FulfillmentDetails
	CouponCode     string
	RedeemPoints   bool
	BumpSelected   bool
	ReferralCode   string
	IdempotencyKey string
	ExpectedTotal  *int64
}

func (s *CheckoutService) submit(ctx context.Context, sub submission) (SubmitResult, error) {
	if err := validateFulfillment(sub.Fulfillment); err != nil {
		return SubmitResult{}, err
	}
	if len(sub.Lines) == 0 {
		return SubmitResult{}, newValidationError("cart", "is empty")
	}

	config, err := s.storeConfig(ctx, sub.StoreID)
	if err != nil {
		return SubmitResult{}, err
	}
	if config.ShippingRule.Kind == domain.ShippingRuleByRegion && sub.Fulfillment.Region == "" {
		return SubmitResult{}, newValidationError("region", "is required for this store's shipping")
	}

	// Idempotency: a replayed key with a matching payload short-circuits
	// to the originally committed order.
	reserved := false
	if s.idempotency != nil && sub.IdempotencyKey != "" {
		record, ok, err := s.idempotency.Reserve(ctx, sub.IdempotencyKey, fingerprint(sub), s.ttl)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			return SubmitResult{}, ErrSubmissionInFlight
		case errors.Is(err, idempotency.ErrFingerprintMismatch):
			return SubmitResult{}, newValidationError("idempotencyKey", "reused with a different payload")
		case err != nil:
			return SubmitResult{}, fmt.Errorf("%w: reserve idempotency key: %w", ErrOrderCommitFailed, err)
		}
		if !ok {
			s.logger(ctx, "checkout.submit_replayed", map[string]any{
				"store_id": sub.StoreID,
				"order_id": record.OrderID,
			})
			return SubmitResult{
				OrderID:     record.OrderID,
				OrderNumber: record.OrderNumber,
				Replayed:    true,
			}, nil
		}
		reserved = true
	}

	// The commit writer only marks reservations we actually hold.
	commitSub := sub
	if !reserved {
		commitSub.IdempotencyKey = ""
	}

	result, err := s.commit(ctx, commitSub, config)
	if err != nil {
		if reserved {
			if releaseErr := s.idempotency.Release(ctx, sub.IdempotencyKey); releaseErr != nil {
				s.logger(ctx, "checkout.idempotency_release_failed", map[string]any{
					"store_id": sub.StoreID,
					"error":    releaseErr.Error(),
				})
			}
		}
		return SubmitResult{}, err
	}

	// The order writer marks reservations it can reach in the commit
	// transaction itself; this call covers stores that keep reservations
	// elsewhere and is a no-op re-completion otherwise.
	if reserved {
		if err := s.idempotency.Complete(ctx, sub.IdempotencyKey, result.OrderID, result.OrderNumber); err != nil {
			s.logger(ctx, "checkout.idempotency_complete_failed", map[string]any{
				"store_id": sub.StoreID,
				"order_id": result.OrderID,
				"error":    err.Error(),
			})
		}
	}
	return result, nil
}

// commit re-prices from current state and persists everything. Pricing is
// recomputed here so a cart or coupon changed since the quote cannot be
// committed at a stale total.
func (s *CheckoutService) commit(ctx context.Context, sub submission, config domain.StoreConfig) (SubmitResult, error) {
	now := s.clock()
	customerID := domain.CustomerID(sub.StoreID, sub.Fulfillment.Phone)

	balance, rate := s.loyaltyState(ctx, config, sub.Fulfillment.Phone)
	quote, err := s.engine.Price(PricingInput{
		Currency:       config.Currency,
		Lines:          sub.Lines,
		ShippingRule:   config.ShippingRule,
		Region:         sub.Fulfillment.Region,
		CouponCode:     sub.CouponCode,
		Coupons:        config.Coupons,
		PointsBalance:  balance,
		RedemptionRate: rate,
		RedeemPoints:   sub.RedeemPoints,
		BumpOffer:      config.BumpOffer,
		BumpSelected:   sub.BumpSelected,
	}, now)
	if err != nil {
		return SubmitResult{}, err
	}
	if sub.CouponCode != "" && quote.CouponRejection != nil {
		return SubmitResult{}, quote.CouponRejection
	}
	if quote.ShippingIndeterminate {
		return SubmitResult{}, newValidationError("region", "is required for this store's shipping")
	}
	if sub.ExpectedTotal != nil && *sub.ExpectedTotal != quote.Pricing.GrandTotal {
		return SubmitResult{}, ErrPriceChanged
	}

	orderID := s.newID()
	var couponCode *string
	commitCoupon := ""
	if quote.AppliedCoupon != nil {
		code := quote.AppliedCoupon.Code
		couponCode = &code
		commitCoupon = code
	}

	order := domain.Order{
		ID:         orderID,
		StoreID:    sub.StoreID,
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		Pricing:    quote.Pricing,
		CouponCode: couponCode,
		Shipping: domain.AddressSnapshot{
			Name:     sub.Fulfillment.Name,
			Phone:    domain.NormalizePhone(sub.Fulfillment.Phone),
			AltPhone: domain.NormalizePhone(sub.Fulfillment.AltPhone),
			Address:  sub.Fulfillment.Address,
			Region:   sub.Fulfillment.Region,
		},
		Notes: sub.Fulfillment.Notes,
	}

	items := buildOrderItems(s.newID, orderID, sub.Lines, config.BumpOffer, sub.BumpSelected)

	commit := repositories.OrderCommit{
		StoreID: sub.StoreID,
		Customer: domain.Customer{
			ID:       customerID,
			StoreID:  sub.StoreID,
			Phone:    domain.NormalizePhone(sub.Fulfillment.Phone),
			Name:     sub.Fulfillment.Name,
			AltPhone: domain.NormalizePhone(sub.Fulfillment.AltPhone),
			Address:  sub.Fulfillment.Address,
		},
		Order:          order,
		Items:          items,
		CouponCode:     commitCoupon,
		PointsDebit:    quote.PointsRedeemed,
		IdempotencyKey: sub.IdempotencyKey,
	}
	if quote.PointsRedeemed > 0 {
		commit.LoyaltyEntry = &domain.LoyaltyEntry{
			ID:         s.newID(),
			CustomerID: customerID,
			Points:     -quote.PointsRedeemed,
			Reason:     "order_redemption",
		}
	}

	persisted, err := s.orders.Commit(ctx, commit)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCouponUnavailable):
			return SubmitResult{}, ErrCouponNotFound
		case errors.Is(err, repositories.ErrCouponUsageExceeded):
			return SubmitResult{}, ErrCouponExhausted
		case errors.Is(err, repositories.ErrInsufficientPoints):
			return SubmitResult{}, ErrInsufficientPoints
		}
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrOrderCommitFailed, err)
	}

	s.logger(ctx, "checkout.order_committed", map[string]any{
		"store_id":     sub.StoreID,
		"order_id":     persisted.Order.ID,
		"order_number": persisted.Order.OrderNumber,
		"grand_total":  persisted.Order.Pricing.GrandTotal,
	})

	s.recordReferral(ctx, sub, persisted.Order)
	s.dispatchSync(ctx, persisted.Order, persisted.Items)

	return SubmitResult{
		OrderID:     persisted.Order.ID,
		OrderNumber: persisted.Order.OrderNumber,
		Pricing:     persisted.Order.Pricing,
	}, nil
}

// recordReferral is a post-commit side effect; failures are logged and
// never fail the committed order.
func (s *CheckoutService) recordReferral(ctx context.Context, sub submission, order domain.Order) {
	if s.referrals == nil || sub.ReferralCode == "" {
		return
	}
	err := s.referrals.Attribute(ctx, domain.ReferralAttribution{
		ID:        s.newID(),
		StoreID:   sub.StoreID,
		OrderID:   order.ID,
		Code:      sub.ReferralCode,
		CreatedAt: s.clock(),
	})
	if err != nil {
		s.logger(ctx, "checkout.referral_attribution_failed", map[string]any{
			"store_id": sub.StoreID,
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

// dispatchSync pushes the committed order to the external feed without
// blocking the caller.
func (s *CheckoutService) dispatchSync(ctx context.Context, order domain.Order, items []domain.OrderItem) {
	if s.publisher == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.publisher.PublishOrderCreated(detached, order, items); err != nil {
			s.logger(detached, "checkout.order_sync_failed", map[string]any{
				"store_id": order.StoreID,
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}()
}

func (s *CheckoutService) storeConfig(ctx context.Context, storeID string) (domain.StoreConfig, error) {
	if storeID == "" {
		return domain.StoreConfig{}, newValidationError("storeId", "is required")
	}
	config, err := s.stores.Config(ctx, storeID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.StoreConfig{}, ErrStoreNotFound
		}
		return domain.StoreConfig{}, fmt.Errorf("load store config: %w", err)
	}
	return config, nil
}

func (s *CheckoutService) cartLines(ctx context.Context, storeID, cartID string) ([]domain.CartLine, error) {
	if cartID == "" {
		return nil, newValidationError("cartId", "is required")
	}
	lines, err := s.carts.Snapshot(ctx, storeID, cartID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return lines, nil
}

// loyaltyState resolves the buyer's balance and the effective redemption
// rate. A missing account or disabled program reads as a zero balance.
func (s *CheckoutService) loyaltyState(ctx context.Context, config domain.StoreConfig, phone string) (balance, rate int64) {
	if config.Loyalty == nil || !config.Loyalty.Enabled || phone == "" {
		return 0, 0
	}
	rate = config.Loyalty.RedemptionRate
	account, err := s.loyalty.Account(ctx, config.StoreID, domain.CustomerID(config.StoreID, phone))
	if err != nil {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			s.logger(ctx, "checkout.loyalty_lookup_failed", map[string]any{
				"store_id": config.StoreID,
				"error":    err.Error(),
			})
		}
		return 0, rate
	}
	if account.RedemptionRate > 0 {
		rate = account.RedemptionRate
	}
	return account.PointsBalance, rate
}

func validateFulfillment(details domain.FulfillmentDetails) error {
	if strings.TrimSpace(details.Name) == "" {
		return newValidationError("name", "is required")
	}
	if domain.NormalizePhone(details.Phone) == "" {
		return newValidationError("phone", "is required")
	}
	if strings.TrimSpace(details.Address) == "" {
		return newValidationError("address", "is required")
	}
	return nil
}

// buildOrderItems maps cart lines to order items, appending a synthetic
// row for the bump offer when selected. Snapshots are captured here so
// later catalog edits cannot alter historical orders.
func buildOrderItems(newID func() string, orderID string, lines []domain.CartLine, bump *domain.BumpOffer, bumpSelected bool) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines)+1)
	for _, line := range lines {
		labels := make([]string, 0, len(line.Variants))
		for _, v := range line.Variants {
			labels = append(labels, v.Label)
		}
		items = append(items, domain.OrderItem{
			ID:         newID(),
			OrderID:    orderID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.UnitPrice * line.Quantity,
			Snapshot: domain.ProductSnapshot{
				Name:          line.ProductName,
				VariantLabels: labels,
			},
		})
	}
	if bumpSelected && bump != nil {
		items = append(items, domain.OrderItem{
			ID:         newID(),
			OrderID:    orderID,
			ProductID:  "bump_offer",
			Quantity:   1,
			UnitPrice:  bump.Price,
			TotalPrice: bump.Price,
			Snapshot:   domain.ProductSnapshot{Name: bump.Label},
		})
	}
	return items
}

// fingerprint canonicalizes the submission payload so replays with a
// different payload are rejected instead of silently served the original
// order.
func fingerprint(sub submission) string {
	payload, _ := json.Marshal(struct {
		StoreID      string                    `json:"storeId"`
		Lines        []domain.CartLine         `json:"lines"`
		Fulfillment  domain.FulfillmentDetails `json:"fulfillment"`
		CouponCode   string                    `json:"couponCode"`
		RedeemPoints bool                      `json:"redeemPoints"`
		BumpSelected bool                      `json:"bumpSelected"`
		ReferralCode string                    `json:"referralCode"`
	}{
		StoreID:      sub.StoreID,
		Lines:        sub.Lines,
		Fulfillment:  sub.Fulfillment,
		CouponCode:   strings.ToLower(strings.TrimSpace(sub.CouponCode)),
		RedeemPoints: sub.RedeemPoints,
		BumpSelected: sub.BumpSelected,
		ReferralCode: sub.ReferralCode,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
