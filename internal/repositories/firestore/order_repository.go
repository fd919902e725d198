package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	firestore "cloud.google.com/go/firestore"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/idempotency"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const (
	ordersCollection   = "orders"
	itemsSubcollection = "items"
	countersCollection = "counters"
)

type pricingDocument struct {
	Currency             string `firestore:"currency"`
	Subtotal             int64  `firestore:"subtotal"`
	ShippingCost         int64  `firestore:"shippingCost"`
	DiscountAmount       int64  `firestore:"discountAmount"`
	PointsDiscountAmount int64  `firestore:"pointsDiscountAmount"`
	PointsRedeemed       int64  `firestore:"pointsRedeemed"`
	BumpAmount           int64  `firestore:"bumpAmount"`
	GrandTotal           int64  `firestore:"grandTotal"`
}

type addressDocument struct {
	Name     string `firestore:"name"`
	Phone    string `firestore:"phone"`
	AltPhone string `firestore:"altPhone,omitempty"`
	Address  string `firestore:"address"`
	Region   string `firestore:"region,omitempty"`
}

type orderDocument struct {
	OrderNumber string          `firestore:"orderNumber"`
	StoreID     string          `firestore:"storeId"`
	CustomerID  string          `firestore:"customerId"`
	Status      string          `firestore:"status"`
	Pricing     pricingDocument `firestore:"pricing"`
	CouponCode  *string         `firestore:"couponCode,omitempty"`
	Shipping    addressDocument `firestore:"shipping"`
	Notes       string          `firestore:"notes,omitempty"`
	CreatedAt   time.Time       `firestore:"createdAt"`
}

type productSnapshotDocument struct {
	Name          string   `firestore:"name"`
	VariantLabels []string `firestore:"variantLabels,omitempty"`
}

type orderItemDocument struct {
	ProductID  string                  `firestore:"productId"`
	Quantity   int64                   `firestore:"quantity"`
	UnitPrice  int64                   `firestore:"unitPrice"`
	TotalPrice int64                   `firestore:"totalPrice"`
	Snapshot   productSnapshotDocument `firestore:"snapshot"`
}

type counterDocument struct {
	Sequence int64 `firestore:"sequence"`
}

func orderFromDomain(order domain.Order) orderDocument {
	return orderDocument{
		OrderNumber: order.OrderNumber,
		StoreID:     order.StoreID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Pricing: pricingDocument{
			Currency:             order.Pricing.Currency,
			Subtotal:             order.Pricing.Subtotal,
			ShippingCost:         order.Pricing.ShippingCost,
			DiscountAmount:       order.Pricing.DiscountAmount,
			PointsDiscountAmount: order.Pricing.PointsDiscountAmount,
			PointsRedeemed:       order.Pricing.PointsRedeemed,
			BumpAmount:           order.Pricing.BumpAmount,
			GrandTotal:           order.Pricing.GrandTotal,
		},
		CouponCode: order.CouponCode,
		Shipping: addressDocument{
			Name:     order.Shipping.Name,
			Phone:    order.Shipping.Phone,
			AltPhone: order.Shipping.AltPhone,
			Address:  order.Shipping.Address,
			Region:   order.Shipping.Region,
		},
		Notes:     order.Notes,
		CreatedAt: order.CreatedAt,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		StoreID:     d.StoreID,
		CustomerID:  d.CustomerID,
		Status:      domain.OrderStatus(d.Status),
		Pricing: domain.PricingResult{
			Currency:             d.Pricing.Currency,
			Subtotal:             d.Pricing.Subtotal,
			ShippingCost:         d.Pricing.ShippingCost,
			DiscountAmount:       d.Pricing.DiscountAmount,
			PointsDiscountAmount: d.Pricing.PointsDiscountAmount,
			PointsRedeemed:       d.Pricing.PointsRedeemed,
			BumpAmount:           d.Pricing.BumpAmount,
			GrandTotal:           d.Pricing.GrandTotal,
		},
		CouponCode: d.CouponCode,
		Shipping: domain.AddressSnapshot{
			Name:     d.Shipping.Name,
			Phone:    d.Shipping.Phone,
			AltPhone: d.Shipping.AltPhone,
			Address:  d.Shipping.Address,
			Region:   d.Shipping.Region,
		},
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
	}
}

// OrderRepository persists orders. The Commit transaction covers the
// customer upsert, the order and its items, the guarded coupon usage
// increment, and the guarded loyalty debit with its ledger entry.
type OrderRepository struct {
	provider *platformfs.Provider
	clock    func() time.Time
}

// NewOrderRepository wires the repository over the shared provider.
func NewOrderRepository(provider *platformfs.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	return &OrderRepository{provider: provider, clock: time.Now}, nil
}

// Commit durably persists the order and every dependent record in one
// transaction. Guard failures surface as the package-level checkout
// errors; everything else is classified onto RepositoryError.
func (r *OrderRepository) Commit(ctx context.Context, commit repositories.OrderCommit) (repositories.OrderCommitResult, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.OrderCommitResult{}, repositories.NewUnavailableError("order client", err)
	}

	now := r.clock().UTC()
	counterID := fmt.Sprintf("%s_%d", commit.StoreID, now.Year())
	counterRef := client.Collection(countersCollection).Doc(counterID)
	customerRef := client.Collection(customersCollection).Doc(commit.Customer.ID)
	orderRef := client.Collection(ordersCollection).Doc(commit.Order.ID)

	var result repositories.OrderCommitResult
	err = r.provider.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		// Reads first: Firestore forbids reads after the first write.
		sequence, err := nextSequence(tx, counterRef)
		if err != nil {
			return err
		}

		customerDoc, customerExists, err := readCustomer(tx, customerRef)
		if err != nil {
			return err
		}

		var couponRef *firestore.DocumentRef
		var couponDoc couponDocument
		if commit.CouponCode != "" {
			couponRef = client.Collection(couponsCollection).Doc(couponDocID(commit.StoreID, commit.CouponCode))
			snap, err := tx.Get(couponRef)
			if err != nil {
				if platformfs.IsNotFound(err) {
					return repositories.ErrCouponUnavailable
				}
				return classify("read coupon "+commit.CouponCode, err)
			}
			if err := snap.DataTo(&couponDoc); err != nil {
				return repositories.NewInternalError("decode coupon "+commit.CouponCode, err)
			}
			if !couponDoc.IsActive || couponDoc.StoreID != commit.StoreID {
				return repositories.ErrCouponUnavailable
			}
			if couponDoc.UsageLimit != nil && couponDoc.UsedCount >= *couponDoc.UsageLimit {
				return repositories.ErrCouponUsageExceeded
			}
		}

		// Reservation records are kept by the Firestore-backed
		// idempotency store. A missing document means the reservation
		// lives elsewhere, so completion stays with the caller.
		var reservationRef *firestore.DocumentRef
		if commit.IdempotencyKey != "" {
			ref := client.Collection(idempotency.Collection).Doc(commit.IdempotencyKey)
			if _, err := tx.Get(ref); err != nil {
				if !platformfs.IsNotFound(err) {
					return classify("read idempotency record "+commit.IdempotencyKey, err)
				}
			} else {
				reservationRef = ref
			}
		}

		var accountRef *firestore.DocumentRef
		var accountDoc loyaltyAccountDocument
		if commit.PointsDebit > 0 {
			accountRef = client.Collection(loyaltyAccountsCollection).Doc(commit.Customer.ID)
			snap, err := tx.Get(accountRef)
			if err != nil {
				if platformfs.IsNotFound(err) {
					return repositories.ErrInsufficientPoints
				}
				return classify("read loyalty account "+commit.Customer.ID, err)
			}
			if err := snap.DataTo(&accountDoc); err != nil {
				return repositories.NewInternalError("decode loyalty account "+commit.Customer.ID, err)
			}
			if accountDoc.PointsBalance < commit.PointsDebit {
				return repositories.ErrInsufficientPoints
			}
		}

		// Writes from here on.
		if err := tx.Set(counterRef, counterDocument{Sequence: sequence}); err != nil {
			return classify("update counter "+counterID, err)
		}

		order := commit.Order
		order.OrderNumber = fmt.Sprintf("OS-%d-%06d", now.Year(), sequence)
		order.CreatedAt = now
		if err := tx.Create(orderRef, orderFromDomain(order)); err != nil {
			return classify("create order "+order.ID, err)
		}

		items := make([]domain.OrderItem, 0, len(commit.Items))
		for _, item := range commit.Items {
			item.OrderID = order.ID
			itemRef := orderRef.Collection(itemsSubcollection).Doc(item.ID)
			doc := orderItemDocument{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.TotalPrice,
				Snapshot: productSnapshotDocument{
					Name:          item.Snapshot.Name,
					VariantLabels: item.Snapshot.VariantLabels,
				},
			}
			if err := tx.Create(itemRef, doc); err != nil {
				return classify("create order item "+item.ID, err)
			}
			items = append(items, item)
		}

		customer := commit.Customer
		if customerExists {
			existing := customerDoc.toDomain(commit.Customer.ID)
			customer.CreatedAt = existing.CreatedAt
			customer.OrdersCount = existing.OrdersCount + 1
			customer.TotalSpent = existing.TotalSpent + order.Pricing.GrandTotal
		} else {
			customer.CreatedAt = now
			customer.OrdersCount = 1
			customer.TotalSpent = order.Pricing.GrandTotal
		}
		customer.UpdatedAt = now
		if err := tx.Set(customerRef, customerFromDomain(customer)); err != nil {
			return classify("upsert customer "+customer.ID, err)
		}

		if couponRef != nil {
			if err := tx.Update(couponRef, []firestore.Update{
				{Path: "usedCount", Value: couponDoc.UsedCount + 1},
			}); err != nil {
				return classify("increment coupon "+commit.CouponCode, err)
			}
		}

		if accountRef != nil {
			if err := tx.Update(accountRef, []firestore.Update{
				{Path: "pointsBalance", Value: accountDoc.PointsBalance - commit.PointsDebit},
			}); err != nil {
				return classify("debit loyalty account "+commit.Customer.ID, err)
			}
			entry := commit.LoyaltyEntry
			entryRef := client.Collection(loyaltyEntriesCollection).Doc(entry.ID)
			if err := tx.Create(entryRef, loyaltyEntryDocument{
				StoreID:    commit.StoreID,
				CustomerID: commit.Customer.ID,
				OrderID:    order.ID,
				Points:     -commit.PointsDebit,
				Reason:     entry.Reason,
				CreatedAt:  now,
			}); err != nil {
				return classify("append loyalty entry "+entry.ID, err)
			}
		}

		if reservationRef != nil {
			if err := tx.Update(reservationRef, idempotency.CompletionUpdates(order.ID, order.OrderNumber)); err != nil {
				return classify("complete idempotency record "+commit.IdempotencyKey, err)
			}
		}

		result = repositories.OrderCommitResult{
			Order:      order,
			Items:      items,
			CustomerID: customer.ID,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCouponUnavailable),
			errors.Is(err, repositories.ErrCouponUsageExceeded),
			errors.Is(err, repositories.ErrInsufficientPoints):
			return repositories.OrderCommitResult{}, err
		}
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			return repositories.OrderCommitResult{}, repoErr
		}
		return repositories.OrderCommitResult{}, classify("commit order "+commit.Order.ID, err)
	}
	return result, nil
}

// Get loads a persisted order.
func (r *OrderRepository) Get(ctx context.Context, storeID, orderID string) (domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, repositories.NewUnavailableError("order client", err)
	}
	snap, err := client.Collection(ordersCollection).Doc(orderID).Get(ctx)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return domain.Order{}, repositories.NewNotFoundError("order "+orderID, err)
		}
		return domain.Order{}, classify("load order "+orderID, err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, repositories.NewInternalError("decode order "+orderID, err)
	}
	if doc.StoreID != storeID {
		return domain.Order{}, repositories.NewNotFoundError(fmt.Sprintf("order %s in store %s", orderID, storeID), nil)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func nextSequence(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return 1, nil
		}
		return 0, classify("read counter "+ref.ID, err)
	}
	var doc counterDocument
	if err := snap.DataTo(&doc); err != nil {
		return 0, repositories.NewInternalError("decode counter "+ref.ID, err)
	}
	return doc.Sequence + 1, nil
}

func readCustomer(tx *firestore.Transaction, ref *firestore.DocumentRef) (customerDocument, bool, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return customerDocument{}, false, nil
		}
		return customerDocument{}, false, classify("read customer "+ref.ID, err)
	}
	var doc customerDocument
	if err := snap.DataTo(&doc); err != nil {
		return customerDocument{}, false, repositories.NewInternalError("decode customer "+ref.ID, err)
	}
	return doc, true, nil
}
