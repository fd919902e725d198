package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	firestore "cloud.google.com/go/firestore"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const (
	loyaltyAccountsCollection = "loyalty_accounts"
	loyaltyEntriesCollection  = "loyalty_entries"
)

type loyaltyAccountDocument struct {
	StoreID        string `firestore:"storeId"`
	CustomerID     string `firestore:"customerId"`
	PointsBalance  int64  `firestore:"pointsBalance"`
	RedemptionRate int64  `firestore:"redemptionRate"`
}

type loyaltyEntryDocument struct {
	StoreID    string    `firestore:"storeId"`
	CustomerID string    `firestore:"customerId"`
	OrderID    string    `firestore:"orderId,omitempty"`
	Points     int64     `firestore:"points"`
	Reason     string    `firestore:"reason"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

func (d loyaltyEntryDocument) toDomain(id string) domain.LoyaltyEntry {
	return domain.LoyaltyEntry{
		ID:         id,
		CustomerID: d.CustomerID,
		OrderID:    d.OrderID,
		Points:     d.Points,
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt,
	}
}

// LoyaltyRepository reads loyalty balances and the redemption ledger.
// The balance field on the account document is maintained in the same
// transaction as every ledger append, so the two cannot drift.
type LoyaltyRepository struct {
	provider *platformfs.Provider
}

// NewLoyaltyRepository wires the repository over the shared provider.
func NewLoyaltyRepository(provider *platformfs.Provider) (*LoyaltyRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	return &LoyaltyRepository{provider: provider}, nil
}

// Account loads the loyalty account for a customer. A missing account is
// reported as not found; callers treat that as a zero balance.
func (r *LoyaltyRepository) Account(ctx context.Context, storeID, customerID string) (domain.LoyaltyAccount, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.LoyaltyAccount{}, repositories.NewUnavailableError("loyalty client", err)
	}
	snap, err := client.Collection(loyaltyAccountsCollection).Doc(customerID).Get(ctx)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return domain.LoyaltyAccount{}, repositories.NewNotFoundError(fmt.Sprintf("loyalty account %s", customerID), err)
		}
		return domain.LoyaltyAccount{}, classify("load loyalty account "+customerID, err)
	}
	var doc loyaltyAccountDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.LoyaltyAccount{}, repositories.NewInternalError("decode loyalty account "+customerID, err)
	}
	if doc.StoreID != storeID {
		return domain.LoyaltyAccount{}, repositories.NewNotFoundError(fmt.Sprintf("loyalty account %s in store %s", customerID, storeID), nil)
	}
	return domain.LoyaltyAccount{
		CustomerID:     doc.CustomerID,
		PointsBalance:  doc.PointsBalance,
		RedemptionRate: doc.RedemptionRate,
	}, nil
}

// Entries returns the most recent ledger entries for a customer.
func (r *LoyaltyRepository) Entries(ctx context.Context, storeID, customerID string, limit int) ([]domain.LoyaltyEntry, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, repositories.NewUnavailableError("loyalty client", err)
	}
	if limit <= 0 {
		limit = 50
	}
	iter := client.Collection(loyaltyEntriesCollection).
		Where("storeId", "==", storeID).
		Where("customerId", "==", customerID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.LoyaltyEntry
	for {
		snap, err := iter.Next()
		if err != nil {
			if isIteratorDone(err) {
				return out, nil
			}
			return nil, classify("load loyalty entries for "+customerID, err)
		}
		var doc loyaltyEntryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, repositories.NewInternalError("decode loyalty entry "+snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
}
