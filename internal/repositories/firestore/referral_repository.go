package firestore

import (
	"context"
	"errors"
	"time"

	firestore "cloud.google.com/go/firestore"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
)

const referralsCollection = "referrals"

type referralDocument struct {
	StoreID   string    `firestore:"storeId"`
	OrderID   string    `firestore:"orderId"`
	Code      string    `firestore:"code"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// ReferralRepository records affiliate attribution rows.
type ReferralRepository struct {
	base *platformfs.BaseRepository[domain.ReferralAttribution]
}

// NewReferralRepository wires the repository over the shared provider.
func NewReferralRepository(provider *platformfs.Provider) (*ReferralRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	base, err := platformfs.NewBaseRepository(provider, referralsCollection,
		func(attribution domain.ReferralAttribution) (map[string]any, error) {
			return map[string]any{
				"storeId":   attribution.StoreID,
				"orderId":   attribution.OrderID,
				"code":      attribution.Code,
				"createdAt": attribution.CreatedAt,
			}, nil
		},
		func(snap *firestore.DocumentSnapshot) (domain.ReferralAttribution, error) {
			var doc referralDocument
			if err := snap.DataTo(&doc); err != nil {
				return domain.ReferralAttribution{}, err
			}
			return domain.ReferralAttribution{
				ID:        snap.Ref.ID,
				StoreID:   doc.StoreID,
				OrderID:   doc.OrderID,
				Code:      doc.Code,
				CreatedAt: doc.CreatedAt,
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &ReferralRepository{base: base}, nil
}

// Attribute persists an attribution row keyed by its id.
func (r *ReferralRepository) Attribute(ctx context.Context, attribution domain.ReferralAttribution) error {
	return r.base.Create(ctx, attribution.ID, attribution)
}
