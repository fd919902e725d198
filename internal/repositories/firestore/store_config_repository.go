// Package firestore implements the repository contracts on Cloud Firestore.
//
// Layout: store configuration lives in the stores collection, coupons and
// carts in flat collections keyed by store, orders with an items
// subcollection, and loyalty state split between an account document and
// an append-only entries collection.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firestore "cloud.google.com/go/firestore"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const (
	storesCollection  = "stores"
	couponsCollection = "coupons"
)

type shippingRuleDocument struct {
	Kind    string           `firestore:"kind"`
	Amount  int64            `firestore:"amount"`
	Regions map[string]int64 `firestore:"regions,omitempty"`
}

type loyaltyProgramDocument struct {
	Enabled        bool  `firestore:"enabled"`
	RedemptionRate int64 `firestore:"redemptionRate"`
}

type bumpOfferDocument struct {
	Label string `firestore:"label"`
	Price int64  `firestore:"price"`
}

type storeDocument struct {
	Currency     string                  `firestore:"currency"`
	ShippingRule shippingRuleDocument    `firestore:"shippingRule"`
	Loyalty      *loyaltyProgramDocument `firestore:"loyalty,omitempty"`
	BumpOffer    *bumpOfferDocument      `firestore:"bumpOffer,omitempty"`
}

type couponDocument struct {
	StoreID        string     `firestore:"storeId"`
	Code           string     `firestore:"code"`
	DiscountType   string     `firestore:"discountType"`
	DiscountValue  int64      `firestore:"discountValue"`
	MinOrderAmount *int64     `firestore:"minOrderAmount,omitempty"`
	UsageLimit     *int64     `firestore:"usageLimit,omitempty"`
	UsedCount      int64      `firestore:"usedCount"`
	ExpiresAt      *time.Time `firestore:"expiresAt,omitempty"`
	IsActive       bool       `firestore:"isActive"`
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:             id,
		Code:           d.Code,
		DiscountType:   domain.DiscountType(d.DiscountType),
		DiscountValue:  d.DiscountValue,
		MinOrderAmount: d.MinOrderAmount,
		UsageLimit:     d.UsageLimit,
		UsedCount:      d.UsedCount,
		ExpiresAt:      d.ExpiresAt,
		IsActive:       d.IsActive,
	}
}

// couponDocID builds the deterministic coupon document id. Codes are
// unique per store, case-insensitively.
func couponDocID(storeID, code string) string {
	return storeID + "__" + strings.ToLower(strings.TrimSpace(code))
}

// StoreConfigRepository reads store checkout settings and active coupons.
type StoreConfigRepository struct {
	provider *platformfs.Provider
}

// NewStoreConfigRepository wires the repository over the shared provider.
func NewStoreConfigRepository(provider *platformfs.Provider) (*StoreConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	return &StoreConfigRepository{provider: provider}, nil
}

// Config loads the store document and its coupon set.
func (r *StoreConfigRepository) Config(ctx context.Context, storeID string) (domain.StoreConfig, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.StoreConfig{}, repositories.NewUnavailableError("store config client", err)
	}

	snap, err := client.Collection(storesCollection).Doc(storeID).Get(ctx)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return domain.StoreConfig{}, repositories.NewNotFoundError(fmt.Sprintf("store %s", storeID), err)
		}
		return domain.StoreConfig{}, classify("load store "+storeID, err)
	}
	var doc storeDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.StoreConfig{}, repositories.NewInternalError("decode store "+storeID, err)
	}

	config := domain.StoreConfig{
		StoreID:  storeID,
		Currency: doc.Currency,
		ShippingRule: domain.ShippingRule{
			Kind:    domain.ShippingRuleKind(doc.ShippingRule.Kind),
			Amount:  doc.ShippingRule.Amount,
			Regions: doc.ShippingRule.Regions,
		},
	}
	if doc.Loyalty != nil {
		config.Loyalty = &domain.LoyaltyProgram{
			Enabled:        doc.Loyalty.Enabled,
			RedemptionRate: doc.Loyalty.RedemptionRate,
		}
	}
	if doc.BumpOffer != nil {
		config.BumpOffer = &domain.BumpOffer{
			Label: doc.BumpOffer.Label,
			Price: doc.BumpOffer.Price,
		}
	}

	coupons, err := r.coupons(ctx, client, storeID)
	if err != nil {
		return domain.StoreConfig{}, err
	}
	config.Coupons = coupons
	return config, nil
}

func (r *StoreConfigRepository) coupons(ctx context.Context, client *firestore.Client, storeID string) ([]domain.Coupon, error) {
	iter := client.Collection(couponsCollection).
		Where("storeId", "==", storeID).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.Coupon
	for {
		snap, err := iter.Next()
		if err != nil {
			if isIteratorDone(err) {
				return out, nil
			}
			return nil, classify("load coupons for "+storeID, err)
		}
		var doc couponDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, repositories.NewInternalError("decode coupon "+snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
}
