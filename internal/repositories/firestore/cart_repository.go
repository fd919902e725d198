package firestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const cartsCollection = "carts"

type variantSelectionDocument struct {
	VariantID     string `firestore:"variantId"`
	OptionID      string `firestore:"optionId"`
	Label         string `firestore:"label"`
	PriceModifier int64  `firestore:"priceModifier"`
}

type cartLineDocument struct {
	ProductID   string                     `firestore:"productId"`
	ProductName string                     `firestore:"productName"`
	UnitPrice   int64                      `firestore:"unitPrice"`
	Quantity    int64                      `firestore:"quantity"`
	Variants    []variantSelectionDocument `firestore:"variants,omitempty"`
}

type cartDocument struct {
	StoreID string             `firestore:"storeId"`
	Lines   []cartLineDocument `firestore:"lines"`
}

func (d cartDocument) toDomain() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(d.Lines))
	for _, line := range d.Lines {
		variants := make([]domain.VariantSelection, 0, len(line.Variants))
		for _, v := range line.Variants {
			variants = append(variants, domain.VariantSelection{
				VariantID:     v.VariantID,
				OptionID:      v.OptionID,
				Label:         v.Label,
				PriceModifier: v.PriceModifier,
			})
		}
		lines = append(lines, domain.CartLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Variants:    variants,
		})
	}
	return lines
}

// CartRepository reads cart snapshots owned by the storefront layer.
type CartRepository struct {
	provider *platformfs.Provider
}

// NewCartRepository wires the repository over the shared provider.
func NewCartRepository(provider *platformfs.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	return &CartRepository{provider: provider}, nil
}

// Snapshot loads the current cart lines for a buyer's cart.
func (r *CartRepository) Snapshot(ctx context.Context, storeID, cartID string) ([]domain.CartLine, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, repositories.NewUnavailableError("cart client", err)
	}
	docID := storeID + "__" + cartID
	snap, err := client.Collection(cartsCollection).Doc(docID).Get(ctx)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return nil, repositories.NewNotFoundError(fmt.Sprintf("cart %s in store %s", cartID, storeID), err)
		}
		return nil, classify("load cart "+docID, err)
	}
	var doc cartDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, repositories.NewInternalError("decode cart "+docID, err)
	}
	if doc.StoreID != storeID {
		return nil, repositories.NewNotFoundError(fmt.Sprintf("cart %s in store %s", cartID, storeID), nil)
	}
	return doc.toDomain(), nil
}
