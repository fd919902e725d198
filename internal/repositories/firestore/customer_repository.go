package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

const customersCollection = "customers"

type customerDocument struct {
	StoreID     string    `firestore:"storeId"`
	Phone       string    `firestore:"phone"`
	Name        string    `firestore:"name"`
	AltPhone    string    `firestore:"altPhone,omitempty"`
	Address     string    `firestore:"address"`
	OrdersCount int64     `firestore:"ordersCount"`
	TotalSpent  int64     `firestore:"totalSpent"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (d customerDocument) toDomain(id string) domain.Customer {
	return domain.Customer{
		ID:          id,
		StoreID:     d.StoreID,
		Phone:       d.Phone,
		Name:        d.Name,
		AltPhone:    d.AltPhone,
		Address:     d.Address,
		OrdersCount: d.OrdersCount,
		TotalSpent:  d.TotalSpent,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func customerFromDomain(customer domain.Customer) customerDocument {
	return customerDocument{
		StoreID:     customer.StoreID,
		Phone:       customer.Phone,
		Name:        customer.Name,
		AltPhone:    customer.AltPhone,
		Address:     customer.Address,
		OrdersCount: customer.OrdersCount,
		TotalSpent:  customer.TotalSpent,
		CreatedAt:   customer.CreatedAt,
		UpdatedAt:   customer.UpdatedAt,
	}
}

// CustomerRepository reads customer records by deterministic id.
type CustomerRepository struct {
	provider *platformfs.Provider
}

// NewCustomerRepository wires the repository over the shared provider.
func NewCustomerRepository(provider *platformfs.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	return &CustomerRepository{provider: provider}, nil
}

// Get loads a customer within a store.
func (r *CustomerRepository) Get(ctx context.Context, storeID, customerID string) (domain.Customer, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Customer{}, repositories.NewUnavailableError("customer client", err)
	}
	snap, err := client.Collection(customersCollection).Doc(customerID).Get(ctx)
	if err != nil {
		if platformfs.IsNotFound(err) {
			return domain.Customer{}, repositories.NewNotFoundError(fmt.Sprintf("customer %s", customerID), err)
		}
		return domain.Customer{}, classify("load customer "+customerID, err)
	}
	var doc customerDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Customer{}, repositories.NewInternalError("decode customer "+customerID, err)
	}
	if doc.StoreID != storeID {
		return domain.Customer{}, repositories.NewNotFoundError(fmt.Sprintf("customer %s in store %s", customerID, storeID), nil)
	}
	return doc.toDomain(snap.Ref.ID), nil
}
