// Package repositories defines the persistence contracts consumed by the
// service layer along with the error classification shared by every
// implementation.
package repositories

import (
	"context"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

// RepositoryError classifies persistence failures so services can map
// them onto their own error taxonomy without knowing the backend.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

type repositoryError struct {
	kind  errorKind
	msg   string
	cause error
}

type errorKind int

const (
	kindNotFound errorKind = iota
	kindConflict
	kindUnavailable
	kindInternal
)

func (e *repositoryError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *repositoryError) Unwrap() error       { return e.cause }
func (e *repositoryError) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *repositoryError) IsConflict() bool    { return e.kind == kindConflict }
func (e *repositoryError) IsUnavailable() bool { return e.kind == kindUnavailable }

// NewNotFoundError builds a RepositoryError for missing records.
func NewNotFoundError(msg string, cause error) RepositoryError {
	return &repositoryError{kind: kindNotFound, msg: msg, cause: cause}
}

// NewConflictError builds a RepositoryError for write conflicts.
func NewConflictError(msg string, cause error) RepositoryError {
	return &repositoryError{kind: kindConflict, msg: msg, cause: cause}
}

// NewUnavailableError builds a RepositoryError for transient backend failures.
func NewUnavailableError(msg string, cause error) RepositoryError {
	return &repositoryError{kind: kindUnavailable, msg: msg, cause: cause}
}

// NewInternalError builds a RepositoryError for unclassified failures.
func NewInternalError(msg string, cause error) RepositoryError {
	return &repositoryError{kind: kindInternal, msg: msg, cause: cause}
}

// StoreConfigRepository loads the per-store checkout configuration:
// currency, shipping rule, loyalty settings, bump offer, active coupons.
type StoreConfigRepository interface {
	Config(ctx context.Context, storeID string) (domain.StoreConfig, error)
}

// CartRepository supplies a read-only snapshot of a buyer's cart with
// resolved unit prices.
type CartRepository interface {
	Snapshot(ctx context.Context, storeID, cartID string) ([]domain.CartLine, error)
}

// CustomerRepository reads customers resolved by their deterministic id.
type CustomerRepository interface {
	Get(ctx context.Context, storeID, customerID string) (domain.Customer, error)
}

// LoyaltyRepository reads loyalty balances and redemption history.
// Balances are derived from an append-only ledger maintained at commit.
type LoyaltyRepository interface {
	Account(ctx context.Context, storeID, customerID string) (domain.LoyaltyAccount, error)
	Entries(ctx context.Context, storeID, customerID string, limit int) ([]domain.LoyaltyEntry, error)
}

// OrderCommit carries everything the order writer persists in a single
// atomic transaction.
type OrderCommit struct {
	StoreID string

	// Customer is upserted at its deterministic id; an existing record
	// keeps its identity and gets its aggregates bumped.
	Customer domain.Customer

	// Order arrives without an order number; the writer assigns one from
	// the store sequence inside the same transaction.
	Order domain.Order
	Items []domain.OrderItem

	// CouponCode, when set, triggers a guarded usage increment that
	// fails the transaction once the limit is reached.
	CouponCode string

	// PointsDebit, when positive, appends LoyaltyEntry and fails the
	// transaction if the derived balance would go negative.
	PointsDebit  int64
	LoyaltyEntry *domain.LoyaltyEntry

	// IdempotencyKey, when set, names a reservation record the writer
	// marks completed in the same transaction, so a crash between the
	// commit and a separate completion write cannot strand the key.
	IdempotencyKey string
}

// OrderCommitResult reports the durably persisted order.
type OrderCommitResult struct {
	Order      domain.Order
	Items      []domain.OrderItem
	CustomerID string
}

// OrderRepository persists orders. Commit is all-or-nothing: the
// customer upsert, order, items, coupon increment and loyalty debit
// either all land or none do.
type OrderRepository interface {
	Commit(ctx context.Context, commit OrderCommit) (OrderCommitResult, error)
	Get(ctx context.Context, storeID, orderID string) (domain.Order, error)
}

// ReferralRepository records affiliate attribution after commit.
type ReferralRepository interface {
	Attribute(ctx context.Context, attribution domain.ReferralAttribution) error
}
