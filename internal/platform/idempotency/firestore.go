package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	firestore "cloud.google.com/go/firestore"

	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
)

// Collection is the Firestore collection reservation records live in.
// The order repository writes completion into the same document during
// its commit transaction.
const Collection = "idempotency_keys"

type recordDocument struct {
	Key         string    `firestore:"key"`
	Fingerprint string    `firestore:"fingerprint"`
	OrderID     string    `firestore:"orderId"`
	OrderNumber string    `firestore:"orderNumber"`
	Completed   bool      `firestore:"completed"`
	ExpiresAt   time.Time `firestore:"expiresAt"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

// FirestoreStore persists reservations in a Firestore collection so that
// replays are detected across instances.
type FirestoreStore struct {
	provider   *platformfs.Provider
	collection string
	clock      func() time.Time
}

// NewFirestoreStore wires the store over the shared provider.
func NewFirestoreStore(provider *platformfs.Provider) (*FirestoreStore, error) {
	if provider == nil {
		return nil, errors.New("idempotency: firestore provider is required")
	}
	return &FirestoreStore{
		provider:   provider,
		collection: Collection,
		clock:      time.Now,
	}, nil
}

// CompletionUpdates returns the field updates that mark a reservation
// record as completed with its order outcome.
func CompletionUpdates(orderID, orderNumber string) []firestore.Update {
	return []firestore.Update{
		{Path: "orderId", Value: orderID},
		{Path: "orderNumber", Value: orderNumber},
		{Path: "completed", Value: true},
	}
}

func (s *FirestoreStore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(s.collection).Doc(key), nil
}

func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (Record, bool, error) {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return Record{}, false, err
	}
	now := s.clock().UTC()

	var (
		reserved bool
		existing Record
	)
	err = s.provider.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		reserved = false
		existing = Record{}

		snap, err := tx.Get(ref)
		if err != nil && !platformfs.IsNotFound(err) {
			return err
		}
		if err == nil {
			var doc recordDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("idempotency: decode record: %w", err)
			}
			if doc.ExpiresAt.After(now) {
				if doc.Fingerprint != fingerprint {
					return ErrFingerprintMismatch
				}
				if !doc.Completed {
					return ErrInFlight
				}
				existing = Record{
					Key:         doc.Key,
					Fingerprint: doc.Fingerprint,
					OrderID:     doc.OrderID,
					OrderNumber: doc.OrderNumber,
					Completed:   true,
					ExpiresAt:   doc.ExpiresAt,
				}
				return nil
			}
		}

		reserved = true
		return tx.Set(ref, recordDocument{
			Key:         key,
			Fingerprint: fingerprint,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrFingerprintMismatch) || errors.Is(err, ErrInFlight) {
			return Record{}, false, err
		}
		return Record{}, false, fmt.Errorf("idempotency: reserve %s: %w", key, err)
	}
	if reserved {
		return Record{Key: key, Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}, true, nil
	}
	return existing, false, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, key, orderID, orderNumber string) error {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, CompletionUpdates(orderID, orderNumber))
	if err != nil {
		return fmt.Errorf("idempotency: complete %s: %w", key, err)
	}
	return nil
}

func (s *FirestoreStore) Release(ctx context.Context, key string) error {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}
