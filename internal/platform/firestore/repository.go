package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// ErrDocumentNotFound is returned when a lookup targets a missing document.
var ErrDocumentNotFound = errors.New("firestore: document not found")

// Encoder converts a domain value into a Firestore document payload.
type Encoder[T any] func(value T) (map[string]any, error)

// Decoder hydrates a domain value from a Firestore snapshot.
type Decoder[T any] func(doc *firestore.DocumentSnapshot) (T, error)

// BaseRepository provides typed access to a single collection.
type BaseRepository[T any] struct {
	provider   *Provider
	collection string
	encode     Encoder[T]
	decode     Decoder[T]
}

// NewBaseRepository wires a typed repository over the named collection.
func NewBaseRepository[T any](provider *Provider, collection string, encode Encoder[T], decode Decoder[T]) (*BaseRepository[T], error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	if encode == nil || decode == nil {
		return nil, errors.New("firestore: encoder and decoder are required")
	}
	return &BaseRepository[T]{
		provider:   provider,
		collection: collection,
		encode:     encode,
		decode:     decode,
	}, nil
}

// Collection resolves the collection reference against the shared client.
func (r *BaseRepository[T]) Collection(ctx context.Context) (*firestore.CollectionRef, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.collection), nil
}

// Doc resolves a document reference within the collection.
func (r *BaseRepository[T]) Doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	col, err := r.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return col.Doc(id), nil
}

// Get fetches and decodes a single document.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return zero, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return zero, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, r.collection, id)
		}
		return zero, fmt.Errorf("firestore: get %s/%s: %w", r.collection, id, err)
	}
	return r.decode(snap)
}

// Set writes the encoded value, replacing any existing document.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T) error {
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return err
	}
	payload, err := r.encode(value)
	if err != nil {
		return fmt.Errorf("firestore: encode %s/%s: %w", r.collection, id, err)
	}
	if _, err := doc.Set(ctx, payload); err != nil {
		return fmt.Errorf("firestore: set %s/%s: %w", r.collection, id, err)
	}
	return nil
}

// Create writes the encoded value and fails if the document exists.
func (r *BaseRepository[T]) Create(ctx context.Context, id string, value T) error {
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return err
	}
	payload, err := r.encode(value)
	if err != nil {
		return fmt.Errorf("firestore: encode %s/%s: %w", r.collection, id, err)
	}
	if _, err := doc.Create(ctx, payload); err != nil {
		return fmt.Errorf("firestore: create %s/%s: %w", r.collection, id, err)
	}
	return nil
}

// Delete removes a document; deleting a missing document is not an error.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string) error {
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete %s/%s: %w", r.collection, id, err)
	}
	return nil
}

// QueryAll decodes every document matched by the query.
func (r *BaseRepository[T]) QueryAll(ctx context.Context, query firestore.Query) ([]T, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()
	var out []T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: query %s: %w", r.collection, err)
		}
		value, err := r.decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
}

// TxGet reads and decodes a document inside a transaction.
func (r *BaseRepository[T]) TxGet(ctx context.Context, tx *firestore.Transaction, id string) (T, error) {
	var zero T
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return zero, err
	}
	snap, err := tx.Get(doc)
	if err != nil {
		if IsNotFound(err) {
			return zero, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, r.collection, id)
		}
		return zero, fmt.Errorf("firestore: tx get %s/%s: %w", r.collection, id, err)
	}
	return r.decode(snap)
}

// TxSet stages a write inside a transaction.
func (r *BaseRepository[T]) TxSet(ctx context.Context, tx *firestore.Transaction, id string, value T) error {
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return err
	}
	payload, err := r.encode(value)
	if err != nil {
		return fmt.Errorf("firestore: encode %s/%s: %w", r.collection, id, err)
	}
	return tx.Set(doc, payload)
}

// TxCreate stages a create inside a transaction, failing on collisions.
func (r *BaseRepository[T]) TxCreate(ctx context.Context, tx *firestore.Transaction, id string, value T) error {
	doc, err := r.Doc(ctx, id)
	if err != nil {
		return err
	}
	payload, err := r.encode(value)
	if err != nil {
		return fmt.Errorf("firestore: encode %s/%s: %w", r.collection, id, err)
	}
	return tx.Create(doc, payload)
}
