package firestore

import (
	"context"
	"fmt"

	firestore "cloud.google.com/go/firestore"
)

// TxOptions tunes transaction behaviour for a single RunTransaction call.
type TxOptions struct {
	MaxAttempts int
	ReadOnly    bool
}

// RunTransaction executes fn inside a Firestore transaction using the
// provider's shared client.
func (p *Provider) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *firestore.Transaction) error, opts ...TxOptions) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	var fsOpts []firestore.TransactionOption
	if len(opts) > 0 {
		opt := opts[0]
		if opt.MaxAttempts > 0 {
			fsOpts = append(fsOpts, firestore.MaxAttempts(opt.MaxAttempts))
		}
		if opt.ReadOnly {
			fsOpts = append(fsOpts, firestore.ReadOnly)
		}
	}
	if err := client.RunTransaction(ctx, fn, fsOpts...); err != nil {
		return fmt.Errorf("firestore: transaction: %w", err)
	}
	return nil
}
