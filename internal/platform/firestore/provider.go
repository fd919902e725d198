// Package firestore wraps the Cloud Firestore client with lazy
// initialisation and a small generic repository base used by the
// persistence layer.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	firestore "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// ErrMissingProjectID indicates the provider was built without a project.
var ErrMissingProjectID = errors.New("firestore: project id is required")

// ProviderConfig captures the settings needed to open a client.
type ProviderConfig struct {
	ProjectID  string
	DatabaseID string
	Options    []option.ClientOption
}

// Provider owns a lazily created Firestore client shared by repositories.
type Provider struct {
	mu     sync.Mutex
	cfg    ProviderConfig
	client *firestore.Client
}

// NewProvider validates the configuration and returns a provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, ErrMissingProjectID
	}
	return &Provider{cfg: cfg}, nil
}

// Client returns the shared client, creating it on first use.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	var (
		client *firestore.Client
		err    error
	)
	if db := strings.TrimSpace(p.cfg.DatabaseID); db != "" && db != firestore.DefaultDatabaseID {
		client, err = firestore.NewClientWithDatabase(ctx, p.cfg.ProjectID, db, p.cfg.Options...)
	} else {
		client, err = firestore.NewClient(ctx, p.cfg.ProjectID, p.cfg.Options...)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	p.client = client
	return p.client, nil
}

// Close releases the underlying client when one was created.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
