// Package di assembles the service graph from configuration.
package di

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/heshammera/orderly-shop-sub002/internal/handlers"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/config"
	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/idempotency"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/jobs"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/requestctx"
	fsrepo "github.com/heshammera/orderly-shop-sub002/internal/repositories/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/services"
)

// Container owns the wired application components and their lifecycle.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Checkout *services.CheckoutService
	Health   *handlers.HealthHandler

	firestoreProvider *platformfs.Provider
	pubsubClient      *pubsub.Client
	publisher         *jobs.Publisher
}

// New builds the full dependency graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	var fsOpts []option.ClientOption
	if cfg.Firestore.CredentialsFile != "" {
		fsOpts = append(fsOpts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
	}
	provider, err := platformfs.NewProvider(platformfs.ProviderConfig{
		ProjectID:  cfg.Firestore.ProjectID,
		DatabaseID: cfg.Firestore.DatabaseID,
		Options:    fsOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("di: firestore provider: %w", err)
	}

	c := &Container{
		Config:            cfg,
		Logger:            logger,
		firestoreProvider: provider,
	}

	stores, err := fsrepo.NewStoreConfigRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: store repository: %w", err)
	}
	carts, err := fsrepo.NewCartRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: cart repository: %w", err)
	}
	customers, err := fsrepo.NewCustomerRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: customer repository: %w", err)
	}
	loyalty, err := fsrepo.NewLoyaltyRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: loyalty repository: %w", err)
	}
	orders, err := fsrepo.NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: order repository: %w", err)
	}
	referrals, err := fsrepo.NewReferralRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: referral repository: %w", err)
	}
	idemStore, err := idempotency.NewFirestoreStore(provider)
	if err != nil {
		return nil, fmt.Errorf("di: idempotency store: %w", err)
	}

	var syncPublisher services.OrderSyncPublisher
	if cfg.PubSub.Enabled {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("di: pubsub client: %w", err)
		}
		c.pubsubClient = client
		publisher, err := jobs.NewPublisher(client)
		if err != nil {
			return nil, fmt.Errorf("di: publisher: %w", err)
		}
		c.publisher = publisher
		syncPublisher, err = jobs.NewOrderSyncPublisher(publisher, cfg.PubSub.OrderSyncTopic)
		if err != nil {
			return nil, fmt.Errorf("di: order sync publisher: %w", err)
		}
	}

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Stores:         stores,
		Carts:          carts,
		Customers:      customers,
		Loyalty:        loyalty,
		Orders:         orders,
		Referrals:      referrals,
		Idempotency:    idemStore,
		Publisher:      syncPublisher,
		Logger:         requestctx.Emit,
		IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("di: checkout service: %w", err)
	}
	c.Checkout = checkout

	c.Health = handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"firestore": func(ctx context.Context) error {
			_, err := provider.Client(ctx)
			return err
		},
	})

	return c, nil
}

// Close releases every owned client.
func (c *Container) Close() error {
	if c.publisher != nil {
		c.publisher.Stop()
	}
	var firstErr error
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			firstErr = err
		}
	}
	if c.firestoreProvider != nil {
		if err := c.firestoreProvider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
