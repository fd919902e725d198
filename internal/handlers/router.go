package handlers

import (
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/heshammera/orderly-shop-sub002/internal/platform/observability"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Checkout *CheckoutHandler
	Health   *HealthHandler
	Logger   *zap.Logger

	// SubmitLimit caps order submissions per store and client within
	// SubmitWindow. Zero disables throttling.
	SubmitLimit  int
	SubmitWindow time.Duration
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(deps RouterDeps) (chi.Router, error) {
	if deps.Checkout == nil {
		return nil, errors.New("handlers: checkout handler is required")
	}
	if deps.Health == nil {
		deps.Health = NewHealthHandler(nil)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.NewMiddleware(deps.Logger).Handler)

	r.Get("/healthz", deps.Health.Live)
	r.Get("/readyz", deps.Health.Ready)

	limiter := newSubmitLimiter(deps.SubmitLimit, deps.SubmitWindow, nil)
	r.Route("/v1/stores/{storeID}", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", deps.Checkout.Quote)
			r.Group(func(r chi.Router) {
				r.Use(limiter.middleware)
				r.Post("/orders", deps.Checkout.SubmitOrder)
				r.Post("/quick-orders", deps.Checkout.SubmitQuickOrder)
			})
		})
		r.Get("/orders/{orderID}", deps.Checkout.Order)
		r.Get("/loyalty", deps.Checkout.LoyaltyStatus)
	})

	return r, nil
}
