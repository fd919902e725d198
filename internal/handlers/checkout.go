// Package handlers exposes the checkout service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
	"github.com/heshammera/orderly-shop-sub002/internal/platform/httpx"
	"github.com/heshammera/orderly-shop-sub002/internal/services"
)

const maxBodyBytes = 1 << 20

// CheckoutService is the service surface the handler needs.
type CheckoutService interface {
	Quote(ctx context.Context, cmd services.QuoteCommand) (services.QuoteResult, error)
	SubmitOrder(ctx context.Context, cmd services.SubmitOrderCommand) (services.SubmitResult, error)
	SubmitQuickOrder(ctx context.Context, cmd services.QuickOrderCommand) (services.SubmitResult, error)
	Order(ctx context.Context, storeID, orderID string) (services.OrderDetails, error)
	LoyaltyStatus(ctx context.Context, storeID, phone string, limit int) (services.LoyaltyStatus, error)
}

// CheckoutHandler serves the checkout endpoints.
type CheckoutHandler struct {
	service CheckoutService
}

// NewCheckoutHandler builds the handler.
func NewCheckoutHandler(service CheckoutService) (*CheckoutHandler, error) {
	if service == nil {
		return nil, errors.New("handlers: checkout service is required")
	}
	return &CheckoutHandler{service: service}, nil
}

type fulfillmentPayload struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	AltPhone string `json:"altPhone,omitempty"`
	Address  string `json:"address"`
	Region   string `json:"region,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (p fulfillmentPayload) toDomain() domain.FulfillmentDetails {
	return domain.FulfillmentDetails{
		Name:     p.Name,
		Phone:    p.Phone,
		AltPhone: p.AltPhone,
		Address:  p.Address,
		Region:   p.Region,
		Notes:    p.Notes,
	}
}

type quoteRequest struct {
	CartID        string `json:"cartId"`
	Region        string `json:"region,omitempty"`
	CouponCode    string `json:"couponCode,omitempty"`
	RedeemPoints  bool   `json:"redeemPoints,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	BumpSelected  bool   `json:"bumpSelected,omitempty"`
}

type pricingPayload struct {
	Currency             string `json:"currency"`
	Subtotal             int64  `json:"subtotal"`
	ShippingCost         int64  `json:"shippingCost"`
	DiscountAmount       int64  `json:"discountAmount"`
	PointsDiscountAmount int64  `json:"pointsDiscountAmount"`
	PointsRedeemed       int64  `json:"pointsRedeemed"`
	BumpAmount           int64  `json:"bumpAmount"`
	GrandTotal           int64  `json:"grandTotal"`
	GrandTotalFormatted  string `json:"grandTotalFormatted"`
}

func pricingToPayload(p domain.PricingResult) pricingPayload {
	return pricingPayload{
		Currency:             p.Currency,
		Subtotal:             p.Subtotal,
		ShippingCost:         p.ShippingCost,
		DiscountAmount:       p.DiscountAmount,
		PointsDiscountAmount: p.PointsDiscountAmount,
		PointsRedeemed:       p.PointsRedeemed,
		BumpAmount:           p.BumpAmount,
		GrandTotal:           p.GrandTotal,
		GrandTotalFormatted:  domain.FormatAmount(p.Currency, p.GrandTotal),
	}
}

type quoteResponse struct {
	Pricing               pricingPayload `json:"pricing"`
	AppliedCouponCode     string         `json:"appliedCouponCode,omitempty"`
	CouponRejection       string         `json:"couponRejection,omitempty"`
	ShippingIndeterminate bool           `json:"shippingIndeterminate"`
	PointsBalance         int64          `json:"pointsBalance"`
}

// Quote handles POST /v1/stores/{storeID}/checkout/quote.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.Quote(r.Context(), services.QuoteCommand{
		StoreID:       chi.URLParam(r, "storeID"),
		CartID:        req.CartID,
		Region:        req.Region,
		CouponCode:    req.CouponCode,
		RedeemPoints:  req.RedeemPoints,
		CustomerPhone: req.CustomerPhone,
		BumpSelected:  req.BumpSelected,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, quoteResponse{
		Pricing:               pricingToPayload(result.Pricing),
		AppliedCouponCode:     result.AppliedCouponCode,
		CouponRejection:       result.CouponRejection,
		ShippingIndeterminate: result.ShippingIndeterminate,
		PointsBalance:         result.PointsBalance,
	})
}

type submitOrderRequest struct {
	CartID        string             `json:"cartId"`
	Fulfillment   fulfillmentPayload `json:"fulfillment"`
	CouponCode    string             `json:"couponCode,omitempty"`
	RedeemPoints  bool               `json:"redeemPoints,omitempty"`
	BumpSelected  bool               `json:"bumpSelected,omitempty"`
	ReferralCode  string             `json:"referralCode,omitempty"`
	ExpectedTotal *int64             `json:"expectedTotal,omitempty"`
}

type variantPayload struct {
	VariantID     string `json:"variantId"`
	OptionID      string `json:"optionId"`
	Label         string `json:"label"`
	PriceModifier int64  `json:"priceModifier,omitempty"`
}

type quickOrderRequest struct {
	ProductID     string             `json:"productId"`
	ProductName   string             `json:"productName"`
	UnitPrice     int64              `json:"unitPrice"`
	Quantity      int64              `json:"quantity,omitempty"`
	Variants      []variantPayload   `json:"variants,omitempty"`
	Fulfillment   fulfillmentPayload `json:"fulfillment"`
	CouponCode    string             `json:"couponCode,omitempty"`
	RedeemPoints  bool               `json:"redeemPoints,omitempty"`
	BumpSelected  bool               `json:"bumpSelected,omitempty"`
	ReferralCode  string             `json:"referralCode,omitempty"`
	ExpectedTotal *int64             `json:"expectedTotal,omitempty"`
}

type submitResponse struct {
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	Pricing     pricingPayload `json:"pricing"`
	Replayed    bool           `json:"replayed,omitempty"`
}

// SubmitOrder handles POST /v1/stores/{storeID}/checkout/orders.
func (h *CheckoutHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.SubmitOrder(r.Context(), services.SubmitOrderCommand{
		StoreID:        chi.URLParam(r, "storeID"),
		CartID:         req.CartID,
		Fulfillment:    req.Fulfillment.toDomain(),
		CouponCode:     req.CouponCode,
		RedeemPoints:   req.RedeemPoints,
		BumpSelected:   req.BumpSelected,
		ReferralCode:   req.ReferralCode,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ExpectedTotal:  req.ExpectedTotal,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	writeSubmitResult(w, r, result)
}

// SubmitQuickOrder handles POST /v1/stores/{storeID}/checkout/quick-orders.
func (h *CheckoutHandler) SubmitQuickOrder(w http.ResponseWriter, r *http.Request) {
	var req quickOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	variants := make([]domain.VariantSelection, 0, len(req.Variants))
	for _, v := range req.Variants {
		variants = append(variants, domain.VariantSelection{
			VariantID:     v.VariantID,
			OptionID:      v.OptionID,
			Label:         v.Label,
			PriceModifier: v.PriceModifier,
		})
	}
	result, err := h.service.SubmitQuickOrder(r.Context(), services.QuickOrderCommand{
		StoreID:        chi.URLParam(r, "storeID"),
		ProductID:      req.ProductID,
		ProductName:    req.ProductName,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		Variants:       variants,
		Fulfillment:    req.Fulfillment.toDomain(),
		CouponCode:     req.CouponCode,
		RedeemPoints:   req.RedeemPoints,
		BumpSelected:   req.BumpSelected,
		ReferralCode:   req.ReferralCode,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ExpectedTotal:  req.ExpectedTotal,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	writeSubmitResult(w, r, result)
}

type addressPayload struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	AltPhone string `json:"altPhone,omitempty"`
	Address  string `json:"address"`
	Region   string `json:"region,omitempty"`
}

type orderResponse struct {
	OrderID      string         `json:"orderId"`
	OrderNumber  string         `json:"orderNumber"`
	Status       string         `json:"status"`
	Pricing      pricingPayload `json:"pricing"`
	CouponCode   string         `json:"couponCode,omitempty"`
	Shipping     addressPayload `json:"shipping"`
	Notes        string         `json:"notes,omitempty"`
	CustomerName string         `json:"customerName,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Order handles GET /v1/stores/{storeID}/orders/{orderID}.
func (h *CheckoutHandler) Order(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Order(r.Context(), chi.URLParam(r, "storeID"), chi.URLParam(r, "orderID"))
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	order := details.Order
	resp := orderResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Pricing:     pricingToPayload(order.Pricing),
		Shipping: addressPayload{
			Name:     order.Shipping.Name,
			Phone:    order.Shipping.Phone,
			AltPhone: order.Shipping.AltPhone,
			Address:  order.Shipping.Address,
			Region:   order.Shipping.Region,
		},
		Notes:        order.Notes,
		CustomerName: details.Customer.Name,
		CreatedAt:    order.CreatedAt,
	}
	if order.CouponCode != nil {
		resp.CouponCode = *order.CouponCode
	}
	httpx.WriteJSON(w, r, http.StatusOK, resp)
}

type loyaltyEntryPayload struct {
	OrderID   string    `json:"orderId,omitempty"`
	Points    int64     `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

type loyaltyStatusResponse struct {
	Enabled        bool                  `json:"enabled"`
	PointsBalance  int64                 `json:"pointsBalance"`
	RedemptionRate int64                 `json:"redemptionRate"`
	Entries        []loyaltyEntryPayload `json:"entries"`
}

// LoyaltyStatus handles GET /v1/stores/{storeID}/loyalty.
func (h *CheckoutHandler) LoyaltyStatus(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status, err := h.service.LoyaltyStatus(r.Context(), chi.URLParam(r, "storeID"), r.URL.Query().Get("phone"), limit)
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	entries := make([]loyaltyEntryPayload, 0, len(status.Entries))
	for _, e := range status.Entries {
		entries = append(entries, loyaltyEntryPayload{
			OrderID:   e.OrderID,
			Points:    e.Points,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}
	httpx.WriteJSON(w, r, http.StatusOK, loyaltyStatusResponse{
		Enabled:        status.Enabled,
		PointsBalance:  status.PointsBalance,
		RedemptionRate: status.RedemptionRate,
		Entries:        entries,
	})
}

func writeSubmitResult(w http.ResponseWriter, r *http.Request, result services.SubmitResult) {
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, r, status, submitResponse{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		Pricing:     pricingToPayload(result.Pricing),
		Replayed:    result.Replayed,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			httpx.WriteError(w, r, http.StatusBadRequest, httpx.ErrorBody{
				Code:    "INVALID_BODY",
				Message: "request body is required",
			})
			return false
		}
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.ErrorBody{
			Code:    "INVALID_BODY",
			Message: "request body is not valid JSON",
		})
		return false
	}
	return true
}

func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: map[string]string{"field": verr.Field, "reason": verr.Reason},
		})
	case errors.Is(err, services.ErrStoreNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, httpx.ErrorBody{
			Code:    "STORE_NOT_FOUND",
			Message: "store not found",
		})
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, httpx.ErrorBody{
			Code:    "CART_NOT_FOUND",
			Message: "cart not found",
		})
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, httpx.ErrorBody{
			Code:    "ORDER_NOT_FOUND",
			Message: "order not found",
		})
	case errors.Is(err, services.ErrCouponNotFound),
		errors.Is(err, services.ErrCouponExpired),
		errors.Is(err, services.ErrCouponExhausted),
		errors.Is(err, services.ErrCouponMinimumNotMet):
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, httpx.ErrorBody{
			Code:    couponErrorCode(err),
			Message: "coupon was rejected",
		})
	case errors.Is(err, services.ErrInsufficientPoints):
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, httpx.ErrorBody{
			Code:    "INSUFFICIENT_POINTS",
			Message: "loyalty balance no longer covers the requested redemption",
		})
	case errors.Is(err, services.ErrPriceChanged):
		httpx.WriteError(w, r, http.StatusConflict, httpx.ErrorBody{
			Code:    "PRICE_CHANGED",
			Message: "the order total changed since it was confirmed",
		})
	case errors.Is(err, services.ErrSubmissionInFlight):
		httpx.WriteError(w, r, http.StatusConflict, httpx.ErrorBody{
			Code:    "SUBMISSION_IN_FLIGHT",
			Message: "a submission with this idempotency key is still being processed",
		})
	default:
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.ErrorBody{
			Code:    "CHECKOUT_FAILED",
			Message: "checkout could not be completed",
		})
	}
}

func couponErrorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrCouponExpired):
		return "COUPON_EXPIRED"
	case errors.Is(err, services.ErrCouponExhausted):
		return "COUPON_EXHAUSTED"
	case errors.Is(err, services.ErrCouponMinimumNotMet):
		return "COUPON_MINIMUM_NOT_MET"
	default:
		return "COUPON_NOT_FOUND"
	}
}
