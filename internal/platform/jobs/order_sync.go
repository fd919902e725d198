package jobs

import (
	"context"
	"errors"
	"strings"

	"github.com/heshammera/orderly-shop-sub002/internal/domain"
)

const orderCreatedEvent = "order.created"

type orderSyncItem struct {
	ProductID  string `json:"productId"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  int64  `json:"unitPrice"`
	TotalPrice int64  `json:"totalPrice"`
	Name       string `json:"name"`
}

type orderSyncEvent struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	StoreID     string          `json:"storeId"`
	CustomerID  string          `json:"customerId"`
	Currency    string          `json:"currency"`
	GrandTotal  int64           `json:"grandTotal"`
	Items       []orderSyncItem `json:"items"`
}

// OrderSyncPublisher pushes committed orders onto the external sync topic.
type OrderSyncPublisher struct {
	publisher *Publisher
	topic     string
}

// NewOrderSyncPublisher wires the sync feed over the shared publisher.
func NewOrderSyncPublisher(publisher *Publisher, topic string) (*OrderSyncPublisher, error) {
	if publisher == nil {
		return nil, errors.New("jobs: publisher is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("jobs: order sync topic is required")
	}
	return &OrderSyncPublisher{publisher: publisher, topic: topic}, nil
}

// PublishOrderCreated emits one event per committed order.
func (p *OrderSyncPublisher) PublishOrderCreated(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	event := orderSyncEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		StoreID:     order.StoreID,
		CustomerID:  order.CustomerID,
		Currency:    order.Pricing.Currency,
		GrandTotal:  order.Pricing.GrandTotal,
		Items:       make([]orderSyncItem, 0, len(items)),
	}
	for _, item := range items {
		event.Items = append(event.Items, orderSyncItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Name:       item.Snapshot.Name,
		})
	}
	_, err := p.publisher.Publish(ctx, p.topic, orderCreatedEvent, event)
	return err
}
