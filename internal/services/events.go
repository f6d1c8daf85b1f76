package services

import (
	"context"
	"log"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Routing keys of the order events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// EventPublisher delivers order events to the message broker.
type EventPublisher interface {
	PublishJSON(routingKey string, v interface{}) error
}

// EventItem is one order line inside an OrderEvent.
type EventItem struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// OrderEvent is the body of every order event.
type OrderEvent struct {
	OrderID        uint               `json:"orderId"`
	UserID         uint               `json:"userId,omitempty"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	Total          decimal.Decimal    `json:"total"`
	Items          []EventItem        `json:"items,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

// ProductIDs lists the products touched by the event.
func (e *OrderEvent) ProductIDs() []uint {
	ids := make([]uint, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func newOrderEvent(order *models.Order, previous models.OrderStatus) OrderEvent {
	event := OrderEvent{
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          order.TotalAmount,
		OccurredAt:     time.Now().UTC(),
	}
	if order.UserID != nil {
		event.UserID = *order.UserID
	}
	for _, item := range order.Items {
		if item.ProductID != nil {
			event.Items = append(event.Items, EventItem{ProductID: *item.ProductID, Quantity: item.Quantity})
		}
	}
	return event
}

// publish sends the event when a publisher is configured. Failures are logged, never returned.
func publish(publisher EventPublisher, routingKey string, event OrderEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishJSON(routingKey, event); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %d: %v", routingKey, event.OrderID, err)
		return
	}
	log.Printf("Successfully published %s event for order %d", routingKey, event.OrderID)
}

// ProductCache drops cached product data after stock or category changes.
type ProductCache interface {
	Invalidate(ctx context.Context, ids ...uint)
}
