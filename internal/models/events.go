package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeBookCreated    = "BOOK_CREATED"
	EventTypeBookUpdated    = "BOOK_UPDATED"
	EventTypeBookDeleted    = "BOOK_DELETED"
	EventTypeSaleRecorded   = "SALE_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published on every order status change, including creation
type OrderEvent struct {
	BaseEvent
	OrderID    string      `json:"order_id"`
	Email      string      `json:"email"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	Items      []OrderItem `json:"items"`
}

// BookEvent is published when a book is created, edited or deleted
type BookEvent struct {
	BaseEvent
	BookID   string `json:"book_id"`
	SellerID string `json:"seller_id"`
}

// SaleRecordedEvent is published after a seller records a sale
type SaleRecordedEvent struct {
	BaseEvent
	BookID       string   `json:"book_id"`
	SellerID     string   `json:"seller_id"`
	Quantity     int      `json:"quantity"`
	RevenueDelta float64  `json:"revenue_delta"`
	Rating       *float64 `json:"rating,omitempty"`
	SoldCount    int      `json:"sold_count"`
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
