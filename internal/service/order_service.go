package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles the order lifecycle
type OrderService struct {
	orders    OrderRepository
	publisher EventPublisher
	idem      IdempotencyKeys
	idemTTL   time.Duration
	logger    *zap.Logger
}

// NewOrderService creates a new order service. idem may be nil, in which
// case idempotency keys are ignored.
func NewOrderService(
	orders OrderRepository,
	publisher EventPublisher,
	idem IdempotencyKeys,
	idemTTL time.Duration,
) *OrderService {
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		idem:      idem,
		idemTTL:   idemTTL,
		logger:    util.GetLogger(),
	}
}

// AddressRequest is the shipping address sent at checkout
type AddressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zipcode string `json:"zipcode"`
}

// OrderItemRequest represents a book and quantity in an order. A missing
// quantity means one copy.
type OrderItemRequest struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

// CreateOrderRequest represents a checkout. Status is accepted for
// compatibility but never honoured.
type CreateOrderRequest struct {
	Name           string             `json:"name" binding:"required"`
	Email          string             `json:"email" binding:"required"`
	Phone          string             `json:"phone" binding:"required"`
	Address        AddressRequest     `json:"address"`
	ProductIDs     []OrderItemRequest `json:"productIds" binding:"required,min=1,dive"`
	TotalPrice     *float64           `json:"totalPrice" binding:"required,gte=0"`
	Status         string             `json:"status,omitempty"`
	IdempotencyKey string             `json:"-"`
}

// Validate checks the required fields
func (r *CreateOrderRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(r.ProductIDs) == 0 {
		missing = append(missing, "productIds")
	}
	if r.TotalPrice == nil {
		missing = append(missing, "totalPrice")
	}
	if len(missing) > 0 {
		return models.Errorf(models.ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}

	if *r.TotalPrice < 0 {
		return models.Errorf(models.ErrValidation, "totalPrice must not be negative")
	}
	for _, item := range r.ProductIDs {
		if item.ID == "" {
			return models.Errorf(models.ErrValidation, "every product needs an id")
		}
		if item.Quantity < 0 {
			return models.Errorf(models.ErrValidation, "quantity must be at least 1")
		}
	}
	return nil
}

// CreateOrder persists a new pending order. Stock is not checked and the
// total is taken as given.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer func() { util.EndSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	orderID := uuid.New().String()

	if req.IdempotencyKey != "" && s.idem != nil {
		existing, replay, err := s.claimKey(ctx, req.IdempotencyKey, orderID)
		if err != nil {
			return nil, err
		}
		if replay {
			return existing, nil
		}
	}

	order = newOrder(orderID, req)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if req.IdempotencyKey != "" && s.idem != nil {
			if relErr := s.idem.ReleaseIdempotencyKey(ctx, req.IdempotencyKey); relErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total_price", order.TotalPrice))

	s.publishOrderEvent(ctx, models.EventTypeOrderCreated, order)
	return order, nil
}

// claimKey binds the idempotency key to orderID. When the key was already
// used it returns the earlier order and replay=true.
func (s *OrderService) claimKey(ctx context.Context, key, orderID string) (*models.Order, bool, error) {
	held, claimed, err := s.idem.ClaimIdempotencyKey(ctx, key, orderID, s.idemTTL)
	if err != nil {
		// Checkout stays available without Redis; the key is simply not enforced.
		s.logger.Warn("Idempotency check failed, continuing without it", zap.Error(err))
		return nil, false, nil
	}
	if claimed {
		return nil, false, nil
	}

	existing, err := s.orders.GetOrderByID(ctx, held)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, models.Errorf(models.ErrConflict, "an order with this idempotency key is still being processed")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load order for idempotency key: %w", err)
	}

	util.IdempotentReplaysTotal.Inc()
	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", existing.ID))
	return existing, true, nil
}

func newOrder(id string, req *CreateOrderRequest) *models.Order {
	items := make([]models.OrderItem, len(req.ProductIDs))
	for i, item := range req.ProductIDs {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		items[i] = models.OrderItem{BookID: item.ID, Quantity: qty}
	}

	return &models.Order{
		ID:    id,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
		Address: models.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			Country: req.Address.Country,
			Zipcode: req.Address.Zipcode,
		},
		Items:      items,
		TotalPrice: *req.TotalPrice,
		Status:     models.OrderStatusPending,
	}
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Errorf(models.ErrNotFound, "Order not found")
	}
	return order, err
}

// ListOrdersByEmail retrieves a customer's orders, newest first
func (s *OrderService) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrdersByEmail")
	defer span.End()

	orders, err := s.orders.ListOrdersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// CancelOrder moves a pending order to cancelled. Book sale statistics are
// left as they are.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.transition(ctx, orderID, models.OrderStatusCancelled, models.EventTypeOrderCancelled)
}

// CompleteOrder moves a pending order to completed
func (s *OrderService) CompleteOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.transition(ctx, orderID, models.OrderStatusCompleted, models.EventTypeOrderCompleted)
}

func (s *OrderService) transition(ctx context.Context, orderID string, to models.OrderStatus, eventType string) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.transition",
		attribute.String("order.id", orderID),
		attribute.String("order.to", string(to)))
	defer func() { util.EndSpan(span, err) }()

	order, err = s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !from.CanTransitionTo(to) {
		return nil, s.rejectTransition(order.ID, from, to)
	}

	changed, err := s.orders.TransitionOrderStatus(ctx, order.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !changed {
		// Lost a race with another transition; report against the winner.
		current, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, s.rejectTransition(order.ID, current.Status, to)
	}

	order.Status = to
	util.OrderTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	s.publishOrderEvent(ctx, eventType, order)
	return order, nil
}

func (s *OrderService) rejectTransition(orderID string, from, to models.OrderStatus) error {
	util.OrderTransitionsRejected.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info("Order transition rejected",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	switch {
	case from == to:
		return models.Errorf(models.ErrInvalidState, "Order is already %s", to)
	case to == models.OrderStatusCancelled:
		return models.Errorf(models.ErrInvalidState, "Cannot cancel a %s order", from)
	default:
		return models.Errorf(models.ErrInvalidState, "Cannot complete a %s order", from)
	}
}

func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, order *models.Order) {
	event := &models.OrderEvent{
		BaseEvent:  models.NewBaseEvent(eventType),
		OrderID:    order.ID,
		Email:      order.Email,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		Items:      order.Items,
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(eventType).Inc()
		util.ForContext(ctx, s.logger).Error("Failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
