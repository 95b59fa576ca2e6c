package worker

import (
	"context"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/util"

	"go.uber.org/zap"
)

// Consumer delivers broker messages to a handler until ctx is done
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// CacheInvalidator drops cached stats
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

// StatsWorker keeps cached stats fresh by evicting them on domain events
type StatsWorker struct {
	consumer     Consumer
	cache        CacheInvalidator
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer Consumer, cache CacheInvalidator) *StatsWorker {
	w := &StatsWorker{
		consumer:     consumer,
		cache:        cache,
		eventHandler: broker.NewEventHandler(),
		logger:       util.Named("stats-worker"),
	}

	w.eventHandler.OnOrderEvent(w.handleOrderEvent)
	w.eventHandler.OnBookEvent(w.handleBookEvent)
	w.eventHandler.OnSaleRecorded(w.handleSaleRecorded)
	return w
}

// Start consumes events until ctx is cancelled
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stats worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	w.logger.Info("Stopping stats worker")
	return w.consumer.Close()
}

// An order can touch any seller's books, so every seller entry goes.
func (w *StatsWorker) handleOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()

	if err := w.cache.Delete(ctx, service.AdminStatsKey); err != nil {
		return err
	}
	n, err := w.cache.DeleteMatching(ctx, service.SellerStatsPattern)
	if err != nil {
		return err
	}

	w.logger.Debug("Invalidated stats after order event",
		zap.String("type", event.EventType),
		zap.String("order_id", event.OrderID),
		zap.Int("seller_keys", n))
	return nil
}

func (w *StatsWorker) handleBookEvent(ctx context.Context, event *models.BookEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	return w.invalidateSeller(ctx, event.SellerID)
}

func (w *StatsWorker) handleSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	return w.invalidateSeller(ctx, event.SellerID)
}

func (w *StatsWorker) invalidateSeller(ctx context.Context, sellerID string) error {
	keys := []string{service.AdminStatsKey}
	if sellerID != "" {
		keys = append(keys, service.SellerStatsKey(sellerID))
	}
	return w.cache.Delete(ctx, keys...)
}
