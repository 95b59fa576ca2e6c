package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replayConsumer struct {
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (c *replayConsumer) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range c.messages {
		c.errs = append(c.errs, handler(ctx, msg))
	}
	return nil
}

func (c *replayConsumer) Close() error {
	c.closed = true
	return nil
}

type fakeCache struct {
	keys map[string]bool
	fail bool
}

func newFakeCache(keys ...string) *fakeCache {
	c := &fakeCache{keys: make(map[string]bool)}
	for _, k := range keys {
		c.keys[k] = true
	}
	return c
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	if c.fail {
		return errors.New("redis down")
	}
	for _, k := range keys {
		delete(c.keys, k)
	}
	return nil
}

func (c *fakeCache) DeleteMatching(_ context.Context, pattern string) (int, error) {
	if c.fail {
		return 0, errors.New("redis down")
	}
	n := 0
	for k := range c.keys {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.keys, k)
			n++
		}
	}
	return n, nil
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func allKeys() []string {
	return []string{
		service.AdminStatsKey,
		service.SellerStatsKey("seller-1"),
		service.SellerStatsKey("seller-2"),
	}
}

func TestOrderEventsEvictAllStats(t *testing.T) {
	cache := newFakeCache(allKeys()...)
	consumer := &replayConsumer{messages: []kafka.Message{
		encode(t, &models.OrderEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeOrderCreated),
			OrderID:   "o1",
		}),
	}}

	w := NewStatsWorker(consumer, cache)
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, []error{nil}, consumer.errs)
	assert.Empty(t, cache.keys)
}

func TestBookAndSaleEventsEvictOwnSeller(t *testing.T) {
	cache := newFakeCache(allKeys()...)
	consumer := &replayConsumer{messages: []kafka.Message{
		encode(t, &models.SaleRecordedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeSaleRecorded),
			BookID:    "B1",
			SellerID:  "seller-1",
			Quantity:  1,
		}),
	}}

	w := NewStatsWorker(consumer, cache)
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, map[string]bool{service.SellerStatsKey("seller-2"): true}, cache.keys)

	cache = newFakeCache(allKeys()...)
	consumer = &replayConsumer{messages: []kafka.Message{
		encode(t, &models.BookEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeBookDeleted),
			BookID:    "B7",
			SellerID:  "seller-2",
		}),
	}}
	w = NewStatsWorker(consumer, cache)
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, map[string]bool{service.SellerStatsKey("seller-1"): true}, cache.keys)
}

func TestCacheFailureIsReported(t *testing.T) {
	cache := newFakeCache(allKeys()...)
	cache.fail = true
	consumer := &replayConsumer{messages: []kafka.Message{
		encode(t, &models.OrderEvent{BaseEvent: models.NewBaseEvent(models.EventTypeOrderCancelled)}),
	}}

	w := NewStatsWorker(consumer, cache)
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, consumer.errs, 1)
	assert.Error(t, consumer.errs[0])
}

func TestStopClosesConsumer(t *testing.T) {
	consumer := &replayConsumer{}
	w := NewStatsWorker(consumer, newFakeCache())

	require.NoError(t, w.Stop())
	assert.True(t, consumer.closed)
}
