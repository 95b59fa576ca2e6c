package broker

import (
	"context"
	"encoding/json"
	"testing"

	"bookstore-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}, eventType string, withHeader bool) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)

	msg := kafka.Message{Value: data}
	if withHeader {
		msg.Headers = []kafka.Header{{Key: eventTypeHeader, Value: []byte(eventType)}}
	}
	return msg
}

func TestHandleMessageRoutesByType(t *testing.T) {
	var (
		gotOrder *models.OrderEvent
		gotBook  *models.BookEvent
		gotSale  *models.SaleRecordedEvent
	)
	eh := NewEventHandler()
	eh.OnOrderEvent(func(_ context.Context, e *models.OrderEvent) error { gotOrder = e; return nil })
	eh.OnBookEvent(func(_ context.Context, e *models.BookEvent) error { gotBook = e; return nil })
	eh.OnSaleRecorded(func(_ context.Context, e *models.SaleRecordedEvent) error { gotSale = e; return nil })
	ctx := context.Background()

	order := &models.OrderEvent{BaseEvent: models.NewBaseEvent(models.EventTypeOrderCancelled), OrderID: "o1"}
	require.NoError(t, eh.HandleMessage(ctx, message(t, order, order.EventType, true)))
	require.NotNil(t, gotOrder)
	assert.Equal(t, "o1", gotOrder.OrderID)

	book := &models.BookEvent{BaseEvent: models.NewBaseEvent(models.EventTypeBookDeleted), BookID: "b1", SellerID: "s1"}
	require.NoError(t, eh.HandleMessage(ctx, message(t, book, book.EventType, false)))
	require.NotNil(t, gotBook)
	assert.Equal(t, "s1", gotBook.SellerID)

	sale := &models.SaleRecordedEvent{BaseEvent: models.NewBaseEvent(models.EventTypeSaleRecorded), BookID: "b1", Quantity: 2}
	require.NoError(t, eh.HandleMessage(ctx, message(t, sale, sale.EventType, true)))
	require.NotNil(t, gotSale)
	assert.Equal(t, 2, gotSale.Quantity)
}

func TestHandleMessageIgnoresUnknownAndRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	ctx := context.Background()

	unknown := models.BaseEvent{EventType: "SOMETHING_ELSE"}
	assert.NoError(t, eh.HandleMessage(ctx, message(t, unknown, unknown.EventType, false)))

	assert.Error(t, eh.HandleMessage(ctx, kafka.Message{Value: []byte("{not json")}))
}
