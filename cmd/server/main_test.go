package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bookstore-service/config"
	"bookstore-service/internal/auth"
	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	data map[string][]byte
}

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func testConfig(redis, kafka bool) *config.Config {
	return &config.Config{
		Redis: config.RedisConfig{Enabled: redis},
		Kafka: config.KafkaConfig{Enabled: kafka},
	}
}

func TestStatsCacheFor(t *testing.T) {
	cache := &memCache{data: map[string][]byte{}}

	tests := []struct {
		name  string
		redis bool
		kafka bool
		want  bool
	}{
		{"redis and kafka", true, true, true},
		{"redis without kafka", true, false, false},
		{"kafka without redis", false, true, false},
		{"neither", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statsCacheFor(testConfig(tt.redis, tt.kafka), cache)
			if tt.want {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
			assert.Equal(t, tt.want, statsWorkerEnabled(testConfig(tt.redis, tt.kafka)))
		})
	}

	assert.Nil(t, statsCacheFor(testConfig(true, true), nil))
}

func TestSellerStatsFreshWithoutStatsWorker(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.CreateBook(ctx, &models.Book{
		ID:          "B1",
		Title:       "Dune",
		Author:      "Herbert",
		Description: "Spice",
		Category:    "fiction",
		Price:       20,
		ImageURL:    "https://img.example/B1.png",
		OldPrice:    20,
		NewPrice:    20,
		SellerID:    "seller-1",
	}))

	cfg := testConfig(true, false)
	cache := statsCacheFor(cfg, &memCache{data: map[string][]byte{}})

	books := service.NewBookService(mem, broker.NopPublisher{}, auth.DefaultPolicy())
	stats := service.NewStatsService(mem, mem, cache, time.Minute, 5, 5)

	before, err := stats.SellerStats(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalOrders)

	revenue := 60.0
	seller := &auth.Principal{ID: "seller-1", Username: "seller", Role: models.RoleSeller}
	_, err = books.RecordSale(ctx, seller, "B1", &service.RecordSaleRequest{Quantity: 3, Revenue: &revenue})
	require.NoError(t, err)

	after, err := stats.SellerStats(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 3, after.TotalOrders)
	assert.Equal(t, 60.0, after.TotalRevenue)
}
