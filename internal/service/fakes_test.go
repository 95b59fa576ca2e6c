package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/store"
)

var errBrokerDown = errors.New("broker down")

type recordingPublisher struct {
	mu     sync.Mutex
	fail   bool
	orders []*models.OrderEvent
	books  []*models.BookEvent
	sales  []*models.SaleRecordedEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.orders = append(p.orders, e)
	return nil
}

func (p *recordingPublisher) PublishBookEvent(_ context.Context, e *models.BookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.books = append(p.books, e)
	return nil
}

func (p *recordingPublisher) PublishSaleRecorded(_ context.Context, e *models.SaleRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.sales = append(p.sales, e)
	return nil
}

func (p *recordingPublisher) orderTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.orders))
	for i, e := range p.orders {
		types[i] = e.EventType
	}
	return types
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

type mapKeys struct {
	mu       sync.Mutex
	keys     map[string]string
	released []string
}

func newMapKeys() *mapKeys {
	return &mapKeys{keys: make(map[string]string)}
}

func (k *mapKeys) ClaimIdempotencyKey(_ context.Context, key, value string, _ time.Duration) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if held, ok := k.keys[key]; ok {
		return held, false, nil
	}
	k.keys[key] = value
	return value, true, nil
}

func (k *mapKeys) ReleaseIdempotencyKey(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, key)
	k.released = append(k.released, key)
	return nil
}

// failingOrders rejects every insert
type failingOrders struct {
	*store.MemoryStore
}

func (failingOrders) CreateOrder(context.Context, *models.Order) error {
	return errors.New("disk full")
}

var (
	adminPrincipal  = &auth.Principal{ID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	sellerPrincipal = &auth.Principal{ID: "seller-1", Username: "alice", Role: models.RoleSeller}
	otherSeller     = &auth.Principal{ID: "seller-2", Username: "bob", Role: models.RoleSeller}
)

func ptr[T any](v T) *T {
	return &v
}

func seedBook(ctx context.Context, s *store.MemoryStore, id, sellerID string, mutate ...func(*models.Book)) *models.Book {
	book := &models.Book{
		ID:          id,
		Title:       "Title " + id,
		Author:      "Author",
		Description: "Description",
		Category:    "fiction",
		Price:       20,
		ImageURL:    "https://img.example/" + id + ".png",
		OldPrice:    25,
		NewPrice:    20,
		SellerID:    sellerID,
	}
	for _, m := range mutate {
		m(book)
	}
	if err := s.CreateBook(ctx, book); err != nil {
		panic(err)
	}
	return book
}
