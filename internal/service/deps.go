package service

import (
	"context"
	"time"

	"bookstore-service/internal/models"
)

// BookRepository persists catalog records
type BookRepository interface {
	CreateBook(ctx context.Context, book *models.Book) error
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error)
	ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error)
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id, sellerID string) error
	RecordSale(ctx context.Context, sale models.Sale) (*models.Book, error)
	CountBooks(ctx context.Context, trendingOnly bool) (int, error)
}

// OrderRepository persists orders and their line items
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error)
	TransitionOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	CountOrders(ctx context.Context) (int, error)
	SumOrderTotals(ctx context.Context) (float64, error)
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	ListRecentOrdersForBooks(ctx context.Context, bookIDs []string, limit int) ([]models.Order, error)
}

// WishlistRepository persists saved (user, book) pairs
type WishlistRepository interface {
	AddWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error
	GetWishlistEntry(ctx context.Context, userID, bookID string) (*models.WishlistEntry, error)
	RemoveWishlistEntry(ctx context.Context, userID, bookID string) error
	ListWishlist(ctx context.Context, userID string) ([]models.WishlistEntry, error)
}

// UserRepository persists admin and seller accounts
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username, role string) (*models.User, error)
}

// Repository is everything the services need from a store
type Repository interface {
	BookRepository
	OrderRepository
	WishlistRepository
	UserRepository
	Ping(ctx context.Context) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
	PublishBookEvent(ctx context.Context, event *models.BookEvent) error
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
}

// StatsCache stores computed stats as JSON
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// IdempotencyKeys binds checkout idempotency keys to order ids
type IdempotencyKeys interface {
	ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// Stats cache keys
const (
	AdminStatsKey        = "stats:admin"
	sellerStatsKeyPrefix = "stats:seller:"
	SellerStatsPattern   = sellerStatsKeyPrefix + "*"
)

// SellerStatsKey is the cache key for one seller's stats
func SellerStatsKey(sellerID string) string {
	return sellerStatsKeyPrefix + sellerID
}
