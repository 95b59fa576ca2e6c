package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminStats summarises the whole store
type AdminStats struct {
	TotalOrders   int                `json:"totalOrders"`
	TotalSales    float64            `json:"totalSales"`
	TrendingBooks int                `json:"trendingBooks"`
	TotalBooks    int                `json:"totalBooks"`
	RecentOrders  []AdminRecentOrder `json:"recentOrders"`
}

// AdminRecentOrder is one row of the admin recent orders list
type AdminRecentOrder struct {
	OrderID string    `json:"orderId"`
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
}

// SellerStats summarises one seller's books. TotalOrders is the number of
// units sold across the seller's books, not a count of orders.
type SellerStats struct {
	TotalBooks    int                 `json:"totalBooks"`
	TotalOrders   int                 `json:"totalOrders"`
	TotalRevenue  float64             `json:"totalRevenue"`
	AverageRating float64             `json:"averageRating"`
	TopBooks      []TopBook           `json:"topBooks"`
	RecentOrders  []SellerRecentOrder `json:"recentOrders"`
}

// TopBook is one of a seller's best sellers
type TopBook struct {
	ID         string  `json:"_id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	SoldCopies int     `json:"soldCopies"`
	Revenue    float64 `json:"revenue"`
}

// SellerRecentOrder is an order containing at least one of the seller's books
type SellerRecentOrder struct {
	ID        string    `json:"_id"`
	BookTitle string    `json:"bookTitle"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
}

// StatsService computes read-only summaries
type StatsService struct {
	books    BookRepository
	orders   OrderRepository
	cache    StatsCache
	cacheTTL time.Duration
	recent   int
	top      int
	logger   *zap.Logger
}

// NewStatsService creates a stats service. cache may be nil to always compute.
func NewStatsService(
	books BookRepository,
	orders OrderRepository,
	cache StatsCache,
	cacheTTL time.Duration,
	recentLimit, topLimit int,
) *StatsService {
	return &StatsService{
		books:    books,
		orders:   orders,
		cache:    cache,
		cacheTTL: cacheTTL,
		recent:   recentLimit,
		top:      topLimit,
		logger:   util.GetLogger(),
	}
}

// AdminStats returns store-wide totals and the newest orders
func (s *StatsService) AdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	if s.cached(ctx, "admin", AdminStatsKey, &stats) {
		return &stats, nil
	}
	stats = AdminStats{}

	ctx, span := util.StartSpan(ctx, "StatsService.AdminStats")
	defer span.End()
	start := time.Now()

	var err error
	if stats.TotalOrders, err = s.orders.CountOrders(ctx); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if stats.TotalSales, err = s.orders.SumOrderTotals(ctx); err != nil {
		return nil, fmt.Errorf("failed to sum orders: %w", err)
	}
	if stats.TrendingBooks, err = s.books.CountBooks(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to count trending books: %w", err)
	}
	if stats.TotalBooks, err = s.books.CountBooks(ctx, false); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	recent, err := s.orders.ListRecentOrders(ctx, s.recent)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	stats.RecentOrders = make([]AdminRecentOrder, len(recent))
	for i := range recent {
		stats.RecentOrders[i] = AdminRecentOrder{
			OrderID: recent[i].ShortID(),
			Amount:  recent[i].TotalPrice,
			Date:    recent[i].CreatedAt,
		}
	}

	util.StatsComputeLatency.WithLabelValues("admin").Observe(time.Since(start).Seconds())
	s.store(ctx, AdminStatsKey, &stats)
	return &stats, nil
}

// SellerStats returns totals over a seller's books. A seller without books
// gets zeros everywhere.
func (s *StatsService) SellerStats(ctx context.Context, sellerID string) (*SellerStats, error) {
	var stats SellerStats
	key := SellerStatsKey(sellerID)
	if s.cached(ctx, "seller", key, &stats) {
		return &stats, nil
	}
	stats = SellerStats{}

	ctx, span := util.StartSpan(ctx, "StatsService.SellerStats")
	defer span.End()
	start := time.Now()

	books, err := s.books.ListBooksBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller books: %w", err)
	}

	revenue := decimal.Zero
	ratings := decimal.Zero
	ids := make([]string, len(books))
	titles := make(map[string]string, len(books))
	for i := range books {
		stats.TotalOrders += books[i].SoldCount
		revenue = revenue.Add(decimal.NewFromFloat(books[i].Revenue))
		ratings = ratings.Add(decimal.NewFromFloat(books[i].Rating.Average))
		ids[i] = books[i].ID
		titles[books[i].ID] = books[i].Title
	}
	stats.TotalBooks = len(books)
	stats.TotalRevenue = revenue.InexactFloat64()
	if len(books) > 0 {
		stats.AverageRating = ratings.Div(decimal.NewFromInt(int64(len(books)))).InexactFloat64()
	}

	stats.TopBooks = s.topBooks(books)

	orders, err := s.orders.ListRecentOrdersForBooks(ctx, ids, s.recent)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	if stats.RecentOrders, err = s.sellerOrders(ctx, orders, titles); err != nil {
		return nil, err
	}

	util.StatsComputeLatency.WithLabelValues("seller").Observe(time.Since(start).Seconds())
	s.store(ctx, key, &stats)
	return &stats, nil
}

func (s *StatsService) topBooks(books []models.Book) []TopBook {
	sorted := make([]models.Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SoldCount > sorted[j].SoldCount })
	if len(sorted) > s.top {
		sorted = sorted[:s.top]
	}

	top := make([]TopBook, len(sorted))
	for i, b := range sorted {
		top[i] = TopBook{
			ID:         b.ID,
			Title:      b.Title,
			Price:      b.NewPrice,
			SoldCopies: b.SoldCount,
			Revenue:    b.Revenue,
		}
	}
	return top
}

// sellerOrders names each order by the title of its first line item. The
// first item may belong to another seller, so unknown titles are looked up.
func (s *StatsService) sellerOrders(ctx context.Context, orders []models.Order, titles map[string]string) ([]SellerRecentOrder, error) {
	var lookup []string
	for i := range orders {
		if len(orders[i].Items) == 0 {
			continue
		}
		if _, ok := titles[orders[i].Items[0].BookID]; !ok {
			lookup = append(lookup, orders[i].Items[0].BookID)
		}
	}
	if len(lookup) > 0 {
		others, err := s.books.GetBooksByIDs(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("failed to load order books: %w", err)
		}
		for i := range others {
			titles[others[i].ID] = others[i].Title
		}
	}

	out := make([]SellerRecentOrder, len(orders))
	for i := range orders {
		row := SellerRecentOrder{
			ID:     orders[i].ID,
			Amount: orders[i].TotalPrice,
			Date:   orders[i].CreatedAt,
		}
		if len(orders[i].Items) > 0 {
			row.BookTitle = titles[orders[i].Items[0].BookID]
		}
		out[i] = row
	}
	return out, nil
}

func (s *StatsService) cached(ctx context.Context, scope, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		util.StatsCacheLookups.WithLabelValues(scope, "error").Inc()
		s.logger.Warn("Stats cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		util.StatsCacheLookups.WithLabelValues(scope, "miss").Inc()
		return false
	}
	util.StatsCacheLookups.WithLabelValues(scope, "hit").Inc()
	return true
}

func (s *StatsService) store(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v, s.cacheTTL); err != nil {
		s.logger.Warn("Stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
