package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore-service/internal/models"
)

// MemoryStore is an in-process repository with the same semantics as Store.
// It is created once at startup and only cleared by Reset.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	now      func() time.Time
	users    map[string]*models.User
	books    map[string]*memBook
	orders   map[string]*memOrder
	wishlist map[string]*memWish
}

type memBook struct {
	book models.Book
	seq  int64
}

type memOrder struct {
	order models.Order
	seq   int64
}

type memWish struct {
	entry models.WishlistEntry
	seq   int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{now: time.Now}
	m.Reset()
	return m
}

// Reset drops every record
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq = 0
	m.users = make(map[string]*models.User)
	m.books = make(map[string]*memBook)
	m.orders = make(map[string]*memOrder)
	m.wishlist = make(map[string]*memWish)
}

// SetClock overrides the time source used for timestamps
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func userKey(username, role string) string {
	return role + "\x00" + username
}

func wishKey(userID, bookID string) string {
	return userID + "\x00" + bookID
}

// CreateUser inserts an admin or seller account
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userKey(user.Username, user.Role)
	if _, ok := m.users[key]; ok {
		return fmt.Errorf("%w: user %s already exists", models.ErrConflict, user.Username)
	}
	user.CreatedAt = m.now()
	u := *user
	m.users[key] = &u
	return nil
}

// GetUserByUsername retrieves an account by username and role
func (m *MemoryStore) GetUserByUsername(ctx context.Context, username, role string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userKey(username, role)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", models.ErrNotFound, role, username)
	}
	out := *u
	return &out, nil
}

// CreateBook inserts a new book
func (m *MemoryStore) CreateBook(ctx context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[book.ID]; ok {
		return fmt.Errorf("%w: book %s already exists", models.ErrConflict, book.ID)
	}
	now := m.now()
	book.CreatedAt, book.UpdatedAt = now, now
	m.books[book.ID] = &memBook{book: *book, seq: m.nextSeq()}
	return nil
}

// GetBookByID retrieves a book by ID
func (m *MemoryStore) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: book %s", models.ErrNotFound, id)
	}
	out := b.book
	return &out, nil
}

// GetBooksByIDs retrieves multiple books by IDs. Missing ids are skipped.
func (m *MemoryStore) GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]models.Book, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := m.books[id]; ok {
			books = append(books, b.book)
		}
	}
	return books, nil
}

// ListBooks retrieves books matching the filter, newest first
func (m *MemoryStore) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	category := strings.ToLower(strings.TrimSpace(filter.Category))
	return m.selectBooks(func(b *models.Book) bool {
		if category != "" && b.Category != category {
			return false
		}
		if filter.Trending != nil && b.Trending != *filter.Trending {
			return false
		}
		return true
	}), nil
}

// ListBooksBySeller retrieves all books owned by a seller
func (m *MemoryStore) ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	return m.selectBooks(func(b *models.Book) bool {
		return b.SellerID == sellerID
	}), nil
}

func (m *MemoryStore) selectBooks(keep func(*models.Book) bool) []models.Book {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*memBook, 0, len(m.books))
	for _, b := range m.books {
		if keep(&b.book) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	books := make([]models.Book, len(matched))
	for i, b := range matched {
		books[i] = b.book
	}
	return books
}

// UpdateBook overwrites the editable fields of a book
func (m *MemoryStore) UpdateBook(ctx context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[book.ID]
	if !ok {
		return fmt.Errorf("%w: book %s", models.ErrNotFound, book.ID)
	}

	cur := &b.book
	cur.Title = book.Title
	cur.Author = book.Author
	cur.Description = book.Description
	cur.Category = book.Category
	cur.Price = book.Price
	cur.ImageURL = book.ImageURL
	cur.CoverImage = book.CoverImage
	cur.Trending = book.Trending
	cur.OldPrice = book.OldPrice
	cur.NewPrice = book.NewPrice
	cur.Discount = book.Discount
	cur.UpdatedAt = m.now()

	book.UpdatedAt = cur.UpdatedAt
	return nil
}

// DeleteBook removes a book. A non-empty sellerID restricts the delete to that owner.
func (m *MemoryStore) DeleteBook(ctx context.Context, id, sellerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[id]
	if !ok || (sellerID != "" && b.book.SellerID != sellerID) {
		return fmt.Errorf("%w: book %s", models.ErrNotFound, id)
	}
	delete(m.books, id)
	return nil
}

// RecordSale applies a sale to a seller's book under the store lock
func (m *MemoryStore) RecordSale(ctx context.Context, sale models.Sale) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[sale.BookID]
	if !ok || b.book.SellerID != sale.SellerID {
		return nil, fmt.Errorf("%w: book %s for seller %s", models.ErrNotFound, sale.BookID, sale.SellerID)
	}

	b.book.SoldCount += sale.Quantity
	b.book.Revenue += sale.Revenue
	if sale.Rating != nil {
		b.book.Rating.Apply(*sale.Rating)
	}
	b.book.UpdatedAt = m.now()

	out := b.book
	return &out, nil
}

// CountBooks counts all books, or only trending ones
func (m *MemoryStore) CountBooks(ctx context.Context, trendingOnly bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !trendingOnly {
		return len(m.books), nil
	}
	n := 0
	for _, b := range m.books {
		if b.book.Trending {
			n++
		}
	}
	return n, nil
}

// CreateOrder inserts an order and its line items
func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", models.ErrConflict, order.ID)
	}
	now := m.now()
	order.CreatedAt, order.UpdatedAt = now, now

	stored := *order
	stored.Items = append([]models.OrderItem{}, order.Items...)
	m.orders[order.ID] = &memOrder{order: stored, seq: m.nextSeq()}
	return nil
}

// GetOrderByID retrieves an order with its items
func (m *MemoryStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	out := copyOrder(o.order)
	return &out, nil
}

// ListOrdersByEmail retrieves a customer's orders, newest first
func (m *MemoryStore) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return m.selectOrders(func(o *models.Order) bool { return o.Email == email }, 0), nil
}

// TransitionOrderStatus moves an order from one status to another only if
// it is still in the expected status. It reports whether the order changed.
func (m *MemoryStore) TransitionOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.order.Status != from {
		return false, nil
	}
	o.order.Status = to
	o.order.UpdatedAt = m.now()
	return true, nil
}

// CountOrders counts all orders
func (m *MemoryStore) CountOrders(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders), nil
}

// SumOrderTotals adds up totalPrice over all orders
func (m *MemoryStore) SumOrderTotals(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, o := range m.orders {
		total += o.order.TotalPrice
	}
	return total, nil
}

// ListRecentOrders retrieves the newest orders across all customers
func (m *MemoryStore) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return m.selectOrders(func(*models.Order) bool { return true }, limit), nil
}

// ListRecentOrdersForBooks retrieves the newest orders containing any of the books
func (m *MemoryStore) ListRecentOrdersForBooks(ctx context.Context, bookIDs []string, limit int) ([]models.Order, error) {
	if len(bookIDs) == 0 {
		return []models.Order{}, nil
	}
	set := make(map[string]struct{}, len(bookIDs))
	for _, id := range bookIDs {
		set[id] = struct{}{}
	}
	return m.selectOrders(func(o *models.Order) bool { return o.HasAnyBook(set) }, limit), nil
}

// selectOrders returns matching orders newest first; limit <= 0 means all
func (m *MemoryStore) selectOrders(keep func(*models.Order) bool, limit int) []models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*memOrder, 0, len(m.orders))
	for _, o := range m.orders {
		if keep(&o.order) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	orders := make([]models.Order, len(matched))
	for i, o := range matched {
		orders[i] = copyOrder(o.order)
	}
	return orders
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

// AddWishlistEntry inserts a (user, book) pair. Duplicates fail with ErrConflict.
func (m *MemoryStore) AddWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := wishKey(entry.UserID, entry.BookID)
	if _, ok := m.wishlist[key]; ok {
		return fmt.Errorf("%w: book %s already in wishlist", models.ErrConflict, entry.BookID)
	}
	entry.CreatedAt = m.now()
	stored := *entry
	stored.Book = nil
	m.wishlist[key] = &memWish{entry: stored, seq: m.nextSeq()}
	return nil
}

// GetWishlistEntry returns nil when the pair is not saved
func (m *MemoryStore) GetWishlistEntry(ctx context.Context, userID, bookID string) (*models.WishlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wishlist[wishKey(userID, bookID)]
	if !ok {
		return nil, nil
	}
	out := w.entry
	return &out, nil
}

// RemoveWishlistEntry deletes the pair if present
func (m *MemoryStore) RemoveWishlistEntry(ctx context.Context, userID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.wishlist, wishKey(userID, bookID))
	return nil
}

// ListWishlist retrieves a user's entries with books populated, newest first
func (m *MemoryStore) ListWishlist(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*memWish, 0)
	for _, w := range m.wishlist {
		if w.entry.UserID == userID {
			matched = append(matched, w)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	entries := make([]models.WishlistEntry, len(matched))
	for i, w := range matched {
		entries[i] = w.entry
		if b, ok := m.books[w.entry.BookID]; ok {
			book := b.book
			entries[i].Book = &book
		}
	}
	return entries, nil
}
