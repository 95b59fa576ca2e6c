package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rating is the running average of ratings reported for a book
type Rating struct {
	Average float64 `db:"rating_average" json:"average"`
	Count   int     `db:"rating_count" json:"count"`
}

// Apply folds a single rating into the running average
func (r *Rating) Apply(value float64) {
	total := r.Average*float64(r.Count) + value
	r.Count++
	r.Average = total / float64(r.Count)
}

// Book represents a catalog item
type Book struct {
	ID          string    `db:"id" json:"_id"`
	Title       string    `db:"title" json:"title"`
	Author      string    `db:"author" json:"author"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Price       float64   `db:"price" json:"price"`
	ImageURL    string    `db:"image_url" json:"imageURL"`
	CoverImage  string    `db:"cover_image" json:"coverImage"`
	Trending    bool      `db:"trending" json:"trending"`
	OldPrice    float64   `db:"old_price" json:"oldPrice"`
	NewPrice    float64   `db:"new_price" json:"newPrice"`
	Discount    float64   `db:"discount" json:"discount"`
	SellerID    string    `db:"seller_id" json:"seller"`
	SoldCount   int       `db:"sold_count" json:"soldCount"`
	Rating      `json:"rating"`
	Revenue     float64   `db:"revenue" json:"revenue"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// DiscountedPrice is newPrice reduced by discount percent, rounded to cents
func (b *Book) DiscountedPrice() float64 {
	if b.Discount == 0 {
		return b.NewPrice
	}
	price := decimal.NewFromFloat(b.NewPrice)
	cut := price.Mul(decimal.NewFromFloat(b.Discount)).Div(decimal.NewFromInt(100))
	return price.Sub(cut).Round(2).InexactFloat64()
}

// Normalize applies the write-time rules shared by every book mutation
func (b *Book) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Description = strings.TrimSpace(b.Description)
	b.Category = strings.ToLower(strings.TrimSpace(b.Category))
	if b.CoverImage == "" {
		b.CoverImage = b.ImageURL
	}
}

// MarshalJSON adds the derived discountedPrice field
func (b Book) MarshalJSON() ([]byte, error) {
	type alias Book
	return json.Marshal(struct {
		alias
		DiscountedPrice float64 `json:"discountedPrice"`
	}{
		alias:           alias(b),
		DiscountedPrice: b.DiscountedPrice(),
	})
}

// Address is the shipping address of an order
type Address struct {
	Street  string `db:"address_street" json:"street"`
	City    string `db:"address_city" json:"city"`
	State   string `db:"address_state" json:"state"`
	Country string `db:"address_country" json:"country"`
	Zipcode string `db:"address_zipcode" json:"zipcode"`
}

// OrderItem references a book and the quantity ordered
type OrderItem struct {
	BookID   string `db:"book_id" json:"id"`
	Quantity int    `db:"quantity" json:"quantity"`
}

// Order represents a customer order
type Order struct {
	ID         string      `db:"id" json:"_id"`
	Name       string      `db:"name" json:"name"`
	Email      string      `db:"email" json:"email"`
	Phone      string      `db:"phone" json:"phone"`
	Address    `json:"address"`
	Items      []OrderItem `db:"-" json:"productIds"`
	TotalPrice float64     `db:"total_price" json:"totalPrice"`
	Status     OrderStatus `db:"status" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// ShortID is the last six characters of the id, uppercased
func (o *Order) ShortID() string {
	id := strings.ReplaceAll(o.ID, "-", "")
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

// HasAnyBook reports whether any line item references one of the given books
func (o *Order) HasAnyBook(bookIDs map[string]struct{}) bool {
	for _, item := range o.Items {
		if _, ok := bookIDs[item.BookID]; ok {
			return true
		}
	}
	return false
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether s may move to next. Only pending has exits.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return next == OrderStatusCompleted || next == OrderStatusCancelled
}

// WishlistEntry is a saved (user, book) pair
type WishlistEntry struct {
	ID        string    `db:"id" json:"_id"`
	UserID    string    `db:"user_id" json:"userId"`
	BookID    string    `db:"book_id" json:"bookId"`
	Book      *Book     `db:"-" json:"book,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Roles
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// User is an admin or seller account
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// BookFilter narrows catalog listings
type BookFilter struct {
	Category string
	Trending *bool
}

// Sale is a seller-reported sale against one of their books. A nil Rating
// leaves the book's rating untouched.
type Sale struct {
	BookID   string
	SellerID string
	Quantity int
	Revenue  float64
	Rating   *float64
}
