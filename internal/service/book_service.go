package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	msgBookNotFound       = "Book not found"
	msgBookNotOwned       = "Book not found or unauthorized"
	msgSellerFieldsNeeded = "All fields are required: title, author, description, category, price, imageURL"
)

// BookService manages the catalog and seller sale statistics
type BookService struct {
	books     BookRepository
	publisher EventPublisher
	policy    *auth.Policy
	logger    *zap.Logger
}

// NewBookService creates a new book service
func NewBookService(books BookRepository, publisher EventPublisher, policy *auth.Policy) *BookService {
	return &BookService{
		books:     books,
		publisher: publisher,
		policy:    policy,
		logger:    util.GetLogger(),
	}
}

// BookInput carries book fields. Nil fields are left unchanged on update.
type BookInput struct {
	Title       *string  `json:"title"`
	Author      *string  `json:"author"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	ImageURL    *string  `json:"imageURL"`
	CoverImage  *string  `json:"coverImage"`
	Trending    *bool    `json:"trending"`
	OldPrice    *float64 `json:"oldPrice" binding:"omitempty,gte=0"`
	NewPrice    *float64 `json:"newPrice" binding:"omitempty,gte=0"`
	Discount    *float64 `json:"discount" binding:"omitempty,gte=0,lte=100"`
	SellerID    string   `json:"seller"`
}

func (in *BookInput) applyTo(b *models.Book) {
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Author != nil {
		b.Author = *in.Author
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Category != nil {
		b.Category = *in.Category
	}
	if in.Price != nil {
		b.Price = *in.Price
	}
	if in.ImageURL != nil {
		b.ImageURL = *in.ImageURL
	}
	if in.CoverImage != nil {
		b.CoverImage = *in.CoverImage
	}
	if in.Trending != nil {
		b.Trending = *in.Trending
	}
	if in.OldPrice != nil {
		b.OldPrice = *in.OldPrice
	}
	if in.NewPrice != nil {
		b.NewPrice = *in.NewPrice
	}
	if in.Discount != nil {
		b.Discount = *in.Discount
	}
}

func validateBook(b *models.Book) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", b.Title},
		{"author", b.Author},
		{"description", b.Description},
		{"category", b.Category},
		{"imageURL", b.ImageURL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return models.Errorf(models.ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}

	if b.Price < 0 || b.OldPrice < 0 || b.NewPrice < 0 {
		return models.Errorf(models.ErrValidation, "prices must not be negative")
	}
	if b.Discount < 0 || b.Discount > 100 {
		return models.Errorf(models.ErrValidation, "discount must be between 0 and 100")
	}
	return nil
}

// RecordSaleRequest is a seller-reported sale. A rating of 0 counts as no rating.
type RecordSaleRequest struct {
	Quantity int      `json:"quantity" binding:"required,min=1"`
	Revenue  *float64 `json:"revenue" binding:"required,gte=0"`
	Rating   *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
}

// Validate checks quantity, revenue and rating bounds
func (r *RecordSaleRequest) Validate() error {
	if r.Quantity < 1 {
		return models.Errorf(models.ErrValidation, "quantity must be at least 1")
	}
	if r.Revenue == nil || *r.Revenue < 0 {
		return models.Errorf(models.ErrValidation, "revenue must be a non-negative number")
	}
	if r.Rating != nil && (*r.Rating < 0 || *r.Rating > 5) {
		return models.Errorf(models.ErrValidation, "rating must be between 0 and 5")
	}
	return nil
}

// ListBooks returns the catalog, newest first
func (s *BookService) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	ctx, span := util.StartSpan(ctx, "BookService.ListBooks")
	defer span.End()

	books, err := s.books.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// GetBook retrieves a single book
func (s *BookService) GetBook(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.books.GetBookByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Errorf(models.ErrNotFound, msgBookNotFound)
	}
	return book, err
}

// ListSellerBooks returns the books owned by the principal
func (s *BookService) ListSellerBooks(ctx context.Context, p *auth.Principal) ([]models.Book, error) {
	if !s.policy.Allows(p, auth.CapManageOwnBooks, "") {
		return nil, models.Errorf(models.ErrForbidden, "seller access required")
	}
	return s.books.ListBooksBySeller(ctx, p.ID)
}

// CreateBook adds a book on behalf of an admin. The seller defaults to the
// admin, and old and new prices default to price.
func (s *BookService) CreateBook(ctx context.Context, p *auth.Principal, in *BookInput) (book *models.Book, err error) {
	ctx, span := util.StartSpan(ctx, "BookService.CreateBook")
	defer func() { util.EndSpan(span, err) }()

	if !s.policy.Allows(p, auth.CapManageCatalog, "") {
		return nil, models.Errorf(models.ErrForbidden, "admin access required")
	}

	book = &models.Book{ID: uuid.New().String(), SellerID: in.SellerID}
	if book.SellerID == "" {
		book.SellerID = p.ID
	}
	in.applyTo(book)
	if in.Price == nil {
		return nil, models.Errorf(models.ErrValidation, "missing required fields: price")
	}
	if in.OldPrice == nil {
		book.OldPrice = book.Price
	}
	if in.NewPrice == nil {
		book.NewPrice = book.Price
	}

	if err := s.insert(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// CreateSellerBook adds a book owned by the calling seller with fresh
// counters and no discount.
func (s *BookService) CreateSellerBook(ctx context.Context, p *auth.Principal, in *BookInput) (book *models.Book, err error) {
	ctx, span := util.StartSpan(ctx, "BookService.CreateSellerBook")
	defer func() { util.EndSpan(span, err) }()

	if !s.policy.Allows(p, auth.CapManageOwnBooks, "") {
		return nil, models.Errorf(models.ErrForbidden, "seller access required")
	}
	if blank(in.Title) || blank(in.Author) || blank(in.Description) || blank(in.Category) ||
		blank(in.ImageURL) || in.Price == nil || *in.Price == 0 {
		return nil, models.Errorf(models.ErrValidation, msgSellerFieldsNeeded)
	}

	book = &models.Book{
		ID:          uuid.New().String(),
		Title:       *in.Title,
		Author:      *in.Author,
		Description: *in.Description,
		Category:    *in.Category,
		Price:       *in.Price,
		ImageURL:    *in.ImageURL,
		OldPrice:    *in.Price,
		NewPrice:    *in.Price,
		SellerID:    p.ID,
	}
	if in.CoverImage != nil {
		book.CoverImage = *in.CoverImage
	}

	if err := s.insert(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (s *BookService) insert(ctx context.Context, book *models.Book) error {
	book.Normalize()
	if err := validateBook(book); err != nil {
		return err
	}
	if err := s.books.CreateBook(ctx, book); err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	util.BookMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("Book created",
		zap.String("book_id", book.ID),
		zap.String("seller_id", book.SellerID))
	s.publishBookEvent(ctx, models.EventTypeBookCreated, book)
	return nil
}

// UpdateBook applies in to a book. Admins may edit any book, sellers only
// their own.
func (s *BookService) UpdateBook(ctx context.Context, p *auth.Principal, id string, in *BookInput) (book *models.Book, err error) {
	ctx, span := util.StartSpan(ctx, "BookService.UpdateBook", attribute.String("book.id", id))
	defer func() { util.EndSpan(span, err) }()

	book, err = s.authorizedBook(ctx, p, id)
	if err != nil {
		return nil, err
	}

	in.applyTo(book)
	book.Normalize()
	if err := validateBook(book); err != nil {
		return nil, err
	}
	if err := s.books.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Errorf(models.ErrNotFound, msgBookNotFound)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	util.BookMutationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Book updated", zap.String("book_id", book.ID))
	s.publishBookEvent(ctx, models.EventTypeBookUpdated, book)
	return book, nil
}

// DeleteBook removes a book. Admins may delete any book, sellers only their own.
func (s *BookService) DeleteBook(ctx context.Context, p *auth.Principal, id string) (err error) {
	ctx, span := util.StartSpan(ctx, "BookService.DeleteBook", attribute.String("book.id", id))
	defer func() { util.EndSpan(span, err) }()

	book, err := s.authorizedBook(ctx, p, id)
	if err != nil {
		return err
	}

	owner := ""
	if !s.policy.Allows(p, auth.CapManageCatalog, "") {
		owner = p.ID
	}
	if err := s.books.DeleteBook(ctx, id, owner); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Errorf(models.ErrNotFound, msgBookNotOwned)
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	util.BookMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Book deleted", zap.String("book_id", id), zap.String("by", p.ID))
	s.publishBookEvent(ctx, models.EventTypeBookDeleted, book)
	return nil
}

// authorizedBook loads a book the principal may mutate. Sellers see other
// sellers' books as missing.
func (s *BookService) authorizedBook(ctx context.Context, p *auth.Principal, id string) (*models.Book, error) {
	admin := s.policy.Allows(p, auth.CapManageCatalog, "")
	if !admin && !s.policy.Allows(p, auth.CapManageOwnBooks, "") {
		return nil, models.Errorf(models.ErrForbidden, "not allowed to modify books")
	}

	book, err := s.books.GetBookByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		if admin {
			return nil, models.Errorf(models.ErrNotFound, msgBookNotFound)
		}
		return nil, models.Errorf(models.ErrNotFound, msgBookNotOwned)
	}
	if err != nil {
		return nil, err
	}

	if !admin && !s.policy.Allows(p, auth.CapManageOwnBooks, book.SellerID) {
		return nil, models.Errorf(models.ErrNotFound, msgBookNotOwned)
	}
	return book, nil
}

// RecordSale adds a seller-reported sale to one of the seller's books. It
// is independent of orders: nothing here creates, reads or reverses one.
func (s *BookService) RecordSale(ctx context.Context, p *auth.Principal, bookID string, req *RecordSaleRequest) (book *models.Book, err error) {
	ctx, span := util.StartSpan(ctx, "BookService.RecordSale",
		attribute.String("book.id", bookID),
		attribute.Int("sale.quantity", req.Quantity))
	defer func() { util.EndSpan(span, err) }()

	if !s.policy.Allows(p, auth.CapRecordSales, "") {
		return nil, models.Errorf(models.ErrForbidden, "seller access required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sale := models.Sale{
		BookID:   bookID,
		SellerID: p.ID,
		Quantity: req.Quantity,
		Revenue:  *req.Revenue,
	}
	if req.Rating != nil && *req.Rating > 0 {
		sale.Rating = req.Rating
	}

	book, err = s.books.RecordSale(ctx, sale)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Errorf(models.ErrNotFound, msgBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	util.SalesRecordedTotal.Inc()
	util.UnitsSoldTotal.Add(float64(sale.Quantity))
	s.logger.Info("Sale recorded",
		zap.String("book_id", book.ID),
		zap.String("seller_id", sale.SellerID),
		zap.Int("quantity", sale.Quantity),
		zap.Int("sold_count", book.SoldCount))

	event := &models.SaleRecordedEvent{
		BaseEvent:    models.NewBaseEvent(models.EventTypeSaleRecorded),
		BookID:       book.ID,
		SellerID:     book.SellerID,
		Quantity:     sale.Quantity,
		RevenueDelta: sale.Revenue,
		Rating:       sale.Rating,
		SoldCount:    book.SoldCount,
	}
	if err := s.publisher.PublishSaleRecorded(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(models.EventTypeSaleRecorded).Inc()
		util.ForContext(ctx, s.logger).Error("Failed to publish sale event", zap.String("book_id", book.ID), zap.Error(err))
	}
	return book, nil
}

func (s *BookService) publishBookEvent(ctx context.Context, eventType string, book *models.Book) {
	event := &models.BookEvent{
		BaseEvent: models.NewBaseEvent(eventType),
		BookID:    book.ID,
		SellerID:  book.SellerID,
	}
	if err := s.publisher.PublishBookEvent(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(eventType).Inc()
		util.ForContext(ctx, s.logger).Error("Failed to publish book event",
			zap.String("type", eventType),
			zap.String("book_id", book.ID),
			zap.Error(err))
	}
}
