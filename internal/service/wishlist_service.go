package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgAlreadyInWishlist = "Book already in wishlist"

// WishlistRequest adds a book to a user's wishlist
type WishlistRequest struct {
	UserID string `json:"userId" binding:"required"`
	BookID string `json:"bookId" binding:"required"`
}

// WishlistService manages saved (user, book) pairs
type WishlistService struct {
	wishlist WishlistRepository
	books    BookRepository
	logger   *zap.Logger
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(wishlist WishlistRepository, books BookRepository) *WishlistService {
	return &WishlistService{
		wishlist: wishlist,
		books:    books,
		logger:   util.GetLogger(),
	}
}

// Add saves a book for a user. Saving the same pair twice fails with ErrConflict.
func (s *WishlistService) Add(ctx context.Context, req *WishlistRequest) (*models.WishlistEntry, error) {
	userID, bookID := strings.TrimSpace(req.UserID), strings.TrimSpace(req.BookID)
	if userID == "" || bookID == "" {
		return nil, models.Errorf(models.ErrValidation, "userId and bookId are required")
	}

	existing, err := s.wishlist.GetWishlistEntry(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check wishlist: %w", err)
	}
	if existing != nil {
		util.WishlistOpsTotal.WithLabelValues("add", "duplicate").Inc()
		return nil, models.Errorf(models.ErrConflict, msgAlreadyInWishlist)
	}

	if _, err := s.books.GetBookByID(ctx, bookID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Errorf(models.ErrNotFound, msgBookNotFound)
		}
		return nil, err
	}

	entry := &models.WishlistEntry{
		ID:     uuid.New().String(),
		UserID: userID,
		BookID: bookID,
	}
	if err := s.wishlist.AddWishlistEntry(ctx, entry); err != nil {
		if errors.Is(err, models.ErrConflict) {
			util.WishlistOpsTotal.WithLabelValues("add", "duplicate").Inc()
			return nil, models.Errorf(models.ErrConflict, msgAlreadyInWishlist)
		}
		return nil, fmt.Errorf("failed to add to wishlist: %w", err)
	}

	util.WishlistOpsTotal.WithLabelValues("add", "ok").Inc()
	s.logger.Debug("Wishlist entry added",
		zap.String("user_id", userID),
		zap.String("book_id", bookID))
	return entry, nil
}

// Remove deletes a saved pair. Removing a missing pair is not an error.
func (s *WishlistService) Remove(ctx context.Context, userID, bookID string) error {
	if err := s.wishlist.RemoveWishlistEntry(ctx, userID, bookID); err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	util.WishlistOpsTotal.WithLabelValues("remove", "ok").Inc()
	return nil
}

// List returns a user's saved books, newest first
func (s *WishlistService) List(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	entries, err := s.wishlist.ListWishlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	return entries, nil
}
