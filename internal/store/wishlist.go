package store

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore-service/internal/models"
)

// AddWishlistEntry inserts a (user, book) pair. Duplicates fail with ErrConflict.
func (s *Store) AddWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	err := s.db.GetContext(ctx, &entry.CreatedAt,
		"INSERT INTO wishlist (id, user_id, book_id) VALUES ($1, $2, $3) RETURNING created_at",
		entry.ID, entry.UserID, entry.BookID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: book %s already in wishlist", models.ErrConflict, entry.BookID)
	}
	return err
}

// GetWishlistEntry returns nil when the pair is not saved
func (s *Store) GetWishlistEntry(ctx context.Context, userID, bookID string) (*models.WishlistEntry, error) {
	var entry models.WishlistEntry
	err := s.db.GetContext(ctx, &entry,
		"SELECT * FROM wishlist WHERE user_id = $1 AND book_id = $2", userID, bookID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RemoveWishlistEntry deletes the pair if present
func (s *Store) RemoveWishlistEntry(ctx context.Context, userID, bookID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlist WHERE user_id = $1 AND book_id = $2", userID, bookID)
	return err
}

// ListWishlist retrieves a user's entries with books populated, newest first.
// Entries whose book was deleted keep a nil Book.
func (s *Store) ListWishlist(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	entries := []models.WishlistEntry{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM wishlist WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].BookID
	}
	books, err := s.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to populate wishlist books: %w", err)
	}

	byID := make(map[string]*models.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}
	for i := range entries {
		entries[i].Book = byID[entries[i].BookID]
	}
	return entries, nil
}
