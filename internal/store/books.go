package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookstore-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateBook inserts a new book
func (s *Store) CreateBook(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (id, title, author, description, category, price, image_url,
			cover_image, trending, old_price, new_price, discount, seller_id,
			sold_count, rating_average, rating_count, revenue)
		VALUES (:id, :title, :author, :description, :category, :price, :image_url,
			:cover_image, :trending, :old_price, :new_price, :discount, :seller_id,
			:sold_count, :rating_average, :rating_count, :revenue)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, book)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		return rows.Scan(&book.CreatedAt, &book.UpdatedAt)
	}
	return rows.Err()
}

// GetBookByID retrieves a book by ID
func (s *Store) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := s.db.GetContext(ctx, &book, "SELECT * FROM books WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBooksByIDs retrieves multiple books by IDs. Missing ids are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM books WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var books []models.Book
	err = s.db.SelectContext(ctx, &books, query, args...)
	return books, err
}

// ListBooks retrieves books matching the filter, newest first
func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	var (
		conds []string
		args  []interface{}
	)
	if category := strings.ToLower(strings.TrimSpace(filter.Category)); category != "" {
		args = append(args, category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Trending != nil {
		args = append(args, *filter.Trending)
		conds = append(conds, fmt.Sprintf("trending = $%d", len(args)))
	}

	query := "SELECT * FROM books"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	books := []models.Book{}
	err := s.db.SelectContext(ctx, &books, query, args...)
	return books, err
}

// ListBooksBySeller retrieves all books owned by a seller
func (s *Store) ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	books := []models.Book{}
	err := s.db.SelectContext(ctx, &books,
		"SELECT * FROM books WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return books, err
}

// UpdateBook overwrites the editable fields of a book
func (s *Store) UpdateBook(ctx context.Context, book *models.Book) error {
	query := `
		UPDATE books SET title = :title, author = :author, description = :description,
			category = :category, price = :price, image_url = :image_url,
			cover_image = :cover_image, trending = :trending, old_price = :old_price,
			new_price = :new_price, discount = :discount, updated_at = NOW()
		WHERE id = :id
		RETURNING updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, book)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: book %s", models.ErrNotFound, book.ID)
	}
	return rows.Scan(&book.UpdatedAt)
}

// DeleteBook removes a book. A non-empty sellerID restricts the delete to that owner.
func (s *Store) DeleteBook(ctx context.Context, id, sellerID string) error {
	var (
		res sql.Result
		err error
	)
	if sellerID == "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM books WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"DELETE FROM books WHERE id = $1 AND seller_id = $2", id, sellerID)
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: book %s", models.ErrNotFound, id)
	}
	return nil
}

// RecordSale applies a sale to a seller's book in one statement so that
// concurrent sales against the same book cannot lose updates
func (s *Store) RecordSale(ctx context.Context, sale models.Sale) (*models.Book, error) {
	query := `
		UPDATE books SET
			sold_count = sold_count + $3,
			revenue = revenue + $4,
			rating_average = CASE WHEN $5::double precision IS NULL THEN rating_average
				ELSE (rating_average * rating_count + $5) / (rating_count + 1) END,
			rating_count = CASE WHEN $5::double precision IS NULL THEN rating_count
				ELSE rating_count + 1 END,
			updated_at = NOW()
		WHERE id = $1 AND seller_id = $2
		RETURNING *`

	var book models.Book
	err := s.db.GetContext(ctx, &book, query,
		sale.BookID, sale.SellerID, sale.Quantity, sale.Revenue, sale.Rating)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %s for seller %s", models.ErrNotFound, sale.BookID, sale.SellerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}
	return &book, nil
}

// CountBooks counts all books, or only trending ones
func (s *Store) CountBooks(ctx context.Context, trendingOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM books"
	if trendingOnly {
		query += " WHERE trending = TRUE"
	}

	var n int
	err := s.db.GetContext(ctx, &n, query)
	return n, err
}
