package api

import (
	"net/http"
	"strconv"

	"bookstore-service/internal/models"
	"bookstore-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listBooks handles the public catalog, optionally filtered by
// ?category= and ?trending=
func (h *Handler) listBooks(c *gin.Context) {
	var filter models.BookFilter
	filter.Category = c.Query("category")
	if v := c.Query("trending"); v != "" {
		trending, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "trending must be true or false"})
			return
		}
		filter.Trending = &trending
	}

	books, err := h.books.ListBooks(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "Failed to fetch books")
		return
	}

	c.JSON(http.StatusOK, books)
}

// getBook handles a single catalog entry
func (h *Handler) getBook(c *gin.Context) {
	book, err := h.books.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// createBook handles admin catalog additions
func (h *Handler) createBook(c *gin.Context) {
	var in service.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.CreateBook(c.Request.Context(), principal(c), &in)
	if err != nil {
		h.respondError(c, err, "Failed to create book")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Book posted successfully",
		"book":    book,
	})
}

// createSellerBook handles a seller listing a new book
func (h *Handler) createSellerBook(c *gin.Context) {
	var in service.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.CreateSellerBook(c.Request.Context(), principal(c), &in)
	if err != nil {
		h.respondError(c, err, "Failed to create book")
		return
	}

	c.JSON(http.StatusCreated, book)
}

// listSellerBooks handles the caller's own books
func (h *Handler) listSellerBooks(c *gin.Context) {
	books, err := h.books.ListSellerBooks(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch books")
		return
	}

	c.JSON(http.StatusOK, books)
}

// updateBook serves both the admin and the seller edit routes
func (h *Handler) updateBook(c *gin.Context) {
	var in service.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), principal(c), c.Param("id"), &in)
	if err != nil {
		h.respondError(c, err, "Failed to update book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// deleteBook serves both the admin and the seller delete routes
func (h *Handler) deleteBook(c *gin.Context) {
	if err := h.books.DeleteBook(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete book")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

// recordSale handles a seller reporting a sale of one of their books
func (h *Handler) recordSale(c *gin.Context) {
	var req service.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.RecordSale(c.Request.Context(), principal(c), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to record sale")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book stats updated",
		"book":    book,
	})
}
