package api

import (
	"net/http"

	"bookstore-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listWishlist handles a user's saved books
func (h *Handler) listWishlist(c *gin.Context) {
	entries, err := h.wishlist.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch wishlist")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// addToWishlist handles saving a book, rejecting duplicates
func (h *Handler) addToWishlist(c *gin.Context) {
	var req service.WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.wishlist.Add(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to add to wishlist")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// removeFromWishlist handles unsaving a book
func (h *Handler) removeFromWishlist(c *gin.Context) {
	if err := h.wishlist.Remove(c.Request.Context(), c.Param("userId"), c.Param("bookId")); err != nil {
		h.respondError(c, err, "Failed to remove from wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
}
