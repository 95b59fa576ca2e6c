package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// adminStats handles the admin dashboard
func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.stats.AdminStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to fetch admin stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// sellerStats handles the caller's own seller dashboard
func (h *Handler) sellerStats(c *gin.Context) {
	stats, err := h.stats.SellerStats(c.Request.Context(), principal(c).ID)
	if err != nil {
		h.respondError(c, err, "Failed to fetch seller stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
