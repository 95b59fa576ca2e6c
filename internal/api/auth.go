package api

import (
	"net/http"

	"bookstore-service/internal/service"

	"github.com/gin-gonic/gin"
)

// login returns a handler that authenticates accounts of one role
func (h *Handler) login(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		res, err := h.auth.Login(c.Request.Context(), role, &req)
		if err != nil {
			h.respondError(c, err, "Failed to login as "+role)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Authentication successful",
			"token":   res.Token,
			"user": gin.H{
				"username": res.User.Username,
				"role":     res.User.Role,
			},
		})
	}
}
