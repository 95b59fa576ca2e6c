package api

import (
	"net/http"

	"bookstore-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createOrder handles checkout
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, order)
}

// listOrdersByEmail handles a customer's order history
func (h *Handler) listOrdersByEmail(c *gin.Context) {
	orders, err := h.orders.ListOrdersByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, orders)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// cancelOrder handles order cancellation
func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err, "Failed to cancel order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// completeOrder handles the manual completion of an order
func (h *Handler) completeOrder(c *gin.Context) {
	order, err := h.orders.CompleteOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err, "Failed to complete order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order completed successfully",
		"order":   order,
	})
}
