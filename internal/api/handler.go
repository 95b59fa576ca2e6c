package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the HTTP layer dispatches to
type Services struct {
	Orders   *service.OrderService
	Books    *service.BookService
	Stats    *service.StatsService
	Wishlist *service.WishlistService
	Auth     *service.AuthService
	Tokens   *auth.TokenManager
	Policy   *auth.Policy
	Store    Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	orders   *service.OrderService
	books    *service.BookService
	stats    *service.StatsService
	wishlist *service.WishlistService
	auth     *service.AuthService
	tokens   *auth.TokenManager
	policy   *auth.Policy
	store    Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		orders:   s.Orders,
		books:    s.Books,
		stats:    s.Stats,
		wishlist: s.Wishlist,
		auth:     s.Auth,
		tokens:   s.Tokens,
		policy:   s.Policy,
		store:    s.Store,
		logger:   util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(h.authenticate())

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/admin", h.login(models.RoleAdmin))
		authGroup.POST("/seller", h.login(models.RoleSeller))
	}

	books := api.Group("/books")
	{
		books.GET("", h.listBooks)
		books.GET("/:id", h.getBook)
		books.POST("/create-book", h.require(auth.CapManageCatalog), h.createBook)
		books.PUT("/edit/:id", h.require(auth.CapManageCatalog), h.updateBook)
		books.DELETE("/:id", h.require(auth.CapManageCatalog), h.deleteBook)

		seller := books.Group("/seller")
		seller.GET("", h.require(auth.CapManageOwnBooks), h.listSellerBooks)
		seller.GET("/stats", h.require(auth.CapViewSellerStats), h.sellerStats)
		seller.POST("/create", h.require(auth.CapManageOwnBooks), h.createSellerBook)
		seller.PUT("/:id", h.require(auth.CapManageOwnBooks), h.updateBook)
		seller.DELETE("/:id", h.require(auth.CapManageOwnBooks), h.deleteBook)
		seller.POST("/:id/sale", h.require(auth.CapRecordSales), h.recordSale)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("/email/:email", h.listOrdersByEmail)
		orders.GET("/:orderId", h.getOrder)
		orders.PATCH("/:orderId/cancel", h.cancelOrder)
		orders.PATCH("/:orderId/complete", h.require(auth.CapCompleteOrders), h.completeOrder)
	}

	api.GET("/admin", h.require(auth.CapViewAdminStats), h.adminStats)

	wishlist := api.Group("/wishlist")
	{
		wishlist.GET("/:userId", h.listWishlist)
		wishlist.POST("", h.addToWishlist)
		wishlist.DELETE("/:userId/:bookId", h.removeFromWishlist)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// badRequest reports a body that failed to bind
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message": "Invalid request body",
		"details": err.Error(),
	})
}

// respondError maps a service error onto a status and message. Unknown
// errors are logged and reported with fallback.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	default:
		util.ForContext(c.Request.Context(), h.logger).Error(fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{"message": models.PublicMessage(err, fallback)})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
