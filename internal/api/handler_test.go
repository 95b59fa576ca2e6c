package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	mem    *store.MemoryStore
	tokens *auth.TokenManager
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	policy := auth.DefaultPolicy()
	pub := broker.NopPublisher{}
	authSvc := service.NewAuthService(mem, tokens)

	h := NewHandler(Services{
		Orders:   service.NewOrderService(mem, pub, nil, 0),
		Books:    service.NewBookService(mem, pub, policy),
		Stats:    service.NewStatsService(mem, mem, nil, 0, 5, 5),
		Wishlist: service.NewWishlistService(mem, mem),
		Auth:     authSvc,
		Tokens:   tokens,
		Policy:   policy,
		Store:    mem,
	})
	router := gin.New()
	h.SetupRoutes(router)

	return &testServer{router: router, mem: mem, tokens: tokens, auth: authSvc}
}

func (s *testServer) token(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := s.tokens.Issue(&models.User{ID: id, Username: id, Role: role})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) seedBook(t *testing.T, id, sellerID string) {
	t.Helper()
	require.NoError(t, s.mem.CreateBook(context.Background(), &models.Book{
		ID:          id,
		Title:       "Book " + id,
		Author:      "Author",
		Description: "Description",
		Category:    "fiction",
		Price:       100,
		ImageURL:    "cover.png",
		OldPrice:    120,
		NewPrice:    100,
		Discount:    20,
		SellerID:    sellerID,
	}))
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderCancelFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/orders", map[string]interface{}{
		"name":       "Jane",
		"email":      "jane@example.com",
		"phone":      "555",
		"address":    map[string]string{"city": "Springfield"},
		"productIds": []map[string]interface{}{{"id": "B1", "quantity": 2}},
		"totalPrice": 40.00,
		"status":     "completed",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "pending", created["status"])
	orderID := created["_id"].(string)

	w = s.do(t, http.MethodPatch, "/api/orders/"+orderID+"/cancel", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Order cancelled successfully", body["message"])
	assert.Equal(t, "cancelled", body["order"].(map[string]interface{})["status"])

	w = s.do(t, http.MethodPatch, "/api/orders/"+orderID+"/cancel", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Order is already cancelled", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/orders/"+orderID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/api/orders/email/jane@example.com", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var orders []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}

func TestCreateOrderRejectsIncompleteBody(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/orders", map[string]interface{}{
		"name":       "Jane",
		"productIds": []map[string]interface{}{},
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/orders/missing/cancel", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decode(t, w)["message"])
}

func TestCompleteOrderRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.mem.CreateOrder(context.Background(), &models.Order{
		ID:     "o1",
		Name:   "Jane",
		Email:  "jane@example.com",
		Phone:  "555",
		Items:  []models.OrderItem{{BookID: "B1", Quantity: 1}},
		Status: models.OrderStatusPending,
	}))

	w := s.do(t, http.MethodPatch, "/api/orders/o1/complete", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPatch, "/api/orders/o1/complete", nil, s.token(t, "seller-1", models.RoleSeller))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/orders/o1/complete", nil, s.token(t, "admin-1", models.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/orders/o1/cancel", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot cancel a completed order", decode(t, w)["message"])
}

func TestGetBookIncludesDiscountedPrice(t *testing.T) {
	s := newTestServer(t)
	s.seedBook(t, "B1", "seller-1")

	w := s.do(t, http.MethodGet, "/api/books/B1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	book := decode(t, w)
	assert.Equal(t, 80.0, book["discountedPrice"])
	assert.Equal(t, "seller-1", book["seller"])

	w = s.do(t, http.MethodGet, "/api/books/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/books?trending=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSellerRoutesRequireSellerToken(t *testing.T) {
	s := newTestServer(t)
	s.seedBook(t, "B1", "seller-1")

	w := s.do(t, http.MethodGet, "/api/books/seller", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/seller", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/seller", nil, s.token(t, "admin-1", models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/seller", nil, s.token(t, "seller-1", models.RoleSeller))
	require.Equal(t, http.StatusOK, w.Code)
	var books []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	assert.Len(t, books, 1)
}

func TestRecordSaleEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedBook(t, "B1", "seller-1")
	seller := s.token(t, "seller-1", models.RoleSeller)

	sale := map[string]interface{}{"quantity": 2, "revenue": 160.0, "rating": 4}
	w := s.do(t, http.MethodPost, "/api/books/seller/B1/sale", sale, seller)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Book stats updated", body["message"])
	assert.Equal(t, 2.0, body["book"].(map[string]interface{})["soldCount"])

	w = s.do(t, http.MethodPost, "/api/books/seller/B1/sale", sale, s.token(t, "seller-2", models.RoleSeller))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/books/seller/B1/sale", map[string]interface{}{"quantity": 0}, seller)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/seller/stats", nil, seller)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.Equal(t, 1.0, stats["totalBooks"])
	assert.Equal(t, 2.0, stats["totalOrders"])
	assert.Equal(t, 4.0, stats["averageRating"])
}

func TestSellerBookLifecycle(t *testing.T) {
	s := newTestServer(t)
	seller := s.token(t, "seller-1", models.RoleSeller)

	w := s.do(t, http.MethodPost, "/api/books/seller/create", map[string]interface{}{
		"title": "Dune",
	}, seller)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required: title, author, description, category, price, imageURL", decode(t, w)["message"])

	w = s.do(t, http.MethodPost, "/api/books/seller/create", map[string]interface{}{
		"title":       "Dune",
		"author":      "Frank Herbert",
		"description": "Spice",
		"category":    "SciFi",
		"price":       15,
		"imageURL":    "dune.png",
	}, seller)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book := decode(t, w)
	id := book["_id"].(string)
	assert.Equal(t, "scifi", book["category"])
	assert.Equal(t, 15.0, book["newPrice"])

	w = s.do(t, http.MethodPut, "/api/books/seller/"+id, map[string]interface{}{"title": "Dune Messiah"}, s.token(t, "seller-2", models.RoleSeller))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Book not found or unauthorized", decode(t, w)["message"])

	w = s.do(t, http.MethodPut, "/api/books/seller/"+id, map[string]interface{}{"title": "Dune Messiah"}, seller)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dune Messiah", decode(t, w)["title"])

	w = s.do(t, http.MethodDelete, "/api/books/seller/"+id, nil, seller)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Book deleted", decode(t, w)["message"])
}

func TestAdminCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin-1", models.RoleAdmin)
	s.seedBook(t, "B1", "seller-1")

	w := s.do(t, http.MethodPost, "/api/books/create-book", map[string]interface{}{
		"title": "Emma", "author": "Austen", "description": "Novel",
		"category": "classics", "price": 10, "imageURL": "emma.png", "trending": true,
	}, s.token(t, "seller-1", models.RoleSeller))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/books/create-book", map[string]interface{}{
		"title": "Emma", "author": "Austen", "description": "Novel",
		"category": "classics", "price": 10, "imageURL": "emma.png", "trending": true,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/books/edit/B1", map[string]interface{}{"discount": 50}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50.0, decode(t, w)["discountedPrice"])

	w = s.do(t, http.MethodDelete, "/api/books/B1", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.Equal(t, 1.0, stats["totalBooks"])
	assert.Equal(t, 1.0, stats["trendingBooks"])
	assert.Equal(t, 0.0, stats["totalOrders"])

	w = s.do(t, http.MethodGet, "/api/admin", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWishlistEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seedBook(t, "B1", "seller-1")

	entry := map[string]string{"userId": "user-1", "bookId": "B1"}
	w := s.do(t, http.MethodPost, "/api/wishlist", entry, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/wishlist", entry, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Book already in wishlist", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/wishlist/user-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Book B1", entries[0]["book"].(map[string]interface{})["title"])

	w = s.do(t, http.MethodDelete, "/api/wishlist/user-1/B1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/wishlist/user-1/B1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Removed from wishlist", decode(t, w)["message"])
}

func TestLoginEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, err := s.auth.EnsureUser(context.Background(), "root", "s3cret", models.RoleAdmin)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/auth/admin", map[string]string{"username": "root", "password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Authentication successful", body["message"])

	token := body["token"].(string)
	w = s.do(t, http.MethodGet, "/api/admin", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/admin", map[string]string{"username": "root", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid password!", decode(t, w)["message"])

	w = s.do(t, http.MethodPost, "/api/auth/seller", map[string]string{"username": "root", "password": "s3cret"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Seller not found!", decode(t, w)["message"])
}
