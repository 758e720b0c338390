package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/atelier-lumen/storefront/internal/auth"
	"github.com/atelier-lumen/storefront/internal/handlers"
	"github.com/atelier-lumen/storefront/internal/inventory"
	"github.com/atelier-lumen/storefront/internal/orders"
)

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []auth.FailedAttempt
}

func (s *memAttemptStore) HasBlock(ctx context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.IP == ip && a.Blocked {
			return true, nil
		}
	}
	return false, nil
}

func (s *memAttemptStore) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.attempts {
		if a.IP == ip && !a.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memAttemptStore) Record(ctx context.Context, attempt auth.FailedAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

type memSettingsStore struct {
	mu    sync.Mutex
	creds *auth.Credentials
}

func (s *memSettingsStore) GetCredentials(ctx context.Context) (*auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	copied := *s.creds
	return &copied, nil
}

func (s *memSettingsStore) SaveCredentials(ctx context.Context, creds *auth.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *creds
	s.creds = &copied
	return nil
}

type memItemStore struct {
	mu    sync.Mutex
	items map[string]*inventory.Item
}

func (s *memItemStore) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	copied := *it
	return &copied, nil
}

func (s *memItemStore) SearchItems(ctx context.Context, q string) ([]inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []inventory.Item
	for _, it := range s.items {
		if q == "" || strings.Contains(strings.ToLower(it.Title), strings.ToLower(q)) {
			items = append(items, *it)
		}
	}
	return items, nil
}

func (s *memItemStore) CreateItem(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = fmt.Sprintf("item-%d", len(s.items)+1)
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *memItemStore) ReserveStock(ctx context.Context, id string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return 0, fmt.Errorf("item %s: %w", id, inventory.ErrItemNotFound)
	}
	if it.Inventory < qty {
		return 0, fmt.Errorf("item %s: %w", id, inventory.ErrInsufficientStock)
	}
	it.Inventory -= qty
	return it.Inventory, nil
}

func (s *memItemStore) RestoreStock(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.Inventory += qty
	}
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
	seq    int
}

func (s *memOrderStore) CreateOrder(ctx context.Context, order *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	order.ID = fmt.Sprintf("order-%d", s.seq)
	copied := *order
	s.orders[order.ID] = &copied
	return nil
}

func (s *memOrderStore) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *memOrderStore) ListOrders(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []orders.Order
	for _, o := range s.orders {
		result = append(result, *o)
	}
	return result, nil
}

func (s *memOrderStore) UpdateShipping(ctx context.Context, order *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return orders.ErrOrderNotFound
	}
	copied := *order
	s.orders[order.ID] = &copied
	return nil
}

func (s *memOrderStore) BackfillShipping(ctx context.Context) (int, error) {
	return 0, nil
}

func newTestRouter(t *testing.T, items map[string]*inventory.Item) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	itemStore := &memItemStore{items: items}
	orderStore := &memOrderStore{orders: make(map[string]*orders.Order)}
	credentials := auth.NewCredentialManager(&memSettingsStore{}, "admin", "hunter22")
	require.NoError(t, credentials.Bootstrap(context.Background()))
	guard := auth.NewGuard(&memAttemptStore{}, credentials)
	sessions := auth.NewSessionManager([]byte("test-secret"), auth.SessionTTL)
	orderService := orders.NewService(orderStore, inventory.NewLedger(itemStore), nil)

	ordersHandler := handlers.NewOrdersHandler(orderService)
	authHandler := handlers.NewAuthHandler(guard, sessions, credentials)
	itemsHandler := handlers.NewItemsHandler(itemStore)

	router := gin.New()
	requireSession := handlers.RequireSession(sessions)

	router.GET("/api/items", itemsHandler.ListItems)
	router.POST("/api/items", requireSession, itemsHandler.CreateItem)
	router.POST("/api/orders", ordersHandler.PlaceOrder)
	router.GET("/api/orders", requireSession, ordersHandler.ListOrders)
	router.PUT("/api/orders/:id", requireSession, ordersHandler.UpdateShipping)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/auth/me", requireSession, authHandler.Me)
	router.POST("/api/auth/logout", authHandler.Logout)
	router.POST("/api/auth/change-password", requireSession, authHandler.ChangePassword)
	return router
}

func doJSON(router *gin.Engine, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == handlers.SessionCookie {
			return c
		}
	}
	return nil
}

func TestPlaceOrderEndpoint(t *testing.T) {
	router := newTestRouter(t, map[string]*inventory.Item{
		"ring": {ID: "ring", Title: "Silver Ring", Price: 8.99, Inventory: 2},
	})

	w := doJSON(router, http.MethodPost, "/api/orders",
		`{"items":[{"id":"ring","qty":1}],"buyer":{"name":"Ada"}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK          bool   `json:"ok"`
		OrderNumber string `json:"orderNumber"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotEmpty(t, resp.OrderNumber)

	// Insufficient stock names the item and returns 400.
	w = doJSON(router, http.MethodPost, "/api/orders",
		`{"items":[{"id":"ring","qty":5}]}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "ring")

	// Unknown items return 404.
	w = doJSON(router, http.MethodPost, "/api/orders",
		`{"items":[{"id":"ghost","qty":1}]}`, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Empty carts return 400.
	w = doJSON(router, http.MethodPost, "/api/orders", `{"items":[]}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFlow(t *testing.T) {
	router := newTestRouter(t, map[string]*inventory.Item{})

	// Wrong password counts down remaining attempts.
	w := doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "2 attempt(s) remaining")

	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "1 attempt(s) remaining")

	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"wrong"}`, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "blocked")

	// Correct password after the block still fails.
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionGuardedEndpoints(t *testing.T) {
	router := newTestRouter(t, map[string]*inventory.Item{})

	// No session: rejected.
	w := doJSON(router, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(router, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Log in and capture the session cookie.
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	w = doJSON(router, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/orders", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	// Change password validation paths.
	w = doJSON(router, http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"hunter22","newPassword":"short"}`, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Password too short")

	w = doJSON(router, http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"nope","newPassword":"longenough"}`, cookie)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"hunter22","newPassword":"longenough"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	// The old session cookie stays valid after a password change.
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestItemsEndpoints(t *testing.T) {
	router := newTestRouter(t, map[string]*inventory.Item{
		"ring": {ID: "ring", Title: "Silver Ring", Price: 8.99, Inventory: 2},
	})

	w := doJSON(router, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Silver Ring")

	// Creating items requires a session.
	w = doJSON(router, http.MethodPost, "/api/items",
		`{"title":"Gold Pendant","price":24.00,"inventory":3}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	login := doJSON(router, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"hunter22"}`, nil)
	cookie := sessionCookie(login)
	require.NotNil(t, cookie)

	w = doJSON(router, http.MethodPost, "/api/items",
		`{"title":"Gold Pendant","price":24.00,"inventory":3}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/items?q=pendant", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Gold Pendant")
	require.NotContains(t, w.Body.String(), "Silver Ring")
}
