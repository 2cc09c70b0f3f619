package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulgax-store/internal/auth"
	"pulgax-store/internal/metrics"
	"pulgax-store/internal/middleware"
	"pulgax-store/internal/models"
	"pulgax-store/internal/notifications"
	"pulgax-store/internal/pricing"
	"pulgax-store/internal/repository/jsonstore"
	"pulgax-store/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Notify(evt notifications.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) types() []notifications.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router   *gin.Engine
	notifier *recordingNotifier
	health   *HealthHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := jsonstore.Open(t.TempDir())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	notifier := &recordingNotifier{}

	authService := services.NewAuthService(store, store, auth.NewTokenService("test-secret", time.Hour), nil, true, log)
	orderService := services.NewOrderService(
		store,
		pricing.NewEngine(store, pricing.DefaultTolerance),
		services.NewRandomOrderNumbers("PX"),
		notifier,
		m,
		log,
	)
	health := NewHealthHandler(store)

	router := NewRouter(RouterDeps{
		Products:    NewProductHandler(services.NewProductService(store, log)),
		Categories:  NewCategoryHandler(services.NewCategoryService(store, log)),
		Orders:      NewOrderHandler(orderService),
		Auth:        NewAuthHandler(authService),
		Contact:     NewContactHandler(services.NewContactService(store, log)),
		Admin:       NewAdminHandler(services.NewStatsService(store), services.NewConsistencyService(store, m, log)),
		Health:      health,
		Authn:       authService,
		RateLimiter: middleware.NewRateLimiter(100, 100),
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
		CORSOrigins: []string{"*"},
	})
	return &testServer{router: router, notifier: notifier, health: health}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	decodeInto(t, w, &body)
	return body
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/admin/register", "", gin.H{
		"email": "owner@pulgax.pt", "password": "secret123", "name": "Owner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session services.AdminSession
	decodeInto(t, w, &session)
	return session.AccessToken
}

func (s *testServer) customerToken(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/customer/register", "", gin.H{
		"email": "ana@example.com", "password": "secret123", "name": "Ana Silva",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session services.CustomerSession
	decodeInto(t, w, &session)
	return session.AccessToken
}

// seedShirt creates a category and a 25.00 shirt whose size L costs 5.00 more.
func (s *testServer) seedShirt(t *testing.T, admin string) models.Product {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/categories", admin, gin.H{"name_pt": "Roupa", "name_en": "Clothing"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cat models.Category
	decodeInto(t, w, &cat)

	w = s.do(t, http.MethodPost, "/api/products", admin, gin.H{
		"name_pt":     "T-shirt",
		"name_en":     "T-shirt",
		"base_price":  "25.00",
		"category_id": cat.ID,
		"featured":    true,
		"colors":      []gin.H{{"name_pt": "Vermelho", "name_en": "Red", "hex_code": "#FF0000"}},
		"sizes":       []gin.H{{"name": "M", "price_adjustment": 0}, {"name": "L", "price_modifier": 5}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product models.Product
	decodeInto(t, w, &product)
	return product
}

func checkout(productID string, total string) gin.H {
	return gin.H{
		"customer_name":    "Ana Silva",
		"customer_email":   "ana@example.com",
		"shipping_address": "Rua das Flores 1, Porto",
		"payment_method":   "card",
		"payment_details":  gin.H{"card_number": "4111 1111 1111 4242"},
		"items": []gin.H{{
			"product_id":     productID,
			"quantity":       2,
			"selected_size":  "L",
			"selected_color": "Red",
		}},
		"total_amount": total,
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", "", nil).Code)

	w := s.do(t, http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PulgaX Store API")

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pulgax_http_requests_total")

	s.health.store = failingPinger{}
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestAdminRegistration_SingleAdmin(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	w := s.do(t, http.MethodGet, "/api/admin/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.AdminProfile
	decodeInto(t, w, &me)
	assert.Equal(t, "owner@pulgax.pt", me.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/admin/register", "", gin.H{
		"email": "second@pulgax.pt", "password": "secret123", "name": "Second",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"email": "owner@pulgax.pt", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"email": "OWNER@pulgax.pt", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	customer := s.customerToken(t)
	shirt := s.seedShirt(t, admin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"public list", http.MethodGet, "/api/products", "", http.StatusOK},
		{"public get", http.MethodGet, "/api/products/" + shirt.ID, "", http.StatusOK},
		{"missing product", http.MethodGet, "/api/products/nope", "", http.StatusNotFound},
		{"all requires token", http.MethodGet, "/api/products/all", "", http.StatusUnauthorized},
		{"all rejects customers", http.MethodGet, "/api/products/all", customer, http.StatusForbidden},
		{"all for admin", http.MethodGet, "/api/products/all", admin, http.StatusOK},
		{"bad featured flag", http.MethodGet, "/api/products?featured=maybe", "", http.StatusBadRequest},
		{"categories", http.MethodGet, "/api/categories", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodGet, "/api/products?featured=true&category_id="+shirt.CategoryID, "", nil)
	var listed []models.Product
	decodeInto(t, w, &listed)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Sizes[1].PriceAdjustment.Equal(decimal.NewFromInt(5)))

	w = s.do(t, http.MethodPost, "/api/products", customer, gin.H{"name_pt": "x", "name_en": "x", "category_id": "c"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/products/"+shirt.ID, admin, gin.H{
		"name_pt": "T-shirt", "name_en": "T-shirt", "base_price": "25.00",
		"category_id": shirt.CategoryID, "active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/products/"+shirt.ID, "", nil).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/products/"+shirt.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/products/"+shirt.ID, admin, nil).Code)
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	shirt := s.seedShirt(t, admin)

	w := s.do(t, http.MethodPost, "/api/orders", "", checkout(shirt.ID, "55.00"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := errorBody(t, w)
	assert.Equal(t, "TOTAL_MISMATCH", body["code"])
	assert.Equal(t, "60.00", body["expected"])
	assert.Equal(t, "55.00", body["received"])

	w = s.do(t, http.MethodPost, "/api/orders", "", checkout(shirt.ID, "60.00"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decodeInto(t, w, &order)
	assert.Regexp(t, `^PX-\d{8}-[0-9A-F]{8}$`, order.OrderNumber)
	assert.True(t, order.Totals.Total.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "4242", order.Payment.Details.CardLastDigits)
	assert.NotContains(t, w.Body.String(), "4111")
	assert.Nil(t, order.CustomerID)

	w = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status?status=confirmed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", admin, gin.H{"status": "shipped", "note": "CTT 123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Status models.OrderStatus `json:"status"`
		Order  models.Order       `json:"order"`
	}
	decodeInto(t, w, &updated)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)
	assert.Equal(t, "CTT 123", updated.Order.StatusHistory[0].Note)
	assert.Equal(t, "owner@pulgax.pt", updated.Order.StatusHistory[0].UpdatedBy)

	w = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status?status=lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errorBody(t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/orders/"+order.ID+"/refund", admin, gin.H{"reason": "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refunded struct {
		Refund models.Refund `json:"refund"`
		Order  models.Order  `json:"order"`
	}
	decodeInto(t, w, &refunded)
	assert.True(t, refunded.Refund.Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, models.OrderStatusRefunded, refunded.Order.Status)

	w = s.do(t, http.MethodPost, "/api/orders/"+order.ID+"/refund", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_REFUNDED", errorBody(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/orders/"+order.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.Order
	decodeInto(t, w, &stored)
	assert.Len(t, stored.StatusHistory, 4)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/orders", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/orders/missing", admin, nil).Code)

	assert.Equal(t, []notifications.EventType{
		notifications.EventOrderCreated,
		notifications.EventOrderStatusChanged,
		notifications.EventOrderStatusChanged,
		notifications.EventOrderRefunded,
	}, s.notifier.types())
}

func TestOrderValidationErrors(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	shirt := s.seedShirt(t, admin)

	bad := checkout(shirt.ID, "60.00")
	bad["items"] = []gin.H{{"product_id": shirt.ID, "quantity": 1, "selected_size": "XXL"}}
	w := s.do(t, http.MethodPost, "/api/orders", "", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := errorBody(t, w)
	assert.Equal(t, "INVALID_SELECTION", body["code"])
	assert.Equal(t, "items[0].selected_size", body["field"])

	unknown := checkout("ghost", "60.00")
	w = s.do(t, http.MethodPost, "/api/orders", "", unknown)
	assert.Equal(t, "UNKNOWN_OR_INACTIVE_PRODUCT", errorBody(t, w)["code"])

	empty := checkout(shirt.ID, "60.00")
	empty["items"] = []gin.H{}
	w = s.do(t, http.MethodPost, "/api/orders", "", empty)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorBody(t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/orders/quote", "", gin.H{
		"items":         []gin.H{{"product_id": shirt.ID, "quantity": 1, "selected_size": "M"}},
		"shipping_cost": "4.50",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote pricing.Quote
	decodeInto(t, w, &quote)
	assert.True(t, quote.Totals.Total.Equal(decimal.RequireFromString("29.50")))
}

func TestCustomerAccountAndOrders(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	customer := s.customerToken(t)
	shirt := s.seedShirt(t, admin)

	w := s.do(t, http.MethodPost, "/api/orders", customer, checkout(shirt.ID, "60.00"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decodeInto(t, w, &order)
	require.NotNil(t, order.CustomerID)

	s.do(t, http.MethodPost, "/api/orders", "", checkout(shirt.ID, "60.00"))

	w = s.do(t, http.MethodPost, "/api/orders", customer+"tampered", checkout(shirt.ID, "60.00"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errorBody(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/customer/orders", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Order
	decodeInto(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)

	w = s.do(t, http.MethodPut, "/api/customer/address", customer, gin.H{
		"street": "Rua das Flores 1", "city": "Porto", "postal_code": "4050-262", "country": "PT",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/customer/profile", customer, nil)
	var profile models.CustomerProfile
	decodeInto(t, w, &profile)
	require.NotNil(t, profile.Address)
	assert.Equal(t, "Porto", profile.Address.City)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/customer/address", customer, gin.H{"city": "Porto"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/customer/profile", admin, nil).Code)

	w = s.do(t, http.MethodPost, "/api/customer/register", "", gin.H{
		"email": "ana@example.com", "password": "secret123", "name": "Ana again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/customer/google", "", gin.H{"credential": "id-token"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestContactRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	w := s.do(t, http.MethodPost, "/api/contact", "", gin.H{
		"name": "Rui", "email": "rui@example.com", "subject": "Encomenda", "message": "Olá",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decodeInto(t, w, &created)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/contact", "", gin.H{"name": "Rui"}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/contact", "", nil).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/contact/"+created.ID+"/read", admin, nil).Code)

	w = s.do(t, http.MethodGet, "/api/contact", admin, nil)
	var messages []models.ContactMessage
	decodeInto(t, w, &messages)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Read)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/contact/"+created.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/contact/"+created.ID, admin, nil).Code)
}

func TestStatsAndValidate(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	shirt := s.seedShirt(t, admin)
	s.do(t, http.MethodPost, "/api/orders", "", checkout(shirt.ID, "60.00"))

	w := s.do(t, http.MethodGet, "/api/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.Stats
	decodeInto(t, w, &stats)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(60)))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/categories/"+shirt.CategoryID, admin, nil).Code)

	w = s.do(t, http.MethodGet, "/api/validate", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report services.Report
	decodeInto(t, w, &report)
	assert.True(t, report.Valid)
	assert.NotEmpty(t, report.Warnings)
}

func upload(t *testing.T, s *testServer, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	w := upload(t, s, admin, "logo.png", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	}
	decodeInto(t, w, &out)
	assert.Equal(t, "image/png", out.ContentType)
	assert.True(t, strings.HasPrefix(out.URL, "data:image/png;base64,"))

	w = upload(t, s, admin, "notes.png", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file", errorBody(t, w)["field"])

	w = upload(t, s, admin, "huge.png", append(png, make([]byte, MaxUploadSize)...))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
