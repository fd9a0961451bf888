package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/content"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubCatalog mimics the remote product and order endpoints
func stubCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-Total", "2")
		w.Header().Set("X-WP-TotalPages", "1")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 10, "name": "Wheelchair", "price": "4500", "stock_status": "instock"},
			{"id": 20, "name": "Walker", "price": "1200", "stock_status": "instock"}
		]`))
	})
	mux.HandleFunc("/products/10", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 10, "name": "Wheelchair", "price": "4500", "stock_status": "instock"}`))
	})
	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": "woocommerce_rest_product_invalid_id", "message": "Invalid ID."}`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 777, "status": "pending", "total": "4700.00", "currency": "INR"}`))
	})
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 55, "email": "ravi@example.com", "first_name": "Ravi", "last_name": "Kumar"}`))
	})
	mux.HandleFunc("/customers/55", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 55, "email": "ravi@example.com", "first_name": "Ravi", "last_name": "Kumar"}`))
	})

	return httptest.NewServer(mux)
}

// fakeContent serves canned content rows in place of the database-backed
// repository
type fakeContent struct {
	err error
}

func (f *fakeContent) ListContent(ctx context.Context, contentType string, limit, offset int) ([]models.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Content{{ID: 1, Title: "Delivery Policy", Slug: "delivery-policy", Type: contentType, Status: "publish"}}, nil
}

func (f *fakeContent) GetContentBySlug(ctx context.Context, slug, contentType string) (*models.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	if slug != "delivery-policy" {
		return nil, content.ErrNotFound
	}
	return &models.Content{ID: 1, Title: "Delivery Policy", Slug: slug, Type: contentType, Status: "publish"}, nil
}

func (f *fakeContent) ListMenus(ctx context.Context) (map[string][]models.MenuItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string][]models.MenuItem{
		"main-menu": {
			{ID: 11, Title: "Home", Slug: "home", Type: "nav_menu_item", Order: 1},
			{ID: 12, Title: "Products", Slug: "products", Type: "nav_menu_item", Parent: 11, Order: 2},
		},
	}, nil
}

func (f *fakeContent) SiteInfo(ctx context.Context) (*models.SiteInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SiteInfo{Name: "Medicorner", Description: "Medical equipment", URL: "https://medicorner.example", Home: "https://medicorner.example"}, nil
}

func (f *fakeContent) ListProducts(ctx context.Context) ([]models.ContentProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.ContentProduct{
		{ID: 10, Name: "Wheelchair", Price: 4500, StockStatus: "instock"},
		{ID: 20, Name: "Walker", Price: 1200, StockStatus: "instock"},
	}, nil
}

func (f *fakeContent) GetProductByID(ctx context.Context, id int64) (*models.ContentProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != 10 {
		return nil, content.ErrNotFound
	}
	return &models.ContentProduct{ID: 10, Name: "Wheelchair", Price: 4500, StockStatus: "instock"}, nil
}

func (f *fakeContent) SearchProducts(ctx context.Context, query string) ([]models.ContentProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !strings.Contains("wheelchair", strings.ToLower(query)) {
		return []models.ContentProduct{}, nil
	}
	return []models.ContentProduct{{ID: 10, Name: "Wheelchair", Price: 4500, StockStatus: "instock"}}, nil
}

func newTestRouter(t *testing.T, remoteURL string) *gin.Engine {
	t.Helper()

	catalogClient := catalog.NewClient(config.CatalogConfig{BaseURL: remoteURL})
	store := session.NewMemoryStore(time.Hour)
	cartService := cart.NewService(store, catalogClient)
	validator := security.NewValidator("India")

	pipeline := security.NewPipeline(config.SecurityConfig{
		GeneralWindow: time.Minute, GeneralMax: 1000,
		StrictWindow: time.Minute, StrictMax: 1000,
		OrderWindow: time.Minute, OrderMax: 1000,
		SpeedWindow: time.Minute, SpeedDelayAfter: 1000,
		SpeedDelayStep: time.Millisecond, SpeedMaxDelay: time.Millisecond,
	})

	orderService := service.NewOrderService(catalogClient, cartService, validator, nil, config.ShopConfig{
		Country:               "India",
		FreeShippingThreshold: 5000,
		ShippingFee:           200,
	})

	sessionCfg := config.SessionConfig{CookieName: "sessionId", TTL: time.Hour}
	handler := NewHandler(catalogClient, &fakeContent{}, cartService, orderService, validator, pipeline, sessionCfg, "test")

	r := gin.New()
	handler.SetupRoutes(r)
	return r
}

func doJSON(r *gin.Engine, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewBuffer(b)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["environment"])
}

func TestAPIProductsEnvelope(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success    bool `json:"success"`
		Data       []map[string]any
		Pagination map[string]any `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 2)
	assert.EqualValues(t, 2, body.Pagination["total"])
}

func TestAPIProductNotFound(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIProductInvalidIDRejected(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid input data")
}

func TestProductsPageRejectsBadSort(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/products?sort=cheapest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartFlowThroughSessionCookie(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodPost, "/cart/add", map[string]any{"productId": 10, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	sid := cookies[0]

	w = doJSON(r, http.MethodGet, "/cart", nil, sid)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CartItems []struct {
			Quantity  int     `json:"quantity"`
			LineTotal float64 `json:"lineTotal"`
		} `json:"cartItems"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.CartItems, 1)
	assert.Equal(t, 2, body.CartItems[0].Quantity)
	assert.Equal(t, 9000.0, body.Total)
}

func TestCreateOrderFlow(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodPost, "/cart/add", map[string]any{"productId": 10, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	sid := w.Result().Cookies()[0]

	order := map[string]any{
		"customer": map[string]any{
			"firstName": "Ravi",
			"lastName":  "Kumar",
			"email":     "ravi@example.com",
			"mobile":    "9876543210",
			"address":   "42 MG Road, Indiranagar",
			"city":      "Bengaluru",
			"state":     "Karnataka",
			"pincode":   "560038",
			"country":   "India",
		},
		"paymentMethod": "cod",
	}

	w = doJSON(r, http.MethodPost, "/api/orders/create", order, sid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool `json:"success"`
		Order   struct {
			OrderID       string  `json:"orderId"`
			RemoteOrderID int64   `json:"remoteOrderId"`
			Total         float64 `json:"total"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, strings.HasPrefix(body.Order.OrderID, "ORD"))
	assert.Equal(t, int64(777), body.Order.RemoteOrderID)
	assert.Equal(t, 4700.0, body.Order.Total)

	// cart is empty after a confirmed order
	w = doJSON(r, http.MethodGet, "/cart", nil, sid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestCreateOrderValidationFailure(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	order := map[string]any{
		"customer":      map[string]any{"firstName": "R"},
		"paymentMethod": "cod",
	}

	w := doJSON(r, http.MethodPost, "/api/orders/create", order)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid input data")
	assert.Contains(t, w.Body.String(), "details")
}

func TestMetricsExposed(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestMenusKeyedBySlug(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/menus", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string][]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Data, "main-menu")
	require.Len(t, body.Data["main-menu"], 2)
	assert.Equal(t, "Home", body.Data["main-menu"][0]["title"])
	assert.EqualValues(t, 11, body.Data["main-menu"][1]["parent"])
}

func TestSiteInfo(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/site", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Medicorner", body["name"])
	assert.Equal(t, "https://medicorner.example", body["url"])
}

func TestCMSProductsList(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/cms/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data  []map[string]any `json:"data"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "Wheelchair", body.Data[0]["name"])
}

func TestCMSProductByID(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/cms/products/10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Wheelchair")

	w = doJSON(r, http.MethodGet, "/api/cms/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCMSSearch(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/cms/search", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Search query is required")

	w = doJSON(r, http.MethodGet, "/api/cms/search?q=wheel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestWCSearchRequiresQuery(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/api/wc/search", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Search query is required")

	w = doJSON(r, http.MethodGet, "/api/wc/search?q=wheelchair", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestWCProductCollections(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	for _, target := range []string{"/api/wc/featured", "/api/wc/on-sale", "/api/wc/categories/5/products"} {
		w := doJSON(r, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), `"success":true`, target)
	}

	w := doJSON(r, http.MethodGet, "/api/wc/categories/abc/products", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWCCreateOrderPassthrough(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	payload := map[string]any{
		"payment_method": "cod",
		"billing":        map[string]any{"first_name": "Ravi", "city": "Bengaluru"},
		"line_items":     []map[string]any{{"product_id": 10, "quantity": 1}},
	}

	w := doJSON(r, http.MethodPost, "/api/wc/orders", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(777), body.Data.ID)
}

func TestWCCustomers(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodPost, "/api/wc/customers", map[string]any{
		"email":      "ravi@example.com",
		"first_name": "Ravi",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"id":55`)

	w = doJSON(r, http.MethodGet, "/api/wc/customers/55", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ravi@example.com")

	w = doJSON(r, http.MethodGet, "/api/wc/customers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentRoutesSurviveRepositoryFailure(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()

	catalogClient := catalog.NewClient(config.CatalogConfig{BaseURL: srv.URL})
	store := session.NewMemoryStore(time.Hour)
	cartService := cart.NewService(store, catalogClient)
	validator := security.NewValidator("India")
	pipeline := security.NewPipeline(config.SecurityConfig{
		GeneralWindow: time.Minute, GeneralMax: 1000,
		StrictWindow: time.Minute, StrictMax: 1000,
		OrderWindow: time.Minute, OrderMax: 1000,
		SpeedWindow: time.Minute, SpeedDelayAfter: 1000,
		SpeedDelayStep: time.Millisecond, SpeedMaxDelay: time.Millisecond,
	})
	orderService := service.NewOrderService(catalogClient, cartService, validator, nil, config.ShopConfig{Country: "India"})

	handler := NewHandler(catalogClient, &fakeContent{err: context.DeadlineExceeded}, cartService, orderService, validator, pipeline, config.SessionConfig{CookieName: "sessionId", TTL: time.Hour}, "test")
	r := gin.New()
	handler.SetupRoutes(r)

	for _, target := range []string{"/api/menus", "/api/site", "/api/cms/products", "/api/cms/search?q=wheel"} {
		w := doJSON(r, http.MethodGet, target, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		assert.Contains(t, w.Body.String(), "Content unavailable", target)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := stubCatalog(t)
	defer srv.Close()
	r := newTestRouter(t, srv.URL)

	w := doJSON(r, http.MethodGet, "/no-such-page", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
