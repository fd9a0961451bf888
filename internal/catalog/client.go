package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Client issues authenticated calls against the remote product/order/
// customer REST API and normalizes every response into a Result.
type Client struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a catalog client
func NewClient(cfg config.CatalogConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		key:     cfg.ConsumerKey,
		secret:  cfg.ConsumerSecret,
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// ListParams are the supported catalog query parameters
type ListParams struct {
	PerPage  int
	Page     int
	Search   string
	Category string
	OrderBy  string
	Order    string
	Featured bool
	OnSale   bool
}

func (p ListParams) encode() url.Values {
	q := url.Values{}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.OrderBy != "" {
		q.Set("orderby", p.OrderBy)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	if p.Featured {
		q.Set("featured", "true")
	}
	if p.OnSale {
		q.Set("on_sale", "true")
	}
	return q
}

// remoteError is the error document the remote API returns on failure
type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs one request and decodes the response into out. A non-2xx
// status or transport failure is returned as an error carrying the remote
// message; pagination headers are parsed when present.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) (*Pagination, int, error) {
	ctx, span := util.StartSpan(ctx, "Catalog."+op)
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		util.CatalogRequestErrors.WithLabelValues(op).Inc()
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		util.CatalogRequestErrors.WithLabelValues(op).Inc()
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		util.CatalogRequestErrors.WithLabelValues(op).Inc()
		var re remoteError
		if json.Unmarshal(data, &re) == nil && re.Message != "" {
			return nil, resp.StatusCode, fmt.Errorf("%s", re.Message)
		}
		return nil, resp.StatusCode, fmt.Errorf("catalog responded %s", resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			util.CatalogRequestErrors.WithLabelValues(op).Inc()
			return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}

	return parsePagination(resp.Header), resp.StatusCode, nil
}

func parsePagination(h http.Header) *Pagination {
	total := h.Get("X-WP-Total")
	if total == "" {
		return nil
	}
	p := &Pagination{TotalPages: 1}
	p.Total, _ = strconv.Atoi(total)
	if tp, err := strconv.Atoi(h.Get("X-WP-TotalPages")); err == nil {
		p.TotalPages = tp
	}
	return p
}

// fail logs one remote failure and wraps it into a Result
func fail[T any](logger *zap.Logger, op string, code int, err error) Result[T] {
	logger.Warn("Catalog call failed",
		zap.String("operation", op),
		zap.Int("status", code),
		zap.Error(err))
	return Fail[T](code, err.Error())
}

// ListProducts retrieves a page of products
func (c *Client) ListProducts(ctx context.Context, params ListParams) Result[[]models.Product] {
	var docs []productDoc
	pg, code, err := c.do(ctx, "ListProducts", http.MethodGet, "/products", params.encode(), nil, &docs)
	if err != nil {
		return fail[[]models.Product](c.logger, "ListProducts", code, err)
	}
	return OkPaged(formatProducts(docs), pg)
}

// GetProduct retrieves a single product by id
func (c *Client) GetProduct(ctx context.Context, id int64) Result[models.Product] {
	var doc productDoc
	_, code, err := c.do(ctx, "GetProduct", http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &doc)
	if err != nil {
		return fail[models.Product](c.logger, "GetProduct", code, err)
	}
	return Ok(formatProduct(doc))
}

// SearchProducts retrieves products matching a search term
func (c *Client) SearchProducts(ctx context.Context, query string, params ListParams) Result[[]models.Product] {
	params.Search = query
	return c.ListProducts(ctx, params)
}

// ProductsByCategory retrieves products within a category
func (c *Client) ProductsByCategory(ctx context.Context, categoryID int64, params ListParams) Result[[]models.Product] {
	params.Category = strconv.FormatInt(categoryID, 10)
	return c.ListProducts(ctx, params)
}

// FeaturedProducts retrieves featured products
func (c *Client) FeaturedProducts(ctx context.Context, params ListParams) Result[[]models.Product] {
	params.Featured = true
	return c.ListProducts(ctx, params)
}

// OnSaleProducts retrieves products currently on sale
func (c *Client) OnSaleProducts(ctx context.Context, params ListParams) Result[[]models.Product] {
	params.OnSale = true
	return c.ListProducts(ctx, params)
}

// ListCategories retrieves product categories
func (c *Client) ListCategories(ctx context.Context, params ListParams) Result[[]models.Category] {
	var cats []models.Category
	pg, code, err := c.do(ctx, "ListCategories", http.MethodGet, "/products/categories", params.encode(), nil, &cats)
	if err != nil {
		return fail[[]models.Category](c.logger, "ListCategories", code, err)
	}
	return OkPaged(cats, pg)
}

// GetCategory retrieves a single category by id
func (c *Client) GetCategory(ctx context.Context, id int64) Result[models.Category] {
	var cat models.Category
	_, code, err := c.do(ctx, "GetCategory", http.MethodGet, fmt.Sprintf("/products/categories/%d", id), nil, nil, &cat)
	if err != nil {
		return fail[models.Category](c.logger, "GetCategory", code, err)
	}
	return Ok(cat)
}

// CreateOrder submits an order to the remote catalog
func (c *Client) CreateOrder(ctx context.Context, payload *OrderPayload) Result[Order] {
	var order Order
	_, code, err := c.do(ctx, "CreateOrder", http.MethodPost, "/orders", nil, payload, &order)
	if err != nil {
		return fail[Order](c.logger, "CreateOrder", code, err)
	}
	return Ok(order)
}

// GetOrder retrieves a remote order by id
func (c *Client) GetOrder(ctx context.Context, id int64) Result[Order] {
	var order Order
	_, code, err := c.do(ctx, "GetOrder", http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order)
	if err != nil {
		return fail[Order](c.logger, "GetOrder", code, err)
	}
	return Ok(order)
}

// CreateCustomer registers a customer with the remote catalog
func (c *Client) CreateCustomer(ctx context.Context, payload *CustomerPayload) Result[RemoteCustomer] {
	var cust RemoteCustomer
	_, code, err := c.do(ctx, "CreateCustomer", http.MethodPost, "/customers", nil, payload, &cust)
	if err != nil {
		return fail[RemoteCustomer](c.logger, "CreateCustomer", code, err)
	}
	return Ok(cust)
}

// GetCustomer retrieves a remote customer by id
func (c *Client) GetCustomer(ctx context.Context, id int64) Result[RemoteCustomer] {
	var cust RemoteCustomer
	_, code, err := c.do(ctx, "GetCustomer", http.MethodGet, fmt.Sprintf("/customers/%d", id), nil, nil, &cust)
	if err != nil {
		return fail[RemoteCustomer](c.logger, "GetCustomer", code, err)
	}
	return Ok(cust)
}

// SystemStatus checks the remote catalog's health
func (c *Client) SystemStatus(ctx context.Context) Result[map[string]any] {
	var status map[string]any
	_, code, err := c.do(ctx, "SystemStatus", http.MethodGet, "/system_status", nil, nil, &status)
	if err != nil {
		return fail[map[string]any](c.logger, "SystemStatus", code, err)
	}
	return Ok(status)
}
