package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/content"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/service"
	"storefront/internal/session"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ContentStore is the slice of the content repository the HTTP layer
// reads from
type ContentStore interface {
	ListContent(ctx context.Context, contentType string, limit, offset int) ([]models.Content, error)
	GetContentBySlug(ctx context.Context, slug, contentType string) (*models.Content, error)
	ListMenus(ctx context.Context) (map[string][]models.MenuItem, error)
	SiteInfo(ctx context.Context) (*models.SiteInfo, error)
	ListProducts(ctx context.Context) ([]models.ContentProduct, error)
	GetProductByID(ctx context.Context, id int64) (*models.ContentProduct, error)
	SearchProducts(ctx context.Context, query string) ([]models.ContentProduct, error)
}

// Handler contains HTTP handlers
type Handler struct {
	catalog    *catalog.Client
	content    ContentStore
	cart       *cart.Service
	orders     *service.OrderService
	validator  *security.Validator
	pipeline   *security.Pipeline
	sessionCfg config.SessionConfig
	env        string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalogClient *catalog.Client,
	contentRepo ContentStore,
	cartService *cart.Service,
	orderService *service.OrderService,
	validator *security.Validator,
	pipeline *security.Pipeline,
	sessionCfg config.SessionConfig,
	env string,
) *Handler {
	return &Handler{
		catalog:    catalogClient,
		content:    contentRepo,
		cart:       cartService,
		orders:     orderService,
		validator:  validator,
		pipeline:   pipeline,
		sessionCfg: sessionCfg,
		env:        env,
	}
}

// SetupRoutes sets up HTTP routes. The security pipeline stages are
// installed on the engine before this is called.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.CustomRecovery(h.recovered))
	router.Use(session.Middleware(h.sessionCfg))

	router.GET("/metrics", h.pipeline.Allowlist(), gin.WrapH(promhttp.Handler()))

	// page routes
	router.GET("/", h.home)
	router.GET("/products", security.ValidateSearchQuery(h.validator), h.productsPage)
	router.GET("/product/:id", security.ValidateProductParam(h.validator), h.productDetail)
	router.GET("/cart", h.cartPage)
	router.POST("/cart/add", h.addToCart)
	router.POST("/cart/update", h.updateCart)
	router.GET("/checkout", h.checkoutPage)
	router.GET("/about", h.about)
	router.GET("/contact", h.contactPage)
	router.POST("/contact", h.submitContact)
	router.GET("/customer-info", h.pipeline.StrictLimit(), h.customerInfo)
	router.GET("/order-confirmation", h.orderConfirmation)

	api := router.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/stats", h.stats)
		api.GET("/products", security.ValidateSearchQuery(h.validator), h.apiProducts)
		api.GET("/products/:id", security.ValidateProductParam(h.validator), h.apiProduct)
		api.POST("/orders/create", h.pipeline.OrderLimit(), h.createOrder)

		api.GET("/menus", h.menus)
		api.GET("/site", h.siteInfo)
		api.GET("/content/:type", h.listContent)
		api.GET("/content/:type/:slug", h.contentBySlug)

		cms := api.Group("/cms")
		{
			cms.GET("/products", h.cmsProducts)
			cms.GET("/products/:id", security.ValidateProductParam(h.validator), h.cmsProduct)
			cms.GET("/search", h.cmsSearch)
		}

		wc := api.Group("/wc")
		{
			wc.GET("/products", h.wcProducts)
			wc.GET("/products/:id", security.ValidateProductParam(h.validator), h.wcProduct)
			wc.GET("/search", h.wcSearch)
			wc.GET("/featured", h.wcFeatured)
			wc.GET("/on-sale", h.wcOnSale)
			wc.GET("/categories", h.wcCategories)
			wc.GET("/categories/:id", h.wcCategory)
			wc.GET("/categories/:id/products", h.wcCategoryProducts)
			wc.POST("/orders", h.wcCreateOrder)
			wc.GET("/orders/:id", h.wcOrder)
			wc.POST("/customers", h.wcCreateCustomer)
			wc.GET("/customers/:id", h.wcCustomer)
			wc.GET("/system-status", h.wcSystemStatus)
		}
	}

	router.NoRoute(h.notFound)
}

// recovered is the final handler for uncaught panics; production mode
// returns a generic message
func (h *Handler) recovered(c *gin.Context, err any) {
	fields := util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())
	util.GetLogger().Error("Unhandled error", append(fields, zap.Any("error", err))...)

	if h.env == "production" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errString(err)})
}

func errString(err any) string {
	if e, ok := err.(error); ok {
		return e.Error()
	}
	if s, ok := err.(string); ok {
		return s
	}
	return "unknown error"
}

func (h *Handler) notFound(c *gin.Context) {
	util.GetLogger().Warn("404 - not found",
		util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())...)
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

// health handles health check requests
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().Unix(),
		"environment": h.env,
		"apiVersion":  "1.0",
	})
}

// stats summarizes the catalog for the dashboard
func (h *Handler) stats(c *gin.Context) {
	res := h.catalog.ListProducts(c.Request.Context(), catalog.ListParams{PerPage: 100})
	productCount := 0
	if res.OK {
		productCount = len(res.Data)
		if res.Pagination != nil {
			productCount = res.Pagination.Total
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"products": productCount,
		"orders":   0,
		"users":    0,
		"revenue":  0,
	})
}

// home serves the landing view model with a handful of featured products
func (h *Handler) home(c *gin.Context) {
	res := h.catalog.ListProducts(c.Request.Context(), catalog.ListParams{PerPage: 4})
	products := []models.Product{}
	if res.OK {
		products = res.Data
	}
	c.JSON(http.StatusOK, gin.H{
		"title":    "Medical Equipment Store",
		"products": products,
	})
}

// productsPage lists products with server-side filtering and sorting
func (h *Handler) productsPage(c *gin.Context) {
	res := h.catalog.ListProducts(c.Request.Context(), catalog.ListParams{PerPage: 50})
	if !res.OK {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": res.Err})
		return
	}

	products := filterProducts(res.Data, c.Query("category"), c.Query("search"))
	sortProducts(products, c.Query("sort"))

	c.JSON(http.StatusOK, gin.H{
		"title":           "Products",
		"products":        products,
		"currentCategory": c.Query("category"),
		"currentSearch":   c.Query("search"),
		"currentSort":     c.Query("sort"),
	})
}

func filterProducts(products []models.Product, category, search string) []models.Product {
	out := make([]models.Product, 0, len(products))
	category = strings.ToLower(category)
	search = strings.ToLower(search)

	for _, p := range products {
		if category != "" && category != "all categories" {
			match := false
			for _, cat := range p.Categories {
				if strings.Contains(strings.ToLower(cat.Name), category) {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortProducts(products []models.Product, key string) {
	switch key {
	case "price-low":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case "price-high":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case "name-asc":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	case "name-desc":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Name > products[j].Name })
	}
	// "newest" keeps the catalog's default ordering
}

// productDetail serves one product plus related products
func (h *Handler) productDetail(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	res := h.catalog.GetProduct(c.Request.Context(), id)
	if !res.OK {
		h.remoteFailure(c, res.Code, res.Err, "Product not found")
		return
	}

	related := []models.Product{}
	if relRes := h.catalog.ListProducts(c.Request.Context(), catalog.ListParams{PerPage: 8}); relRes.OK {
		for _, p := range relRes.Data {
			if p.ID != id && len(related) < 4 {
				related = append(related, p)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"title":           res.Data.Name,
		"product":         res.Data,
		"relatedProducts": related,
	})
}

// remoteFailure maps a failed catalog Result onto the HTTP surface
func (h *Handler) remoteFailure(c *gin.Context, code int, msg, notFoundMsg string) {
	if code == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
}

// cartPage serves the resolved cart
func (h *Handler) cartPage(c *gin.Context) {
	view, err := h.cart.Resolve(c.Request.Context(), session.ID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cartItems":   view.Items,
		"total":       view.Total,
		"unavailable": view.Unavailable,
	})
}

type cartMutation struct {
	ProductID int64 `json:"productId" binding:"required,min=1"`
	Quantity  int   `json:"quantity"`
}

// addToCart appends a line item, coalescing quantity
func (h *Handler) addToCart(c *gin.Context) {
	var req cartMutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.cart.Add(c.Request.Context(), session.ID(c), req.ProductID, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product added to cart"})
}

// updateCart sets a line quantity; zero removes the line
func (h *Handler) updateCart(c *gin.Context) {
	var req cartMutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.cart.Update(c.Request.Context(), session.ID(c), req.ProductID, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// checkoutPage serves the order summary for the resolved cart
func (h *Handler) checkoutPage(c *gin.Context) {
	view, err := h.cart.Resolve(c.Request.Context(), session.ID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	summary := h.orders.Quote(view)
	c.JSON(http.StatusOK, gin.H{
		"cartItems": view.Items,
		"subtotal":  summary.Subtotal,
		"shipping":  summary.Shipping,
		"total":     summary.Total,
	})
}

// createOrder validates and submits a checkout
func (h *Handler) createOrder(c *gin.Context) {
	var req service.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	confirmation, err := h.orders.Submit(c.Request.Context(), session.ID(c), &req)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			util.ValidationFailuresTotal.Inc()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid input data",
				"details": vErr.Fields,
			})
			return
		}

		var rErr *service.RemoteError
		if errors.As(err, &rErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Failed to place order. Please try again.",
				"error":   rErr.Message,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to place order. Please try again.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order placed successfully",
		"order":   confirmation,
	})
}

// apiProducts mirrors the products listing for dashboard clients
func (h *Handler) apiProducts(c *gin.Context) {
	res := h.catalog.ListProducts(c.Request.Context(), listParamsFromQuery(c))
	respondResult(c, res)
}

func (h *Handler) apiProduct(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	res := h.catalog.GetProduct(c.Request.Context(), id)
	if !res.OK {
		h.remoteFailure(c, res.Code, res.Err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, res.Data)
}

func (h *Handler) about(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": "About Us"})
}

func (h *Handler) contactPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": "Contact Us"})
}

type contactMessage struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
}

func (h *Handler) submitContact(c *gin.Context) {
	var msg contactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	util.GetLogger().Info("Contact form submission",
		zap.String("name", msg.Name),
		zap.String("email", msg.Email),
		zap.String("phone", msg.Phone))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thank you for your message. We will get back to you soon!",
	})
}

func (h *Handler) customerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": "Customer Information"})
}

func (h *Handler) orderConfirmation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": "Order Confirmed"})
}

// listContent serves published content of one type from the content database
func (h *Handler) listContent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.content.ListContent(c.Request.Context(), c.Param("type"), limit, offset)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func (h *Handler) contentBySlug(c *gin.Context) {
	item, err := h.content.GetContentBySlug(c.Request.Context(), c.Param("slug"), c.Param("type"))
	if errors.Is(err, content.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// menus serves every navigation menu keyed by slug
func (h *Handler) menus(c *gin.Context) {
	menus, err := h.content.ListMenus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": menus})
}

// siteInfo serves the site identity from the content database
func (h *Handler) siteInfo(c *gin.Context) {
	info, err := h.content.SiteInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// cmsProducts lists products straight from the content database, as
// opposed to the remote catalog
func (h *Handler) cmsProducts(c *gin.Context) {
	products, err := h.content.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "count": len(products)})
}

func (h *Handler) cmsProduct(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	product, err := h.content.GetProductByID(c.Request.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) cmsSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}
	if errs := h.validator.ValidateSearch(q, "", ""); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data", "details": errs})
		return
	}

	products, err := h.content.SearchProducts(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "count": len(products)})
}

// respondResult writes a Result in the uniform envelope shape
func respondResult[T any](c *gin.Context, res catalog.Result[T]) {
	if !res.OK {
		status := http.StatusServiceUnavailable
		if res.Code == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": res.Err})
		return
	}

	body := gin.H{"success": true, "data": res.Data}
	if res.Pagination != nil {
		body["pagination"] = res.Pagination
	}
	c.JSON(http.StatusOK, body)
}

func listParamsFromQuery(c *gin.Context) catalog.ListParams {
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return catalog.ListParams{
		PerPage:  perPage,
		Page:     page,
		Search:   c.Query("search"),
		Category: c.Query("category"),
		OrderBy:  c.Query("orderby"),
		Order:    c.Query("order"),
		Featured: c.Query("featured") == "true",
		OnSale:   c.Query("on_sale") == "true",
	}
}

// wc/* routes mirror the remote catalog operations one-to-one

func (h *Handler) wcProducts(c *gin.Context) {
	respondResult(c, h.catalog.ListProducts(c.Request.Context(), listParamsFromQuery(c)))
}

func (h *Handler) wcProduct(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	respondResult(c, h.catalog.GetProduct(c.Request.Context(), id))
}

func (h *Handler) wcCategories(c *gin.Context) {
	respondResult(c, h.catalog.ListCategories(c.Request.Context(), listParamsFromQuery(c)))
}

func (h *Handler) wcCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}
	respondResult(c, h.catalog.GetCategory(c.Request.Context(), id))
}

func (h *Handler) wcOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	respondResult(c, h.catalog.GetOrder(c.Request.Context(), id))
}

func (h *Handler) wcSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Search query is required"})
		return
	}
	respondResult(c, h.catalog.SearchProducts(c.Request.Context(), q, listParamsFromQuery(c)))
}

func (h *Handler) wcFeatured(c *gin.Context) {
	respondResult(c, h.catalog.FeaturedProducts(c.Request.Context(), listParamsFromQuery(c)))
}

func (h *Handler) wcOnSale(c *gin.Context) {
	respondResult(c, h.catalog.OnSaleProducts(c.Request.Context(), listParamsFromQuery(c)))
}

func (h *Handler) wcCategoryProducts(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}
	respondResult(c, h.catalog.ProductsByCategory(c.Request.Context(), id, listParamsFromQuery(c)))
}

func (h *Handler) wcCreateOrder(c *gin.Context) {
	var payload catalog.OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	respondResult(c, h.catalog.CreateOrder(c.Request.Context(), &payload))
}

func (h *Handler) wcCreateCustomer(c *gin.Context) {
	var payload catalog.CustomerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	respondResult(c, h.catalog.CreateCustomer(c.Request.Context(), &payload))
}

func (h *Handler) wcCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}
	respondResult(c, h.catalog.GetCustomer(c.Request.Context(), id))
}

func (h *Handler) wcSystemStatus(c *gin.Context) {
	respondResult(c, h.catalog.SystemStatus(c.Request.Context()))
}
