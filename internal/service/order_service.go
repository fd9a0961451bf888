package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogAPI is the slice of the catalog client order submission needs
type CatalogAPI interface {
	CreateOrder(ctx context.Context, payload *catalog.OrderPayload) catalog.Result[catalog.Order]
}

// Publisher emits order lifecycle events; publishing is best-effort and
// never fails a checkout
type Publisher interface {
	PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error
	PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error
}

// ValidationError carries field-level failures; the order never reached
// the remote system
type ValidationError struct {
	Fields []security.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order validation failed: %d invalid fields", len(e.Fields))
}

// RemoteError carries the remote catalog's failure message verbatim
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// OrderService validates checkout submissions, builds the remote order
// payload and submits it through the catalog client
type OrderService struct {
	catalog   CatalogAPI
	cart      *cart.Service
	validator *security.Validator
	publisher Publisher
	shop      config.ShopConfig
	logger    *zap.Logger
}

// NewOrderService creates an order service. publisher may be nil when no
// broker is configured.
func NewOrderService(
	catalogAPI CatalogAPI,
	cartService *cart.Service,
	validator *security.Validator,
	publisher Publisher,
	shop config.ShopConfig,
) *OrderService {
	return &OrderService{
		catalog:   catalogAPI,
		cart:      cartService,
		validator: validator,
		publisher: publisher,
		shop:      shop,
		logger:    util.GetLogger(),
	}
}

// SubmitOrderRequest is a checkout submission
type SubmitOrderRequest struct {
	Customer      models.Customer `json:"customer"`
	PaymentMethod string          `json:"paymentMethod"`
}

// OrderSummary is the priced total of a resolved cart.
type OrderSummary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Quote prices a resolved cart. Orders above the free shipping
// threshold pay no delivery fee.
func (s *OrderService) Quote(view *cart.View) OrderSummary {
	shipping := s.shop.ShippingFee
	if view.Total > s.shop.FreeShippingThreshold {
		shipping = 0
	}
	return OrderSummary{
		Subtotal: view.Total,
		Shipping: shipping,
		Total:    view.Total + shipping,
	}
}

// Submit validates the customer, prices the session cart, submits the
// order remotely and clears the cart only on confirmed success. Failures
// are *ValidationError (nothing was sent) or *RemoteError (cart intact).
func (s *OrderService) Submit(ctx context.Context, sid string, req *SubmitOrderRequest) (*models.OrderConfirmation, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Submit")
	defer span.End()

	if fieldErrs := s.validator.ValidateCustomer(&req.Customer); len(fieldErrs) > 0 {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Fields: fieldErrs}
	}

	view, err := s.cart.Resolve(ctx, sid)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("cart_error").Inc()
		return nil, fmt.Errorf("failed to resolve cart: %w", err)
	}
	if len(view.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, &ValidationError{Fields: []security.FieldError{
			{Field: "cart", Message: "Cart is empty"},
		}}
	}

	summary := s.Quote(view)
	subtotal := summary.Subtotal
	shipping := summary.Shipping

	reference := newOrderReference()
	payload := s.buildPayload(reference, &req.Customer, view, shipping)

	res := s.catalog.CreateOrder(ctx, payload)
	if !res.OK {
		s.logger.Error("Remote order creation failed",
			zap.String("reference", reference),
			zap.String("session_id", sid),
			zap.Int("status", res.Code),
			zap.String("error", res.Err))
		util.OrdersFailedTotal.WithLabelValues("remote").Inc()
		s.publishFailed(ctx, reference, res.Err)
		return nil, &RemoteError{Message: res.Err}
	}

	if err := s.cart.Clear(ctx, sid); err != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("reference", reference),
			zap.String("session_id", sid),
			zap.Error(err))
	}

	util.OrdersSubmittedTotal.Inc()
	now := time.Now()
	confirmation := &models.OrderConfirmation{
		OrderID:           reference,
		RemoteOrderID:     res.Data.ID,
		Subtotal:          subtotal,
		Shipping:          shipping,
		Total:             subtotal + shipping,
		PaymentMethod:     req.PaymentMethod,
		Status:            "pending",
		OrderDate:         now,
		EstimatedDelivery: now.AddDate(0, 0, 5),
	}

	s.logger.Info("Order submitted",
		zap.String("reference", reference),
		zap.Int64("remote_order_id", res.Data.ID),
		zap.Float64("total", confirmation.Total),
		zap.Int("items", len(view.Items)))

	s.publishSubmitted(ctx, confirmation, len(view.Items))
	return confirmation, nil
}

// buildPayload mirrors the customer fields into billing and shipping
// blocks and tags the order with its local reference
func (s *OrderService) buildPayload(reference string, customer *models.Customer, view *cart.View, shipping float64) *catalog.OrderPayload {
	address := catalog.Address{
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Address1:  customer.Address,
		City:      customer.City,
		State:     customer.State,
		Postcode:  customer.Pincode,
		Country:   customer.Country,
	}

	billing := address
	billing.Email = customer.Email
	billing.Phone = "+91" + strings.TrimPrefix(customer.Mobile, "+91")

	lineItems := make([]catalog.LineItem, 0, len(view.Items))
	for _, item := range view.Items {
		lineItems = append(lineItems, catalog.LineItem{
			ProductID: item.ID,
			Quantity:  item.Quantity,
		})
	}

	shippingTitle := "Free Shipping"
	if shipping > 0 {
		shippingTitle = "Flat Rate"
	}

	return &catalog.OrderPayload{
		PaymentMethod:      "cod",
		PaymentMethodTitle: "Cash on Delivery",
		SetPaid:            false,
		Billing:            billing,
		Shipping:           address,
		LineItems:          lineItems,
		ShippingLines: []catalog.ShippingLine{
			{
				MethodID:    "flat_rate",
				MethodTitle: shippingTitle,
				Total:       fmt.Sprintf("%.2f", shipping),
			},
		},
		MetaData: []catalog.MetaEntry{
			{Key: "order_source", Value: "storefront"},
			{Key: "custom_order_id", Value: reference},
			{Key: "installation_required", Value: "yes"},
		},
	}
}

func (s *OrderService) publishSubmitted(ctx context.Context, conf *models.OrderConfirmation, itemCount int) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSubmitted,
			Timestamp: time.Now(),
		},
		Reference:     conf.OrderID,
		RemoteOrderID: conf.RemoteOrderID,
		ItemCount:     itemCount,
		Total:         conf.Total,
	}
	if err := s.publisher.PublishOrderSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}
}

func (s *OrderService) publishFailed(ctx context.Context, reference, reason string) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		Reference: reference,
		Reason:    reason,
	}
	if err := s.publisher.PublishOrderFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderFailed event", zap.Error(err))
	}
}

// newOrderReference builds the locally unique correlation id: a
// time-based prefix plus a random suffix. Collisions are a reported
// risk, not prevented.
func newOrderReference() string {
	suffix := strings.ToUpper(uuid.New().String()[:5])
	return fmt.Sprintf("ORD%d%s", time.Now().UnixMilli(), suffix)
}
