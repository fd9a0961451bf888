package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products map[int64]models.Product

	createCalls int
	lastPayload *catalog.OrderPayload
	failCreate  bool
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) catalog.Result[models.Product] {
	if p, ok := f.products[id]; ok {
		return catalog.Ok(p)
	}
	return catalog.Fail[models.Product](404, "Product not found")
}

func (f *fakeCatalog) CreateOrder(_ context.Context, payload *catalog.OrderPayload) catalog.Result[catalog.Order] {
	f.createCalls++
	f.lastPayload = payload
	if f.failCreate {
		return catalog.Fail[catalog.Order](502, "upstream error")
	}
	return catalog.Ok(catalog.Order{ID: 9001, Status: "pending"})
}

type fakePublisher struct {
	submitted []*models.OrderSubmittedEvent
	failed    []*models.OrderFailedEvent
}

func (f *fakePublisher) PublishOrderSubmitted(_ context.Context, e *models.OrderSubmittedEvent) error {
	f.submitted = append(f.submitted, e)
	return nil
}

func (f *fakePublisher) PublishOrderFailed(_ context.Context, e *models.OrderFailedEvent) error {
	f.failed = append(f.failed, e)
	return nil
}

func testShop() config.ShopConfig {
	return config.ShopConfig{
		Country:               "India",
		FreeShippingThreshold: 5000,
		ShippingFee:           200,
	}
}

func newTestOrderService(t *testing.T, remote *fakeCatalog, pub *fakePublisher) (*OrderService, *cart.Service) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	cartService := cart.NewService(store, remote)
	validator := security.NewValidator("India")

	var publisher Publisher
	if pub != nil {
		publisher = pub
	}
	return NewOrderService(remote, cartService, validator, publisher, testShop()), cartService
}

func validRequest() *SubmitOrderRequest {
	return &SubmitOrderRequest{
		Customer: models.Customer{
			FirstName: "Ravi",
			LastName:  "Kumar",
			Email:     "ravi@example.com",
			Mobile:    "9876543210",
			Address:   "42 MG Road, Indiranagar",
			City:      "Bengaluru",
			State:     "Karnataka",
			Pincode:   "560038",
			Country:   "India",
		},
		PaymentMethod: "cod",
	}
}

func TestSubmitValidationRunsBeforeRemoteCall(t *testing.T) {
	remote := &fakeCatalog{}
	svc, _ := newTestOrderService(t, remote, nil)

	req := validRequest()
	req.Customer.Email = "not-an-email"

	_, err := svc.Submit(context.Background(), "sid-1", req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Fields)
	assert.Zero(t, remote.createCalls, "invalid input must never reach the remote system")
}

func TestSubmitEmptyCartRejected(t *testing.T) {
	remote := &fakeCatalog{}
	svc, _ := newTestOrderService(t, remote, nil)

	_, err := svc.Submit(context.Background(), "sid-empty", validRequest())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "cart", vErr.Fields[0].Field)
	assert.Zero(t, remote.createCalls)
}

func TestSubmitSuccessClearsCart(t *testing.T) {
	remote := &fakeCatalog{products: map[int64]models.Product{
		10: {ID: 10, Name: "Wheelchair", Price: 4500},
	}}
	pub := &fakePublisher{}
	svc, cartService := newTestOrderService(t, remote, pub)
	ctx := context.Background()

	require.NoError(t, cartService.Add(ctx, "sid-1", 10, 1))

	conf, err := svc.Submit(ctx, "sid-1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(9001), conf.RemoteOrderID)
	assert.Equal(t, 4500.0, conf.Subtotal)
	assert.Equal(t, 200.0, conf.Shipping)
	assert.Equal(t, 4700.0, conf.Total)
	assert.Equal(t, "pending", conf.Status)

	items, err := cartService.Items(ctx, "sid-1")
	require.NoError(t, err)
	assert.Empty(t, items, "cart is cleared after a confirmed order")

	require.Len(t, pub.submitted, 1)
	assert.Equal(t, conf.OrderID, pub.submitted[0].Reference)
	assert.Equal(t, conf.Total, pub.submitted[0].Total)
}

func TestSubmitRemoteFailureKeepsCart(t *testing.T) {
	remote := &fakeCatalog{
		products:   map[int64]models.Product{10: {ID: 10, Price: 1000}},
		failCreate: true,
	}
	pub := &fakePublisher{}
	svc, cartService := newTestOrderService(t, remote, pub)
	ctx := context.Background()

	require.NoError(t, cartService.Add(ctx, "sid-1", 10, 2))

	_, err := svc.Submit(ctx, "sid-1", validRequest())

	var rErr *RemoteError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "upstream error", rErr.Message)

	items, err := cartService.Items(ctx, "sid-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "cart survives a failed submission")

	require.Len(t, pub.failed, 1)
	assert.Empty(t, pub.submitted)
}

func TestSubmitFreeShippingAboveThreshold(t *testing.T) {
	remote := &fakeCatalog{products: map[int64]models.Product{
		10: {ID: 10, Price: 6000},
	}}
	svc, cartService := newTestOrderService(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, cartService.Add(ctx, "sid-1", 10, 1))

	conf, err := svc.Submit(ctx, "sid-1", validRequest())
	require.NoError(t, err)

	assert.Zero(t, conf.Shipping)
	assert.Equal(t, 6000.0, conf.Total)
	require.NotNil(t, remote.lastPayload)
	assert.Equal(t, "Free Shipping", remote.lastPayload.ShippingLines[0].MethodTitle)
	assert.Equal(t, "0.00", remote.lastPayload.ShippingLines[0].Total)
}

func TestSubmitShippingExactlyAtThreshold(t *testing.T) {
	remote := &fakeCatalog{products: map[int64]models.Product{
		10: {ID: 10, Price: 5000},
	}}
	svc, cartService := newTestOrderService(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, cartService.Add(ctx, "sid-1", 10, 1))

	conf, err := svc.Submit(ctx, "sid-1", validRequest())
	require.NoError(t, err)

	// threshold is exclusive
	assert.Equal(t, 200.0, conf.Shipping)
}

func TestSubmitPayloadShape(t *testing.T) {
	remote := &fakeCatalog{products: map[int64]models.Product{
		10: {ID: 10, Price: 1000},
		20: {ID: 20, Price: 2000},
	}}
	svc, cartService := newTestOrderService(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, cartService.Add(ctx, "sid-1", 10, 2))
	require.NoError(t, cartService.Add(ctx, "sid-1", 20, 1))

	conf, err := svc.Submit(ctx, "sid-1", validRequest())
	require.NoError(t, err)

	p := remote.lastPayload
	require.NotNil(t, p)

	assert.Equal(t, "cod", p.PaymentMethod)
	assert.False(t, p.SetPaid)
	assert.Len(t, p.LineItems, 2)

	assert.Equal(t, p.Billing.Address1, p.Shipping.Address1)
	assert.Equal(t, p.Billing.Postcode, p.Shipping.Postcode)
	assert.Equal(t, "+919876543210", p.Billing.Phone)

	meta := make(map[string]string)
	for _, m := range p.MetaData {
		meta[m.Key] = m.Value
	}
	assert.Equal(t, "storefront", meta["order_source"])
	assert.Equal(t, conf.OrderID, meta["custom_order_id"])
	assert.Equal(t, "yes", meta["installation_required"])
}

func TestOrderReferenceFormat(t *testing.T) {
	ref := newOrderReference()
	assert.Regexp(t, regexp.MustCompile(`^ORD\d{13}[A-Z0-9]{5}$`), ref)

	other := newOrderReference()
	assert.NotEqual(t, ref, other)
}

func TestQuote(t *testing.T) {
	svc, _ := newTestOrderService(t, &fakeCatalog{}, nil)

	below := svc.Quote(&cart.View{Total: 3000})
	assert.Equal(t, 200.0, below.Shipping)
	assert.Equal(t, 3200.0, below.Total)

	above := svc.Quote(&cart.View{Total: 5001})
	assert.Zero(t, above.Shipping)
	assert.Equal(t, 5001.0, above.Total)
}
