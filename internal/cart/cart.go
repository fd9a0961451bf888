package cart

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/session"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ProductResolver resolves a cart line against the authoritative catalog
type ProductResolver interface {
	GetProduct(ctx context.Context, id int64) catalog.Result[models.Product]
}

// Service implements the per-session cart state machine. All mutations
// are scoped to one session; the store holds raw line items and the
// catalog is consulted only when the cart is viewed.
type Service struct {
	store   session.Store
	catalog ProductResolver
	logger  *zap.Logger
}

// NewService creates a cart service
func NewService(store session.Store, resolver ProductResolver) *Service {
	return &Service{
		store:   store,
		catalog: resolver,
		logger:  util.GetLogger(),
	}
}

// ResolvedItem is a cart line joined with current catalog data
type ResolvedItem struct {
	models.Product
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// View is the cart as presented to the visitor. Lines whose product
// lookup failed are excluded from Items and Total but stay in storage;
// Unavailable reports how many were excluded.
type View struct {
	Items       []ResolvedItem `json:"items"`
	Total       float64        `json:"total"`
	Unavailable int            `json:"unavailable"`
}

// Add appends a line item, coalescing quantity when the product is
// already present. Quantities below one count as one.
func (s *Service) Add(ctx context.Context, sid string, productID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	items, err := s.store.Get(ctx, sid)
	if err != nil {
		return err
	}

	found := false
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		items = append(items, models.CartItem{ProductID: productID, Quantity: quantity})
	}

	return s.store.Set(ctx, sid, items)
}

// Update sets a line's quantity; a quantity of zero or below removes the
// line entirely. Updating an absent product is a no-op.
func (s *Service) Update(ctx context.Context, sid string, productID int64, quantity int) error {
	items, err := s.store.Get(ctx, sid)
	if err != nil {
		return err
	}

	out := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
			continue
		}
		if quantity > 0 {
			item.Quantity = quantity
			out = append(out, item)
		}
	}

	return s.store.Set(ctx, sid, out)
}

// Items returns the raw stored line items
func (s *Service) Items(ctx context.Context, sid string) ([]models.CartItem, error) {
	return s.store.Get(ctx, sid)
}

// Resolve joins every stored line with current catalog data. Lines that
// fail to resolve are dropped from the view only, tolerating transient
// catalog unavailability.
func (s *Service) Resolve(ctx context.Context, sid string) (*View, error) {
	items, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}

	view := &View{Items: []ResolvedItem{}}
	for _, item := range items {
		res := s.catalog.GetProduct(ctx, item.ProductID)
		if !res.OK {
			s.logger.Warn("Cart line not resolvable",
				zap.String("session_id", sid),
				zap.Int64("product_id", item.ProductID),
				zap.String("error", res.Err))
			view.Unavailable++
			continue
		}

		line := ResolvedItem{
			Product:   res.Data,
			Quantity:  item.Quantity,
			LineTotal: res.Data.Price * float64(item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
	}

	return view, nil
}

// Clear empties the cart; invoked only after checkout succeeds
func (s *Service) Clear(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, sid)
}
