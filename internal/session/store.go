package session

import (
	"context"

	"storefront/internal/models"
)

// Store keeps per-visitor cart state keyed by session id. Implementations
// bound entries to the session TTL; a missing or expired session reads as
// an empty cart.
type Store interface {
	Get(ctx context.Context, sid string) ([]models.CartItem, error)
	Set(ctx context.Context, sid string, items []models.CartItem) error
	Delete(ctx context.Context, sid string) error
}
