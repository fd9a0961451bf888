package session

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	items := []models.CartItem{{ProductID: 10, Quantity: 2}}
	require.NoError(t, store.Set(ctx, "sid-1", items))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", []models.CartItem{{ProductID: 1, Quantity: 1}}))
	time.Sleep(20 * time.Millisecond)

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", []models.CartItem{{ProductID: 1, Quantity: 1}}))
	require.NoError(t, store.Delete(ctx, "sid-1"))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", []models.CartItem{{ProductID: 1, Quantity: 1}}))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	got[0].Quantity = 99

	again, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Quantity, "mutating a returned slice must not affect storage")
}
