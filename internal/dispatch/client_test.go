package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/storage"
)

func newTestClient(t *testing.T, feed http.HandlerFunc) (*Client, storage.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := storage.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)

	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, "rider-1", store, log), store
}

func TestPullOrders_AppendsNewOrders(t *testing.T) {
	feed := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dispatch/rider-1/orders", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]models.Order{
			{ID: "D1", DeliveryFee: 12.50, CustomerName: "Alice"},
		})
	}
	client, store := newTestClient(t, feed)

	ctx := context.Background()
	client.pullOrders(ctx)

	orders, err := store.ReadOrders(ctx, "rider-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "D1", orders[0].ID)
	assert.Equal(t, models.OrderStatusAssigned, orders[0].Status)
	assert.False(t, orders[0].CreatedAt.IsZero())
}

func TestPullOrders_SkipsKnownOrders(t *testing.T) {
	feed := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Order{
			{ID: "D1"},
			{ID: "D2"},
		})
	}
	client, store := newTestClient(t, feed)

	ctx := context.Background()
	require.NoError(t, store.WriteOrders(ctx, "rider-1", []models.Order{
		{ID: "D1", Status: models.OrderStatusInTransit, CreatedAt: time.Now()},
	}))

	client.pullOrders(ctx)

	orders, err := store.ReadOrders(ctx, "rider-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// the existing order is untouched
	assert.Equal(t, models.OrderStatusInTransit, orders[0].Status)
	assert.Equal(t, "D2", orders[1].ID)
}

func TestPullOrders_NoContent(t *testing.T) {
	feed := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	client, store := newTestClient(t, feed)

	ctx := context.Background()
	client.pullOrders(ctx)

	orders, err := store.ReadOrders(ctx, "rider-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
