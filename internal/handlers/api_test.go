package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riderly/riderledger/internal/income"
	"github.com/riderly/riderledger/internal/ledger"
	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/storage"
)

const testRider = "rider-1"

func newTestRouter(t *testing.T) (http.Handler, storage.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := storage.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)

	ledgerService := ledger.NewService(store, log)
	incomeService := income.NewService(ledgerService, store, log)
	api := NewAPI(ledgerService, incomeService, log)
	return NewRouter(api, testRider), store
}

func seedOrders(t *testing.T, store storage.Store, orders []models.Order) {
	t.Helper()
	require.NoError(t, store.WriteOrders(context.Background(), testRider, orders))
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewBuffer(data)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func deliveredOrder(id string, fee float64, deliveredAt time.Time) models.Order {
	return models.Order{
		ID:          id,
		Status:      models.OrderStatusDelivered,
		DeliveryFee: fee,
		CreatedAt:   deliveredAt.Add(-time.Hour),
		UpdatedAt:   deliveredAt,
		DeliveredAt: &deliveredAt,
	}
}

func TestGetOrders_StatusFilter(t *testing.T) {
	router, store := newTestRouter(t)

	now := time.Now()
	seedOrders(t, store, []models.Order{
		{ID: "O1", Status: models.OrderStatusAssigned, CreatedAt: now},
		deliveredOrder("O2", 10, now),
	})

	w := doRequest(t, router, http.MethodGet, "/api/rider/orders?status=ongoing", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "O1", orders[0].ID)
}

func TestGetOrders_ValidationFailures(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown status", "/api/rider/orders?status=frozen"},
		{"zero page", "/api/rider/orders?page=0"},
		{"negative page", "/api/rider/orders?page=-1"},
		{"non-numeric page", "/api/rider/orders?page=abc"},
		{"zero limit", "/api/rider/orders?limit=0"},
		{"limit over 100", "/api/rider/orders?limit=101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetOrders_Pagination(t *testing.T) {
	router, store := newTestRouter(t)

	now := time.Now()
	var orders []models.Order
	for i := 1; i <= 25; i++ {
		orders = append(orders, models.Order{
			ID:        fmt.Sprintf("O%02d", i),
			Status:    models.OrderStatusAssigned,
			CreatedAt: now,
		})
	}
	seedOrders(t, store, orders)

	w := doRequest(t, router, http.MethodGet, "/api/rider/orders?page=3&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 5)
	assert.Equal(t, "O21", page[0].ID)

	// page past the end is empty, not an error
	w = doRequest(t, router, http.MethodGet, "/api/rider/orders?page=10&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page)
}

func TestSearchOrders_QueryTooShort(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, target := range []string{
		"/api/rider/orders/search",
		"/api/rider/orders/search?query=a",
		"/api/rider/orders/search?query=%20%20a%20%20",
	} {
		w := doRequest(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestSearchOrders(t *testing.T) {
	router, store := newTestRouter(t)

	seedOrders(t, store, []models.Order{
		{ID: "ORD-1", CustomerName: "Alice", Status: models.OrderStatusAssigned, CreatedAt: time.Now()},
		{ID: "ORD-2", CustomerName: "Bob", Status: models.OrderStatusAssigned, CreatedAt: time.Now()},
	})

	w := doRequest(t, router, http.MethodGet, "/api/rider/orders/search?query=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1", orders[0].ID)
}

func TestGetOrdersByRange_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing dates", "/api/rider/orders/range"},
		{"bad start", "/api/rider/orders/range?startDate=nope&endDate=2025-03-10"},
		{"bad end", "/api/rider/orders/range?startDate=2025-03-10&endDate=nope"},
		{"inverted range", "/api/rider/orders/range?startDate=2025-03-12&endDate=2025-03-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetOrdersByRange_InclusiveEndDay(t *testing.T) {
	router, store := newTestRouter(t)

	seedOrders(t, store, []models.Order{
		{ID: "late-on-end-day", Status: models.OrderStatusAssigned,
			CreatedAt: time.Date(2025, 3, 12, 23, 30, 0, 0, time.Local)},
		{ID: "next-day", Status: models.OrderStatusAssigned,
			CreatedAt: time.Date(2025, 3, 13, 0, 30, 0, 0, time.Local)},
	})

	w := doRequest(t, router, http.MethodGet, "/api/rider/orders/range?startDate=2025-03-10&endDate=2025-03-12", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "late-on-end-day", orders[0].ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/rider/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	router, store := newTestRouter(t)
	seedOrders(t, store, []models.Order{
		{ID: "O1", Status: models.OrderStatusInTransit, DeliveryFee: 12, CreatedAt: time.Now()},
	})

	w := doRequest(t, router, http.MethodPatch, "/api/rider/orders/O1/status",
		models.UpdateOrderStatusRequest{Status: models.OrderStatusDelivered})
	require.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)

	t.Run("unknown status", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPatch, "/api/rider/orders/O1/status",
			models.UpdateOrderStatusRequest{Status: "teleported"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPatch, "/api/rider/orders/missing/status",
			models.UpdateOrderStatusRequest{Status: models.OrderStatusDelivered})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetIncome(t *testing.T) {
	router, store := newTestRouter(t)
	seedOrders(t, store, []models.Order{deliveredOrder("O1", 55.25, time.Now())})

	w := doRequest(t, router, http.MethodGet, "/api/rider/income", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.IncomeSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, 55.25, snapshot.TotalEarnings)
	assert.Equal(t, 55.25, snapshot.AvailableBalance)
}

func TestGetIncomeTrend_BadPeriod(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/rider/income/trend?period=yearly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncomeTrend_DefaultsToDaily(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/rider/income/trend", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.TrendReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "daily", report.Period)
	assert.Len(t, report.Labels, 7)
}

func TestSubmitWithdrawal_Validation(t *testing.T) {
	router, store := newTestRouter(t)
	seedOrders(t, store, []models.Order{deliveredOrder("O1", 500, time.Now())})

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"amount": }`},
		{"non-numeric amount", `{"amount": "fifty"}`},
		{"zero amount", models.WithdrawRequest{Amount: 0}},
		{"negative amount", models.WithdrawRequest{Amount: -10}},
		{"three decimals", models.WithdrawRequest{Amount: 25.505}},
		{"below minimum", models.WithdrawRequest{Amount: 9.99}},
		{"above maximum", models.WithdrawRequest{Amount: 10000.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/api/rider/withdrawals", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmitWithdrawal_InsufficientBalance(t *testing.T) {
	router, store := newTestRouter(t)
	seedOrders(t, store, []models.Order{deliveredOrder("O1", 50, time.Now())})

	w := doRequest(t, router, http.MethodPost, "/api/rider/withdrawals",
		models.WithdrawRequest{Amount: 50.01})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient")
}

func TestWithdrawalLifecycle(t *testing.T) {
	router, store := newTestRouter(t)
	seedOrders(t, store, []models.Order{deliveredOrder("O1", 200, time.Now())})

	w := doRequest(t, router, http.MethodPost, "/api/rider/withdrawals",
		models.WithdrawRequest{Amount: 25.50, AccountInfo: "acct"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Withdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.WithdrawalStatusPending, created.Status)
	assert.Equal(t, 25.50, created.Amount)

	w = doRequest(t, router, http.MethodGet, "/api/rider/withdrawals?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []models.Withdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	w = doRequest(t, router, http.MethodPatch, "/api/rider/withdrawals/"+created.ID,
		models.ResolveWithdrawalRequest{Status: models.WithdrawalStatusCompleted, Notes: "paid"})
	require.Equal(t, http.StatusOK, w.Code)

	var resolved models.Withdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, models.WithdrawalStatusCompleted, resolved.Status)
	assert.Equal(t, "paid", resolved.Notes)

	// resolving again conflicts
	w = doRequest(t, router, http.MethodPatch, "/api/rider/withdrawals/"+created.ID,
		models.ResolveWithdrawalRequest{Status: models.WithdrawalStatusRejected})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/rider/income", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.IncomeSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, 25.50, snapshot.TotalWithdrawn)
	assert.Equal(t, 174.50, snapshot.AvailableBalance)
}

func TestResolveWithdrawal_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPatch, "/api/rider/withdrawals/missing",
		models.ResolveWithdrawalRequest{Status: models.WithdrawalStatusCompleted})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPatch, "/api/rider/withdrawals/missing",
		models.ResolveWithdrawalRequest{Status: "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWithdrawals_BadStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/rider/withdrawals?status=frozen", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRiderHeaderSelectsCollection(t *testing.T) {
	router, store := newTestRouter(t)

	require.NoError(t, store.WriteOrders(context.Background(), "rider-2",
		[]models.Order{{ID: "R2-1", Status: models.OrderStatusAssigned, CreatedAt: time.Now()}}))

	req := httptest.NewRequest(http.MethodGet, "/api/rider/orders", nil)
	req.Header.Set("X-Rider-ID", "rider-2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "R2-1", orders[0].ID)
}
