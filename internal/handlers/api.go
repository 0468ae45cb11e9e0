package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/income"
	"github.com/riderly/riderledger/internal/ledger"
	"github.com/riderly/riderledger/internal/middlewares"
	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/money"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	minSearchQueryLength = 2
)

type API struct {
	ledger *ledger.Service
	income *income.Service
	log    *logrus.Logger
}

func NewAPI(lg *ledger.Service, inc *income.Service, log *logrus.Logger) *API {
	return &API{
		ledger: lg,
		income: inc,
		log:    log,
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Errorf("failed to encode response: %v", err)
	}
}

func (a *API) GetOrders(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(ledger.FilterAll)
	}
	switch ledger.StatusFilter(status) {
	case ledger.FilterAll, ledger.FilterOngoing, ledger.FilterCompleted:
	default:
		http.Error(w, "status must be one of ongoing, completed, all", http.StatusBadRequest)
		return
	}

	page, limit, ok := a.parsePagination(w, r)
	if !ok {
		return
	}

	orders, err := a.ledger.FilterByStatus(r.Context(), riderID, ledger.StatusFilter(status))
	if err != nil {
		a.log.Errorf("failed to list orders: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, paginate(orders, page, limit))
}

// parsePagination validates page/limit; pagination itself is applied here
// at the boundary, the ledger operations stay unpaginated.
func (a *API) parsePagination(w http.ResponseWriter, r *http.Request) (page, limit int, ok bool) {
	page, limit = defaultPage, defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "page must be a positive integer", http.StatusBadRequest)
			return 0, 0, false
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

func paginate(orders []models.Order, page, limit int) []models.Order {
	start := (page - 1) * limit
	if start >= len(orders) {
		return []models.Order{}
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end]
}

func (a *API) GetRecentOrders(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	limit := ledger.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	orders, err := a.ledger.Recent(r.Context(), riderID, limit)
	if err != nil {
		a.log.Errorf("failed to get recent orders: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, orders)
}

func (a *API) SearchOrders(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if len(query) < minSearchQueryLength {
		http.Error(w, "query must be at least 2 characters", http.StatusBadRequest)
		return
	}

	orders, err := a.ledger.Search(r.Context(), riderID, query)
	if err != nil {
		a.log.Errorf("failed to search orders: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, orders)
}

// parseDateParam accepts a bare ISO date or a full RFC 3339 timestamp.
func parseDateParam(raw string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}

func (a *API) GetOrdersByRange(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	start, _, err := parseDateParam(r.URL.Query().Get("startDate"))
	if err != nil {
		http.Error(w, "startDate must be an ISO-8601 date", http.StatusBadRequest)
		return
	}
	end, dateOnly, err := parseDateParam(r.URL.Query().Get("endDate"))
	if err != nil {
		http.Error(w, "endDate must be an ISO-8601 date", http.StatusBadRequest)
		return
	}
	if dateOnly {
		// bare end date means the whole day, inclusive
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		http.Error(w, "startDate must not be after endDate", http.StatusBadRequest)
		return
	}

	orders, err := a.ledger.ByDateRange(r.Context(), riderID, start, end)
	if err != nil {
		a.log.Errorf("failed to get orders by range: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, orders)
}

func (a *API) GetOrderStatistics(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	stats, err := a.ledger.Statistics(r.Context(), riderID)
	if err != nil {
		a.log.Errorf("failed to compute statistics: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, stats)
}

func (a *API) GetOrder(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())
	orderID := chi.URLParam(r, "orderID")

	order, err := a.ledger.GetByID(r.Context(), riderID, orderID)
	if err != nil {
		if errors.Is(err, ledger.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		a.log.Errorf("failed to get order: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, order)
}

func (a *API) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if !models.IsValidOrderStatus(req.Status) {
		http.Error(w, "unknown order status", http.StatusBadRequest)
		return
	}

	order, err := a.ledger.UpdateStatus(r.Context(), riderID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, ledger.ErrInvalidStatus):
			http.Error(w, "unknown order status", http.StatusBadRequest)
		default:
			a.log.Errorf("failed to update order status: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.log.WithFields(logrus.Fields{
		"rider":  riderID,
		"order":  orderID,
		"status": req.Status,
	}).Info("order status updated")

	a.writeJSON(w, http.StatusOK, order)
}

func (a *API) GetIncome(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	snapshot, err := a.income.RealTimeIncome(r.Context(), riderID)
	if err != nil {
		a.log.Errorf("failed to compute income snapshot: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) GetIncomeTrend(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(income.PeriodDaily)
	}
	switch income.Period(period) {
	case income.PeriodDaily, income.PeriodWeekly, income.PeriodMonthly:
	default:
		http.Error(w, "period must be one of daily, weekly, monthly", http.StatusBadRequest)
		return
	}

	report, err := a.income.Trend(r.Context(), riderID, income.Period(period))
	if err != nil {
		a.log.Errorf("failed to compute income trend: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, report)
}

func (a *API) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 || !money.HasMaxTwoDecimals(req.Amount) {
		http.Error(w, "amount must be positive with at most 2 decimal places", http.StatusBadRequest)
		return
	}
	if req.Amount < income.MinWithdrawalAmount || req.Amount > income.MaxWithdrawalAmount {
		http.Error(w, "amount must be between 10 and 10000", http.StatusBadRequest)
		return
	}

	withdrawal, err := a.income.SubmitWithdrawal(r.Context(), riderID, req.Amount, req.AccountInfo)
	if err != nil {
		switch {
		case errors.Is(err, income.ErrInvalidAmount), errors.Is(err, income.ErrAmountOutOfRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, income.ErrInsufficientBalance):
			http.Error(w, "insufficient available balance", http.StatusBadRequest)
		default:
			a.log.Errorf("failed to submit withdrawal: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.writeJSON(w, http.StatusCreated, withdrawal)
}

func (a *API) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())

	status := r.URL.Query().Get("status")
	switch status {
	case "", "all", models.WithdrawalStatusPending, models.WithdrawalStatusCompleted, models.WithdrawalStatusRejected:
	default:
		http.Error(w, "status must be one of all, pending, completed, rejected", http.StatusBadRequest)
		return
	}

	withdrawals, err := a.income.Withdrawals(r.Context(), riderID, status)
	if err != nil {
		a.log.Errorf("failed to list withdrawals: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, withdrawals)
}

func (a *API) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	riderID := middlewares.RiderID(r.Context())
	withdrawalID := chi.URLParam(r, "withdrawalID")

	var req models.ResolveWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if req.Status != models.WithdrawalStatusCompleted && req.Status != models.WithdrawalStatusRejected {
		http.Error(w, "status must be completed or rejected", http.StatusBadRequest)
		return
	}

	withdrawal, err := a.income.ResolveWithdrawal(r.Context(), riderID, withdrawalID, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, income.ErrWithdrawalNotFound):
			http.Error(w, "withdrawal not found", http.StatusNotFound)
		case errors.Is(err, income.ErrWithdrawalResolved):
			http.Error(w, "withdrawal already resolved", http.StatusConflict)
		case errors.Is(err, income.ErrInvalidResolution):
			http.Error(w, "status must be completed or rejected", http.StatusBadRequest)
		default:
			a.log.Errorf("failed to resolve withdrawal: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.writeJSON(w, http.StatusOK, withdrawal)
}
