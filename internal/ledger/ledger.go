package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/money"
	"github.com/riderly/riderledger/internal/storage"
)

const DefaultRecentLimit = 10

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// StatusFilter is the coarse display bucketing over order statuses.
// "completed" deliberately groups cancelled orders with delivered ones.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterOngoing   StatusFilter = "ongoing"
	FilterCompleted StatusFilter = "completed"
)

// Service answers queries over a rider's order collection. It holds no
// state of its own beyond what the store persists.
type Service struct {
	store storage.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store storage.Store, log *logrus.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) ListAll(ctx context.Context, riderID string) ([]models.Order, error) {
	return s.store.ReadOrders(ctx, riderID)
}

func (s *Service) FilterByStatus(ctx context.Context, riderID string, filter StatusFilter) ([]models.Order, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if filter == FilterAll || filter == "" {
		return orders, nil
	}

	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		switch filter {
		case FilterOngoing:
			if o.Status == models.OrderStatusAssigned ||
				o.Status == models.OrderStatusPickedUp ||
				o.Status == models.OrderStatusInTransit {
				filtered = append(filtered, o)
			}
		case FilterCompleted:
			if o.Status == models.OrderStatusDelivered ||
				o.Status == models.OrderStatusCancelled {
				filtered = append(filtered, o)
			}
		}
	}
	return filtered, nil
}

func (s *Service) GetByID(ctx context.Context, riderID, orderID string) (*models.Order, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

// Search matches the query case-insensitively as a substring of the order
// id, customer name, pickup address or delivery address. Minimum query
// length is enforced at the HTTP boundary, not here.
func (s *Service) Search(ctx context.Context, riderID, query string) ([]models.Order, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matched := make([]models.Order, 0)
	for _, o := range orders {
		if strings.Contains(strings.ToLower(o.ID), q) ||
			strings.Contains(strings.ToLower(o.CustomerName), q) ||
			strings.Contains(strings.ToLower(o.PickupAddress), q) ||
			strings.Contains(strings.ToLower(o.DeliveryAddress), q) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// UpdateStatus is the only mutation path for orders. Moving to delivered
// also stamps DeliveredAt.
func (s *Service) UpdateStatus(ctx context.Context, riderID, orderID, newStatus string) (*models.Order, error) {
	if !models.IsValidOrderStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		now := s.now()
		orders[i].Status = newStatus
		orders[i].UpdatedAt = now
		if newStatus == models.OrderStatusDelivered {
			orders[i].DeliveredAt = &now
		}
		if err := s.store.WriteOrders(ctx, riderID, orders); err != nil {
			return nil, err
		}
		updated := orders[i]
		return &updated, nil
	}
	return nil, ErrOrderNotFound
}

// Statistics makes a single pass over the collection. Earnings count only
// delivered orders; today's figures use the order's effective date on the
// process-local calendar day.
func (s *Service) Statistics(ctx context.Context, riderID string) (*models.Statistics, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &models.Statistics{Total: len(orders)}
	var totalEarnings, todayEarnings float64

	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusAssigned, models.OrderStatusPickedUp, models.OrderStatusInTransit:
			stats.Ongoing++
		case models.OrderStatusDelivered:
			stats.Completed++
			totalEarnings += o.DeliveryFee
			if sameDay(o.EffectiveDate(), now) {
				todayEarnings += o.DeliveryFee
				stats.TodayOrders++
			}
		case models.OrderStatusCancelled:
			stats.Cancelled++
		}
	}

	stats.TotalEarnings = money.Round2(totalEarnings)
	stats.TodayEarnings = money.Round2(todayEarnings)
	return stats, nil
}

// Recent returns orders sorted newest-first by CreatedAt, truncated to
// limit. Ties keep their collection order.
func (s *Service) Recent(ctx context.Context, riderID string, limit int) ([]models.Order, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// ByDateRange filters on CreatedAt, both endpoints inclusive.
func (s *Service) ByDateRange(ctx context.Context, riderID string, start, end time.Time) ([]models.Order, error) {
	orders, err := s.store.ReadOrders(ctx, riderID)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !o.CreatedAt.Before(start) && !o.CreatedAt.After(end) {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
