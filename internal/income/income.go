package income

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/ledger"
	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/money"
	"github.com/riderly/riderledger/internal/storage"
)

const (
	MinWithdrawalAmount = 10
	MaxWithdrawalAmount = 10000
)

var (
	ErrInvalidAmount       = errors.New("withdrawal amount must be positive with at most 2 decimals")
	ErrAmountOutOfRange    = errors.New("withdrawal amount out of allowed range")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrWithdrawalResolved  = errors.New("withdrawal already resolved")
	ErrInvalidResolution   = errors.New("invalid withdrawal resolution status")
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Service derives financial views from the order ledger and enforces the
// withdrawal business rules. The read-check-append cycle for withdrawals
// runs under a per-rider lock, closing the race the single-process source
// design tolerated.
type Service struct {
	ledger *ledger.Service
	store  storage.Store
	log    *logrus.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(lg *ledger.Service, store storage.Store, log *logrus.Logger) *Service {
	return &Service{
		ledger: lg,
		store:  store,
		log:    log,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) riderLock(riderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[riderID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[riderID] = l
	}
	return l
}

// RealTimeIncome recomputes the snapshot from scratch on every call.
// Earnings are a lifetime ledger; the week and month windows are rolling
// wall-clock durations, not calendar-aligned.
func (s *Service) RealTimeIncome(ctx context.Context, riderID string) (*models.IncomeSnapshot, error) {
	orders, err := s.ledger.ListAll(ctx, riderID)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.ReadIncome(ctx, riderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekCutoff := now.Add(-7 * 24 * time.Hour)
	monthCutoff := now.Add(-30 * 24 * time.Hour)

	var total, today, week, month float64
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		eff := o.EffectiveDate()
		total += o.DeliveryFee
		if sameDay(eff, now) {
			today += o.DeliveryFee
		}
		if !eff.Before(weekCutoff) {
			week += o.DeliveryFee
		}
		if !eff.Before(monthCutoff) {
			month += o.DeliveryFee
		}
	}

	pending := 0
	for _, w := range doc.Withdrawals {
		if w.Status == models.WithdrawalStatusPending {
			pending++
		}
	}

	return &models.IncomeSnapshot{
		TotalEarnings:      money.Round2(total),
		TodayEarnings:      money.Round2(today),
		WeekEarnings:       money.Round2(week),
		MonthEarnings:      money.Round2(month),
		TotalWithdrawn:     money.Round2(doc.TotalWithdrawn),
		AvailableBalance:   money.Round2(total - doc.TotalWithdrawn),
		PendingWithdrawals: pending,
	}, nil
}

// Trend buckets delivered-order earnings into the requested window.
// Orders falling outside the window are silently excluded.
func (s *Service) Trend(ctx context.Context, riderID string, period Period) (*models.TrendReport, error) {
	orders, err := s.ledger.ListAll(ctx, riderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var report *models.TrendReport
	switch period {
	case PeriodWeekly:
		report = weeklyTrend(orders, now)
	case PeriodMonthly:
		report = monthlyTrend(orders, now)
	default:
		report = dailyTrend(orders, now)
	}

	for i := range report.Earnings {
		report.Earnings[i] = money.Round2(report.Earnings[i])
	}
	return report, nil
}

// dailyTrend: 7 calendar-day buckets, oldest first, labeled YYYY-MM-DD.
func dailyTrend(orders []models.Order, now time.Time) *models.TrendReport {
	report := &models.TrendReport{
		Period:      string(PeriodDaily),
		Labels:      make([]string, 7),
		Earnings:    make([]float64, 7),
		OrderCounts: make([]int, 7),
	}
	position := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		label := now.AddDate(0, 0, i-6).Format("2006-01-02")
		report.Labels[i] = label
		position[label] = i
	}

	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		day := o.EffectiveDate().Format("2006-01-02")
		if pos, ok := position[day]; ok {
			report.Earnings[pos] += o.DeliveryFee
			report.OrderCounts[pos]++
		}
	}
	return report
}

// weeklyTrend: 4 trailing-week buckets. Week index 0 is the most recent
// trailing week, but labels run oldest-to-newest, so index i lands at
// array position 3-i. Preserved as observed behavior.
func weeklyTrend(orders []models.Order, now time.Time) *models.TrendReport {
	report := &models.TrendReport{
		Period:      string(PeriodWeekly),
		Labels:      []string{"Week 1", "Week 2", "Week 3", "Week 4"},
		Earnings:    make([]float64, 4),
		OrderCounts: make([]int, 4),
	}

	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		diff := now.Sub(o.EffectiveDate())
		if diff < 0 {
			continue
		}
		weekIndex := int(diff / (7 * 24 * time.Hour))
		if weekIndex > 3 {
			continue
		}
		pos := 3 - weekIndex
		report.Earnings[pos] += o.DeliveryFee
		report.OrderCounts[pos]++
	}
	return report
}

// monthlyTrend: 6 calendar-month buckets labeled YYYY-MM. Labels are built
// from the first day of the current month to dodge end-of-month AddDate
// normalization.
func monthlyTrend(orders []models.Order, now time.Time) *models.TrendReport {
	report := &models.TrendReport{
		Period:      string(PeriodMonthly),
		Labels:      make([]string, 6),
		Earnings:    make([]float64, 6),
		OrderCounts: make([]int, 6),
	}

	year, month, _ := now.Date()
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	position := make(map[string]int, 6)
	for i := 0; i < 6; i++ {
		label := firstOfMonth.AddDate(0, i-5, 0).Format("2006-01")
		report.Labels[i] = label
		position[label] = i
	}

	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		monthKey := o.EffectiveDate().Format("2006-01")
		if pos, ok := position[monthKey]; ok {
			report.Earnings[pos] += o.DeliveryFee
			report.OrderCounts[pos]++
		}
	}
	return report
}

// SubmitWithdrawal validates the amount against the bounds and the
// available balance at the instant of the call, then appends a pending
// record. TotalWithdrawn is untouched until the withdrawal completes.
func (s *Service) SubmitWithdrawal(ctx context.Context, riderID string, amount float64, accountInfo string) (*models.Withdrawal, error) {
	lock := s.riderLock(riderID)
	lock.Lock()
	defer lock.Unlock()

	if amount <= 0 || !money.HasMaxTwoDecimals(amount) {
		return nil, ErrInvalidAmount
	}
	if amount < MinWithdrawalAmount || amount > MaxWithdrawalAmount {
		return nil, ErrAmountOutOfRange
	}

	snapshot, err := s.RealTimeIncome(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if amount > snapshot.AvailableBalance+1e-9 {
		return nil, ErrInsufficientBalance
	}

	doc, err := s.store.ReadIncome(ctx, riderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	withdrawal := models.Withdrawal{
		ID:          uuid.NewString(),
		RiderID:     riderID,
		Amount:      amount,
		AccountInfo: accountInfo,
		Status:      models.WithdrawalStatusPending,
		RequestedAt: now,
	}
	doc.Withdrawals = append(doc.Withdrawals, withdrawal)
	doc.LastUpdated = now

	if err := s.store.WriteIncome(ctx, riderID, doc); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"rider":      riderID,
		"withdrawal": withdrawal.ID,
		"amount":     amount,
	}).Info("withdrawal submitted")

	return &withdrawal, nil
}

// Withdrawals lists the rider's withdrawal records, newest first,
// optionally filtered by status.
func (s *Service) Withdrawals(ctx context.Context, riderID, status string) ([]models.Withdrawal, error) {
	doc, err := s.store.ReadIncome(ctx, riderID)
	if err != nil {
		return nil, err
	}

	records := make([]models.Withdrawal, 0, len(doc.Withdrawals))
	for _, w := range doc.Withdrawals {
		if status == "" || status == "all" || w.Status == status {
			records = append(records, w)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RequestedAt.After(records[j].RequestedAt)
	})
	return records, nil
}

// ResolveWithdrawal moves a pending withdrawal to its terminal state.
// Completing it is the only path that increments TotalWithdrawn, and
// terminal states never transition again.
func (s *Service) ResolveWithdrawal(ctx context.Context, riderID, withdrawalID, newStatus, notes string) (*models.Withdrawal, error) {
	if newStatus != models.WithdrawalStatusCompleted && newStatus != models.WithdrawalStatusRejected {
		return nil, ErrInvalidResolution
	}

	lock := s.riderLock(riderID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.store.ReadIncome(ctx, riderID)
	if err != nil {
		return nil, err
	}

	for i := range doc.Withdrawals {
		if doc.Withdrawals[i].ID != withdrawalID {
			continue
		}
		if doc.Withdrawals[i].Status != models.WithdrawalStatusPending {
			return nil, ErrWithdrawalResolved
		}

		now := s.now()
		doc.Withdrawals[i].Status = newStatus
		doc.Withdrawals[i].ProcessedAt = &now
		doc.Withdrawals[i].Notes = notes
		if newStatus == models.WithdrawalStatusCompleted {
			doc.TotalWithdrawn = money.Round2(doc.TotalWithdrawn + doc.Withdrawals[i].Amount)
		}
		doc.LastUpdated = now

		if err := s.store.WriteIncome(ctx, riderID, doc); err != nil {
			return nil, err
		}

		s.log.WithFields(logrus.Fields{
			"rider":      riderID,
			"withdrawal": withdrawalID,
			"status":     newStatus,
		}).Info("withdrawal resolved")

		resolved := doc.Withdrawals[i]
		return &resolved, nil
	}
	return nil, ErrWithdrawalNotFound
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
