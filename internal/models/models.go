package models

import (
	"time"
)

const (
	OrderStatusAssigned  = "assigned"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusAssigned, OrderStatusPickedUp, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              string     `json:"orderId"`
	RiderID         string     `json:"-"`
	Status          string     `json:"status"`
	DeliveryFee     float64    `json:"deliveryFee"`
	CustomerName    string     `json:"customerName"`
	PickupAddress   string     `json:"pickupAddress"`
	DeliveryAddress string     `json:"deliveryAddress"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
}

// EffectiveDate is the point in time earnings are attributed to:
// DeliveredAt once the order is delivered, CreatedAt before that.
func (o *Order) EffectiveDate() time.Time {
	if o.DeliveredAt != nil {
		return *o.DeliveredAt
	}
	return o.CreatedAt
}

type Withdrawal struct {
	ID          string     `json:"withdrawalId"`
	RiderID     string     `json:"-"`
	Amount      float64    `json:"amount"`
	AccountInfo string     `json:"accountInfo,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// IncomeDocument is the persisted withdrawal ledger for one rider.
// TotalWithdrawn only ever grows, and only when a withdrawal completes.
type IncomeDocument struct {
	Withdrawals    []Withdrawal `json:"withdrawals"`
	TotalWithdrawn float64      `json:"totalWithdrawn"`
	LastUpdated    time.Time    `json:"lastUpdated"`
}

type IncomeSnapshot struct {
	TotalEarnings      float64 `json:"totalEarnings"`
	TodayEarnings      float64 `json:"todayEarnings"`
	WeekEarnings       float64 `json:"weekEarnings"`
	MonthEarnings      float64 `json:"monthEarnings"`
	TotalWithdrawn     float64 `json:"totalWithdrawn"`
	AvailableBalance   float64 `json:"availableBalance"`
	PendingWithdrawals int     `json:"pendingWithdrawals"`
}

type Statistics struct {
	Total         int     `json:"total"`
	Ongoing       int     `json:"ongoing"`
	Completed     int     `json:"completed"`
	Cancelled     int     `json:"cancelled"`
	TotalEarnings float64 `json:"totalEarnings"`
	TodayEarnings float64 `json:"todayEarnings"`
	TodayOrders   int     `json:"todayOrders"`
}

type TrendReport struct {
	Period      string    `json:"period"`
	Labels      []string  `json:"labels"`
	Earnings    []float64 `json:"earnings"`
	OrderCounts []int     `json:"orderCounts"`
}

type WithdrawRequest struct {
	Amount      float64 `json:"amount"`
	AccountInfo string  `json:"accountInfo,omitempty"`
}

type ResolveWithdrawalRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}
