package storage

import (
	"context"

	"github.com/riderly/riderledger/internal/models"
)

// Store persists two documents per rider: the orders collection and the
// income ledger. Writes replace the whole document; there are no partial
// updates. A missing document reads back as its typed default.
type Store interface {
	ReadOrders(ctx context.Context, riderID string) ([]models.Order, error)
	WriteOrders(ctx context.Context, riderID string, orders []models.Order) error

	ReadIncome(ctx context.Context, riderID string) (*models.IncomeDocument, error)
	WriteIncome(ctx context.Context, riderID string, doc *models.IncomeDocument) error

	Close()
}
