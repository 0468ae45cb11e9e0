package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/models"
)

const (
	docOrders = "orders"
	docIncome = "income"
)

// PostgresStore keeps the same whole-document contract as FileStore,
// one JSONB row per rider per document.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, log *logrus.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool, log: log}
	if err := store.runMigrations(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			rider_id VARCHAR(255) NOT NULL,
			name VARCHAR(64) NOT NULL,
			body JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (rider_id, name)
		);
	`)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) readDocument(ctx context.Context, riderID, name string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		"SELECT body FROM documents WHERE rider_id = $1 AND name = $2", riderID, name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read document %s/%s: %w", riderID, name, err)
	}
	return body, nil
}

func (s *PostgresStore) writeDocument(ctx context.Context, riderID, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", riderID, name, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (rider_id, name, body, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (rider_id, name) DO UPDATE SET body = $3, updated_at = $4`,
		riderID, name, body, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", riderID, name, err)
	}
	return nil
}

func (s *PostgresStore) ReadOrders(ctx context.Context, riderID string) ([]models.Order, error) {
	body, err := s.readDocument(ctx, riderID, docOrders)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return []models.Order{}, nil
	}

	var orders []models.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders for rider %s: %w", riderID, err)
	}
	for i := range orders {
		orders[i].RiderID = riderID
	}
	return orders, nil
}

func (s *PostgresStore) WriteOrders(ctx context.Context, riderID string, orders []models.Order) error {
	return s.writeDocument(ctx, riderID, docOrders, orders)
}

func (s *PostgresStore) ReadIncome(ctx context.Context, riderID string) (*models.IncomeDocument, error) {
	body, err := s.readDocument(ctx, riderID, docIncome)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &models.IncomeDocument{Withdrawals: []models.Withdrawal{}}, nil
	}

	doc := &models.IncomeDocument{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("failed to decode income for rider %s: %w", riderID, err)
	}
	if doc.Withdrawals == nil {
		doc.Withdrawals = []models.Withdrawal{}
	}
	for i := range doc.Withdrawals {
		doc.Withdrawals[i].RiderID = riderID
	}
	return doc, nil
}

func (s *PostgresStore) WriteIncome(ctx context.Context, riderID string, doc *models.IncomeDocument) error {
	return s.writeDocument(ctx, riderID, docIncome, doc)
}
