package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/models"
)

// FileStore keeps one JSON file per rider per document under a data
// directory. Reads are served from an in-memory cache that is overwritten
// on every write, so a read following a write in the same process never
// sees stale bytes.
type FileStore struct {
	dir   string
	log   *logrus.Logger
	mu    sync.Mutex
	cache map[string][]byte
}

func NewFileStore(dir string, log *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		log:   log,
		cache: make(map[string][]byte),
	}, nil
}

func (fs *FileStore) Close() {}

func (fs *FileStore) ordersPath(riderID string) string {
	return filepath.Join(fs.dir, riderID+"_orders.json")
}

func (fs *FileStore) incomePath(riderID string) string {
	return filepath.Join(fs.dir, riderID+"_income.json")
}

// readDocument loads raw document bytes, preferring the cache. A missing
// file yields (nil, nil) and the caller substitutes its default.
func (fs *FileStore) readDocument(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if data, ok := fs.cache[path]; ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fs.cache[path] = data
	return data, nil
}

func (fs *FileStore) writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fs.cache[path] = data
	return nil
}

func (fs *FileStore) ReadOrders(_ context.Context, riderID string) ([]models.Order, error) {
	data, err := fs.readDocument(fs.ordersPath(riderID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []models.Order{}, nil
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders for rider %s: %w", riderID, err)
	}
	for i := range orders {
		orders[i].RiderID = riderID
	}
	return orders, nil
}

func (fs *FileStore) WriteOrders(_ context.Context, riderID string, orders []models.Order) error {
	return fs.writeDocument(fs.ordersPath(riderID), orders)
}

func (fs *FileStore) ReadIncome(_ context.Context, riderID string) (*models.IncomeDocument, error) {
	data, err := fs.readDocument(fs.incomePath(riderID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &models.IncomeDocument{Withdrawals: []models.Withdrawal{}}, nil
	}

	doc := &models.IncomeDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
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

func (fs *FileStore) WriteIncome(_ context.Context, riderID string, doc *models.IncomeDocument) error {
	return fs.writeDocument(fs.incomePath(riderID), doc)
}
