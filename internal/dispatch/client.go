package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/models"
	"github.com/riderly/riderledger/internal/storage"
)

const pollInterval = 5 * time.Second

// Client polls an external dispatch system for orders newly assigned to
// the rider and appends the ones not yet present to the orders document.
type Client struct {
	address string
	riderID string
	store   storage.Store
	log     *logrus.Logger
	client  *resty.Client
}

func NewClient(address, riderID string, store storage.Store, log *logrus.Logger) *Client {
	return &Client{
		address: address,
		riderID: riderID,
		store:   store,
		log:     log,
		client:  resty.New(),
	}
}

func (c *Client) Start(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	c.log.Info("dispatch client started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("dispatch client stopped")
			return
		case <-ticker.C:
			c.pullOrders(ctx)
		}
	}
}

func (c *Client) pullOrders(ctx context.Context) {
	url := fmt.Sprintf("%s/api/dispatch/%s/orders", c.address, c.riderID)
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		c.log.Errorf("failed to poll dispatch feed: %v", err)
		return
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		var incoming []models.Order
		if err := json.Unmarshal(resp.Body(), &incoming); err != nil {
			c.log.Errorf("failed to unmarshal dispatch feed: %v", err)
			return
		}
		if err := c.appendNew(ctx, incoming); err != nil {
			c.log.Errorf("failed to store dispatched orders: %v", err)
		}
	case http.StatusNoContent:
	case http.StatusTooManyRequests:
		retryAfter := resp.Header().Get("Retry-After")
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			c.log.Warnf("dispatch rate limit hit, sleeping for %d seconds", seconds)
			time.Sleep(time.Duration(seconds) * time.Second)
		}
	default:
		c.log.Warnf("unexpected dispatch feed status %d", resp.StatusCode())
	}
}

func (c *Client) appendNew(ctx context.Context, incoming []models.Order) error {
	if len(incoming) == 0 {
		return nil
	}

	orders, err := c.store.ReadOrders(ctx, c.riderID)
	if err != nil {
		return err
	}

	known := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		known[o.ID] = struct{}{}
	}

	added := 0
	now := time.Now()
	for _, o := range incoming {
		if _, ok := known[o.ID]; ok {
			continue
		}
		o.RiderID = c.riderID
		if o.Status == "" {
			o.Status = models.OrderStatusAssigned
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		orders = append(orders, o)
		added++
	}
	if added == 0 {
		return nil
	}

	if err := c.store.WriteOrders(ctx, c.riderID, orders); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"rider": c.riderID,
		"count": added,
	}).Info("dispatched orders added")
	return nil
}
