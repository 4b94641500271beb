package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campus-eats/internal/domain"
)

// Record is the raw order shape returned by the platform's listing
// endpoint. Status is the backend code; the bulk loader translates it.
type Record struct {
	ID             json.Number  `json:"id"`
	Status         string       `json:"status"`
	OrderType      string       `json:"order_type"`
	Items          []ItemRecord `json:"items"`
	TotalAmount    float64      `json:"total_amount"`
	CustomerName   string       `json:"customer_name"`
	CustomerEmail  string       `json:"customer_email,omitempty"`
	AssignedStaff  string       `json:"assigned_staff,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	VoucherCode    string       `json:"voucher_code,omitempty"`
	DiscountAmount float64      `json:"discount_amount,omitempty"`
	DealID         string       `json:"deal_id,omitempty"`
}

type ItemRecord struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Client talks to the order endpoints of the campus platform.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListOrders fetches the vendor's current order list, optionally
// filtered by console status.
func (c *Client) ListOrders(ctx context.Context, actorID string, statusFilter domain.Status) ([]Record, error) {
	q := url.Values{"actor": {actorID}}
	if statusFilter != "" {
		q.Set("status", statusFilter.String())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list orders: unexpected status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("list orders: decode: %w", err)
	}
	return records, nil
}

// UpdateStatus requests a status change for one order. Only the HTTP
// status of the response matters; the body is drained and discarded.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, target domain.Status) error {
	body, err := json.Marshal(map[string]string{"status": target.String()})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/api/v1/orders/%s/status", c.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update status: unexpected status %d", resp.StatusCode)
	}
	return nil
}
