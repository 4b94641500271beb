package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("order not found")

// Order is the persisted platform-side shape: status is a backend code,
// never a console status.
type Order struct {
	ID             string
	ActorID        string
	Status         string
	OrderType      string
	TotalAmount    float64
	CustomerName   string
	CustomerEmail  string
	AssignedStaff  string
	VoucherCode    string
	DiscountAmount float64
	DealID         string
	CreatedAt      time.Time
	Items          []Item
}

type Item struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

type OrdersRepositoryInterface interface {
	EnsureSchema(ctx context.Context) error
	ListByActor(ctx context.Context, actorID string, statusCodes []string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID, statusCode string) (actorID string, err error)
	Create(ctx context.Context, o Order) (string, error)
}

type OrdersRepository struct {
	db *sql.DB
}

func NewOrdersRepository(db *sql.DB) *OrdersRepository {
	return &OrdersRepository{db: db}
}

// EnsureSchema creates the simulator tables when missing. This is a
// development harness; real deployments migrate out of band.
func (r *OrdersRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			actor_id TEXT NOT NULL,
			status TEXT NOT NULL,
			order_type TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL DEFAULT '',
			assigned_staff TEXT NOT NULL DEFAULT '',
			voucher_code TEXT NOT NULL DEFAULT '',
			discount_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			deal_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			name TEXT NOT NULL,
			quantity INT NOT NULL,
			unit_price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_actor ON orders(actor_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ListByActor returns the vendor's orders, newest first, optionally
// restricted to a set of backend status codes.
func (r *OrdersRepository) ListByActor(ctx context.Context, actorID string, statusCodes []string) ([]Order, error) {
	query := `
SELECT id, actor_id, status, order_type, total_amount, customer_name,
       customer_email, assigned_staff, voucher_code, discount_amount, deal_id, created_at
FROM orders WHERE actor_id = $1`
	args := []any{actorID}
	if len(statusCodes) > 0 {
		placeholders := ""
		for i, code := range statusCodes {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "$" + strconv.Itoa(i+2)
			args = append(args, code)
		}
		query += " AND status IN (" + placeholders + ")"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var id int64
		if err := rows.Scan(&id, &o.ActorID, &o.Status, &o.OrderType, &o.TotalAmount,
			&o.CustomerName, &o.CustomerEmail, &o.AssignedStaff,
			&o.VoucherCode, &o.DiscountAmount, &o.DealID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.ID = strconv.FormatInt(id, 10)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *OrdersRepository) listItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateStatus writes the new backend code and returns the owning actor
// so the caller can route the realtime event.
func (r *OrdersRepository) UpdateStatus(ctx context.Context, orderID, statusCode string) (string, error) {
	var actorID string
	err := r.db.QueryRowContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING actor_id`,
		statusCode, orderID).Scan(&actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}
	return actorID, nil
}

// Create inserts an order with its items in one transaction and
// returns the assigned id.
func (r *OrdersRepository) Create(ctx context.Context, o Order) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO orders
    (actor_id, status, order_type, total_amount, customer_name, customer_email,
     assigned_staff, voucher_code, discount_amount, deal_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING id`,
		o.ActorID, o.Status, o.OrderType, o.TotalAmount, o.CustomerName, o.CustomerEmail,
		o.AssignedStaff, o.VoucherCode, o.DiscountAmount, o.DealID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, name, quantity, unit_price) VALUES ($1, $2, $3, $4)`,
			id, it.Name, it.Quantity, it.UnitPrice); err != nil {
			return "", fmt.Errorf("insert item %s: %w", it.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
