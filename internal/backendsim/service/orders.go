package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campus-eats/internal/backendsim/repository"
	"campus-eats/internal/domain"
	"campus-eats/internal/orderapi"

	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrValidation = errors.New("invalid request")
)

// Publisher is the slice of the rabbitmq client the service needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

type CreateOrderRequest struct {
	ActorID        string                   `json:"actor_id"`
	OrderType      string                   `json:"order_type"`
	CustomerName   string                   `json:"customer_name"`
	CustomerEmail  string                   `json:"customer_email,omitempty"`
	Items          []CreateOrderItem        `json:"items"`
	VoucherCode    string                   `json:"voucher_code,omitempty"`
	DiscountAmount float64                  `json:"discount_amount,omitempty"`
	DealID         string                   `json:"deal_id,omitempty"`
}

type CreateOrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderServiceInterface interface {
	ListOrders(ctx context.Context, actorID string, statusFilter domain.Status) ([]orderapi.Record, error)
	UpdateStatus(ctx context.Context, orderID string, target domain.Status) error
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)
}

// OrderService is the authoritative side of the collaborator contract:
// it persists orders with backend status codes and pushes realtime
// envelopes to the vendor's routing key.
type OrderService struct {
	repo     repository.OrdersRepositoryInterface
	mq       Publisher
	exchange string
	log      *zap.Logger
}

func NewOrderService(repo repository.OrdersRepositoryInterface, mq Publisher, exchange string, log *zap.Logger) *OrderService {
	return &OrderService{repo: repo, mq: mq, exchange: exchange, log: log}
}

func (s *OrderService) ListOrders(ctx context.Context, actorID string, statusFilter domain.Status) ([]orderapi.Record, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	var codes []string
	if statusFilter != "" {
		if !statusFilter.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, statusFilter)
		}
		codes = domain.BackendCodesFor(statusFilter)
	}

	orders, err := s.repo.ListByActor(ctx, actorID, codes)
	if err != nil {
		return nil, err
	}

	records := make([]orderapi.Record, 0, len(orders))
	for _, o := range orders {
		records = append(records, toRecord(o))
	}
	return records, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, target domain.Status) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}

	code := domain.CanonicalBackendCode(target)
	actorID, err := s.repo.UpdateStatus(ctx, orderID, code)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, "vendor."+actorID, domain.Envelope{
		Type:          domain.EventTypeOrderStatus,
		OrderID:       json.Number(orderID),
		Status:        target.String(),
		BackendStatus: code,
	})
	return nil
}

func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	if err := validateCreate(req); err != nil {
		return "", err
	}

	total := -req.DiscountAmount
	items := make([]repository.Item, 0, len(req.Items))
	for _, it := range req.Items {
		total += float64(it.Quantity) * it.UnitPrice
		items = append(items, repository.Item{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	if total < 0 {
		total = 0
	}

	id, err := s.repo.Create(ctx, repository.Order{
		ActorID:        req.ActorID,
		Status:         domain.CanonicalBackendCode(domain.StatusPending),
		OrderType:      req.OrderType,
		TotalAmount:    total,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		VoucherCode:    req.VoucherCode,
		DiscountAmount: req.DiscountAmount,
		DealID:         req.DealID,
		Items:          items,
	})
	if err != nil {
		return "", err
	}

	// The created push intentionally carries only the identifier; the
	// console refetches to get the full record.
	s.publish(ctx, "vendor."+req.ActorID, domain.Envelope{
		Type:    domain.EventTypeOrderCreated,
		OrderID: json.Number(id),
	})
	return id, nil
}

// publish is best effort: a lost event degrades to stale-until-refresh
// on the console, never to a failed request here.
func (s *OrderService) publish(ctx context.Context, key string, env domain.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		s.log.Error("marshal event", zap.Error(err))
		return
	}
	if err := s.mq.Publish(ctx, s.exchange, key, body); err != nil {
		s.log.Error("publish event failed",
			zap.String("routing_key", key),
			zap.String("type", env.Type),
			zap.Error(err))
	}
}

func validateCreate(req CreateOrderRequest) error {
	if req.ActorID == "" {
		return fmt.Errorf("%w: actor_id is required", ErrValidation)
	}
	if req.CustomerName == "" {
		return fmt.Errorf("%w: customer_name is required", ErrValidation)
	}
	if req.OrderType != string(domain.FulfillmentPickup) && req.OrderType != string(domain.FulfillmentDelivery) {
		return fmt.Errorf("%w: order_type must be pickup or delivery", ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: invalid quantity for item %s", ErrValidation, it.Name)
		}
		if it.UnitPrice <= 0 {
			return fmt.Errorf("%w: invalid price for item %s", ErrValidation, it.Name)
		}
	}
	return nil
}

func toRecord(o repository.Order) orderapi.Record {
	rec := orderapi.Record{
		ID:             json.Number(o.ID),
		Status:         o.Status,
		OrderType:      o.OrderType,
		TotalAmount:    o.TotalAmount,
		CustomerName:   o.CustomerName,
		CustomerEmail:  o.CustomerEmail,
		AssignedStaff:  o.AssignedStaff,
		CreatedAt:      o.CreatedAt,
		VoucherCode:    o.VoucherCode,
		DiscountAmount: o.DiscountAmount,
		DealID:         o.DealID,
	}
	for _, it := range o.Items {
		rec.Items = append(rec.Items, orderapi.ItemRecord{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return rec
}
