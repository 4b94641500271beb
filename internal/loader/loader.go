package loader

import (
	"context"
	"fmt"

	"campus-eats/internal/domain"
	"campus-eats/internal/orderapi"

	"go.uber.org/zap"
)

// Lister is the slice of the platform client the loader needs.
type Lister interface {
	ListOrders(ctx context.Context, actorID string, statusFilter domain.Status) ([]orderapi.Record, error)
}

// Loader performs the full fetch of a vendor's order list and
// normalizes backend status codes into console statuses. It never
// writes to the store; the engine loop applies the result so that all
// mutation stays on one goroutine.
type Loader struct {
	api Lister
	log *zap.Logger
}

func New(api Lister, log *zap.Logger) *Loader {
	return &Loader{api: api, log: log}
}

// Load fetches and normalizes the current order list. On transport
// failure the caller keeps whatever it already has; there is no retry
// here — manual refresh is the recovery path.
func (l *Loader) Load(ctx context.Context, actorID string, filter domain.Status) ([]domain.Order, error) {
	records, err := l.api.ListOrders(ctx, actorID, filter)
	if err != nil {
		return nil, fmt.Errorf("bulk load: %w", err)
	}

	orders := make([]domain.Order, 0, len(records))
	for _, r := range records {
		orders = append(orders, normalize(r))
	}
	l.log.Debug("bulk load complete",
		zap.String("actor_id", actorID),
		zap.String("filter", filter.String()),
		zap.Int("count", len(orders)))
	return orders, nil
}

func normalize(r orderapi.Record) domain.Order {
	o := domain.Order{
		ID:            r.ID.String(),
		Status:        domain.MapBackendStatus(r.Status),
		Fulfillment:   domain.Fulfillment(r.OrderType),
		TotalAmount:   r.TotalAmount,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		AssignedStaff: r.AssignedStaff,
		CreatedAt:     r.CreatedAt,
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, domain.LineItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	if r.VoucherCode != "" || r.DealID != "" || r.DiscountAmount != 0 {
		o.Promo = &domain.Promo{
			VoucherCode:    r.VoucherCode,
			DiscountAmount: r.DiscountAmount,
			DealID:         r.DealID,
		}
	}
	return o
}
