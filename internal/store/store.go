package store

import (
	"sort"
	"sync"

	"campus-eats/internal/domain"

	"go.uber.org/zap"
)

// Store is the keyed in-memory order collection for one vendor session.
// It is a dumb container: transition validity is the reconciler's job.
// Writes come from the engine loop only, but reads may arrive from HTTP
// handler goroutines, hence the RWMutex.
type Store struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	log    *zap.Logger
}

func New(log *zap.Logger) *Store {
	return &Store{
		orders: make(map[string]domain.Order),
		log:    log,
	}
}

// Upsert inserts or fully replaces the order with that id. Idempotent.
func (s *Store) Upsert(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// PatchStatus updates only the status of an existing order. Unknown ids
// are a no-op with a diagnostic.
func (s *Store) PatchStatus(id string, status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		s.log.Debug("patch for unknown order", zap.String("order_id", id), zap.String("status", status.String()))
		return
	}
	o.Status = status
	s.orders[id] = o
}

// Get returns the order and whether it exists.
func (s *Store) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// List returns a snapshot of the current orders, newest first,
// optionally filtered. The result shares nothing with the store.
func (s *Store) List(pred func(domain.Order) bool) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if pred == nil || pred(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Prune removes every order the predicate rejects. Used when the active
// view's status filter changes; the engine never deletes orders for any
// other reason.
func (s *Store) Prune(keep func(domain.Order) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if !keep(o) {
			delete(s.orders, id)
		}
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
