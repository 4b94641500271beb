package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-eats/internal/domain"
	"campus-eats/internal/realtime"
	"campus-eats/internal/store"

	"go.uber.org/zap"
)

var (
	ErrUnknownOrder      = errors.New("unknown order")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrDisposed          = errors.New("engine disposed")
)

// StatusAPI is the status-update collaborator endpoint.
type StatusAPI interface {
	UpdateStatus(ctx context.Context, orderID string, target domain.Status) error
}

// BulkLoader fetches and normalizes the vendor's full order list.
type BulkLoader interface {
	Load(ctx context.Context, actorID string, filter domain.Status) ([]domain.Order, error)
}

// EventSource is the realtime channel as the engine sees it.
type EventSource interface {
	Run(ctx context.Context)
	Events() <-chan realtime.Event
}

type Config struct {
	ActorID string
	// ConfirmWindow bounds how long an optimistic status may live
	// without server confirmation before it is reverted.
	ConfirmWindow time.Duration
	// RequestTimeout applies to the outbound REST calls.
	RequestTimeout time.Duration
}

// pendingOp tracks one optimistic transition awaiting confirmation.
// prev is the last authoritative status, the value restored if the
// window expires.
type pendingOp struct {
	prev     domain.Status
	target   domain.Status
	deadline time.Time
}

// Engine is the reconciler: it owns the order store for one vendor
// session and is the only component that mutates it. Local transition
// requests are applied optimistically, pushed events authoritatively,
// and every mutation runs on the single loop goroutine so the two
// streams interleave but never race. Conflicts resolve last-applied-
// wins; there is no sequencing on the wire to do better.
type Engine struct {
	cfg    Config
	store  *store.Store
	loader BulkLoader
	api    StatusAPI
	source EventSource
	log    *zap.Logger

	cmds chan func()
	errs chan error
	done chan struct{}

	cancel  context.CancelFunc
	once    sync.Once
	stopped sync.Once

	// Loop-owned state. Touched only from run().
	pending map[string]pendingOp
	loopCtx context.Context

	// filter is written by the loop, read by Snapshot callers.
	filterMu sync.RWMutex
	filter   domain.Status
}

func New(cfg Config, st *store.Store, loader BulkLoader, api StatusAPI, source EventSource, log *zap.Logger) *Engine {
	if cfg.ConfirmWindow <= 0 {
		cfg.ConfirmWindow = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		loader:  loader,
		api:     api,
		source:  source,
		log:     log,
		cmds:    make(chan func(), 32),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
		pending: make(map[string]pendingOp),
	}
}

// Subscribe starts the loop, the realtime channel, and the initial bulk
// load. The engine stops when ctx is cancelled or Dispose is called.
func (e *Engine) Subscribe(ctx context.Context) {
	e.once.Do(func() {
		ctx, e.cancel = context.WithCancel(ctx)
		go e.run(ctx)
		go e.source.Run(ctx)
		e.enqueue(func() { e.startLoad(ctx, false) })
	})
}

// Store exposes the live collection for read-only use by the UI.
func (e *Engine) Store() *store.Store { return e.store }

// Snapshot returns the store contents under the active status filter,
// newest first.
func (e *Engine) Snapshot() []domain.Order {
	e.filterMu.RLock()
	filter := e.filter
	e.filterMu.RUnlock()
	if filter == "" {
		return e.store.List(nil)
	}
	return e.store.List(func(o domain.Order) bool { return o.Status == filter })
}

// Errors surfaces non-fatal failures (failed transition calls, failed
// reloads, expired optimistic updates) to the UI. Never blocks the
// engine; slow consumers lose messages, not correctness.
func (e *Engine) Errors() <-chan error { return e.errs }

// Dispose tears the engine down. In-flight loads that resolve
// afterwards are discarded because the loop no longer consumes.
func (e *Engine) Dispose() {
	e.stopped.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
}

// RequestTransition validates and applies a vendor-initiated status
// change. Illegal requests are rejected with no store mutation and no
// network call. Legal ones are applied optimistically before the REST
// call resolves; a failed call surfaces an error but is not rolled
// back here — the confirmation window or the next authoritative event
// corrects the display.
func (e *Engine) RequestTransition(orderID string, target domain.Status) error {
	reply := make(chan error, 1)
	if !e.enqueue(func() { reply <- e.transition(orderID, target) }) {
		return ErrDisposed
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrDisposed
	}
}

// SetStatusFilter changes the active view filter and re-triggers the
// bulk loader. An empty filter shows everything.
func (e *Engine) SetStatusFilter(filter domain.Status) error {
	if filter != "" && !filter.IsValid() {
		return fmt.Errorf("invalid status filter %q", filter)
	}
	if !e.enqueue(func() { e.setFilter(filter) }) {
		return ErrDisposed
	}
	return nil
}

// Refresh is the manual, user-triggered reload.
func (e *Engine) Refresh() error {
	if !e.enqueue(func() { e.startLoad(e.loopCtx, false) }) {
		return ErrDisposed
	}
	return nil
}

// enqueue hands a command to the loop; reports false once disposed.
func (e *Engine) enqueue(cmd func()) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.cmds <- cmd:
		return true
	case <-e.done:
		return false
	}
}

// run is the single writer. Commands, realtime events, and the
// confirmation ticker all mutate the store from here and nowhere else.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	e.loopCtx = ctx

	interval := e.cfg.ConfirmWindow / 4
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := e.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			cmd()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ctx, ev)
		case now := <-ticker.C:
			e.expirePending(now)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev realtime.Event) {
	switch ev.Kind {
	case realtime.EventConnected:
		// No replay of events missed while disconnected; a full reload
		// after every (re)connection is the consistency backstop.
		e.startLoad(ctx, false)
	case realtime.EventOrderStatus:
		e.applyAuthoritative(ev.OrderID, ev.Status)
	case realtime.EventOrderCreated:
		// The push carries only an identifier; fetch the full record.
		if _, ok := e.store.Get(ev.OrderID); !ok {
			e.startLoad(ctx, false)
		}
	}
}

// transition runs on the loop goroutine.
func (e *Engine) transition(orderID string, target domain.Status) error {
	cur, ok := e.store.Get(orderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if !domain.CanTransition(cur.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cur.Status, target)
	}

	// Optimistic apply: the console shows the requested status right
	// away. prev stays anchored to the last authoritative status even
	// when transitions chain before confirmation.
	prev := cur.Status
	if p, exists := e.pending[orderID]; exists {
		prev = p.prev
	}
	e.store.PatchStatus(orderID, target)
	e.pending[orderID] = pendingOp{prev: prev, target: target, deadline: time.Now().Add(e.cfg.ConfirmWindow)}
	e.log.Info("optimistic transition applied",
		zap.String("order_id", orderID),
		zap.String("from", cur.Status.String()),
		zap.String("to", target.String()))

	go e.pushTransition(orderID, target)
	return nil
}

// pushTransition issues the REST call off-loop. An accepted request
// counts as confirmation; a failed one is surfaced and left to the
// confirmation window.
func (e *Engine) pushTransition(orderID string, target domain.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	if err := e.api.UpdateStatus(ctx, orderID, target); err != nil {
		e.log.Error("transition request failed",
			zap.String("order_id", orderID),
			zap.String("target", target.String()),
			zap.Error(err))
		e.surface(fmt.Errorf("transition %s -> %s: %w", orderID, target, err))
		return
	}
	e.enqueue(func() {
		if p, ok := e.pending[orderID]; ok && p.target == target {
			delete(e.pending, orderID)
		}
	})
}

// applyAuthoritative applies a pushed status as truth, overwriting any
// optimistic value. Terminal orders accept only a push that itself
// reports a terminal status; anything else is a late event and is
// logged, not applied.
func (e *Engine) applyAuthoritative(orderID string, status domain.Status) {
	if cur, ok := e.store.Get(orderID); ok && cur.Status.IsTerminal() && !status.IsTerminal() {
		e.log.Info("ignoring event for terminal order",
			zap.String("order_id", orderID),
			zap.String("current", cur.Status.String()),
			zap.String("pushed", status.String()))
		return
	}
	e.store.PatchStatus(orderID, status)
	delete(e.pending, orderID)
}

func (e *Engine) setFilter(filter domain.Status) {
	e.filterMu.Lock()
	e.filter = filter
	e.filterMu.Unlock()
	e.startLoad(e.loopCtx, true)
}

// startLoad kicks off an async bulk load. Runs on the loop goroutine;
// the fetch itself runs off-loop and its result is re-enqueued, so a
// push landing mid-fetch is still serialized correctly.
func (e *Engine) startLoad(ctx context.Context, prune bool) {
	e.filterMu.RLock()
	filter := e.filter
	e.filterMu.RUnlock()

	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()

		orders, err := e.loader.Load(loadCtx, e.cfg.ActorID, filter)
		if err != nil {
			// Existing store contents stay untouched; manual refresh is
			// the recovery path.
			e.log.Error("bulk load failed", zap.Error(err))
			e.surface(err)
			return
		}
		e.enqueue(func() { e.applyLoad(orders, filter, prune) })
	}()
}

// applyLoad upserts a fetched list as authoritative state. On filter
// change the store is additionally pruned to the new view.
func (e *Engine) applyLoad(orders []domain.Order, filter domain.Status, prune bool) {
	for _, o := range orders {
		e.store.Upsert(o)
		delete(e.pending, o.ID)
	}
	if prune {
		e.store.Prune(func(o domain.Order) bool {
			return filter == "" || o.Status == filter
		})
	}
	e.log.Debug("bulk load applied", zap.Int("count", len(orders)))
}

// expirePending reverts optimistic updates that outlived the
// confirmation window, restoring the last authoritative status.
func (e *Engine) expirePending(now time.Time) {
	for id, p := range e.pending {
		if now.Before(p.deadline) {
			continue
		}
		e.store.PatchStatus(id, p.prev)
		delete(e.pending, id)
		e.log.Warn("optimistic transition unconfirmed, reverted",
			zap.String("order_id", id),
			zap.String("target", p.target.String()),
			zap.String("reverted_to", p.prev.String()))
		e.surface(fmt.Errorf("order %s: transition to %s unconfirmed, reverted to %s", id, p.target, p.prev))
	}
}

// surface reports a non-fatal error to the UI without ever blocking.
func (e *Engine) surface(err error) {
	select {
	case e.errs <- err:
	default:
		e.log.Debug("error channel full, dropping", zap.Error(err))
	}
}
