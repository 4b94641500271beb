package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-eats/internal/domain"
	"campus-eats/internal/realtime"
	"campus-eats/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLoader struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
	loads  int
	filter domain.Status
}

func (s *stubLoader) Load(ctx context.Context, actorID string, filter domain.Status) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *stubLoader) set(orders ...domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
}

func (s *stubLoader) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type stubAPI struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *stubAPI) UpdateStatus(ctx context.Context, orderID string, target domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderID+":"+target.String())
	return s.err
}

func (s *stubAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubSource struct {
	events chan realtime.Event
}

func newStubSource() *stubSource {
	return &stubSource{events: make(chan realtime.Event, 16)}
}

func (s *stubSource) Run(ctx context.Context)       { <-ctx.Done() }
func (s *stubSource) Events() <-chan realtime.Event { return s.events }
func (s *stubSource) push(ev realtime.Event)        { s.events <- ev }

func testOrder(id string, status domain.Status) domain.Order {
	return domain.Order{
		ID:           id,
		Status:       status,
		Fulfillment:  domain.FulfillmentPickup,
		Items:        []domain.LineItem{{Name: "Nasi Lemak", Quantity: 1, UnitPrice: 4.8}},
		TotalAmount:  4.8,
		CustomerName: "Mei Lin",
		CreatedAt:    time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	engine *Engine
	store  *store.Store
	loader *stubLoader
	api    *stubAPI
	source *stubSource
}

func newFixture(t *testing.T, window time.Duration, orders ...domain.Order) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.New(zap.NewNop()),
		loader: &stubLoader{},
		api:    &stubAPI{},
		source: newStubSource(),
	}
	f.loader.set(orders...)
	f.engine = New(Config{ActorID: "vendor-9", ConfirmWindow: window}, f.store, f.loader, f.api, f.source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(f.engine.Dispose)
	f.engine.Subscribe(ctx)
	return f
}

func (f *fixture) waitForOrder(t *testing.T, id string, status domain.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		o, ok := f.store.Get(id)
		return ok && o.Status == status
	}, 2*time.Second, 5*time.Millisecond, "order %s never reached %s", id, status)
}

// Scenario A: initial load normalizes and populates an empty store.
func TestInitialLoadPopulatesStore(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))

	f.waitForOrder(t, "41", domain.StatusPending)
	got, _ := f.store.Get("41")
	assert.Equal(t, "Mei Lin", got.CustomerName)
	assert.Equal(t, "Nasi Lemak", got.Items[0].Name)
}

// Scenario B: optimistic apply is immediate; a later push overwrites it.
func TestOptimisticThenAuthoritative(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	require.NoError(t, f.engine.RequestTransition("41", domain.StatusPreparing))

	// Store reflects the requested status before any network response.
	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusPreparing, got.Status)

	// The authoritative push is always treated as truth.
	f.source.push(realtime.Event{Kind: realtime.EventOrderStatus, OrderID: "41", Status: domain.StatusReady})
	f.waitForOrder(t, "41", domain.StatusReady)
}

// Scenario C: illegal transitions are rejected locally.
func TestIllegalTransitionRejected(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusCompleted))
	f.waitForOrder(t, "41", domain.StatusCompleted)

	err := f.engine.RequestTransition("41", domain.StatusReady)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 0, f.api.callCount())
}

func TestSkippingAheadRejected(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	assert.ErrorIs(t, f.engine.RequestTransition("41", domain.StatusCompleted), ErrIllegalTransition)
	assert.ErrorIs(t, f.engine.RequestTransition("999", domain.StatusPreparing), ErrUnknownOrder)
	assert.Equal(t, 0, f.api.callCount())
}

// Scenario D: order_created for an id the store lacks triggers a refetch
// that brings in the full record.
func TestOrderCreatedTriggersReload(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	newOrder := testOrder("42", domain.StatusPending)
	newOrder.CustomerName = "Ravi"
	f.loader.set(testOrder("41", domain.StatusPending), newOrder)

	f.source.push(realtime.Event{Kind: realtime.EventOrderCreated, OrderID: "42"})

	f.waitForOrder(t, "42", domain.StatusPending)
	got, _ := f.store.Get("42")
	assert.Equal(t, "Ravi", got.CustomerName)
	assert.Equal(t, 4.8, got.TotalAmount)
}

func TestOrderCreatedForKnownOrderDoesNotReload(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)
	before := f.loader.loadCount()

	f.source.push(realtime.Event{Kind: realtime.EventOrderCreated, OrderID: "41"})

	// Give the loop a moment; no reload should start.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, f.loader.loadCount())
}

// Reconnection closes the missed-event gap with a full reload.
func TestReconnectTriggersReload(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)
	before := f.loader.loadCount()

	f.loader.set(testOrder("41", domain.StatusReady))
	f.source.push(realtime.Event{Kind: realtime.EventConnected})

	f.waitForOrder(t, "41", domain.StatusReady)
	assert.Greater(t, f.loader.loadCount(), before)
}

func TestPushIdempotence(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	ev := realtime.Event{Kind: realtime.EventOrderStatus, OrderID: "41", Status: domain.StatusPreparing}
	f.source.push(ev)
	f.waitForOrder(t, "41", domain.StatusPreparing)
	snapshot := f.store.List(nil)

	f.source.push(ev)
	f.waitForOrder(t, "41", domain.StatusPreparing)
	assert.Equal(t, snapshot, f.store.List(nil))
}

// Terminal orders ignore late non-terminal events but accept a terminal
// overwrite.
func TestTerminalOrdersIgnoreLateEvents(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusCompleted))
	f.waitForOrder(t, "41", domain.StatusCompleted)

	f.source.push(realtime.Event{Kind: realtime.EventOrderStatus, OrderID: "41", Status: domain.StatusPreparing})
	time.Sleep(50 * time.Millisecond)
	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusCompleted, got.Status)

	f.source.push(realtime.Event{Kind: realtime.EventOrderStatus, OrderID: "41", Status: domain.StatusCancelled})
	f.waitForOrder(t, "41", domain.StatusCancelled)
}

// A failed transition call is surfaced but not rolled back immediately;
// the confirmation window reverts it to the last authoritative status.
func TestUnconfirmedOptimisticUpdateReverts(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)
	f.api.err = errors.New("backend rejected it")

	require.NoError(t, f.engine.RequestTransition("41", domain.StatusPreparing))
	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusPreparing, got.Status)

	// Failure surfaced to the UI.
	select {
	case err := <-f.engine.Errors():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error surfaced")
	}

	f.waitForOrder(t, "41", domain.StatusPending)
}

func TestConfirmedOptimisticUpdateSticks(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	require.NoError(t, f.engine.RequestTransition("41", domain.StatusPreparing))

	// The accepted REST call counts as confirmation; no revert follows.
	time.Sleep(300 * time.Millisecond)
	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusPreparing, got.Status)
}

func TestAuthoritativePushClearsPending(t *testing.T) {
	f := newFixture(t, 150*time.Millisecond, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)
	f.api.err = errors.New("timeout")

	require.NoError(t, f.engine.RequestTransition("41", domain.StatusPreparing))
	f.source.push(realtime.Event{Kind: realtime.EventOrderStatus, OrderID: "41", Status: domain.StatusPreparing})

	// Confirmed by push: the revert window must not undo it.
	time.Sleep(400 * time.Millisecond)
	got, _ := f.store.Get("41")
	assert.Equal(t, domain.StatusPreparing, got.Status)
}

func TestSetStatusFilterReloadsAndPrunes(t *testing.T) {
	f := newFixture(t, time.Minute,
		testOrder("41", domain.StatusPending),
		testOrder("42", domain.StatusReady))
	f.waitForOrder(t, "41", domain.StatusPending)
	f.waitForOrder(t, "42", domain.StatusReady)

	f.loader.set(testOrder("42", domain.StatusReady))
	require.NoError(t, f.engine.SetStatusFilter(domain.StatusReady))

	require.Eventually(t, func() bool {
		_, gone := f.store.Get("41")
		return !gone && f.store.Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Error(t, f.engine.SetStatusFilter(domain.Status("nonsense")))
}

func TestLoadFailureKeepsLastKnownGood(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	f.loader.mu.Lock()
	f.loader.err = errors.New("connection refused")
	f.loader.mu.Unlock()

	require.NoError(t, f.engine.Refresh())

	select {
	case err := <-f.engine.Errors():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error surfaced")
	}

	// Store untouched.
	got, ok := f.store.Get("41")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestSnapshotHonorsFilter(t *testing.T) {
	f := newFixture(t, time.Minute,
		testOrder("41", domain.StatusPending),
		testOrder("42", domain.StatusReady))
	f.waitForOrder(t, "42", domain.StatusReady)

	all := f.engine.Snapshot()
	assert.Len(t, all, 2)

	require.NoError(t, f.engine.SetStatusFilter(domain.StatusReady))
	require.Eventually(t, func() bool {
		snap := f.engine.Snapshot()
		return len(snap) == 1 && snap[0].ID == "42"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDispose(t *testing.T) {
	f := newFixture(t, time.Minute, testOrder("41", domain.StatusPending))
	f.waitForOrder(t, "41", domain.StatusPending)

	f.engine.Dispose()

	require.Eventually(t, func() bool {
		return f.engine.RequestTransition("41", domain.StatusPreparing) == ErrDisposed
	}, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, f.engine.Refresh(), ErrDisposed)
	assert.ErrorIs(t, f.engine.SetStatusFilter(""), ErrDisposed)
}
