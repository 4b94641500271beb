package realtime

import (
	"context"
	"encoding/json"
	"time"

	"campus-eats/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type EventKind int

const (
	// EventConnected is emitted after every successful (re)connection.
	// The reconciler answers it with a full reload: the protocol has no
	// sequence numbers, so a reconnect never implies replay of missed
	// events.
	EventConnected EventKind = iota
	EventOrderStatus
	EventOrderCreated
)

// Event is a decoded realtime message. Status is only meaningful for
// EventOrderStatus.
type Event struct {
	Kind    EventKind
	OrderID string
	Status  domain.Status
}

// Conn is one live subscription to the vendor's event queue.
type Conn interface {
	Deliveries() (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
	Close()
}

// Dialer opens a fresh Conn. Swapped for a fake in tests.
type Dialer func() (Conn, error)

// Channel owns the persistent event connection for one vendor session:
// it dials, consumes, decodes, and reconnects after a fixed delay,
// forever, until its context is cancelled. No backoff and no retry cap;
// a dropped connection must never require user action.
type Channel struct {
	dial   Dialer
	delay  time.Duration
	events chan Event
	log    *zap.Logger
}

func NewChannel(dial Dialer, reconnectDelay time.Duration, log *zap.Logger) *Channel {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	return &Channel{
		dial:   dial,
		delay:  reconnectDelay,
		events: make(chan Event, 64),
		log:    log,
	}
}

// Events is the channel's outbound stream, in transport delivery order.
func (c *Channel) Events() <-chan Event { return c.events }

// Run drives the connect/consume/reconnect loop until ctx is done.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.events)
	for {
		if !c.runOnce(ctx) {
			return
		}
		if !c.sleep(ctx) {
			return
		}
	}
}

// runOnce handles one connection's lifetime. It reports false when the
// loop should stop instead of reconnecting.
func (c *Channel) runOnce(ctx context.Context) bool {
	conn, err := c.dial()
	if err != nil {
		c.log.Warn("realtime dial failed", zap.Error(err))
		return ctx.Err() == nil
	}
	defer conn.Close()

	deliveries, err := conn.Deliveries()
	if err != nil {
		c.log.Warn("realtime consume failed", zap.Error(err))
		return ctx.Err() == nil
	}
	closed := conn.NotifyClose()

	if !c.emit(ctx, Event{Kind: EventConnected}) {
		return false
	}
	c.log.Info("realtime channel open")

	for {
		select {
		case <-ctx.Done():
			return false
		case amqpErr := <-closed:
			c.log.Warn("realtime connection lost", zap.Error(amqpErr))
			return true
		case msg, ok := <-deliveries:
			if !ok {
				c.log.Warn("realtime delivery stream closed")
				return true
			}
			if !c.decode(ctx, msg.Body) {
				return false
			}
		}
	}
}

// decode turns one raw message into an outbound event. Pings, unknown
// types, and malformed payloads are dropped, never errors.
func (c *Channel) decode(ctx context.Context, body []byte) bool {
	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.log.Debug("dropping malformed realtime message", zap.Error(err))
		return true
	}

	switch env.Type {
	case domain.EventTypePing:
		return true
	case domain.EventTypeOrderStatus:
		status, ok := env.ResolveStatus()
		if !ok || env.OrderID.String() == "" {
			c.log.Debug("dropping order_status without usable payload")
			return true
		}
		return c.emit(ctx, Event{Kind: EventOrderStatus, OrderID: env.OrderID.String(), Status: status})
	case domain.EventTypeOrderCreated:
		if env.OrderID.String() == "" {
			return true
		}
		return c.emit(ctx, Event{Kind: EventOrderCreated, OrderID: env.OrderID.String()})
	default:
		// Unknown types are expected from newer backends.
		return true
	}
}

func (c *Channel) emit(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Channel) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
