package realtime

import (
	"campus-eats/internal/connections/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpConn adapts one rabbitmq.Client plus its per-session queue to the
// Conn interface.
type amqpConn struct {
	client *rabbitmq.Client
	queue  string
	tag    string
}

func (a *amqpConn) Deliveries() (<-chan amqp.Delivery, error) {
	return a.client.Consume(a.queue, a.tag)
}

func (a *amqpConn) NotifyClose() <-chan *amqp.Error { return a.client.NotifyClose() }

func (a *amqpConn) Close() { a.client.Close() }

// AMQPDialer builds the production dialer: a fresh connection, the
// event topology, and an exclusive queue bound for this vendor.
func AMQPDialer(cfg rabbitmq.Config, exchange, actorID string) Dialer {
	return func() (Conn, error) {
		client, err := rabbitmq.Dial(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.DeclareEventTopology(exchange); err != nil {
			client.Close()
			return nil, err
		}
		queue, err := client.BindVendorQueue(exchange, actorID)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &amqpConn{client: client, queue: queue, tag: "vendor-console-" + actorID}, nil
	}
}
