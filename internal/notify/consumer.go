package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads admin status events from RabbitMQ and e-mails the admin.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	mailer Mailer
}

// NewConsumer dials url and declares the exchange, queue and binding.
func NewConsumer(url string, mailer Mailer) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(QueueAdminStatusEmails, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(QueueAdminStatusEmails, RoutingAdminStatusChanged, Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, mailer: mailer}, nil
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, QueueAdminStatusEmails, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := HandleAdminStatusChanged(ctx, c.mailer, d.Body)
	if err == nil {
		d.Ack(false) //nolint:errcheck
		return
	}
	log.Printf("ERROR: admin status e-mail: %v", err)
	// Malformed messages are dropped; send failures are retried once by redelivery.
	d.Nack(false, !d.Redelivered && !isDecodeError(err)) //nolint:errcheck
}

func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		return fmt.Errorf("close rabbitmq channel: %w", err)
	}
	return c.conn.Close()
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return "decode event: " + e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

// HandleAdminStatusChanged decodes one event body and sends its e-mail.
func HandleAdminStatusChanged(ctx context.Context, mailer Mailer, body []byte) error {
	var ev AdminStatusChanged
	if err := json.Unmarshal(body, &ev); err != nil {
		return decodeError{err}
	}
	if ev.Email == "" {
		return decodeError{fmt.Errorf("event for admin %s has no e-mail", ev.AdminID)}
	}
	subject, html, err := RenderAdminStatusEmail(ev)
	if err != nil {
		return err
	}
	if err := mailer.Send(ctx, ev.Email, subject, html); err != nil {
		return fmt.Errorf("send mail to %s: %w", ev.Email, err)
	}
	return nil
}
