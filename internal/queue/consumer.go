package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
)

// errPoison marks deliveries that can never succeed (bad payload).
var errPoison = errors.New("unprocessable mail job")

// Consumer drains the mail queue and delivers each job with Sender.
type Consumer struct {
	URL    string
	Queue  string
	Sender mail.Sender
	Log    logging.Logger
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn(ctx, "mail consumer: dial failed", "err", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn(ctx, "mail consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.Log.Warn(ctx, "mail consumer: set QoS failed", "err", err)
	}
	if err := declare(ch, c.Queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := c.handle(ctx, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errPoison):
				c.Log.Error(ctx, "mail consumer: dropping message", "err", err)
				_ = d.Nack(false, false)
			default:
				// transport failure: requeue once, then give up to avoid tight loops
				c.Log.Warn(ctx, "mail consumer: delivery failed", "err", err, "redelivered", d.Redelivered)
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

// handle decodes one job and delivers it.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var job MailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", errPoison, err)
	}
	if job.Message.To == "" {
		return fmt.Errorf("%w: missing recipient", errPoison)
	}
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := c.Sender.Send(sendCtx, job.Message); err != nil {
		return err
	}
	c.Log.Info(ctx, "mail consumer: delivered", "subject", job.Message.Subject, "enqueued_at", job.EnqueuedAt)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
