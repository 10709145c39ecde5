// Package amqp wraps the RabbitMQ connection used to hand payment and
// reminder events to downstream workers. One client owns one queue on a
// shared direct exchange.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"subtrack/internal/services"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishPaymentRecorded implements services.PaymentPublisher for a
// client bound to the payments queue.
func (c *Client) PublishPaymentRecorded(ctx context.Context, ev services.PaymentEvent) error {
	body, err := NewPaymentRecordedMessage(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "published payment event",
		"user_id", ev.UserID,
		"subscription_id", ev.SubscriptionID,
		"queue", c.queueName)
	return nil
}

// PublishReminder implements services.ReminderPublisher for a client
// bound to the reminders queue.
func (c *Client) PublishReminder(ctx context.Context, ev services.ReminderEvent) error {
	body, err := NewReminderMessage(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "published reminder",
		"user_id", ev.UserID,
		"subscription_id", ev.SubscriptionID,
		"days_left", ev.DaysLeft,
		"queue", c.queueName)
	return nil
}

// ConsumePayments delivers payment messages to handler until the
// context ends. A handler error nacks with requeue; an undecodable
// message is dropped.
func (c *Client) ConsumePayments(ctx context.Context, handler func(*PaymentRecordedMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "consuming payment events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := PaymentRecordedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "failed to handle message",
					"error", err,
					"user_id", msg.UserID,
					"subscription_id", msg.SubscriptionID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
