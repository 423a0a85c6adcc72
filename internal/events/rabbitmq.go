package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	ExchangeName = "fleetstock.events"
	ExchangeType = "topic"

	publishAttempts = 3
)

// RabbitPublisher forwards events to a topic exchange, routed by event type.
type RabbitPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	appID   string
	logger  *zap.Logger
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(url, appID string, logger *zap.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeName,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("publisher connected to exchange", zap.String("exchange", ExchangeName))

	return &RabbitPublisher{conn: conn, channel: ch, appID: appID, logger: logger}, nil
}

// Publish sends the event as persistent JSON, retrying transient failures.
func (p *RabbitPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		AppId:        p.appID,
		MessageId:    evt.ID,
		Timestamp:    evt.Timestamp,
		Type:         string(evt.Type),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	backoff := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = p.channel.PublishWithContext(ctx, ExchangeName, string(evt.Type), false, false, msg)
		if err == nil {
			return nil
		}
		if attempt == publishAttempts {
			return fmt.Errorf("failed to publish %s after %d attempts: %w", evt.Type, attempt, err)
		}

		p.logger.Debug("publish failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
