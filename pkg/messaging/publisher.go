package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const confirmTimeout = 5 * time.Second

// Publisher sends events through the shared direct exchange with publisher
// confirms and mandatory routing. Every publish runs on its own short-lived
// channel: channels are not safe for concurrent reuse, so the channel-open
// cost is paid instead of racing channel state across publishes.
type Publisher struct {
	channels ChannelProvider
	settings Settings
	logger   *zap.Logger
}

func NewPublisher(channels ChannelProvider, settings Settings, logger *zap.Logger) *Publisher {
	return &Publisher{
		channels: channels,
		settings: settings,
		logger:   logger,
	}
}

// Publish routes the event by the snake_case form of its discriminator.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	return p.PublishTo(ctx, event, ToRoutingKey(event.EventType()))
}

// PublishTo publishes the event with an explicit routing key. The call only
// returns nil once the broker confirmed the message and did not return it as
// unroutable; callers must not assume delivery on error.
func (p *Publisher) PublishTo(ctx context.Context, event Event, routingKey string) error {
	eventType := event.EventType()

	ch, err := p.channels.Channel(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			mylogger.Warn(ctx, p.logger, "Failed to close publish channel", zap.Error(err))
		}
	}()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("publish %s: enable confirms: %w", eventType, err)
	}

	if err := ch.ExchangeDeclare(p.settings.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("publish %s: declare exchange %q: %w", eventType, p.settings.Exchange, err)
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish %s: marshal body: %w", eventType, err)
	}

	messageID := uuid.NewString()
	err = ch.PublishWithContext(ctx, p.settings.Exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		Type:          eventType,
		MessageId:     messageID,
		CorrelationId: messageID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	select {
	case ret := <-returns:
		return fmt.Errorf("publish %s: message returned by broker: %d %s", eventType, ret.ReplyCode, ret.ReplyText)
	case confirmation := <-confirms:
		if !confirmation.Ack {
			return fmt.Errorf("publish %s: broker nacked the message", eventType)
		}
	case <-time.After(confirmTimeout):
		return fmt.Errorf("publish %s: confirm not received within %s", eventType, confirmTimeout)
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", eventType, ctx.Err())
	}

	// A mandatory return is delivered before its confirm; drain it so an
	// unroutable message never passes as a success.
	select {
	case ret := <-returns:
		return fmt.Errorf("publish %s: message returned by broker: %d %s", eventType, ret.ReplyCode, ret.ReplyText)
	default:
	}

	mylogger.Info(
		ctx,
		p.logger,
		"Event published",
		zap.String("event_type", eventType),
		zap.String("routing_key", routingKey),
		zap.Int("size_bytes", len(body)),
	)

	return nil
}
