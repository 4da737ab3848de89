package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dlqSuffix = ".dlq"

// HandlerFunc processes one decoded message body. A nil return acks the
// message; any error (or a panic) nacks it without requeue, which the
// dead-letter binding routes to the queue's DLQ.
type HandlerFunc func(ctx context.Context, message string) error

// Consumer pulls from one durable queue over a dedicated long-lived channel,
// one message at a time (prefetch 1), with manual acknowledgment.
type Consumer struct {
	channels ChannelProvider
	settings Settings
	logger   *zap.Logger

	mu   sync.Mutex
	ch   Channel
	tag  string
	done chan struct{}
}

func NewConsumer(channels ChannelProvider, settings Settings, logger *zap.Logger) *Consumer {
	return &Consumer{
		channels: channels,
		settings: settings,
		logger:   logger,
	}
}

// StartConsuming declares the queue topology and starts the delivery loop in
// the background. The queue's sibling DLQ is declared alongside it unless the
// queue is itself a DLQ, which stays terminal.
func (c *Consumer) StartConsuming(ctx context.Context, queueName string, handler HandlerFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		return fmt.Errorf("consumer for queue %q already started", queueName)
	}

	ch, err := c.channels.Channel(ctx)
	if err != nil {
		return fmt.Errorf("start consuming %q: %w", queueName, err)
	}

	if err := c.declareTopology(ch, queueName); err != nil {
		_ = ch.Close()
		return err
	}

	// One unacked message at a time: simple ordering and back-pressure
	// within the queue, throughput scales by adding queues.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("start consuming %q: set qos: %w", queueName, err)
	}

	tag := fmt.Sprintf("%s-%s", queueName, uuid.NewString())
	deliveries, err := ch.Consume(queueName, tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("start consuming %q: %w", queueName, err)
	}

	c.ch = ch
	c.tag = tag
	c.done = make(chan struct{})

	go c.loop(ctx, queueName, deliveries, handler)

	mylogger.Info(ctx, c.logger, "Consumer started", zap.String("queue", queueName))
	return nil
}

func (c *Consumer) declareTopology(ch Channel, queueName string) error {
	if err := ch.ExchangeDeclare(c.settings.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", c.settings.Exchange, err)
	}

	if strings.HasSuffix(queueName, dlqSuffix) {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %q: %w", queueName, err)
		}
	} else {
		// Rejected messages dead-letter through the default exchange
		// straight into the sibling DLQ.
		args := amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queueName + dlqSuffix,
		}
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare queue %q: %w", queueName, err)
		}
		if _, err := ch.QueueDeclare(queueName+dlqSuffix, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlq for %q: %w", queueName, err)
		}
	}

	routingKey := strings.TrimPrefix(queueName, c.settings.QueuePrefix)
	if err := ch.QueueBind(queueName, routingKey, c.settings.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to %q: %w", queueName, routingKey, err)
	}

	return nil
}

func (c *Consumer) loop(ctx context.Context, queueName string, deliveries <-chan amqp.Delivery, handler HandlerFunc) {
	defer close(c.done)

	for delivery := range deliveries {
		c.handle(ctx, queueName, delivery, handler)
	}
}

func (c *Consumer) handle(ctx context.Context, queueName string, delivery amqp.Delivery, handler HandlerFunc) {
	mylogger.Debug(
		ctx,
		c.logger,
		"Message received",
		zap.String("queue", queueName),
		zap.Uint64("delivery_tag", delivery.DeliveryTag),
		zap.Int("size_bytes", len(delivery.Body)),
	)

	err := c.invoke(ctx, delivery, handler)
	if err != nil {
		// Shutdown is not a poison message: a handler interrupted by the
		// consumer's own context going away gets its delivery requeued for
		// the next process instead of dead-lettered.
		if ctx.Err() != nil {
			mylogger.Warn(
				ctx,
				c.logger,
				"Handler interrupted by shutdown, requeueing message",
				zap.String("queue", queueName),
				zap.Uint64("delivery_tag", delivery.DeliveryTag),
				zap.Error(err),
			)

			if nackErr := delivery.Nack(false, true); nackErr != nil {
				mylogger.Error(ctx, c.logger, "Failed to requeue message", zap.Error(nackErr))
			}
			return
		}

		mylogger.Error(
			ctx,
			c.logger,
			"Failed to process message, sending to DLQ",
			zap.String("queue", queueName),
			zap.Uint64("delivery_tag", delivery.DeliveryTag),
			zap.Error(err),
		)

		if nackErr := delivery.Nack(false, false); nackErr != nil {
			mylogger.Error(ctx, c.logger, "Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		mylogger.Error(ctx, c.logger, "Failed to ack message", zap.Error(ackErr))
	}
}

func (c *Consumer) invoke(ctx context.Context, delivery amqp.Delivery, handler HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, string(delivery.Body))
}

// StopConsuming cancels the subscription and closes the channel. Safe to call
// before StartConsuming ever succeeded, and safe to call twice.
func (c *Consumer) StopConsuming() {
	c.mu.Lock()
	ch, tag, done := c.ch, c.tag, c.done
	c.ch, c.tag, c.done = nil, "", nil
	c.mu.Unlock()

	if ch == nil {
		return
	}

	if err := ch.Cancel(tag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer", zap.String("tag", tag), zap.Error(err))
	}
	if err := ch.Close(); err != nil {
		c.logger.Warn("Failed to close consumer channel", zap.Error(err))
	}

	if done != nil {
		<-done
	}
}
