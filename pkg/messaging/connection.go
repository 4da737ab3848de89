package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Settings holds the broker connection and topology parameters.
type Settings struct {
	Host        string `yaml:"host" env:"RABBITMQ_HOST" env-default:"localhost"`
	Port        int    `yaml:"port" env:"RABBITMQ_PORT" env-default:"5672"`
	User        string `yaml:"user" env:"RABBITMQ_USER" env-default:"guest"`
	Password    string `yaml:"password" env:"RABBITMQ_PASSWORD" env-default:"guest"`
	VHost       string `yaml:"vhost" env:"RABBITMQ_VHOST" env-default:"/"`
	Exchange    string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"microservices_exchange"`
	QueuePrefix string `yaml:"queue_prefix" env:"RABBITMQ_QUEUE_PREFIX" env-default:"microservices_"`
}

func (s Settings) URL() string {
	vhost := s.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", s.User, s.Password, s.Host, s.Port, vhost)
}

const (
	maxDialAttempts = 5
	dialBackoffUnit = 2 * time.Second
	closeDeadline   = 5 * time.Second
)

var ErrManagerClosed = errors.New("connection manager is closed")

// Channel is the subset of *amqp091.Channel the publisher and consumer use.
// Keeping it an interface lets tests exercise the confirm and DLQ contracts
// without a live broker.
type Channel interface {
	Confirm(noWait bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	NotifyReturn(c chan amqp.Return) chan amqp.Return
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ChannelProvider opens channels on the process-wide broker connection.
type ChannelProvider interface {
	Channel(ctx context.Context) (Channel, error)
}

// ConnectionManager owns the single broker connection of the process.
// The connection is dialed lazily and re-dialed lazily: a closed connection
// is only replaced when the next GetConnection call observes it closed.
type ConnectionManager struct {
	settings Settings
	logger   *zap.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	closed bool
}

func NewConnectionManager(settings Settings, logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		settings: settings,
		logger:   logger,
	}
}

// GetConnection returns the live shared connection, dialing one if needed.
// Safe for concurrent callers; only (re)creation holds the write lock.
func (m *ConnectionManager) GetConnection(ctx context.Context) (*amqp.Connection, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrManagerClosed
	}
	if conn := m.conn; conn != nil && !conn.IsClosed() {
		m.mu.RUnlock()
		return conn, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	// Double-check: another caller may have dialed while we waited.
	if m.conn != nil && !m.conn.IsClosed() {
		return m.conn, nil
	}

	mylogger.Info(ctx, m.logger, "Creating new RabbitMQ connection")

	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		conn, err := amqp.Dial(m.settings.URL())
		if err == nil {
			m.conn = conn
			m.watch(conn)
			mylogger.Info(ctx, m.logger, "RabbitMQ connection established")
			return conn, nil
		}

		lastErr = err
		delay := time.Duration(attempt) * dialBackoffUnit
		mylogger.Warn(
			ctx,
			m.logger,
			"Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", maxDialAttempts, lastErr)
}

// Channel opens a fresh channel on the shared connection.
func (m *ConnectionManager) Channel(ctx context.Context) (Channel, error) {
	conn, err := m.GetConnection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// watch logs shutdown and blocked notifications. These are observability
// signals only; reconnection stays lazy.
func (m *ConnectionManager) watch(conn *amqp.Connection) {
	closes := conn.NotifyClose(make(chan *amqp.Error, 1))
	blocks := conn.NotifyBlocked(make(chan amqp.Blocking, 1))

	go func() {
		for {
			select {
			case err, ok := <-closes:
				if !ok {
					return
				}
				if err != nil {
					m.logger.Warn("RabbitMQ connection was shut down", zap.String("reason", err.Reason))
				}
			case b, ok := <-blocks:
				if !ok {
					return
				}
				if b.Active {
					m.logger.Warn("RabbitMQ connection is blocked", zap.String("reason", b.Reason))
				} else {
					m.logger.Info("RabbitMQ connection unblocked")
				}
			}
		}
	}()
}

// Close shuts the connection down. Idempotent; meant to run once at process
// shutdown, after every consumer has stopped.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.conn == nil || m.conn.IsClosed() {
		m.conn = nil
		return nil
	}

	// CloseDeadline bounds shutdown latency when the broker is unresponsive.
	err := m.conn.CloseDeadline(time.Now().Add(closeDeadline))
	m.conn = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		m.logger.Warn("Error closing RabbitMQ connection", zap.Error(err))
		return err
	}
	return nil
}
