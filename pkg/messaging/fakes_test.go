package messaging

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeChannel scripts the broker side of the Channel contract.
type fakeChannel struct {
	mu sync.Mutex

	confirmErr error
	consumeErr error
	publishErr error
	declareErr error

	exchanges  []string
	queues     map[string]amqp.Table
	bindings   map[string]string
	prefetch   int
	cancelled  []string
	closed     bool
	published  []amqp.Publishing
	publishKey []string

	confirms chan amqp.Confirmation
	returns  chan amqp.Return

	deliveries chan amqp.Delivery

	// onPublish runs synchronously inside PublishWithContext, after the
	// message is recorded. Tests use it to script confirms and returns.
	onPublish func(f *fakeChannel)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		queues:     make(map[string]amqp.Table),
		bindings:   make(map[string]string),
		deliveries: make(chan amqp.Delivery, 16),
	}
}

func (f *fakeChannel) Confirm(noWait bool) error { return f.confirmErr }

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declareErr != nil {
		return f.declareErr
	}
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[name] = key
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return f.deliveries, nil
}

func (f *fakeChannel) Cancel(consumer string, noWait bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, consumer)
	return nil
}

func (f *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	f.confirms = confirm
	return confirm
}

func (f *fakeChannel) NotifyReturn(c chan amqp.Return) chan amqp.Return {
	f.returns = c
	return c
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.publishKey = append(f.publishKey, key)
	f.mu.Unlock()
	if f.onPublish != nil {
		f.onPublish(f)
	}
	return nil
}

// Close also ends the delivery stream so a running consumer loop drains.
func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.deliveries)
	}
	return nil
}

type fakeChannelProvider struct {
	mu       sync.Mutex
	channels []*fakeChannel
	errs     []error
	opened   int
}

func (p *fakeChannelProvider) Channel(ctx context.Context) (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.opened
	p.opened++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.channels) {
		return p.channels[i], nil
	}
	return nil, errors.New("no channel scripted")
}

// fakeAcknowledger records the outcome of a single delivery.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{})}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = true
	close(a.done)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = true
	a.requeue = requeue
	close(a.done)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}
