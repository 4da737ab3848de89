package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsumer_DeclaresQueueWithDeadLetterTopology(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	err := consumer.StartConsuming(context.Background(), "test_order_created", func(ctx context.Context, message string) error {
		return nil
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	assert.Contains(t, ch.exchanges, "test_exchange")

	args, ok := ch.queues["test_order_created"]
	require.True(t, ok, "work queue must be declared")
	assert.Equal(t, "", args["x-dead-letter-exchange"])
	assert.Equal(t, "test_order_created.dlq", args["x-dead-letter-routing-key"])

	dlqArgs, ok := ch.queues["test_order_created.dlq"]
	require.True(t, ok, "sibling DLQ must be declared")
	assert.Nil(t, dlqArgs, "the DLQ itself carries no dead-letter args")

	assert.Equal(t, "order_created", ch.bindings["test_order_created"])
	assert.Equal(t, 1, ch.prefetch)
}

func TestConsumer_DLQQueueStaysTerminal(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	err := consumer.StartConsuming(context.Background(), "test_order_created.dlq", func(ctx context.Context, message string) error {
		return nil
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	args, ok := ch.queues["test_order_created.dlq"]
	require.True(t, ok)
	assert.Nil(t, args)
	_, hasNested := ch.queues["test_order_created.dlq.dlq"]
	assert.False(t, hasNested, "a DLQ must not get a DLQ of its own")
}

func TestConsumer_AcksOnHandlerSuccess(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	received := make(chan string, 1)
	err := consumer.StartConsuming(context.Background(), "test_order_created", func(ctx context.Context, message string) error {
		received <- message
		return nil
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	ack := newFakeAcknowledger()
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"order_id":1}`)}

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"order_id":1}`, msg)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	select {
	case <-ack.done:
	case <-time.After(time.Second):
		t.Fatal("delivery was not settled")
	}
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestConsumer_NacksWithoutRequeueOnHandlerError(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	err := consumer.StartConsuming(context.Background(), "test_order_created", func(ctx context.Context, message string) error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	ack := newFakeAcknowledger()
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{}`)}

	select {
	case <-ack.done:
	case <-time.After(time.Second):
		t.Fatal("delivery was not settled")
	}
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "rejected messages must dead-letter, not requeue")
}

func TestConsumer_NacksOnHandlerPanic(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	err := consumer.StartConsuming(context.Background(), "test_order_created", func(ctx context.Context, message string) error {
		panic("unexpected payload shape")
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	ack := newFakeAcknowledger()
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`not json`)}

	select {
	case <-ack.done:
	case <-time.After(time.Second):
		t.Fatal("delivery was not settled")
	}
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestConsumer_RequeuesInFlightMessageOnShutdown(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan struct{})
	err := consumer.StartConsuming(ctx, "test_order_created", func(ctx context.Context, message string) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	defer consumer.StopConsuming()

	ack := newFakeAcknowledger()
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"order_id":1}`)}

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
	cancel()

	select {
	case <-ack.done:
	case <-time.After(time.Second):
		t.Fatal("delivery was not settled")
	}
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue, "an in-flight message at shutdown must be requeued, not dead-lettered")
}

func TestConsumer_StartTwiceFails(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch, newFakeChannel()}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	handler := func(ctx context.Context, message string) error { return nil }
	require.NoError(t, consumer.StartConsuming(context.Background(), "test_order_created", handler))
	defer consumer.StopConsuming()

	err := consumer.StartConsuming(context.Background(), "test_order_created", handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestConsumer_StopBeforeStartIsSafe(t *testing.T) {
	consumer := NewConsumer(&fakeChannelProvider{}, testSettings(), zap.NewNop())
	consumer.StopConsuming()
	consumer.StopConsuming()
}

func TestConsumer_StopCancelsAndClosesChannel(t *testing.T) {
	ch := newFakeChannel()
	provider := &fakeChannelProvider{channels: []*fakeChannel{ch}}
	consumer := NewConsumer(provider, testSettings(), zap.NewNop())

	require.NoError(t, consumer.StartConsuming(context.Background(), "test_order_created", func(ctx context.Context, message string) error {
		return nil
	}))

	consumer.StopConsuming()

	require.Len(t, ch.cancelled, 1)
	assert.Contains(t, ch.cancelled[0], "test_order_created-")
	assert.True(t, ch.closed)

	// Stopping again is a no-op.
	consumer.StopConsuming()
}
