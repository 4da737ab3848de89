package messaging

import (
	"context"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"go.uber.org/zap"
)

const (
	defaultStartAttempts = 30
	defaultStartDelay    = 2 * time.Second
)

// ConsumerWorker hosts one consumer for one queue as a long-running task.
// Startup tolerates a broker that is not reachable yet: the start is retried
// with a fixed delay for a bounded number of attempts instead of crashing
// the process.
type ConsumerWorker struct {
	consumer *Consumer
	queue    string
	handler  HandlerFunc
	logger   *zap.Logger

	startAttempts int
	startDelay    time.Duration
}

func NewConsumerWorker(consumer *Consumer, queue string, handler HandlerFunc, logger *zap.Logger) *ConsumerWorker {
	return &ConsumerWorker{
		consumer:      consumer,
		queue:         queue,
		handler:       handler,
		logger:        logger,
		startAttempts: defaultStartAttempts,
		startDelay:    defaultStartDelay,
	}
}

// Run blocks until ctx is cancelled, then stops the consumer and releases
// its channel. The caller shuts the connection manager down only after every
// worker's Run has returned.
func (w *ConsumerWorker) Run(ctx context.Context) {
	started := false
	for attempt := 1; attempt <= w.startAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		err := w.consumer.StartConsuming(ctx, w.queue, w.handler)
		if err == nil {
			started = true
			break
		}

		mylogger.Warn(
			ctx,
			w.logger,
			"Failed to start consumer, retrying",
			zap.String("queue", w.queue),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", w.startAttempts),
			zap.Error(err),
		)

		select {
		case <-time.After(w.startDelay):
		case <-ctx.Done():
			return
		}
	}

	if !started {
		mylogger.Error(
			ctx,
			w.logger,
			"Giving up starting consumer",
			zap.String("queue", w.queue),
			zap.Int("attempts", w.startAttempts),
		)
		return
	}

	<-ctx.Done()

	w.consumer.StopConsuming()
	mylogger.Info(ctx, w.logger, "Consumer stopped", zap.String("queue", w.queue))
}
