package tests

import (
	"context"
	"sync"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// A message the handler cannot decode must end up in the queue's DLQ
// instead of being redelivered forever.
func (s *IntegrationTestSuite) TestPoisonMessage_EndsUpInDLQ() {
	ch, err := s.ConnManager.Channel(s.Ctx)
	s.Require().NoError(err)
	defer func() { _ = ch.Close() }()

	err = ch.PublishWithContext(s.Ctx, s.Rabbit.Exchange, "order_created", true, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        []byte("definitely not json"),
	})
	s.Require().NoError(err)

	var mu sync.Mutex
	var dead []string

	dlqConsumer := messaging.NewConsumer(s.ConnManager, s.Rabbit, zap.NewNop())
	dlqQueue := s.Rabbit.QueuePrefix + "order_created.dlq"

	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	s.Require().Eventually(func() bool {
		return dlqConsumer.StartConsuming(ctx, dlqQueue, func(ctx context.Context, message string) error {
			mu.Lock()
			dead = append(dead, message)
			mu.Unlock()
			return nil
		}) == nil
	}, 10*time.Second, 500*time.Millisecond)
	defer dlqConsumer.StopConsuming()

	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dead) == 1
	}, 10*time.Second, 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	s.Equal("definitely not json", dead[0])
}
