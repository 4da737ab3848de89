package tests

import (
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
)

func (s *IntegrationTestSuite) TestOrderCreated_ReservesStock() {
	keyboardID := s.seedProduct("Keyboard", 10)
	mouseID := s.seedProduct("Mouse", 5)

	event := messaging.OrderCreated{
		BaseEvent: messaging.NewBaseEvent(),
		OrderID:   42,
		UserID:    7,
		Items: []messaging.OrderItemEvent{
			{ProductID: keyboardID, ProductName: "Keyboard", Quantity: 3, UnitPrice: 1000},
			{ProductID: mouseID, ProductName: "Mouse", Quantity: 5, UnitPrice: 1000},
		},
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		completion, ok := s.lastCompletion()
		return ok && completion.OrderID == 42
	}, 10*time.Second, 100*time.Millisecond)

	completion, _ := s.lastCompletion()
	s.True(completion.Success)
	s.Empty(completion.Reason)
	s.Equal(int32(7), s.stockOf(keyboardID))
	s.Equal(int32(0), s.stockOf(mouseID))
}

func (s *IntegrationTestSuite) TestOrderCreated_InsufficientStockFailsReservation() {
	keyboardID := s.seedProduct("Keyboard", 1)
	mouseID := s.seedProduct("Mouse", 5)

	event := messaging.OrderCreated{
		BaseEvent: messaging.NewBaseEvent(),
		OrderID:   43,
		UserID:    7,
		Items: []messaging.OrderItemEvent{
			{ProductID: keyboardID, ProductName: "Keyboard", Quantity: 3, UnitPrice: 1000},
			{ProductID: mouseID, ProductName: "Mouse", Quantity: 2, UnitPrice: 1000},
		},
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		completion, ok := s.lastCompletion()
		return ok && completion.OrderID == 43
	}, 10*time.Second, 100*time.Millisecond)

	completion, _ := s.lastCompletion()
	s.False(completion.Success)
	s.Contains(completion.Reason, "insufficient stock")

	// The failed line is untouched, the other one was still reserved.
	s.Equal(int32(1), s.stockOf(keyboardID))
	s.Equal(int32(3), s.stockOf(mouseID))
}

func (s *IntegrationTestSuite) TestOrderCreated_DeactivatedProductFailsReservation() {
	keyboardID := s.seedProduct("Keyboard", 10)
	s.deactivateProduct(keyboardID)

	event := messaging.OrderCreated{
		BaseEvent: messaging.NewBaseEvent(),
		OrderID:   45,
		UserID:    7,
		Items: []messaging.OrderItemEvent{
			{ProductID: keyboardID, ProductName: "Keyboard", Quantity: 1, UnitPrice: 1000},
		},
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		completion, ok := s.lastCompletion()
		return ok && completion.OrderID == 45
	}, 10*time.Second, 100*time.Millisecond)

	completion, _ := s.lastCompletion()
	s.False(completion.Success)
	s.Contains(completion.Reason, "not found")
	s.Equal(int32(10), s.stockOf(keyboardID))
}

func (s *IntegrationTestSuite) TestOrderCancelled_ReleasesStock() {
	keyboardID := s.seedProduct("Keyboard", 7)

	event := messaging.OrderCancelled{
		BaseEvent:   messaging.NewBaseEvent(),
		OrderID:     44,
		UserID:      7,
		Items:       []messaging.OrderItemEvent{{ProductID: keyboardID, ProductName: "Keyboard", Quantity: 3, UnitPrice: 1000}},
		CancelledAt: time.Now().UTC(),
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		return s.stockOf(keyboardID) == 10
	}, 10*time.Second, 100*time.Millisecond)
}
