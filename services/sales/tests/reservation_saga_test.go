package tests

import (
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
)

// The suite's consumer listens on the reservation-completed queue, so
// publishing a completion drives the same path the stock service would.

func (s *IntegrationTestSuite) TestReservationSuccess_MovesOrderToReserved() {
	orderID := s.createOrder(999)

	event := messaging.OrderReservationCompleted{
		BaseEvent:  messaging.NewBaseEvent(),
		OrderID:    orderID,
		Success:    true,
		OccurredAt: time.Now().UTC(),
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		return s.orderStatus(orderID) == "Reserved"
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestReservationFailure_CancelsOrderWithReason() {
	orderID := s.createOrder(999)

	event := messaging.OrderReservationCompleted{
		BaseEvent:  messaging.NewBaseEvent(),
		OrderID:    orderID,
		Success:    false,
		Reason:     "product 1: insufficient stock",
		OccurredAt: time.Now().UTC(),
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		return s.orderStatus(orderID) == "Cancelled"
	}, 10*time.Second, 100*time.Millisecond)

	var notes string
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT notes FROM orders WHERE id = $1`, orderID).Scan(&notes))
	s.Equal("product 1: insufficient stock", notes)
}

func (s *IntegrationTestSuite) TestPaymentAfterReservation_ConfirmsOrder() {
	orderID := s.createOrder(999)

	event := messaging.OrderReservationCompleted{
		BaseEvent:  messaging.NewBaseEvent(),
		OrderID:    orderID,
		Success:    true,
		OccurredAt: time.Now().UTC(),
	}
	s.Require().NoError(s.Publisher.Publish(s.Ctx, event))

	s.Require().Eventually(func() bool {
		return s.orderStatus(orderID) == "Reserved"
	}, 10*time.Second, 100*time.Millisecond)

	s.Require().NoError(s.OrderService.ProcessPayment(s.Ctx, orderID, 999, 2*4500+1500, "card"))
	s.Equal("Confirmed", s.orderStatus(orderID))
}
