package tests

import (
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/client"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/service"
)

func (s *IntegrationTestSuite) TestCreateOrder_Success() {
	orderID := s.createOrder(999)

	s.Equal("Pending", s.orderStatus(orderID))

	var itemCount int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, orderID).Scan(&itemCount)
	s.Require().NoError(err)
	s.Equal(2, itemCount)

	var total int64
	err = s.DbPool.QueryRow(s.Ctx, `SELECT total_amount FROM orders WHERE id = $1`, orderID).Scan(&total)
	s.Require().NoError(err)
	s.Equal(int64(2*4500+1500), total)
}

func (s *IntegrationTestSuite) TestCreateOrder_UnknownProduct() {
	_, err := s.OrderService.CreateOrder(s.Ctx, 999, []service.NewOrderItem{
		{ProductID: 404, Quantity: 1},
	}, "")
	s.Require().ErrorIs(err, client.ErrProductNotFound)

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	s.Equal(0, count)
}

func (s *IntegrationTestSuite) TestGetOrder_ScopedToUser() {
	orderID := s.createOrder(999)

	order, err := s.OrderService.GetOrder(s.Ctx, orderID, 999)
	s.Require().NoError(err)
	s.Equal(orderID, order.ID)
	s.Len(order.Items, 2)

	_, err = s.OrderService.GetOrder(s.Ctx, orderID, 1000)
	s.Require().Error(err)
}
