package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTotal(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{UnitPrice: 1050, Quantity: 2},
			{UnitPrice: 399, Quantity: 3},
		},
	}
	order.CalculateTotal()
	assert.Equal(t, int64(2*1050+3*399), order.TotalAmount)

	empty := &Order{}
	empty.CalculateTotal()
	assert.Equal(t, int64(0), empty.TotalAmount)
}

func TestReserve(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	require.NoError(t, order.Reserve())
	assert.Equal(t, OrderStatusReserved, order.Status)

	for _, status := range []OrderStatus{OrderStatusReserved, OrderStatusConfirmed, OrderStatusCancelled} {
		order := &Order{Status: status}
		assert.ErrorIs(t, order.Reserve(), ErrInvalidTransition, string(status))
		assert.Equal(t, status, order.Status, "status must not change on a rejected transition")
	}
}

func TestConfirm(t *testing.T) {
	order := &Order{Status: OrderStatusReserved, TotalAmount: 5000}
	require.NoError(t, order.Confirm(5000))
	assert.Equal(t, OrderStatusConfirmed, order.Status)

	t.Run("amount must match exactly", func(t *testing.T) {
		for _, amount := range []int64{4999, 5001, 0, -5000} {
			order := &Order{Status: OrderStatusReserved, TotalAmount: 5000}
			assert.ErrorIs(t, order.Confirm(amount), ErrAmountMismatch)
			assert.Equal(t, OrderStatusReserved, order.Status)
		}
	})

	t.Run("only reserved orders can be confirmed", func(t *testing.T) {
		for _, status := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled} {
			order := &Order{Status: status, TotalAmount: 5000}
			assert.ErrorIs(t, order.Confirm(5000), ErrInvalidTransition, string(status))
		}
	})
}

func TestCancel(t *testing.T) {
	t.Run("from pending with reason", func(t *testing.T) {
		order := &Order{Status: OrderStatusPending}
		require.NoError(t, order.Cancel("product 3: insufficient stock"))
		assert.Equal(t, OrderStatusCancelled, order.Status)
		assert.Equal(t, "product 3: insufficient stock", order.Notes)
	})

	t.Run("from reserved keeps existing notes when no reason given", func(t *testing.T) {
		order := &Order{Status: OrderStatusReserved, Notes: "gift wrap"}
		require.NoError(t, order.Cancel(""))
		assert.Equal(t, OrderStatusCancelled, order.Status)
		assert.Equal(t, "gift wrap", order.Notes)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order := &Order{Status: OrderStatusCancelled}
		assert.ErrorIs(t, order.Cancel(""), ErrInvalidTransition)
	})

	t.Run("confirmed orders cannot be cancelled", func(t *testing.T) {
		order := &Order{Status: OrderStatusConfirmed}
		assert.ErrorIs(t, order.Cancel(""), ErrInvalidTransition)
		assert.Equal(t, OrderStatusConfirmed, order.Status)
	})
}
