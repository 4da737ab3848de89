package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusReserved   OrderStatus = "Reserved"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrAmountMismatch    = errors.New("payment amount does not match order total")
)

type Order struct {
	ID          int64       `db:"id"`
	UserID      int64       `db:"user_id"`
	Status      OrderStatus `db:"status"`
	TotalAmount int64       `db:"total_amount"`
	Items       []OrderItem `db:"items"`
	Notes       string      `db:"notes"`

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type OrderItem struct {
	ID          int64  `db:"id"`
	OrderID     int64  `db:"order_id"`
	ProductID   int64  `db:"product_id"`
	ProductName string `db:"product_name"`
	UnitPrice   int64  `db:"unit_price"`
	Quantity    int32  `db:"quantity"`
}

func (o *Order) CalculateTotal() {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	o.TotalAmount = total
}

// Reserve records a successful inventory reservation. Only a pending order
// can become reserved.
func (o *Order) Reserve() error {
	if o.Status != OrderStatusPending {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusReserved
	return nil
}

// Confirm applies a payment. Only a reserved order can be confirmed, and the
// paid amount must match the order total exactly.
func (o *Order) Confirm(amount int64) error {
	if o.Status != OrderStatusReserved {
		return ErrInvalidTransition
	}
	if amount != o.TotalAmount {
		return ErrAmountMismatch
	}
	o.Status = OrderStatusConfirmed
	return nil
}

// Cancel is legal from Pending (reservation failed or user backed out) and
// from Reserved (user cancel before payment). Cancelled is terminal.
func (o *Order) Cancel(reason string) error {
	if o.Status != OrderStatusPending && o.Status != OrderStatusReserved {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusCancelled
	if reason != "" {
		o.Notes = reason
	}
	return nil
}
