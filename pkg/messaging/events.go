package messaging

import "time"

// Event is the contract every message published on the exchange satisfies.
// The discriminator travels in the AMQP "type" property, never in the body.
type Event interface {
	EventType() string
}

// BaseEvent stamps the construction time of an event. Events are value
// objects: built once, serialized, never mutated afterwards.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

type OrderItemEvent struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type OrderCreated struct {
	BaseEvent

	OrderID     int64            `json:"order_id"`
	UserID      int64            `json:"user_id"`
	Items       []OrderItemEvent `json:"items"`
	TotalAmount int64            `json:"total_amount"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (OrderCreated) EventType() string { return "OrderCreated" }

type OrderReservationCompleted struct {
	BaseEvent

	OrderID    int64     `json:"order_id"`
	Success    bool      `json:"success"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderReservationCompleted) EventType() string { return "OrderReservationCompleted" }

type OrderConfirmed struct {
	BaseEvent

	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	Method      string    `json:"method"`
}

func (OrderConfirmed) EventType() string { return "OrderConfirmed" }

type OrderCancelled struct {
	BaseEvent

	OrderID     int64            `json:"order_id"`
	UserID      int64            `json:"user_id"`
	Items       []OrderItemEvent `json:"items"`
	CancelledAt time.Time        `json:"cancelled_at"`
}

func (OrderCancelled) EventType() string { return "OrderCancelled" }

// StockUpdated operations.
const (
	StockOperationReserved = "Reserved"
	StockOperationReleased = "Released"
	StockOperationUpdated  = "Updated"
)

type StockUpdated struct {
	BaseEvent

	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	PreviousStock int64     `json:"previous_stock"`
	NewStock      int64     `json:"new_stock"`
	Operation     string    `json:"operation"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (StockUpdated) EventType() string { return "StockUpdated" }

type ProductCreated struct {
	BaseEvent

	ProductID     int64     `json:"product_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int64     `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ProductCreated) EventType() string { return "ProductCreated" }
