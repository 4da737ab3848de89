package domain

import "time"

// Product is the stock-side catalog entry. Deactivated products stay in the
// table for history but behave as if they do not exist: lookups, listings and
// reservations all skip them.
type Product struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         int64      `json:"price"`
	StockQuantity int32      `json:"stock_quantity"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
