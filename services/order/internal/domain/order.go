package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Transitions only move forward: a pending order may complete or cancel,
// terminal orders never change again.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return s == OrderStatusPending &&
		(target == OrderStatusCompleted || target == OrderStatusCancelled)
}

func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return OrderStatus(raw), true
	}
	return "", false
}

type Order struct {
	ID          int64       `json:"id" db:"id"`
	UserID      int64       `json:"user_id" db:"user_id"`
	Status      OrderStatus `json:"status" db:"status"`
	Items       []OrderItem `json:"items" db:"items"`
	TotalAmount int64       `json:"total_amount" db:"total_amount"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OrderItem struct {
	ID        int64  `json:"id" db:"id"`
	OrderID   int64  `json:"order_id" db:"order_id"`
	ProductID int64  `json:"product_id" db:"product_id"`
	Name      string `json:"name" db:"name"`
	// Price is the unit price at purchase time, in minor units. Later
	// catalog price changes never alter it.
	Price    int64 `json:"price" db:"price"`
	Quantity int64 `json:"quantity" db:"quantity"`
}

func (o *Order) CalculateTotal() {
	var total int64
	for _, item := range o.Items {
		total += item.Price * item.Quantity
	}
	o.TotalAmount = total
}

// CheckTotal verifies the stored total against the line items. It runs on
// every read path.
func (o *Order) CheckTotal() error {
	var total int64
	for _, item := range o.Items {
		total += item.Price * item.Quantity
	}

	if total != o.TotalAmount {
		return fmt.Errorf(
			"order %d total mismatch: stored %d, items sum to %d",
			o.ID, o.TotalAmount, total,
		)
	}

	return nil
}

type OrderStats struct {
	TotalOrders     int64 `json:"total_orders"`
	TotalSpent      int64 `json:"total_spent"`
	PendingOrders   int64 `json:"pending_orders"`
	CompletedOrders int64 `json:"completed_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
}
