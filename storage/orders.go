package storage

import (
	"context"
	"time"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
	OrderCompleted  = "completed"
)

type Order struct {
	Id            string    `bson:"-" json:"id"`
	UserId        string    `bson:"-" json:"user_id"`
	Status        string    `bson:"status" json:"status"`
	TotalAmount   float64   `bson:"totalAmount" json:"total_amount"`
	PaymentMethod string    `bson:"paymentMethod,omitempty" json:"payment_method,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"created_at"`
}

// OrderHistory reads the orders a user has placed.
type OrderHistory interface {
	// RecentOrders returns at most limit orders of the user, newest first.
	RecentOrders(ctx context.Context, userId string, limit int) ([]Order, error)
	Close() error
}
