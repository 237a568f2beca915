package domain

import (
	"context"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

type Order struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	AddressID  int64       `json:"address_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"order_id"`
	ProductID       int64   `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	UserID    int64              `json:"user_id"`
	AddressID int64              `json:"address_id"`
	Items     []OrderItemRequest `json:"items"`

	// IdempotencyKey dedups at-least-once deliveries; empty means no dedup.
	IdempotencyKey string `json:"-"`
}

// ProductSnapshot is the state of a product row immediately after the
// stock decrement inside the order transaction.
type ProductSnapshot struct {
	ID            int64
	Name          string
	Price         float64
	StockQuantity int
}

type PlacedOrder struct {
	Order    *Order
	Products []ProductSnapshot

	// AlreadyProcessed reports an idempotent replay: the order was created
	// by an earlier request carrying the same key.
	AlreadyProcessed bool
}

type OrderFilter struct {
	UserID int64
	Status OrderStatus
}

type OrderRepository interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlacedOrder, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	GetOrdersByFilter(ctx context.Context, count, page int, filter OrderFilter) ([]Order, error)
	CountOrders(ctx context.Context) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error)
}

type OrderUseCase interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlacedOrder, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, count, page int, filter OrderFilter) ([]Order, error)
	CountOrders(ctx context.Context) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error)
}
