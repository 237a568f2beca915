package messaging

import (
	"encoding/json"

	"fulfillment_service/internal/domain"
)

// Commands arrive as JSON with an "action" discriminator. Decoding turns
// them into a closed union of typed variants; anything with a missing
// required field is rejected here, before the engine is ever called, and an
// unknown action becomes an explicit UnrecognizedCommand variant instead of
// being silently dropped.

type ProductCommand interface{ isProductCommand() }

type OrderCommand interface{ isOrderCommand() }

type CreateProductCommand struct {
	Name          string
	Price         float64
	StockQuantity int
}

type UpdateProductCommand struct {
	ID            int64
	Name          *string
	Price         *float64
	StockQuantity *int
}

type MarkOutOfStockCommand struct {
	ID int64
}

type CreateOrderCommand struct {
	UserID    int64
	AddressID int64
	Items     []domain.OrderItemRequest
}

type UpdateOrderStatusCommand struct {
	ID     int64
	Status domain.OrderStatus
}

type UnrecognizedCommand struct {
	Action string
}

func (CreateProductCommand) isProductCommand()    {}
func (UpdateProductCommand) isProductCommand()    {}
func (MarkOutOfStockCommand) isProductCommand()   {}
func (CreateOrderCommand) isOrderCommand()        {}
func (UpdateOrderStatusCommand) isOrderCommand()  {}
func (UnrecognizedCommand) isProductCommand()     {}
func (UnrecognizedCommand) isOrderCommand()       {}

type productWire struct {
	Action        string   `json:"action"`
	ID            *int64   `json:"id"`
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
}

type orderWire struct {
	Action    string                    `json:"action"`
	ID        *int64                    `json:"id"`
	UserID    *int64                    `json:"user_id"`
	AddressID *int64                    `json:"address_id"`
	Items     []domain.OrderItemRequest `json:"items"`
	Status    *domain.OrderStatus       `json:"status"`
}

func DecodeProductCommand(data []byte) (ProductCommand, error) {
	var wire productWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &domain.ValidationError{Field: "payload", Reason: "invalid JSON: " + err.Error()}
	}

	switch wire.Action {
	case "create":
		if wire.Name == nil || wire.Price == nil || wire.StockQuantity == nil {
			return nil, &domain.ValidationError{Field: "action=create", Reason: "name, price and stock_quantity are required"}
		}
		return CreateProductCommand{
			Name:          *wire.Name,
			Price:         *wire.Price,
			StockQuantity: *wire.StockQuantity,
		}, nil

	case "update":
		if wire.ID == nil {
			return nil, &domain.ValidationError{Field: "action=update", Reason: "id is required"}
		}
		if wire.Name == nil && wire.Price == nil && wire.StockQuantity == nil {
			return nil, &domain.ValidationError{Field: "action=update", Reason: "at least one field to update is required"}
		}
		return UpdateProductCommand{
			ID:            *wire.ID,
			Name:          wire.Name,
			Price:         wire.Price,
			StockQuantity: wire.StockQuantity,
		}, nil

	case "mark_out_of_stock":
		if wire.ID == nil {
			return nil, &domain.ValidationError{Field: "action=mark_out_of_stock", Reason: "id is required"}
		}
		return MarkOutOfStockCommand{ID: *wire.ID}, nil

	default:
		return UnrecognizedCommand{Action: wire.Action}, nil
	}
}

func DecodeOrderCommand(data []byte) (OrderCommand, error) {
	var wire orderWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &domain.ValidationError{Field: "payload", Reason: "invalid JSON: " + err.Error()}
	}

	switch wire.Action {
	case "create":
		if wire.UserID == nil || wire.AddressID == nil || len(wire.Items) == 0 {
			return nil, &domain.ValidationError{Field: "action=create", Reason: "user_id, address_id and items are required"}
		}
		return CreateOrderCommand{
			UserID:    *wire.UserID,
			AddressID: *wire.AddressID,
			Items:     wire.Items,
		}, nil

	case "update_status":
		if wire.ID == nil || wire.Status == nil {
			return nil, &domain.ValidationError{Field: "action=update_status", Reason: "id and status are required"}
		}
		if !domain.IsValidStatus(*wire.Status) {
			return nil, &domain.ValidationError{Field: "status", Reason: "unknown order status: " + string(*wire.Status)}
		}
		return UpdateOrderStatusCommand{ID: *wire.ID, Status: *wire.Status}, nil

	default:
		return UnrecognizedCommand{Action: wire.Action}, nil
	}
}
