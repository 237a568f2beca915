package messaging

import (
	"context"
	"fmt"

	"fulfillment_service/internal/domain"
	"fulfillment_service/internal/usecase"

	"github.com/sirupsen/logrus"
)

// Dispatcher routes decoded commands to the engine. Matching over the
// command unions is exhaustive; the default branches are unreachable for
// values produced by the decoders.
type Dispatcher struct {
	products usecase.ProductUseCase
	orders   domain.OrderUseCase
	log      *logrus.Logger
}

func NewDispatcher(products usecase.ProductUseCase, orders domain.OrderUseCase, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		products: products,
		orders:   orders,
		log:      logger,
	}
}

func (d *Dispatcher) HandleProductCommand(ctx context.Context, cmd ProductCommand) error {
	switch c := cmd.(type) {
	case CreateProductCommand:
		product, err := d.products.CreateProduct(ctx, &domain.Product{
			Name:          c.Name,
			Price:         c.Price,
			StockQuantity: c.StockQuantity,
		})
		if err != nil {
			return err
		}
		d.log.Infof("Broker: Created product %d - %s", product.ID, product.Name)
		return nil

	case UpdateProductCommand:
		updates := map[string]interface{}{}
		if c.Name != nil {
			updates["name"] = *c.Name
		}
		if c.Price != nil {
			updates["price"] = *c.Price
		}
		if c.StockQuantity != nil {
			updates["stock_quantity"] = *c.StockQuantity
		}
		product, err := d.products.UpdateProduct(ctx, c.ID, updates)
		if err != nil {
			return err
		}
		d.log.Infof("Broker: Updated product %d", product.ID)
		return nil

	case MarkOutOfStockCommand:
		product, err := d.products.MarkOutOfStock(ctx, c.ID)
		if err != nil {
			return err
		}
		d.log.Infof("Broker: Product %d marked as out of stock", product.ID)
		return nil

	case UnrecognizedCommand:
		d.log.Warnf("Broker: Unrecognized product action '%s'", c.Action)
		return nil

	default:
		return fmt.Errorf("unhandled product command type %T", cmd)
	}
}

func (d *Dispatcher) HandleOrderCommand(ctx context.Context, cmd OrderCommand, idempotencyKey string) error {
	switch c := cmd.(type) {
	case CreateOrderCommand:
		placed, err := d.orders.PlaceOrder(ctx, domain.PlaceOrderRequest{
			UserID:         c.UserID,
			AddressID:      c.AddressID,
			Items:          c.Items,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return err
		}
		if placed.AlreadyProcessed {
			d.log.Infof("Broker: Duplicate delivery for key '%s', order %d already exists", idempotencyKey, placed.Order.ID)
		} else {
			d.log.Infof("Broker: Created order %d, total %.2f", placed.Order.ID, placed.Order.TotalPrice)
		}
		return nil

	case UpdateOrderStatusCommand:
		order, err := d.orders.UpdateOrderStatus(ctx, c.ID, c.Status)
		if err != nil {
			return err
		}
		d.log.Infof("Broker: Updated order %d status to '%s'", order.ID, order.Status)
		return nil

	case UnrecognizedCommand:
		d.log.Warnf("Broker: Unrecognized order action '%s'", c.Action)
		return nil

	default:
		return fmt.Errorf("unhandled order command type %T", cmd)
	}
}
