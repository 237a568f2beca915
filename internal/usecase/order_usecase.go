package usecase

import (
	"context"
	"fmt"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

// ProductCacheRefresher is the slice of the product cache the engine needs:
// after a committed order the cached stock of every touched product is stale
// and gets overwritten from the transaction's snapshots.
type ProductCacheRefresher interface {
	RefreshProduct(ctx context.Context, snap domain.ProductSnapshot)
}

var _ domain.OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	orderRepo    domain.OrderRepository
	productCache ProductCacheRefresher
	log          *logrus.Logger
}

func NewOrderUseCase(repo domain.OrderRepository, productCache ProductCacheRefresher, logger *logrus.Logger) domain.OrderUseCase {
	return &orderUseCase{
		orderRepo:    repo,
		productCache: productCache,
		log:          logger,
	}
}

func (uc *orderUseCase) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.PlacedOrder, error) {
	if req.UserID <= 0 {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	if req.AddressID <= 0 {
		return nil, &domain.ValidationError{Field: "address_id", Reason: "must be positive"}
	}
	if len(req.Items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "order must contain at least one item"}
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("items[%d].product_id", i),
				Reason: "must be positive",
			}
		}
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: "must be positive",
			}
		}
	}

	uc.log.Infof("Use Case: Placing order for user %d with %d items", req.UserID, len(req.Items))

	placed, err := uc.orderRepo.PlaceOrder(ctx, req)
	if err != nil {
		uc.log.Warnf("Use Case: Order placement failed for user %d: %v", req.UserID, err)
		return nil, err
	}

	if placed.AlreadyProcessed {
		uc.log.Infof("Use Case: Order %d returned from idempotency key '%s', nothing written", placed.Order.ID, req.IdempotencyKey)
		return placed, nil
	}

	// Stock just changed for every product in the order; refresh their
	// cache entries from the committed snapshots. Cache failures are
	// absorbed inside the refresher.
	if uc.productCache != nil {
		for _, snap := range placed.Products {
			uc.productCache.RefreshProduct(ctx, snap)
		}
	}

	uc.log.Infof("Use Case: Order %d created for user %d, total %.2f", placed.Order.ID, placed.Order.UserID, placed.Order.TotalPrice)
	return placed, nil
}

func (uc *orderUseCase) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.orderRepo.GetOrderByID(ctx, id)
}

func (uc *orderUseCase) ListOrders(ctx context.Context, count, page int, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown order status: %s", filter.Status)}
	}
	return uc.orderRepo.GetOrdersByFilter(ctx, count, page, filter)
}

func (uc *orderUseCase) CountOrders(ctx context.Context) (int64, error) {
	return uc.orderRepo.CountOrders(ctx)
}

func (uc *orderUseCase) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	// Any member of the status enum is an acceptable target; there is no
	// transition graph beyond membership.
	if !domain.IsValidStatus(status) {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown order status: %s", status)}
	}

	uc.log.Infof("Use Case: Updating status for order %d to '%s'", id, status)
	order, err := uc.orderRepo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		uc.log.Warnf("Use Case: Status update failed for order %d: %v", id, err)
		return nil, err
	}
	return order, nil
}
