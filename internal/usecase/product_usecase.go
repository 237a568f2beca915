package usecase

import (
	"context"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type ProductUseCase interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error)
	MarkOutOfStock(ctx context.Context, id int64) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, count, page int, filter domain.ProductFilter) ([]domain.Product, error)
	CountProducts(ctx context.Context) (int64, error)
}

type productUseCase struct {
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewProductUseCase(repo domain.ProductRepository, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo: repo,
		log:         logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		uc.log.Warn("Use Case: Attempted to create product with empty name")
		return nil, &domain.ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if product.Price <= 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with invalid price: %f", product.Name, product.Price)
		return nil, &domain.ValidationError{Field: "price", Reason: "must be positive"}
	}
	if product.StockQuantity < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative stock: %d", product.Name, product.StockQuantity)
		return nil, &domain.ValidationError{Field: "stock_quantity", Reason: "cannot be negative"}
	}

	created, err := uc.productRepo.CreateProduct(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product '%s' created successfully with ID %d", created.Name, created.ID)
	return created, nil
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.productRepo.GetProductByID(ctx, id)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}

	if price, ok := updates["price"]; ok {
		if p, ok := price.(float64); ok && p <= 0 {
			return nil, &domain.ValidationError{Field: "price", Reason: "must be positive"}
		}
	}
	if stock, ok := updates["stock_quantity"]; ok {
		if s, ok := stock.(int); ok && s < 0 {
			return nil, &domain.ValidationError{Field: "stock_quantity", Reason: "cannot be negative"}
		}
	}

	product, err := uc.productRepo.UpdateProduct(ctx, id, updates)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to update product ID %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product %d updated successfully", id)
	return product, nil
}

// MarkOutOfStock zeroes the stock, leaving price and name untouched.
func (uc *productUseCase) MarkOutOfStock(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}

	uc.log.Infof("Use Case: Marking product %d as out of stock", id)
	return uc.productRepo.UpdateProduct(ctx, id, map[string]interface{}{"stock_quantity": 0})
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.productRepo.DeleteProduct(ctx, id)
}

func (uc *productUseCase) ListProducts(ctx context.Context, count, page int, filter domain.ProductFilter) ([]domain.Product, error) {
	return uc.productRepo.GetProductsByFilter(ctx, count, page, filter)
}

func (uc *productUseCase) CountProducts(ctx context.Context) (int64, error) {
	return uc.productRepo.CountProducts(ctx)
}
