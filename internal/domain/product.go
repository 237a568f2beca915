package domain

import "context"

type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

type ProductFilter struct {
	Name     string
	MinPrice float64
	MaxPrice float64
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	GetProductsByFilter(ctx context.Context, count, page int, filter ProductFilter) ([]Product, error)
	CountProducts(ctx context.Context) (int64, error)

	UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*Product, error)

	DeleteProduct(ctx context.Context, id int64) error
}
