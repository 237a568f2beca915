package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fulfillment_service/internal/domain"
	"fulfillment_service/pkg/cache"

	"github.com/sirupsen/logrus"
)

const productCacheTTL = 600 * time.Second

// productModel is the cache payload for products, kept separate from
// domain.Product for the same reason as userModel.
type productModel struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// CachedProductRepository decorates the product store with a cache-aside
// read path. Mutations use the write-through policy: the key is overwritten
// with the new state and a refreshed TTL, so a read right after an update
// observes the fresh value without a store hit. Deletion removes the key.
type CachedProductRepository struct {
	store domain.ProductRepository
	cache cache.Cache
	log   *logrus.Logger
}

func NewCachedProductRepository(store domain.ProductRepository, c cache.Cache, logger *logrus.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		store: store,
		cache: c,
		log:   logger,
	}
}

var _ domain.ProductRepository = (*CachedProductRepository)(nil)

func (r *CachedProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	raw, err := r.cache.Get(ctx, key)
	if err == nil {
		var model productModel
		if jsonErr := json.Unmarshal([]byte(raw), &model); jsonErr == nil {
			r.log.Debugf("Cache: Hit for %s", key)
			return &domain.Product{
				ID:            model.ID,
				Name:          model.Name,
				Price:         model.Price,
				StockQuantity: model.StockQuantity,
			}, nil
		}
		r.log.Warnf("Cache: Corrupt payload for %s, falling back to store", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		r.log.Warnf("Cache: Read failed for %s, falling back to store: %v", key, err)
	}

	product, err := r.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.writeThrough(ctx, product)
	return product, nil
}

func (r *CachedProductRepository) writeThrough(ctx context.Context, product *domain.Product) {
	model := productModel{
		ID:            product.ID,
		Name:          product.Name,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
	}
	payload, err := json.Marshal(model)
	if err != nil {
		r.log.Errorf("Cache: Failed to marshal product %d: %v", product.ID, err)
		return
	}
	if err := r.cache.Set(ctx, productKey(product.ID), string(payload), productCacheTTL); err != nil {
		r.log.Warnf("Cache: Failed to write through %s: %v", productKey(product.ID), err)
	}
}

// RefreshProduct overwrites the cached entry from a post-transaction
// snapshot. The order engine calls this after a committed stock decrement.
func (r *CachedProductRepository) RefreshProduct(ctx context.Context, snap domain.ProductSnapshot) {
	r.writeThrough(ctx, &domain.Product{
		ID:            snap.ID,
		Name:          snap.Name,
		Price:         snap.Price,
		StockQuantity: snap.StockQuantity,
	})
}

func (r *CachedProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	created, err := r.store.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	r.writeThrough(ctx, created)
	return created, nil
}

func (r *CachedProductRepository) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	product, err := r.store.UpdateProduct(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	r.writeThrough(ctx, product)
	return product, nil
}

func (r *CachedProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	if err := r.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if _, err := r.cache.Delete(ctx, productKey(id)); err != nil {
		r.log.Warnf("Cache: Failed to delete %s: %v", productKey(id), err)
	}
	return nil
}

func (r *CachedProductRepository) GetProductsByFilter(ctx context.Context, count, page int, filter domain.ProductFilter) ([]domain.Product, error) {
	return r.store.GetProductsByFilter(ctx, count, page, filter)
}

func (r *CachedProductRepository) CountProducts(ctx context.Context) (int64, error) {
	return r.store.CountProducts(ctx)
}
