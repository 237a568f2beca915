package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresProductRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, price, stock_quantity)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRowContext(ctx, query, product.Name, product.Price, product.StockQuantity).Scan(&product.ID)
	if err != nil {
		if pqCode(err, pqCheckViolation) {
			r.log.Warnf("Repository: Check constraint violation for product '%s'", product.Name)
			return nil, &domain.ValidationError{Field: "product", Reason: "price must be positive and stock non-negative"}
		}
		if terr := asTransient("create product", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}

	r.log.Infof("Repository: Product created successfully with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
        SELECT id, name, price, stock_quantity
        FROM products
        WHERE id = $1`
	product := &domain.Product{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found", id)
			return nil, &domain.NotFoundError{Entity: "product", ID: id}
		}
		if terr := asTransient("get product", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}

	r.log.Infof("Repository: Product retrieved successfully with ID: %d", id)
	return product, nil
}

func (r *postgresProductRepository) GetProductsByFilter(ctx context.Context, count, page int, filter domain.ProductFilter) ([]domain.Product, error) {
	limit, offset := normalizePage(count, page)

	query := `
        SELECT id, name, price, stock_quantity
        FROM products`
	args := []interface{}{}
	conditions := []string{}

	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if terr := asTransient("list products", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list products (limit %d, offset %d): %v", limit, offset, err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.StockQuantity); err != nil {
			r.log.Errorf("Repository: Failed to scan product row: %v", err)
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during products list iteration: %v", err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	r.log.Infof("Repository: Retrieved %d products (limit: %d, offset: %d)", len(products), limit, offset)
	return products, nil
}

func (r *postgresProductRepository) CountProducts(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM products`).Scan(&total)
	if err != nil {
		if terr := asTransient("count products", err); terr != nil {
			return 0, terr
		}
		r.log.Errorf("Repository: Failed to count products: %v", err)
		return 0, fmt.Errorf("could not count products: %w", err)
	}
	return total, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	if len(updates) == 0 {
		r.log.Warnf("Repository: No fields provided for product update ID %d. Returning current product.", id)
		return r.GetProductByID(ctx, id)
	}

	setClauses := []string{}
	args := []interface{}{}

	for key, value := range updates {
		switch key {
		case "name", "price", "stock_quantity":
			args = append(args, value)
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", key, len(args)))
		default:
			r.log.Warnf("Repository: Skipping unknown field '%s' provided for product update ID %d", key, id)
		}
	}

	if len(setClauses) == 0 {
		r.log.Warnf("Repository: No valid known fields provided for product update ID %d. Returning current product.", id)
		return r.GetProductByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE products
        SET %s
        WHERE id = $%d
        RETURNING id, name, price, stock_quantity`,
		strings.Join(setClauses, ", "), len(args))

	r.log.Debugf("Repository: Executing partial update query for product ID %d: %s", id, query)

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found for update", id)
			return nil, &domain.NotFoundError{Entity: "product", ID: id}
		}
		if pqCode(err, pqCheckViolation) {
			r.log.Warnf("Repository: Check constraint violation for product update ID %d", id)
			return nil, &domain.ValidationError{Field: "product", Reason: "price must be positive and stock non-negative"}
		}
		if terr := asTransient("update product", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to execute partial update for product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not partially update product: %w", err)
	}

	r.log.Infof("Repository: Partial update successful for product ID %d", id)
	return product, nil
}

func (r *postgresProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if terr := asTransient("delete product", err); terr != nil {
			return terr
		}
		r.log.Errorf("Repository: Failed to delete product ID %d: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after deleting product ID %d: %v", id, err)
		return fmt.Errorf("could not confirm product deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent product ID %d", id)
		return &domain.NotFoundError{Entity: "product", ID: id}
	}

	r.log.Infof("Repository: Product deleted successfully with ID: %d", id)
	return nil
}
