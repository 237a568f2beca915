package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresAddressRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresAddressRepository(db *sql.DB, logger *logrus.Logger) domain.AddressRepository {
	return &postgresAddressRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresAddressRepository) CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	query := `
        INSERT INTO addresses (street, city, state, zip_code, country, user_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	var state sql.NullString
	if address.State != "" {
		state = sql.NullString{String: address.State, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		address.Street, address.City, state, address.ZipCode, address.Country, address.UserID,
	).Scan(&address.ID)
	if err != nil {
		if pqCode(err, pqForeignKeyViolation) {
			r.log.Warnf("Repository: Attempted to create address for non-existent user ID: %d", address.UserID)
			return nil, &domain.NotFoundError{Entity: "user", ID: address.UserID}
		}
		if terr := asTransient("create address", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to create address for user %d: %v", address.UserID, err)
		return nil, fmt.Errorf("could not create address: %w", err)
	}

	r.log.Infof("Repository: Address created successfully with ID: %d for user: %d", address.ID, address.UserID)
	return address, nil
}

func (r *postgresAddressRepository) GetAddressByID(ctx context.Context, id int64) (*domain.Address, error) {
	query := `
        SELECT id, street, city, state, zip_code, country, user_id
        FROM addresses
        WHERE id = $1`
	address := &domain.Address{}
	var state sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&address.ID,
		&address.Street,
		&address.City,
		&state,
		&address.ZipCode,
		&address.Country,
		&address.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Address with ID %d not found", id)
			return nil, &domain.NotFoundError{Entity: "address", ID: id}
		}
		if terr := asTransient("get address", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to get address by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get address by id: %w", err)
	}

	if state.Valid {
		address.State = state.String
	}
	return address, nil
}

func (r *postgresAddressRepository) ListAddressesByUser(ctx context.Context, userID int64) ([]domain.Address, error) {
	query := `
        SELECT id, street, city, state, zip_code, country, user_id
        FROM addresses
        WHERE user_id = $1
        ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		if terr := asTransient("list addresses", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list addresses for user ID %d: %v", userID, err)
		return nil, fmt.Errorf("could not list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		var address domain.Address
		var state sql.NullString
		if err := rows.Scan(&address.ID, &address.Street, &address.City, &state, &address.ZipCode, &address.Country, &address.UserID); err != nil {
			r.log.Errorf("Repository: Failed to scan address row for user ID %d: %v", userID, err)
			return nil, fmt.Errorf("error scanning address data: %w", err)
		}
		if state.Valid {
			address.State = state.String
		}
		addresses = append(addresses, address)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during addresses iteration for user ID %d: %v", userID, err)
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func (r *postgresAddressRepository) DeleteAddress(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		if terr := asTransient("delete address", err); terr != nil {
			return terr
		}
		r.log.Errorf("Repository: Failed to delete address ID %d: %v", id, err)
		return fmt.Errorf("could not delete address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm address deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent address ID %d", id)
		return &domain.NotFoundError{Entity: "address", ID: id}
	}

	r.log.Infof("Repository: Address deleted successfully with ID: %d", id)
	return nil
}
