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

type postgresUserRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresUserRepository(db *sql.DB, logger *logrus.Logger) domain.UserRepository {
	return &postgresUserRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (username, email, full_name)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	r.log.Debugf("Repository: Attempting to create user with username: %s", user.Username)

	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.FullName).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if pqCode(err, pqUniqueViolation) {
			r.log.Warnf("Repository: Attempted to create user with duplicate username/email: %s / %s", user.Username, user.Email)
			return nil, &domain.AlreadyExistsError{
				Entity: "user",
				Detail: fmt.Sprintf("username '%s' or email '%s'", user.Username, user.Email),
			}
		}
		if terr := asTransient("create user", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to create user '%s': %v", user.Username, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	r.log.Infof("Repository: User created successfully with ID: %d, Username: %s", user.ID, user.Username)
	return user, nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
        SELECT id, username, email, full_name, created_at, updated_at
        FROM users
        WHERE id = $1`
	user := &domain.User{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found", id)
			return nil, &domain.NotFoundError{Entity: "user", ID: id}
		}
		if terr := asTransient("get user", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to get user by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}

	r.log.Debugf("Repository: User found by ID %d (Username: %s)", id, user.Username)
	return user, nil
}

func (r *postgresUserRepository) GetUsersByFilter(ctx context.Context, count, page int, filter domain.UserFilter) ([]domain.User, error) {
	limit, offset := normalizePage(count, page)

	query := `
        SELECT id, username, email, full_name, created_at, updated_at
        FROM users`
	args := []interface{}{}
	conditions := []string{}

	if filter.Username != "" {
		args = append(args, filter.Username)
		conditions = append(conditions, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if terr := asTransient("list users", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list users (limit %d, offset %d): %v", limit, offset, err)
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.CreatedAt, &user.UpdatedAt); err != nil {
			r.log.Errorf("Repository: Failed to scan user row: %v", err)
			return nil, fmt.Errorf("error scanning user data: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during users list iteration: %v", err)
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	r.log.Infof("Repository: Retrieved %d users (limit: %d, offset: %d)", len(users), limit, offset)
	return users, nil
}

func (r *postgresUserRepository) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM users`).Scan(&total)
	if err != nil {
		if terr := asTransient("count users", err); terr != nil {
			return 0, terr
		}
		r.log.Errorf("Repository: Failed to count users: %v", err)
		return 0, fmt.Errorf("could not count users: %w", err)
	}
	return total, nil
}

func (r *postgresUserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	setClauses := []string{}
	args := []interface{}{}

	if update.Username != nil {
		args = append(args, *update.Username)
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", len(args)))
	}
	if update.Email != nil {
		args = append(args, *update.Email)
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", len(args)))
	}
	if update.FullName != nil {
		args = append(args, *update.FullName)
		setClauses = append(setClauses, fmt.Sprintf("full_name = $%d", len(args)))
	}

	if len(setClauses) == 0 {
		r.log.Warnf("Repository: No fields provided for user update ID %d. Returning current user.", id)
		return r.GetUserByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE users
        SET %s, updated_at = NOW()
        WHERE id = $%d
        RETURNING id, username, email, full_name, created_at, updated_at`,
		strings.Join(setClauses, ", "), len(args))

	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found for update", id)
			return nil, &domain.NotFoundError{Entity: "user", ID: id}
		}
		if pqCode(err, pqUniqueViolation) {
			r.log.Warnf("Repository: Duplicate username/email on update for user ID %d", id)
			return nil, &domain.AlreadyExistsError{Entity: "user", Detail: "username or email taken by another user"}
		}
		if terr := asTransient("update user", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to update user ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update user: %w", err)
	}

	r.log.Infof("Repository: User updated successfully with ID: %d", id)
	return user, nil
}

func (r *postgresUserRepository) DeleteUser(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if terr := asTransient("delete user", err); terr != nil {
			return terr
		}
		r.log.Errorf("Repository: Failed to delete user ID %d: %v", id, err)
		return fmt.Errorf("could not delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after deleting user ID %d: %v", id, err)
		return fmt.Errorf("could not confirm user deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent user ID %d", id)
		return &domain.NotFoundError{Entity: "user", ID: id}
	}

	r.log.Infof("Repository: User deleted successfully with ID: %d", id)
	return nil
}
