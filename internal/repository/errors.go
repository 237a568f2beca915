package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"fulfillment_service/internal/domain"

	"github.com/lib/pq"
)

// Postgres error codes the repositories care about.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqLockNotAvailable    = "55P03"
	pqDeadlockDetected    = "40P01"
	pqSerializationFail   = "40001"
	pqQueryCanceled       = "57014"
)

// asTransient classifies failures that are safe to retry (bounded lock waits,
// deadlocks, canceled or broken connections). Returns nil for everything else.
func asTransient(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqDeadlockDetected, pqSerializationFail, pqQueryCanceled:
			return &domain.TransientError{Op: op, Err: err}
		}
		return nil
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return &domain.TransientError{Op: op, Err: err}
	}

	return nil
}

func pqCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

func normalizePage(count, page int) (int, int) {
	if count <= 0 {
		count = 10
	}
	if count > 100 {
		count = 100
	}
	if page <= 0 {
		page = 1
	}
	return count, (page - 1) * count
}
