package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresReportRepository struct {
	db          *sql.DB
	log         *logrus.Logger
	lockTimeout time.Duration
}

func NewPostgresReportRepository(db *sql.DB, lockTimeout time.Duration, logger *logrus.Logger) domain.ReportRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &postgresReportRepository{
		db:          db,
		log:         logger,
		lockTimeout: lockTimeout,
	}
}

// dayBoundsUTC truncates the date to a UTC calendar day and returns the
// half-open interval [00:00, next day 00:00).
func dayBoundsUTC(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// AggregateDate rebuilds the report rows for one date inside a single
// transaction. A per-date advisory lock serializes overlapping runs for the
// same date (the scheduled run racing a manual one); runs for different
// dates proceed independently.
func (r *postgresReportRepository) AggregateDate(ctx context.Context, date time.Time) (summary *domain.RunSummary, err error) {
	start, end := dayBoundsUTC(date)
	day := start.Format("2006-01-02")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Repository: Failed to begin aggregation transaction for %s: %v", day, err)
		if terr := asTransient("begin aggregation transaction", err); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.log.Warnf("Repository: Rolling back aggregation for %s due to error: %v", day, err)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: Failed to rollback aggregation transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				r.log.Errorf("Repository: Failed to commit aggregation for %s: %v", day, cErr)
				err = fmt.Errorf("failed to commit aggregation transaction: %w", cErr)
				summary = nil
			}
		}
	}()

	// lock_timeout also bounds the advisory-lock wait below, so a run
	// stuck behind another for the same date fails retryable instead of
	// hanging.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("could not set lock timeout: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "report:"+day); err != nil {
		if terr := asTransient("acquire report lock for "+day, err); terr != nil {
			err = terr
			return nil, err
		}
		return nil, fmt.Errorf("could not acquire report lock for %s: %w", day, err)
	}

	deleted, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE report_at = $1`, day)
	if err != nil {
		return nil, fmt.Errorf("could not clear reports for %s: %w", day, err)
	}
	if n, raErr := deleted.RowsAffected(); raErr == nil && n > 0 {
		r.log.Infof("Repository: Removed %d stale report rows for %s", n, day)
	}

	ordersQuery := `
        SELECT o.id, COALESCE(SUM(oi.quantity), 0)
        FROM orders o
        LEFT JOIN order_items oi ON oi.order_id = o.id
        WHERE o.created_at >= $1 AND o.created_at < $2
        GROUP BY o.id
        ORDER BY o.id`

	rows, err := tx.QueryContext(ctx, ordersQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not scan orders for %s: %w", day, err)
	}

	type orderSum struct {
		orderID int64
		total   int
	}
	sums := []orderSum{}
	for rows.Next() {
		var s orderSum
		if err = rows.Scan(&s.orderID, &s.total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning order aggregate: %w", err)
		}
		sums = append(sums, s)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating order aggregates: %w", err)
	}
	rows.Close()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reports (report_at, order_id, count_product) VALUES ($1, $2, $3)`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare report insert: %w", err)
	}
	defer stmt.Close()

	created := 0
	for _, s := range sums {
		if s.total <= 0 {
			continue
		}
		if _, err = stmt.ExecContext(ctx, day, s.orderID, s.total); err != nil {
			return nil, fmt.Errorf("could not insert report row for order %d: %w", s.orderID, err)
		}
		created++
	}

	r.log.Infof("Repository: Aggregation for %s complete: %d orders processed, %d report rows created", day, len(sums), created)
	return &domain.RunSummary{
		Date:            start,
		ReportsCreated:  created,
		OrdersProcessed: len(sums),
	}, nil
}

func (r *postgresReportRepository) GetReportsByDate(ctx context.Context, date time.Time) ([]domain.Report, error) {
	start, _ := dayBoundsUTC(date)
	day := start.Format("2006-01-02")

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, report_at, order_id, count_product
        FROM reports
        WHERE report_at = $1
        ORDER BY order_id ASC`, day)
	if err != nil {
		if terr := asTransient("list reports by date", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list reports for %s: %v", day, err)
		return nil, fmt.Errorf("could not list reports for %s: %w", day, err)
	}
	defer rows.Close()

	return r.scanReports(rows)
}

func (r *postgresReportRepository) GetAllReports(ctx context.Context, count, page int) ([]domain.Report, error) {
	limit, offset := normalizePage(count, page)

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, report_at, order_id, count_product
        FROM reports
        ORDER BY report_at DESC, order_id ASC
        LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		if terr := asTransient("list reports", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list reports (limit %d, offset %d): %v", limit, offset, err)
		return nil, fmt.Errorf("could not list reports: %w", err)
	}
	defer rows.Close()

	return r.scanReports(rows)
}

func (r *postgresReportRepository) scanReports(rows *sql.Rows) ([]domain.Report, error) {
	reports := []domain.Report{}
	for rows.Next() {
		var report domain.Report
		if err := rows.Scan(&report.ID, &report.ReportAt, &report.OrderID, &report.CountProduct); err != nil {
			r.log.Errorf("Repository: Failed to scan report row: %v", err)
			return nil, fmt.Errorf("error scanning report data: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during reports iteration: %v", err)
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func (r *postgresReportRepository) CountReports(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM reports`).Scan(&total)
	if err != nil {
		if terr := asTransient("count reports", err); terr != nil {
			return 0, terr
		}
		r.log.Errorf("Repository: Failed to count reports: %v", err)
		return 0, fmt.Errorf("could not count reports: %w", err)
	}
	return total, nil
}
