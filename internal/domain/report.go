package domain

import (
	"context"
	"time"
)

type Report struct {
	ID           int64     `json:"id"`
	ReportAt     time.Time `json:"report_at"`
	OrderID      int64     `json:"order_id"`
	CountProduct int       `json:"count_product"`
}

// RunSummary is the result of one aggregation run for one calendar date.
type RunSummary struct {
	Date            time.Time `json:"date"`
	ReportsCreated  int       `json:"reports_created"`
	OrdersProcessed int       `json:"orders_processed"`
}

type ReportRepository interface {
	// AggregateDate replaces all report rows for the given date with a fresh
	// aggregation of that day's orders. Concurrent runs for the same date are
	// serialized by the store.
	AggregateDate(ctx context.Context, date time.Time) (*RunSummary, error)

	GetReportsByDate(ctx context.Context, date time.Time) ([]Report, error)
	GetAllReports(ctx context.Context, count, page int) ([]Report, error)
	CountReports(ctx context.Context) (int64, error)
}
