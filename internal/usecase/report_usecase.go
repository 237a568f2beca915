package usecase

import (
	"context"
	"sync"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ReportUseCase interface {
	// Aggregate rebuilds the report rows for one calendar date (UTC) and
	// is idempotent: a second run yields the same final row set.
	Aggregate(ctx context.Context, date time.Time) (*domain.RunSummary, error)

	// AggregateYesterday is what the daily schedule invokes.
	AggregateYesterday(ctx context.Context) (*domain.RunSummary, error)

	// EnqueueAggregation runs Aggregate in the background and returns a
	// task identifier for the caller to correlate logs with.
	EnqueueAggregation(date time.Time) string

	GetReportsByDate(ctx context.Context, date time.Time) ([]domain.Report, error)
	ListReports(ctx context.Context, count, page int) ([]domain.Report, error)
	CountReports(ctx context.Context) (int64, error)
}

// reportGate is one per-date mutex plus the number of runs currently
// holding or waiting on it, so the map entry can be dropped when the last
// one leaves.
type reportGate struct {
	mu      sync.Mutex
	waiters int
}

type reportUseCase struct {
	reportRepo domain.ReportRepository
	log        *logrus.Logger

	// gate serializes same-process runs per date before they even reach
	// the store; the advisory lock in the repository remains the
	// authoritative cross-process serializer.
	gateMu sync.Mutex
	gates  map[string]*reportGate

	gateWait time.Duration
}

func NewReportUseCase(repo domain.ReportRepository, gateWait time.Duration, logger *logrus.Logger) ReportUseCase {
	if gateWait <= 0 {
		gateWait = 5 * time.Second
	}
	return &reportUseCase{
		reportRepo: repo,
		log:        logger,
		gates:      make(map[string]*reportGate),
		gateWait:   gateWait,
	}
}

func dateKey(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}

func (uc *reportUseCase) gateFor(day string) *reportGate {
	uc.gateMu.Lock()
	defer uc.gateMu.Unlock()
	gate, ok := uc.gates[day]
	if !ok {
		gate = &reportGate{}
		uc.gates[day] = gate
	}
	gate.waiters++
	return gate
}

func (uc *reportUseCase) leaveGate(day string, gate *reportGate) {
	uc.gateMu.Lock()
	defer uc.gateMu.Unlock()
	gate.waiters--
	if gate.waiters == 0 {
		delete(uc.gates, day)
	}
}

// acquireGate takes the per-date mutex with a bounded wait. Failing to get
// it within the deadline is a retryable condition, not a hang.
func (uc *reportUseCase) acquireGate(ctx context.Context, day string) (func(), error) {
	gate := uc.gateFor(day)
	deadline := time.Now().Add(uc.gateWait)

	for {
		if gate.mu.TryLock() {
			return func() {
				gate.mu.Unlock()
				uc.leaveGate(day, gate)
			}, nil
		}
		if time.Now().After(deadline) {
			uc.log.Warnf("Use Case: Aggregation for %s already running, gate wait expired", day)
			uc.leaveGate(day, gate)
			return nil, &domain.TransientError{Op: "acquire aggregation gate for " + day, Err: context.DeadlineExceeded}
		}
		select {
		case <-ctx.Done():
			uc.leaveGate(day, gate)
			return nil, &domain.TransientError{Op: "acquire aggregation gate for " + day, Err: ctx.Err()}
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (uc *reportUseCase) Aggregate(ctx context.Context, date time.Time) (*domain.RunSummary, error) {
	day := dateKey(date)

	release, err := uc.acquireGate(ctx, day)
	if err != nil {
		return nil, err
	}
	defer release()

	uc.log.Infof("Use Case: Starting report aggregation for %s", day)
	summary, err := uc.reportRepo.AggregateDate(ctx, date)
	if err != nil {
		uc.log.Errorf("Use Case: Report aggregation for %s failed: %v", day, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Report aggregation for %s done: %d orders processed, %d reports created",
		day, summary.OrdersProcessed, summary.ReportsCreated)
	return summary, nil
}

func (uc *reportUseCase) AggregateYesterday(ctx context.Context) (*domain.RunSummary, error) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	return uc.Aggregate(ctx, yesterday)
}

func (uc *reportUseCase) EnqueueAggregation(date time.Time) string {
	taskID := uuid.NewString()
	day := dateKey(date)
	uc.log.Infof("Use Case: Enqueued aggregation task %s for %s", taskID, day)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := uc.Aggregate(ctx, date); err != nil {
			uc.log.Errorf("Use Case: Aggregation task %s for %s failed: %v", taskID, day, err)
			return
		}
		uc.log.Infof("Use Case: Aggregation task %s for %s completed", taskID, day)
	}()

	return taskID
}

func (uc *reportUseCase) GetReportsByDate(ctx context.Context, date time.Time) ([]domain.Report, error) {
	return uc.reportRepo.GetReportsByDate(ctx, date)
}

func (uc *reportUseCase) ListReports(ctx context.Context, count, page int) ([]domain.Report, error) {
	return uc.reportRepo.GetAllReports(ctx, count, page)
}

func (uc *reportUseCase) CountReports(ctx context.Context) (int64, error) {
	return uc.reportRepo.CountReports(ctx)
}
