package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	mu      sync.Mutex
	rows    map[string][]domain.Report
	orders  map[string][]domain.Order
	hold    time.Duration
	inRun   int32
	maxRuns int32
	calls   int32
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		rows:   make(map[string][]domain.Report),
		orders: make(map[string][]domain.Order),
	}
}

// AggregateDate mirrors the real rebuild: drop the day's rows, then insert
// one row per order with a positive item sum. It also tracks how many runs
// overlap, which is what the gate tests assert on.
func (f *fakeReportRepo) AggregateDate(ctx context.Context, date time.Time) (*domain.RunSummary, error) {
	running := atomic.AddInt32(&f.inRun, 1)
	defer atomic.AddInt32(&f.inRun, -1)
	atomic.AddInt32(&f.calls, 1)
	for {
		observed := atomic.LoadInt32(&f.maxRuns)
		if running <= observed || atomic.CompareAndSwapInt32(&f.maxRuns, observed, running) {
			break
		}
	}

	if f.hold > 0 {
		select {
		case <-time.After(f.hold):
		case <-ctx.Done():
			return nil, &domain.TransientError{Op: "aggregate", Err: ctx.Err()}
		}
	}

	day := date.UTC().Format("2006-01-02")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[day] = nil
	var created int
	for _, order := range f.orders[day] {
		var sum int
		for _, item := range order.Items {
			sum += item.Quantity
		}
		if sum <= 0 {
			continue
		}
		f.rows[day] = append(f.rows[day], domain.Report{
			ReportAt:     date,
			OrderID:      order.ID,
			CountProduct: sum,
		})
		created++
	}
	return &domain.RunSummary{
		Date:            date,
		OrdersProcessed: len(f.orders[day]),
		ReportsCreated:  created,
	}, nil
}

func (f *fakeReportRepo) GetReportsByDate(ctx context.Context, date time.Time) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[date.UTC().Format("2006-01-02")], nil
}

func (f *fakeReportRepo) GetAllReports(ctx context.Context, count, page int) ([]domain.Report, error) {
	return nil, nil
}

func (f *fakeReportRepo) CountReports(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, rows := range f.rows {
		total += int64(len(rows))
	}
	return total, nil
}

func TestAggregate_SecondRunYieldsSameRows(t *testing.T) {
	repo := newFakeReportRepo()
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	repo.orders["2026-08-27"] = []domain.Order{
		{ID: 1, Items: []domain.OrderItem{{Quantity: 2}, {Quantity: 3}}},
		{ID: 2, Items: []domain.OrderItem{{Quantity: 1}}},
	}

	uc := NewReportUseCase(repo, time.Second, testLogger())

	first, err := uc.Aggregate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, first.ReportsCreated)
	assert.Equal(t, 2, first.OrdersProcessed)

	second, err := uc.Aggregate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, first.ReportsCreated, second.ReportsCreated)

	rows, err := uc.GetReportsByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].CountProduct)
	assert.Equal(t, 1, rows[1].CountProduct)
}

func TestAggregate_OrdersWithZeroItemSumProduceNoRow(t *testing.T) {
	repo := newFakeReportRepo()
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	repo.orders["2026-08-27"] = []domain.Order{
		{ID: 1, Items: []domain.OrderItem{{Quantity: 4}}},
		{ID: 2, Items: nil},
	}

	uc := NewReportUseCase(repo, time.Second, testLogger())

	summary, err := uc.Aggregate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrdersProcessed)
	assert.Equal(t, 1, summary.ReportsCreated)

	rows, err := uc.GetReportsByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].OrderID)
}

func TestAggregate_SameDateRunsAreSerialized(t *testing.T) {
	repo := newFakeReportRepo()
	repo.hold = 30 * time.Millisecond
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	uc := NewReportUseCase(repo, 5*time.Second, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Aggregate(context.Background(), day)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.maxRuns), "same-date runs must never overlap")
	assert.Equal(t, int32(4), atomic.LoadInt32(&repo.calls))
}

func TestAggregate_DifferentDatesRunConcurrently(t *testing.T) {
	repo := newFakeReportRepo()
	repo.hold = 50 * time.Millisecond

	uc := NewReportUseCase(repo, 5*time.Second, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		day := time.Date(2026, 8, 20+i, 0, 0, 0, 0, time.UTC)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Aggregate(context.Background(), day)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.maxRuns), "distinct dates must not serialize behind one gate")
}

func TestAggregate_GateMapIsPrunedAfterRuns(t *testing.T) {
	repo := newFakeReportRepo()
	repo.hold = 10 * time.Millisecond

	uc := NewReportUseCase(repo, 5*time.Second, testLogger()).(*reportUseCase)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			day := time.Date(2026, 8, 10+i, 0, 0, 0, 0, time.UTC)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.Aggregate(context.Background(), day)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	uc.gateMu.Lock()
	defer uc.gateMu.Unlock()
	assert.Empty(t, uc.gates, "finished runs must not leave gate entries behind")
}

func TestAggregate_GateWaitExpiryIsTransient(t *testing.T) {
	repo := newFakeReportRepo()
	repo.hold = 300 * time.Millisecond
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	uc := NewReportUseCase(repo, 20*time.Millisecond, testLogger())

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = uc.Aggregate(context.Background(), day)
		close(done)
	}()

	<-started
	time.Sleep(30 * time.Millisecond)

	_, err := uc.Aggregate(context.Background(), day)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err), "a busy gate is a retryable condition, got: %v", err)
	<-done
}

func TestAggregate_CanceledContextWhileWaitingIsTransient(t *testing.T) {
	repo := newFakeReportRepo()
	repo.hold = 300 * time.Millisecond
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	uc := NewReportUseCase(repo, 5*time.Second, testLogger())

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = uc.Aggregate(context.Background(), day)
		close(done)
	}()

	<-started
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := uc.Aggregate(ctx, day)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	<-done
}
