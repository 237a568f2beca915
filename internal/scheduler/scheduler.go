package scheduler

import (
	"context"
	"time"

	"fulfillment_service/internal/usecase"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the daily report job at 00:00 UTC for the previous day.
// Manual runs go through the same aggregation path, so a scheduled run
// racing a manual one for the same date is serialized, not duplicated.
type Scheduler struct {
	cron    *cron.Cron
	reports usecase.ReportUseCase
	log     *logrus.Logger
}

func NewScheduler(reports usecase.ReportUseCase, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		reports: reports,
		log:     logger,
	}

	_, err := s.cron.AddFunc("0 0 * * *", s.runDaily)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.log.Info("Scheduler: Daily report job started")
	summary, err := s.reports.AggregateYesterday(ctx)
	if err != nil {
		s.log.Errorf("Scheduler: Daily report job failed: %v", err)
		return
	}
	s.log.Infof("Scheduler: Daily report job finished for %s: %d orders processed, %d reports created",
		summary.Date.Format("2006-01-02"), summary.OrdersProcessed, summary.ReportsCreated)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler: Started (daily report at 00:00 UTC)")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler: Stopped")
}
