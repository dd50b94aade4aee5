package scheduler

import (
	"context"
	"time"

	"elbp_record_service/internal/domain/joblock"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	alertJobName = "alert_scan"
	alertJobTTL  = 15 * time.Minute
	alertTimeout = 10 * time.Minute
)

// AlertRunner is the scan entry point the scheduler drives.
type AlertRunner interface {
	RunAll(ctx context.Context) (int, error)
}

// AlertScheduler fires the periodic threshold scan. A database lease keyed by
// job name keeps the scan single-flight when several instances share the
// schedule; the lease expires on its own if a holder dies mid-run.
type AlertScheduler struct {
	cronEngine   *cron.Cron
	alertRunner  AlertRunner
	locks        joblock.Repository
	logger       *logrus.Logger
	cronSpecScan string
}

func NewAlertScheduler(
	alertRunner AlertRunner,
	locks joblock.Repository,
	logger *logrus.Logger,
	cronSpecScan string, // e.g. "0 6 * * *" (06:00 daily)
) *AlertScheduler {
	return &AlertScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		alertRunner:  alertRunner,
		locks:        locks,
		logger:       logger,
		cronSpecScan: cronSpecScan,
	}
}

func (s *AlertScheduler) Start() {
	s.logger.Info("Starting alert scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecScan, func() {
		s.logger.Info("Cron job triggered for alert scan.")
		s.executeScan()
	})
	if err != nil {
		s.logger.Fatalf("Could not add alert scan cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Alert scheduler started.")
}

func (s *AlertScheduler) executeScan() {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()

	token := uuid.NewString()
	acquired, err := s.locks.Acquire(ctx, alertJobName, token, alertJobTTL)
	if err != nil {
		s.logger.Errorf("Failed to acquire %s lease: %v", alertJobName, err)
		return
	}
	if !acquired {
		s.logger.Infof("Another instance holds the %s lease. Skipping this run.", alertJobName)
		return
	}
	defer func() {
		if err := s.locks.Release(context.Background(), alertJobName, token); err != nil {
			s.logger.Errorf("Failed to release %s lease: %v", alertJobName, err)
		}
	}()

	queued, err := s.alertRunner.RunAll(ctx)
	if err != nil {
		s.logger.Errorf("Alert scan failed: %v", err)
		return
	}
	s.logger.Infof("Alert scan completed, %d alert(s) queued.", queued)
}

func (s *AlertScheduler) Stop() {
	s.logger.Info("Stopping alert scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Alert scheduler gracefully stopped.")
}
