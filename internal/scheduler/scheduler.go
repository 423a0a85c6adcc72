package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/config"
	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// DigestSender sends the low-stock digest.
type DigestSender interface {
	SendLowStockDigest(ctx context.Context) (models.Message, error)
}

// LedgerSyncer exports new ledger entries.
type LedgerSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.ScheduleConfig
	alerts  DigestSender
	ledger  LedgerSyncer
	logger  *zap.Logger
	started bool
}

// NewScheduler creates a new scheduler instance. ledger may be nil when the
// Sheets export is not configured.
func NewScheduler(cfg config.ScheduleConfig, alerts DigestSender, ledger LedgerSyncer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Standard 5-field cron expressions, evaluated in local time.
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))

	return &Scheduler{
		cron:   c,
		cfg:    cfg,
		alerts: alerts,
		ledger: ledger,
		logger: logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.alerts != nil {
		if _, err := s.cron.AddFunc(s.cfg.LowStockDigest, s.sendLowStockDigest); err != nil {
			return fmt.Errorf("schedule low-stock digest %q: %w", s.cfg.LowStockDigest, err)
		}
	}
	if s.ledger != nil {
		if _, err := s.cron.AddFunc(s.cfg.SheetsSync, s.syncLedger); err != nil {
			return fmt.Errorf("schedule sheets sync %q: %w", s.cfg.SheetsSync, err)
		}
	}

	s.cron.Start()
	s.started = true
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	if !s.started {
		return
	}
	s.logger.Info("stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) sendLowStockDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	msg, err := s.alerts.SendLowStockDigest(ctx)
	if err != nil {
		s.logger.Error("low-stock digest job failed", zap.Error(err))
		return
	}
	s.logger.Info("low-stock digest job done", zap.String("status", string(msg.Status)))
}

func (s *Scheduler) syncLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.ledger.Sync(ctx)
	if err != nil {
		s.logger.Error("sheets sync job failed", zap.Error(err))
		return
	}
	s.logger.Info("sheets sync job done", zap.Int("rows", n))
}
