package materialize

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers recurring full-refresh runs on a cron expression.
// There is no persisted scheduler state: every tick is an ordinary run.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *slog.Logger
}

// NewScheduler creates a Scheduler driving the given service.
func NewScheduler(svc *Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: logger,
	}
}

// Add registers a cron schedule for a full refresh of every asset.
// Returns an error for an invalid cron expression.
func (s *Scheduler) Add(schedule string) (cron.EntryID, error) {
	return s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		report, err := s.svc.Run(ctx, nil)
		if err != nil {
			s.logger.Warn("scheduled run aborted", "error", err)
			return
		}
		if !report.OK() {
			s.logger.Warn("scheduled run finished with failures",
				"run_id", report.ID,
				"failed", len(report.Failed()),
			)
			return
		}
		s.logger.Info("scheduled run succeeded", "run_id", report.ID, "assets", len(report.Results))
	})
}

// Entries returns the number of registered schedules.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins triggering schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
