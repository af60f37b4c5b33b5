package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/studio-api/internal/service/reminder"
	"github.com/jwalitptl/studio-api/pkg/logger"
)

// Sweeper periodically re-scans the reminder horizon. It is the fallback
// delivery driver: if the external scheduler never fires, every reminder
// still goes out within one sweep interval of its window opening.
type Sweeper struct {
	service  *reminder.Service
	interval time.Duration
	logger   *logger.Logger
}

func NewSweeper(service *reminder.Service, interval time.Duration, logger *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting reminder sweeper", "interval", s.interval.String())

	// One pass up front so a restart doesn't wait a full interval.
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down reminder sweeper")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	stats, err := s.service.Sweep(ctx)
	if err != nil {
		s.logger.Error(err, "sweep failed")
		return
	}
	if stats.Fired > 0 || stats.Failed > 0 {
		s.logger.Info("sweep completed",
			"scanned", stats.Scanned,
			"fired", stats.Fired,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
		)
	}
}
