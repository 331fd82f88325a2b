package retention

import (
	"context"
	"os"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service periodically deletes expired sessions, their uploaded dataset
// files and the analyses derived from them.
type Service struct {
	repos     *database.Repositories
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *logrus.Logger
}

// NewService creates the retention sweeper from configuration.
func NewService(cfg config.AnalysisConfig, repos *database.Repositories, logger *logrus.Logger) *Service {
	return &Service{
		repos:     repos,
		retention: config.ParseDuration(cfg.Retention, 168*time.Hour),
		schedule:  cfg.RetentionSweep,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the sweep. The first run happens on schedule, not at
// startup, so boot stays fast.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":  s.schedule,
		"retention": s.retention,
	}).Info("Retention sweep scheduled")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes everything older than the retention window.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)

	deleted, err := s.repos.Analyses.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Retention sweep failed to delete analyses")
	}

	paths, err := s.repos.Sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Retention sweep failed to delete sessions")
	}

	removed := 0
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to remove expired dataset file")
			continue
		}
		removed++
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff":            cutoff,
		"analyses_deleted":  deleted,
		"sessions_deleted":  len(paths),
		"dataset_files_rm":  removed,
	}).Info("Retention sweep completed")
}
