package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger deletes stored events older than a cutoff
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionService periodically deletes events past their retention window
type RetentionService struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewRetentionService creates a retention service. A zero retention makes
// Start return immediately.
func NewRetentionService(purger Purger, config *Config, logger logrus.FieldLogger) *RetentionService {
	interval := config.RetentionInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionService{
		purger:    purger,
		retention: config.Retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start purges once and then on every interval until ctx is done
func (s *RetentionService) Start(ctx context.Context) {
	if s.retention <= 0 {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"retention": s.retention.String(),
		"interval":  s.interval.String(),
	}).Info("Event retention started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.PurgeOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PurgeOnce deletes everything older than the retention window
func (s *RetentionService) PurgeOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)
	n, err := s.purger.Purge(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to purge expired events")
		return 0
	}
	if n > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": n,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Purged expired events")
	}
	return n
}
