package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudfiles/webapp/internal/metrics"
)

// probeTimeout bounds the whole check so a hung database reads as unhealthy.
const probeTimeout = 3 * time.Second

// ErrUnhealthy is returned when the database round-trip or heartbeat insert fails.
var ErrUnhealthy = errors.New("metadata store unhealthy")

// Service runs health probes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new health Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Check pings the database and, only if that succeeds, records a heartbeat.
func (s *Service) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	timer := metrics.DBTimer("ping")
	err := s.repo.Ping(ctx)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("health: database unreachable", "error", err)
		return fmt.Errorf("ping: %w: %w", ErrUnhealthy, err)
	}

	timer = metrics.DBTimer("insert_heartbeat")
	err = s.repo.RecordCheck(ctx)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("health: heartbeat insert failed", "error", err)
		return fmt.Errorf("record check: %w: %w", ErrUnhealthy, err)
	}

	s.logger.Debug("health: ok")
	return nil
}
