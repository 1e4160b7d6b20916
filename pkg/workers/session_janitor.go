package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type ExpiringRepository interface {
	DeleteExpired() int
	Len() int
}

type sessionJanitor struct {
	repo     ExpiringRepository
	interval time.Duration
}

func NewSessionJanitor(repo ExpiringRepository, interval time.Duration) (*sessionJanitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("cleanup interval must be positive, got %s", interval)
	}
	return &sessionJanitor{
		repo:     repo,
		interval: interval,
	}, nil
}

func (s *sessionJanitor) Name() string { return "session_janitor" }

func (s *sessionJanitor) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", s.Name(), "interval", s.interval)
	defer slog.Info("Worker stopped", "name", s.Name())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.repo.DeleteExpired(); removed > 0 {
				slog.Info("Expired sessions removed", "removed", removed, "remaining", s.repo.Len())
			}
		}
	}
}
