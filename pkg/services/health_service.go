package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
)

type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type healthService struct {
	lister  ModelLister
	timeout time.Duration
}

func NewHealthService(lister ModelLister, timeout time.Duration) *healthService {
	return &healthService{
		lister:  lister,
		timeout: timeout,
	}
}

// Check probes the inference server by listing its models.
func (h *healthService) Check(ctx context.Context) domain.Health {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	models, err := h.lister.ListModels(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Inference server unreachable", logger.Err(err))
		return domain.Offline(err)
	}

	slog.DebugContext(ctx, "Inference server online", "models", len(models))
	return domain.Online()
}
