package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
)

// StreamOpener starts the upstream stream the relay consumes.
type StreamOpener func(ctx context.Context) (domain.FragmentStream, error)

// streamRelay forwards upstream fragments to a consumer. It is single use:
// Idle -> Streaming -> Done | Failed.
type streamRelay struct {
	open      StreamOpener
	state     domain.RelayState
	reply     strings.Builder
	forwarded int
}

func NewStreamRelay(open StreamOpener) *streamRelay {
	return &streamRelay{open: open}
}

func (r *streamRelay) State() domain.RelayState { return r.state }

// Reply is the concatenation of every fragment forwarded so far, excluding error fragments.
func (r *streamRelay) Reply() string { return r.reply.String() }

// Run consumes the upstream stream and sends every non-empty fragment to out
// in arrival order. An upstream failure is reported as one final error
// fragment. Run returns once the stream ended, failed or ctx was cancelled;
// it does not close out.
func (r *streamRelay) Run(ctx context.Context, out chan<- string) domain.RelayState {
	if r.state != domain.RelayIdle {
		slog.WarnContext(ctx, "Relay reused", "state", r.state)
		return r.state
	}
	r.state = domain.RelayStreaming

	stream, err := r.open(ctx)
	if err != nil {
		return r.fail(ctx, out, err)
	}
	defer stream.Close()

	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			r.state = domain.RelayDone
			slog.DebugContext(ctx, "Stream finished", "fragments", r.forwarded)
			return r.state
		}
		if err != nil {
			return r.fail(ctx, out, err)
		}

		if fragment == "" {
			continue
		}

		select {
		case out <- fragment:
			r.reply.WriteString(fragment)
			r.forwarded++
		case <-ctx.Done():
			return r.cancelled(ctx)
		}
	}
}

func (r *streamRelay) fail(ctx context.Context, out chan<- string, err error) domain.RelayState {
	if ctx.Err() != nil {
		return r.cancelled(ctx)
	}

	r.state = domain.RelayFailed
	slog.ErrorContext(ctx, "Upstream stream failed", "fragments", r.forwarded, logger.Err(err))

	select {
	case out <- domain.ErrorFragmentPrefix + err.Error():
	case <-ctx.Done():
	}
	return r.state
}

func (r *streamRelay) cancelled(ctx context.Context) domain.RelayState {
	r.state = domain.RelayFailed
	slog.InfoContext(ctx, "Stream cancelled by caller", "fragments", r.forwarded, logger.Err(ctx.Err()))
	return r.state
}
