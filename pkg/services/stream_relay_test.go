package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

func runRelay(ctx context.Context, relay *streamRelay) ([]string, domain.RelayState) {
	out := make(chan string)
	stateCh := make(chan domain.RelayState, 1)
	go func() {
		defer close(out)
		stateCh <- relay.Run(ctx, out)
	}()
	fragments := collect(out)
	return fragments, <-stateCh
}

func TestStreamRelay_ForwardsInOrderSkippingEmpty(t *testing.T) {
	stream := &fakeStream{fragments: []string{"", "Hel", "", "lo", " world", ""}}
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		return stream, nil
	})

	if relay.State() != domain.RelayIdle {
		t.Fatalf("expected idle relay, got %s", relay.State())
	}

	fragments, state := runRelay(context.Background(), relay)

	if want := []string{"Hel", "lo", " world"}; !reflect.DeepEqual(fragments, want) {
		t.Errorf("expected %q, got %q", want, fragments)
	}
	if state != domain.RelayDone || relay.State() != domain.RelayDone {
		t.Errorf("expected done, got %s", state)
	}
	if relay.Reply() != "Hello world" {
		t.Errorf("unexpected reply %q", relay.Reply())
	}
	if !stream.closed {
		t.Error("expected upstream stream to be closed")
	}
}

func TestStreamRelay_MidStreamFailure(t *testing.T) {
	stream := &fakeStream{fragments: []string{"partial", " answer"}, err: errors.New("connection reset")}
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		return stream, nil
	})

	fragments, state := runRelay(context.Background(), relay)

	want := []string{"partial", " answer", "Error: connection reset"}
	if !reflect.DeepEqual(fragments, want) {
		t.Errorf("expected %q, got %q", want, fragments)
	}
	if state != domain.RelayFailed {
		t.Errorf("expected failed, got %s", state)
	}
	if relay.Reply() != "partial answer" {
		t.Errorf("error fragment must not be part of the reply, got %q", relay.Reply())
	}
	if !stream.closed {
		t.Error("expected upstream stream to be closed")
	}
}

func TestStreamRelay_OpenFailure(t *testing.T) {
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		return nil, errUpstream
	})

	fragments, state := runRelay(context.Background(), relay)

	if want := []string{"Error: connection refused"}; !reflect.DeepEqual(fragments, want) {
		t.Errorf("expected %q, got %q", want, fragments)
	}
	if state != domain.RelayFailed {
		t.Errorf("expected failed, got %s", state)
	}
}

func TestStreamRelay_CancelStopsConsumption(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &blockingStream{ctx: ctx, fragments: []string{"first"}}
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		return stream, nil
	})

	out := make(chan string)
	done := make(chan domain.RelayState, 1)
	go func() { done <- relay.Run(ctx, out) }()

	if got := <-out; got != "first" {
		t.Fatalf("expected first fragment, got %q", got)
	}
	cancel()

	select {
	case state := <-done:
		if state != domain.RelayFailed {
			t.Errorf("expected failed after cancel, got %s", state)
		}
	case <-time.After(time.Second):
		t.Fatal("relay kept running after cancellation")
	}

	select {
	case fragment := <-out:
		t.Errorf("unexpected fragment after cancellation: %q", fragment)
	default:
	}
	if !stream.closed {
		t.Error("expected upstream stream to be closed")
	}
}

func TestStreamRelay_CancelWhileConsumerAway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		return &fakeStream{fragments: []string{"never read"}}, nil
	})

	out := make(chan string)
	done := make(chan domain.RelayState, 1)
	go func() { done <- relay.Run(ctx, out) }()

	cancel()

	select {
	case state := <-done:
		if state != domain.RelayFailed {
			t.Errorf("expected failed, got %s", state)
		}
	case <-time.After(time.Second):
		t.Fatal("relay blocked on a consumer that went away")
	}
}

func TestStreamRelay_SingleUse(t *testing.T) {
	opened := 0
	relay := NewStreamRelay(func(ctx context.Context) (domain.FragmentStream, error) {
		opened++
		return &fakeStream{fragments: []string{"once"}}, nil
	})

	runRelay(context.Background(), relay)
	fragments, state := runRelay(context.Background(), relay)

	if opened != 1 {
		t.Errorf("expected upstream opened once, got %d", opened)
	}
	if len(fragments) != 0 || state != domain.RelayDone {
		t.Errorf("expected no fragments from a finished relay, got %q (%s)", fragments, state)
	}
}
