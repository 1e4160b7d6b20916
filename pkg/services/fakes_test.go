package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

type fakeStream struct {
	fragments []string
	err       error // returned after fragments instead of io.EOF
	closed    bool
}

func (f *fakeStream) Recv() (string, error) {
	if len(f.fragments) == 0 {
		if f.err != nil {
			return "", f.err
		}
		return "", io.EOF
	}
	next := f.fragments[0]
	f.fragments = f.fragments[1:]
	return next, nil
}

func (f *fakeStream) Close() { f.closed = true }

// blockingStream yields its fragments and then blocks until ctx is done.
type blockingStream struct {
	ctx       context.Context
	fragments []string
	closed    bool
}

func (b *blockingStream) Recv() (string, error) {
	if len(b.fragments) > 0 {
		next := b.fragments[0]
		b.fragments = b.fragments[1:]
		return next, nil
	}
	<-b.ctx.Done()
	return "", b.ctx.Err()
}

func (b *blockingStream) Close() { b.closed = true }

type fakeStreamClient struct {
	mu          sync.Mutex
	calls       int
	submitted   [][]domain.Message
	temperature float32
	stream      func(ctx context.Context) domain.FragmentStream
	err         error
}

func (f *fakeStreamClient) CreateChatCompletionStream(ctx context.Context, messages []domain.Message, temperature float32) (domain.FragmentStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.submitted = append(f.submitted, domain.CloneMessages(messages))
	f.temperature = temperature
	if f.err != nil {
		return nil, f.err
	}
	return f.stream(ctx), nil
}

func (f *fakeStreamClient) lastSubmitted() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted[len(f.submitted)-1]
}

func streamOf(fragments ...string) func(ctx context.Context) domain.FragmentStream {
	return func(ctx context.Context) domain.FragmentStream {
		return &fakeStream{fragments: append([]string(nil), fragments...)}
	}
}

type fakeSummarizer struct {
	summary domain.Summary
	calls   int
	chunks  [][]domain.Message
}

func (f *fakeSummarizer) Summarize(ctx context.Context, chunk []domain.Message) domain.Summary {
	f.calls++
	f.chunks = append(f.chunks, chunk)
	return f.summary
}

type fakeCompletionClient struct {
	reply       string
	err         error
	messages    []domain.Message
	temperature float32
	deadline    bool
}

func (f *fakeCompletionClient) CreateChatCompletion(ctx context.Context, messages []domain.Message, temperature float32) (string, error) {
	f.messages = messages
	f.temperature = temperature
	_, f.deadline = ctx.Deadline()
	return f.reply, f.err
}

type fakeChatRepository struct {
	mu      sync.Mutex
	chats   map[string][]domain.Message
	cleared []string
}

func newFakeChatRepository() *fakeChatRepository {
	return &fakeChatRepository{chats: make(map[string][]domain.Message)}
}

func (f *fakeChatRepository) Update(chatID string, fn func(messages []domain.Message) ([]domain.Message, bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if messages, ok := fn(domain.CloneMessages(f.chats[chatID])); ok {
		f.chats[chatID] = messages
	}
}

func (f *fakeChatRepository) GetByID(chatID string) (domain.Chat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	messages, ok := f.chats[chatID]
	if !ok {
		return domain.Chat{}, false
	}
	return domain.Chat{ID: chatID, Messages: domain.CloneMessages(messages), LastUpdate: time.Now()}, true
}

func (f *fakeChatRepository) Clear(chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.chats, chatID)
	f.cleared = append(f.cleared, chatID)
}

func (f *fakeChatRepository) get(chatID string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[chatID]
}

var errUpstream = errors.New("connection refused")

func collect(ch <-chan string) []string {
	var fragments []string
	for fragment := range ch {
		fragments = append(fragments, fragment)
	}
	return fragments
}
