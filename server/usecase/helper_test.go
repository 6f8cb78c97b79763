package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a domain.Sender that keeps every event per connection.
type recorder struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]domain.Event)}
}

func (r *recorder) Send(connectionID string, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connectionID] = append(r.events[connectionID], event)
	return nil
}

// take returns and forgets the events recorded for connectionID.
func (r *recorder) take(connectionID string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events[connectionID]
	delete(r.events, connectionID)
	return events
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string][]domain.Event)
}

func names(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

// fakeRepo is an in-memory Repository whose failures and latency can be forced.
type fakeRepo struct {
	mu          sync.Mutex
	messages    []domain.ChatMessage
	appendErr   error
	fetchErr    error
	block       chan struct{}
	appended    chan domain.ChatMessage
	fetchGate   chan struct{}
	fetchParked chan struct{} // one value per FetchHistory held at fetchGate
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appended: make(chan domain.ChatMessage, 1024)}
}

func (r *fakeRepo) AppendMessage(ctx context.Context, message domain.ChatMessage) error {
	r.mu.Lock()
	block, appendErr := r.block, r.appendErr
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() { r.appended <- message }()
	if appendErr != nil {
		return appendErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeRepo) FetchHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	gate, parked := r.fetchGate, r.fetchParked
	r.mu.Unlock()
	if gate != nil {
		if parked != nil {
			parked <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := []domain.ChatMessage{}
	for _, m := range r.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeRepo) SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error) {
	re := regexp.MustCompile(pattern)
	all, err := r.FetchHistory(ctx, roomID, 0)
	if err != nil {
		return nil, err
	}
	out := []domain.ChatMessage{}
	for _, m := range all {
		if re.MatchString(m.Text) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) seed(messages ...domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, messages...)
}

// waitAppended blocks until n messages reached the store.
func (r *fakeRepo) waitAppended(t *testing.T, n int) []domain.ChatMessage {
	t.Helper()
	out := make([]domain.ChatMessage, 0, n)
	for range n {
		select {
		case m := <-r.appended:
			out = append(out, m)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d appended messages, got %d", n, len(out))
		}
	}
	return out
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	sessions *domain.SessionTable
	rooms    *domain.RoomRegistry
	out      *recorder
	repo     *fakeRepo
	archiver *Archiver
	presence *PresenceUsecase
	messages *MessageUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	sessions := domain.NewSessionTable()
	rooms := domain.NewRoomRegistry(sessions, logger)
	out := newRecorder()
	repo := newFakeRepo()
	archiver := NewArchiver(repo, ArchiverConfig{QueueSize: 64, WriteTimeout: time.Second}, logger)
	t.Cleanup(func() {
		repo.mu.Lock()
		if repo.block != nil {
			close(repo.block)
			repo.block = nil
		}
		repo.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, archiver.Close(ctx))
	})

	presence := NewPresenceUsecase(sessions, rooms, out, repo, Config{}, logger)
	presence.now = func() time.Time { return fixedNow }
	messages := NewMessageUsecase(sessions, rooms, out, archiver, logger)
	messages.now = func() time.Time { return fixedNow }

	return &testEnv{
		sessions: sessions,
		rooms:    rooms,
		out:      out,
		repo:     repo,
		archiver: archiver,
		presence: presence,
		messages: messages,
	}
}

func (e *testEnv) join(connectionID, username, roomID string) {
	e.presence.JoinRoom(context.Background(), connectionID, "", username, roomID)
}

func member(connectionID, username string) domain.Member {
	return domain.Member{ConnectionID: connectionID, Username: username}
}
