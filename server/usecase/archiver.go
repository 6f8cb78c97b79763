package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
)

type ArchiverConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

func DefaultArchiverConfig() ArchiverConfig {
	return ArchiverConfig{
		QueueSize:    1024,
		WriteTimeout: 5 * time.Second,
	}
}

// Archiver persists chat messages in the background. A single worker keeps
// writes in submission order.
type Archiver struct {
	repo   Repository
	cfg    ArchiverConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan domain.ChatMessage
	done   chan struct{}
}

func NewArchiver(repo Repository, cfg ArchiverConfig, logger *slog.Logger) *Archiver {
	def := DefaultArchiverConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	a := &Archiver{
		repo:   repo,
		cfg:    cfg,
		logger: logger.With("component", "archiver"),
		queue:  make(chan domain.ChatMessage, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit queues message for persistence without blocking. It reports false
// when the message was dropped.
func (a *Archiver) Submit(message domain.ChatMessage) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.Warn("archiver closed, message not persisted", "room", message.RoomID, "id", message.ID)
		return false
	}
	select {
	case a.queue <- message:
		return true
	default:
		a.logger.Warn("archive queue full, message not persisted", "room", message.RoomID, "id", message.ID)
		return false
	}
}

func (a *Archiver) run() {
	defer close(a.done)
	for message := range a.queue {
		a.write(message)
	}
}

func (a *Archiver) write(message domain.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
	defer cancel()

	if err := a.repo.AppendMessage(ctx, message); err != nil {
		a.logger.Error("persist chat message", "room", message.RoomID, "id", message.ID, "err", err)
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
