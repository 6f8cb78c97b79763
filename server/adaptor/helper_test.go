package adaptor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/repository"
	"github.com/ponyo877/chatrelay/server/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// relay is a fully wired server core backed by the in-memory store.
type relay struct {
	repo   usecase.Repository
	stream *usecase.StreamUsecase
	uc     *usecase.Usecase
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	logger := discardLogger()
	repo := repository.NewMemoryRepository()
	sessions := domain.NewSessionTable()
	rooms := domain.NewRoomRegistry(sessions, logger)
	hub := domain.NewHub()
	archiver := usecase.NewArchiver(repo, usecase.ArchiverConfig{}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = archiver.Close(ctx)
	})

	presence := usecase.NewPresenceUsecase(sessions, rooms, hub, repo, usecase.Config{HistoryLimit: 50}, logger)
	messages := usecase.NewMessageUsecase(sessions, rooms, hub, archiver, logger)
	return &relay{
		repo:   repo,
		stream: usecase.NewStreamUsecase(hub, presence, messages, logger),
		uc:     usecase.NewUsecase(repo, sessions, rooms, hub, messages),
	}
}

func (r *relay) seed(t *testing.T, messages ...domain.ChatMessage) {
	t.Helper()
	for _, m := range messages {
		if err := r.repo.AppendMessage(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
}

var seededAt = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func seedMessage(id, roomID, username, text string, offset time.Duration) domain.ChatMessage {
	return domain.ChatMessage{ID: id, RoomID: roomID, Username: username, Text: text, Timestamp: seededAt.Add(offset)}
}
