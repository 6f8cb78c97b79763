package usecase

import (
	"context"

	"github.com/ponyo877/chatrelay/server/domain"
)

// Repository is the history store: append-only writes, ordered reads per room.
type Repository interface {
	AppendMessage(ctx context.Context, message domain.ChatMessage) error
	// FetchHistory returns the room's messages in ascending timestamp order. A
	// positive limit keeps only the most recent limit messages.
	FetchHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	// SearchMessages returns the room's messages whose text matches the regular
	// expression pattern, oldest first.
	SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error)
	Close() error
}

type MessageArchiver interface {
	Submit(message domain.ChatMessage) bool
}
