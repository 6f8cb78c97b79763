package adaptor

import (
	"context"

	"github.com/ponyo877/chatrelay/server/domain"
)

type StreamHandler interface {
	HandleStreamSession(ctx context.Context, requests <-chan domain.Request, responses chan<- domain.Event, connectionID, remote string) error
}

type Usecase interface {
	ListMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error)
	ListRooms() []domain.RoomSummary
	GetStats() domain.Stats
}
