package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
)

var (
	messageLimit int = 1000
)

// Usecase answers read-only queries about rooms, history and the relay itself.
type Usecase struct {
	repo      Repository
	sessions  *domain.SessionTable
	rooms     *domain.RoomRegistry
	hub       *domain.Hub
	messages  *MessageUsecase
	startTime time.Time
}

func NewUsecase(
	repo Repository,
	sessions *domain.SessionTable,
	rooms *domain.RoomRegistry,
	hub *domain.Hub,
	messages *MessageUsecase,
) *Usecase {
	return &Usecase{
		repo:      repo,
		sessions:  sessions,
		rooms:     rooms,
		hub:       hub,
		messages:  messages,
		startTime: time.Now(),
	}
}

func (u *Usecase) ListMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required: %w", domain.ErrInvalidQuery)
	}
	if limit <= 0 || limit > messageLimit {
		limit = messageLimit
	}
	messages, err := u.repo.FetchHistory(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return messages, nil
}

func (u *Usecase) SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required: %w", domain.ErrInvalidQuery)
	}
	if _, err := regexp.Compile(pattern); err != nil || pattern == "" {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, domain.ErrInvalidQuery)
	}
	messages, err := u.repo.SearchMessages(ctx, roomID, pattern)
	if err != nil {
		return nil, fmt.Errorf("error searching messages: %w", err)
	}
	return messages, nil
}

func (u *Usecase) ListRooms() []domain.RoomSummary {
	return u.rooms.Snapshot()
}

func (u *Usecase) GetStats() domain.Stats {
	return domain.Stats{
		ActiveRooms:    u.rooms.Len(),
		ActiveSessions: u.sessions.Len(),
		Connections:    u.hub.Len(),
		TotalMessages:  u.messages.Routed(),
		Uptime:         time.Since(u.startTime).Round(time.Second).String(),
	}
}
