package repository

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/usecase"
)

// MemoryRepository keeps history in process memory. It is lost on restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string][]domain.ChatMessage
}

func NewMemoryRepository() usecase.Repository {
	return &MemoryRepository{rooms: make(map[string][]domain.ChatMessage)}
}

func (r *MemoryRepository) AppendMessage(ctx context.Context, message domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := append(r.rooms[message.RoomID], message)
	slices.SortStableFunc(messages, compareMessages)
	r.rooms[message.RoomID] = messages
	return nil
}

func (r *MemoryRepository) FetchHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := r.rooms[roomID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return append([]domain.ChatMessage{}, messages...), nil
}

func (r *MemoryRepository) SearchMessages(ctx context.Context, roomID, pattern string) ([]domain.ChatMessage, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := []domain.ChatMessage{}
	for _, m := range r.rooms[roomID] {
		if re.MatchString(m.Text) {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func compareMessages(a, b domain.ChatMessage) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
