package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
)

// MessageUsecase routes chat and typing events to the sender's current room.
type MessageUsecase struct {
	sessions *domain.SessionTable
	rooms    *domain.RoomRegistry
	archiver MessageArchiver
	out      fanout
	logger   *slog.Logger
	now      func() time.Time
	routed   atomic.Int64
}

func NewMessageUsecase(
	sessions *domain.SessionTable,
	rooms *domain.RoomRegistry,
	sender domain.Sender,
	archiver MessageArchiver,
	logger *slog.Logger,
) *MessageUsecase {
	logger = logger.With("component", "router")
	return &MessageUsecase{
		sessions: sessions,
		rooms:    rooms,
		archiver: archiver,
		out:      fanout{sender: sender, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

// SendMessage delivers text to every member of the sender's room, the sender
// included, and hands it to the archiver. Archiving never delays delivery.
func (u *MessageUsecase) SendMessage(ctx context.Context, connectionID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	found := inSession(u.sessions, u.rooms, connectionID, func(tx *domain.RoomTx, session domain.Session) {
		message := domain.NewChatMessage(session.RoomID, session.Username, text, u.now())
		u.archiver.Submit(message)
		u.out.broadcast(tx.ListMembers(session.RoomID), domain.NewChatEvent(message, connectionID), "")
		u.routed.Add(1)
	})
	if !found {
		u.logger.Debug("message dropped: no session", "connection", connectionID)
	}
}

// SendTyping tells the other members of the room whether the sender is typing.
func (u *MessageUsecase) SendTyping(ctx context.Context, connectionID string, isTyping bool) {
	found := inSession(u.sessions, u.rooms, connectionID, func(tx *domain.RoomTx, session domain.Session) {
		event := domain.NewUserTypingEvent(connectionID, session.Username, isTyping)
		u.out.broadcast(tx.ListMembers(session.RoomID), event, connectionID)
	})
	if !found {
		u.logger.Debug("typing dropped: no session", "connection", connectionID)
	}
}

func (u *MessageUsecase) Routed() int64 {
	return u.routed.Load()
}
