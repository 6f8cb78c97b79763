package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
)

const defaultHistoryTimeout = 5 * time.Second

type Config struct {
	// HistoryLimit caps the messages replayed on join; zero replays everything.
	HistoryLimit   int
	HistoryTimeout time.Duration
}

// PresenceUsecase owns the join / switch / disconnect transitions and keeps the
// session table and the room registry in agreement.
type PresenceUsecase struct {
	sessions *domain.SessionTable
	rooms    *domain.RoomRegistry
	repo     Repository
	out      fanout
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewPresenceUsecase(
	sessions *domain.SessionTable,
	rooms *domain.RoomRegistry,
	sender domain.Sender,
	repo Repository,
	cfg Config,
	logger *slog.Logger,
) *PresenceUsecase {
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = defaultHistoryTimeout
	}
	logger = logger.With("component", "presence")
	return &PresenceUsecase{
		sessions: sessions,
		rooms:    rooms,
		repo:     repo,
		out:      fanout{sender: sender, logger: logger},
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (u *PresenceUsecase) JoinRoom(ctx context.Context, connectionID, remote, username, roomID string) {
	username = strings.TrimSpace(username)
	roomID = strings.TrimSpace(roomID)
	if username == "" || roomID == "" {
		u.logger.Debug("join ignored: empty username or room", "connection", connectionID)
		return
	}

	if _, exists := u.sessions.Get(connectionID); exists {
		u.logger.Error("join on a connection that already has a session",
			"connection", connectionID, "room", roomID, "err", domain.ErrDuplicateSession)
		return
	}
	// Read outside the room's critical section. A message sent between the read
	// and the join reaches the joiner in neither history nor live traffic.
	history, historyErr := u.loadHistory(ctx, roomID)
	if historyErr != nil {
		u.logger.Error("load history", "room", roomID, "err", historyErr)
	}

	joined := false
	u.rooms.Do(func(tx *domain.RoomTx) {
		if _, err := u.sessions.Create(connectionID, username, roomID, remote); err != nil {
			if errors.Is(err, domain.ErrDuplicateSession) {
				u.logger.Error("join on a connection that already has a session",
					"connection", connectionID, "room", roomID, "err", err)
				return
			}
			u.logger.Error("create session", "connection", connectionID, "err", err)
			return
		}
		tx.AddMember(roomID, connectionID)
		joined = true

		if historyErr == nil {
			u.out.send(connectionID, domain.NewPreviousMessagesEvent(history))
		}

		members := tx.ListMembers(roomID)
		u.out.broadcast(members, domain.NewUserJoinedEvent(connectionID, username, members), "")
		u.out.broadcast(members, u.systemEvent("%s has joined the room", username), connectionID)
	}, roomID)

	if joined {
		u.logger.Info("joined room", "connection", connectionID, "user", username, "room", roomID)
	}
}

// SwitchRoom moves the connection to newRoomID. Unlike JoinRoom it does not
// replay history; the caller gets the new member list instead.
func (u *PresenceUsecase) SwitchRoom(ctx context.Context, connectionID, newRoomID string) {
	newRoomID = strings.TrimSpace(newRoomID)
	if newRoomID == "" {
		u.logger.Debug("switch ignored: empty room", "connection", connectionID)
		return
	}

	var oldRoomID string
	found := inSession(u.sessions, u.rooms, connectionID, func(tx *domain.RoomTx, session domain.Session) {
		oldRoomID = session.RoomID
		if oldRoomID == newRoomID {
			return
		}

		tx.RemoveMember(oldRoomID, connectionID)
		remaining := tx.ListMembers(oldRoomID)
		u.out.broadcast(remaining, u.systemEvent("%s has left the room", session.Username), "")
		u.out.broadcast(remaining, domain.NewUserLeftEvent(connectionID, remaining), "")

		if err := u.sessions.UpdateRoom(connectionID, newRoomID); err != nil {
			u.logger.Error("update session room", "connection", connectionID, "err", err)
			return
		}
		tx.AddMember(newRoomID, connectionID)

		members := tx.ListMembers(newRoomID)
		u.out.broadcast(members, domain.NewUserJoinedEvent(connectionID, session.Username, members), "")
		u.out.broadcast(members, u.systemEvent("%s has joined the room", session.Username), connectionID)
		u.out.send(connectionID, domain.NewUsersListEvent(members))
	}, newRoomID)

	if !found {
		u.logger.Debug("switch ignored: no session", "connection", connectionID)
		return
	}
	if oldRoomID != newRoomID {
		u.logger.Info("switched room", "connection", connectionID, "from", oldRoomID, "to", newRoomID)
	}
}

// Disconnect tears down the connection's membership and session. Calling it
// again for the same connection does nothing.
func (u *PresenceUsecase) Disconnect(ctx context.Context, connectionID string) {
	found := inSession(u.sessions, u.rooms, connectionID, func(tx *domain.RoomTx, session domain.Session) {
		tx.RemoveMember(session.RoomID, connectionID)
		remaining := tx.ListMembers(session.RoomID)
		u.out.broadcast(remaining, u.systemEvent("%s has left the room", session.Username), "")
		u.out.broadcast(remaining, domain.NewUserLeftEvent(connectionID, remaining), "")
		u.sessions.Delete(connectionID)

		u.logger.Info("left room", "connection", connectionID, "user", session.Username, "room", session.RoomID)
	})
	if !found {
		u.logger.Debug("disconnect without session", "connection", connectionID)
	}
}

func (u *PresenceUsecase) loadHistory(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.HistoryTimeout)
	defer cancel()

	history, err := u.repo.FetchHistory(ctx, roomID, u.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history of %s: %w", roomID, err)
	}
	return history, nil
}

func (u *PresenceUsecase) systemEvent(format, username string) domain.Event {
	return domain.NewSystemEvent(fmt.Sprintf(format, username), u.now())
}
