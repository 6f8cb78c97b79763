package usecase

import (
	"errors"
	"log/slog"

	"github.com/ponyo877/chatrelay/server/domain"
)

type fanout struct {
	sender domain.Sender
	logger *slog.Logger
}

func (f fanout) send(connectionID string, event domain.Event) {
	err := f.sender.Send(connectionID, event)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOutboxFull):
		f.logger.Warn("outbox full, evicting connection", "event", event.Name, "connection", connectionID)
	default:
		f.logger.Warn("event dropped", "event", event.Name, "connection", connectionID, "err", err)
	}
}

// broadcast sends event to every member except the one with connection ID except.
func (f fanout) broadcast(members []domain.Member, event domain.Event, except string) {
	for _, m := range members {
		if m.ConnectionID == except {
			continue
		}
		f.send(m.ConnectionID, event)
	}
}

// inSession resolves the connection's session and runs fn inside the critical
// section of the session's room plus extraRooms. The session is re-read under
// the lock; if it moved in between, the lookup starts over. It reports false
// when the connection has no session.
func inSession(
	sessions *domain.SessionTable,
	rooms *domain.RoomRegistry,
	connectionID string,
	fn func(tx *domain.RoomTx, session domain.Session),
	extraRooms ...string,
) bool {
	for {
		session, exists := sessions.Get(connectionID)
		if !exists {
			return false
		}
		stale := false
		rooms.Do(func(tx *domain.RoomTx) {
			current, exists := sessions.Get(connectionID)
			if !exists || current.RoomID != session.RoomID {
				stale = true
				return
			}
			fn(tx, current)
		}, append([]string{session.RoomID}, extraRooms...)...)
		if !stale {
			return true
		}
	}
}
