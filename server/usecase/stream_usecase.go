package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ponyo877/chatrelay/server/domain"
)

// StreamUsecase drives one connection: requests are handled strictly in
// arrival order, and disconnect cleanup runs before the connection's outbox is
// released.
type StreamUsecase struct {
	hub      *domain.Hub
	presence *PresenceUsecase
	messages *MessageUsecase
	logger   *slog.Logger
}

func NewStreamUsecase(hub *domain.Hub, presence *PresenceUsecase, messages *MessageUsecase, logger *slog.Logger) *StreamUsecase {
	return &StreamUsecase{
		hub:      hub,
		presence: presence,
		messages: messages,
		logger:   logger.With("component", "stream"),
	}
}

// HandleStreamSession processes requests until the channel is closed or ctx
// ends. A connection whose outbox overflows is evicted: the loop stops and the
// error wraps domain.ErrOutboxFull. Once it returns, nothing will be sent on
// responses any more.
func (u *StreamUsecase) HandleStreamSession(
	ctx context.Context,
	requests <-chan domain.Request,
	responses chan<- domain.Event,
	connectionID, remote string,
) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	evict := func() { cancel(domain.ErrOutboxFull) }
	if err := u.hub.Register(connectionID, responses, evict); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	defer u.hub.Unregister(connectionID)
	// Runs before Unregister so leave broadcasts still see a consistent room.
	defer u.presence.Disconnect(context.WithoutCancel(ctx), connectionID)

	u.logger.Debug("connection opened", "connection", connectionID, "remote", remote)

	terminated := false
loop:
	for {
		select {
		case request, ok := <-requests:
			if !ok {
				break loop
			}
			if terminated {
				continue
			}
			if !request.IsValid() {
				u.logger.Debug("invalid request dropped", "connection", connectionID, "request", request.String())
				continue
			}
			terminated = u.dispatch(ctx, connectionID, remote, request)
		case <-ctx.Done():
			break loop
		}
	}

	if cause := context.Cause(ctx); errors.Is(cause, domain.ErrOutboxFull) {
		u.logger.Warn("connection evicted", "connection", connectionID, "remote", remote, "err", cause)
		return fmt.Errorf("evict %s: %w", connectionID, cause)
	}
	u.logger.Debug("connection closed", "connection", connectionID, "remote", remote)
	return nil
}

// dispatch reports true when the request ends the session.
func (u *StreamUsecase) dispatch(ctx context.Context, connectionID, remote string, request domain.Request) bool {
	switch request.Type {
	case domain.RequestJoinRoom:
		u.presence.JoinRoom(ctx, connectionID, remote, request.Username, request.RoomID)
	case domain.RequestSwitchRoom:
		u.presence.SwitchRoom(ctx, connectionID, request.RoomID)
	case domain.RequestMessage:
		u.messages.SendMessage(ctx, connectionID, request.Text)
	case domain.RequestTyping:
		u.messages.SendTyping(ctx, connectionID, request.IsTyping)
	case domain.RequestDisconnect:
		u.presence.Disconnect(ctx, connectionID)
		return true
	}
	return false
}
