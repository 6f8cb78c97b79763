package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamEnv struct {
	hub      *domain.Hub
	sessions *domain.SessionTable
	rooms    *domain.RoomRegistry
	stream   *StreamUsecase
}

func newStreamEnv(t *testing.T) *streamEnv {
	t.Helper()
	logger := discardLogger()
	sessions := domain.NewSessionTable()
	rooms := domain.NewRoomRegistry(sessions, logger)
	hub := domain.NewHub()
	repo := newFakeRepo()
	archiver := NewArchiver(repo, ArchiverConfig{}, logger)
	t.Cleanup(func() { _ = archiver.Close(context.Background()) })

	presence := NewPresenceUsecase(sessions, rooms, hub, repo, Config{}, logger)
	messages := NewMessageUsecase(sessions, rooms, hub, archiver, logger)
	return &streamEnv{
		hub:      hub,
		sessions: sessions,
		rooms:    rooms,
		stream:   NewStreamUsecase(hub, presence, messages, logger),
	}
}

type client struct {
	requests  chan domain.Request
	responses chan domain.Event
	done      chan error
}

func (e *streamEnv) connect(t *testing.T, connectionID string) *client {
	t.Helper()
	return e.connectWithOutbox(t, connectionID, 64)
}

func (e *streamEnv) connectWithOutbox(t *testing.T, connectionID string, size int) *client {
	t.Helper()
	c := &client{
		requests:  make(chan domain.Request, 16),
		responses: make(chan domain.Event, size),
		done:      make(chan error, 1),
	}
	go func() {
		c.done <- e.stream.HandleStreamSession(context.Background(), c.requests, c.responses, connectionID, "test")
	}()
	require.Eventually(t, func() bool { return e.hub.IsRegistered(connectionID) }, time.Second, time.Millisecond)
	return c
}

func (c *client) next(t *testing.T) domain.Event {
	t.Helper()
	select {
	case ev := <-c.responses:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return domain.Event{}
	}
}

func (c *client) expect(t *testing.T, names ...string) []domain.Event {
	t.Helper()
	events := make([]domain.Event, 0, len(names))
	for _, name := range names {
		ev := c.next(t)
		require.Equal(t, name, ev.Name)
		events = append(events, ev)
	}
	return events
}

func (c *client) close(t *testing.T) {
	t.Helper()
	close(c.requests)
	select {
	case err := <-c.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestStream_JoinChatAndHangUp(t *testing.T) {
	e := newStreamEnv(t)
	a := e.connect(t, "a")
	b := e.connect(t, "b")

	a.requests <- domain.NewJoinRoomRequest("A", "lobby")
	a.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)

	b.requests <- domain.NewJoinRoomRequest("B", "lobby")
	b.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)
	a.expect(t, domain.EventUserJoined, domain.EventMessage)

	b.requests <- domain.NewMessageRequest("hello")
	got := a.expect(t, domain.EventMessage)[0].Payload.(domain.MessagePayload)
	assert.Equal(t, "hello", got.Text)
	b.expect(t, domain.EventMessage)

	// Closing the request channel is an ungraceful disconnect.
	b.close(t)
	a.expect(t, domain.EventMessage, domain.EventUserLeft)
	assert.False(t, e.hub.IsRegistered("b"))
	_, ok := e.sessions.Get("b")
	assert.False(t, ok)

	a.close(t)
	assert.Equal(t, 0, e.hub.Len())
	assert.Empty(t, e.rooms.Snapshot())
}

func TestStream_ExplicitDisconnectIsTerminal(t *testing.T) {
	e := newStreamEnv(t)
	a := e.connect(t, "a")
	b := e.connect(t, "b")

	a.requests <- domain.NewJoinRoomRequest("A", "lobby")
	a.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)
	b.requests <- domain.NewJoinRoomRequest("B", "lobby")
	b.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)
	a.expect(t, domain.EventUserJoined, domain.EventMessage)

	b.requests <- domain.NewDisconnectRequest()
	b.requests <- domain.NewJoinRoomRequest("B", "lobby")
	b.requests <- domain.NewMessageRequest("too late")
	a.expect(t, domain.EventMessage, domain.EventUserLeft)

	b.close(t)
	// Only one leave, nothing after it.
	a.requests <- domain.NewTypingRequest(true)
	a.close(t)
	select {
	case ev := <-a.responses:
		t.Fatalf("unexpected event %s", ev.Name)
	default:
	}
}

func TestStream_InvalidRequestsAreDropped(t *testing.T) {
	e := newStreamEnv(t)
	a := e.connect(t, "a")

	a.requests <- domain.NewJoinRoomRequest("", "lobby")
	a.requests <- domain.NewMessageRequest("before join")
	a.requests <- domain.NewSwitchRoomRequest("")
	a.requests <- domain.NewJoinRoomRequest("A", "lobby")
	a.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)

	a.requests <- domain.NewSwitchRoomRequest("den")
	a.expect(t, domain.EventUserJoined, domain.EventUsersList)

	session, ok := e.sessions.Get("a")
	require.True(t, ok)
	assert.Equal(t, "den", session.RoomID)
	a.close(t)
}

func TestStream_DuplicateConnectionIDIsRejected(t *testing.T) {
	e := newStreamEnv(t)
	a := e.connect(t, "a")

	err := e.stream.HandleStreamSession(context.Background(), make(chan domain.Request), make(chan domain.Event), "a", "test")
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	a.close(t)
}

func TestStream_FullOutboxEvictsMember(t *testing.T) {
	e := newStreamEnv(t)
	a := e.connect(t, "a")
	b := e.connectWithOutbox(t, "b", 4)

	a.requests <- domain.NewJoinRoomRequest("A", "lobby")
	a.expect(t, domain.EventPreviousMessages, domain.EventUserJoined)
	b.requests <- domain.NewJoinRoomRequest("B", "lobby")
	a.expect(t, domain.EventUserJoined, domain.EventMessage)

	// B never reads; its two join events plus two messages fill the outbox.
	for range 10 {
		a.requests <- domain.NewMessageRequest("flood")
	}

	select {
	case err := <-b.done:
		assert.ErrorIs(t, err, domain.ErrOutboxFull)
	case <-time.After(2 * time.Second):
		t.Fatal("slow connection was not evicted")
	}
	assert.False(t, e.hub.IsRegistered("b"))
	_, ok := e.sessions.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []domain.Member{{ConnectionID: "a", Username: "A"}}, e.rooms.ListMembers("lobby"))

	// A sees its own messages, then B leaving.
	sawLeft := false
	for !sawLeft {
		ev := a.next(t)
		if ev.Name == domain.EventUserLeft {
			sawLeft = true
			left := ev.Payload.(domain.UserLeftPayload)
			assert.Equal(t, "b", left.UserID)
			assert.Equal(t, []domain.Member{{ConnectionID: "a", Username: "A"}}, left.Users)
		}
	}
	assert.Len(t, b.responses, 4)
	a.close(t)
}
