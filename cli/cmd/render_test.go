package cmd

import (
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, event string, data any) relaypb.Frame {
	t.Helper()
	f, err := relaypb.NewFrame(event, data)
	require.NoError(t, err)
	return f
}

func TestClock(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, ts.Local().Format("15:04:05"), clock("2024-05-01T12:30:45.000Z"))
	assert.Equal(t, "not-a-time", clock("not-a-time"))
}

func TestTypingLine(t *testing.T) {
	assert.Equal(t, "", typingLine(nil))
	assert.Equal(t, "alice is typing...", typingLine(map[string]string{"c1": "alice"}))
	assert.Equal(t, "alice, bob are typing...", typingLine(map[string]string{"c2": "bob", "c1": "alice"}))
}

func TestChatView_Apply(t *testing.T) {
	v := newChatView("lobby")

	lines, err := v.apply(frame(t, "previous_messages", []historyEntry{
		{RoomID: "lobby", Username: "alice", Message: "hi", Timestamp: "bad"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[bad] alice: hi"}, lines)

	_, err = v.apply(frame(t, "user_joined", userJoined{
		UserID: "c2", Username: "bob",
		Users: []member{{UserID: "c1", Username: "alice"}, {UserID: "c2", Username: "bob"}},
	}))
	require.NoError(t, err)
	assert.Contains(t, v.status(), "2 online: alice, bob")

	_, err = v.apply(frame(t, "user_typing", userTyping{UserID: "c2", Username: "bob", IsTyping: true}))
	require.NoError(t, err)
	assert.Contains(t, v.status(), "bob is typing...")

	lines, err = v.apply(frame(t, "message", chatMessage{UserID: "c2", Username: "bob", Text: "yo", Time: "t"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[t] bob: yo"}, lines)
	assert.NotContains(t, v.status(), "typing")

	lines, err = v.apply(frame(t, "message", chatMessage{UserID: "system", Username: "System", Text: "bob has left the room", Time: "t"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[t] * bob has left the room"}, lines)

	_, err = v.apply(frame(t, "user_left", userLeft{UserID: "c2", Users: []member{{UserID: "c1", Username: "alice"}}}))
	require.NoError(t, err)
	assert.Contains(t, v.status(), "1 online: alice")

	v.room = "den"
	lines, err = v.apply(frame(t, "users_list", []member{{UserID: "c1", Username: "alice"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"* now in den"}, lines)
	assert.Contains(t, v.status(), "#den")
}

func TestChatView_ApplyRejectsBadPayload(t *testing.T) {
	v := newChatView("lobby")
	_, err := v.apply(frame(t, "user_typing", "oops"))
	assert.ErrorIs(t, err, relaypb.ErrMalformedFrame)
}

func TestChatView_IgnoresUnknownEvents(t *testing.T) {
	v := newChatView("lobby")
	lines, err := v.apply(frame(t, "something_else", map[string]string{"a": "b"}))
	require.NoError(t, err)
	assert.Empty(t, lines)
}
