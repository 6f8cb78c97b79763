package domain

import "time"

const (
	EventPreviousMessages = "previous_messages"
	EventMessage          = "message"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventUsersList        = "users_list"
	EventUserTyping       = "user_typing"
)

const (
	SystemUserID   = "system"
	SystemUsername = "System"
)

// isoLayout matches the millisecond ISO-8601 form browsers produce.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Event is one outbound event addressed to a single connection.
type Event struct {
	Name    string
	Payload any
}

type HistoryEntry struct {
	RoomID    string `json:"roomId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type MessagePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

type UserJoinedPayload struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Users    []Member `json:"users"`
}

type UserLeftPayload struct {
	UserID string   `json:"userId"`
	Users  []Member `json:"users"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func NewHistoryEntries(messages []ChatMessage) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, HistoryEntry{
			RoomID:    m.RoomID,
			Username:  m.Username,
			Message:   m.Text,
			Timestamp: FormatTime(m.Timestamp),
		})
	}
	return entries
}

func NewPreviousMessagesEvent(messages []ChatMessage) Event {
	return Event{Name: EventPreviousMessages, Payload: NewHistoryEntries(messages)}
}

// NewChatEvent is the transient form of a chat message; it carries the sender's
// connection ID, which is never persisted.
func NewChatEvent(message ChatMessage, connectionID string) Event {
	return Event{
		Name: EventMessage,
		Payload: MessagePayload{
			UserID:   connectionID,
			Username: message.Username,
			Text:     message.Text,
			Time:     FormatTime(message.Timestamp),
		},
	}
}

func NewSystemEvent(text string, at time.Time) Event {
	return Event{
		Name: EventMessage,
		Payload: MessagePayload{
			UserID:   SystemUserID,
			Username: SystemUsername,
			Text:     text,
			Time:     FormatTime(at),
		},
	}
}

func NewUserJoinedEvent(connectionID, username string, users []Member) Event {
	return Event{
		Name: EventUserJoined,
		Payload: UserJoinedPayload{
			UserID:   connectionID,
			Username: username,
			Users:    nonNil(users),
		},
	}
}

func NewUserLeftEvent(connectionID string, users []Member) Event {
	return Event{
		Name: EventUserLeft,
		Payload: UserLeftPayload{
			UserID: connectionID,
			Users:  nonNil(users),
		},
	}
}

func NewUsersListEvent(users []Member) Event {
	return Event{Name: EventUsersList, Payload: nonNil(users)}
}

func NewUserTypingEvent(connectionID, username string, isTyping bool) Event {
	return Event{
		Name: EventUserTyping,
		Payload: UserTypingPayload{
			UserID:   connectionID,
			Username: username,
			IsTyping: isTyping,
		},
	}
}

func nonNil(users []Member) []Member {
	if users == nil {
		return []Member{}
	}
	return users
}
