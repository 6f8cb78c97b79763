package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type ChatMessage struct {
	ID        string
	RoomID    string
	Username  string
	Text      string
	Timestamp time.Time
}

func NewChatMessage(roomID, username, text string, timestamp time.Time) ChatMessage {
	return ChatMessage{
		ID:        ulid.Make().String(),
		RoomID:    roomID,
		Username:  username,
		Text:      text,
		Timestamp: timestamp,
	}
}

func NewConnectionID() string {
	return ulid.Make().String()
}
