package domain

import (
	"time"
)

type Session struct {
	ConnectionID string
	Username     string
	RoomID       string
	JoinedAt     time.Time
	Remote       string
}

func NewSession(connectionID, username, roomID, remote string) Session {
	return Session{
		ConnectionID: connectionID,
		Username:     username,
		RoomID:       roomID,
		JoinedAt:     time.Now(),
		Remote:       remote,
	}
}

func (s Session) IsValid() bool {
	return s.ConnectionID != "" && s.Username != "" && s.RoomID != ""
}

func (s Session) String() string {
	return s.Username + "@" + s.RoomID + "(" + s.ConnectionID + ")"
}
