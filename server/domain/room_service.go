package domain

// Sender delivers one event to one connection.
type Sender interface {
	Send(connectionID string, event Event) error
}

var _ Sender = (*Hub)(nil)

type Stats struct {
	ActiveRooms    int    `json:"activeRooms"`
	ActiveSessions int    `json:"activeSessions"`
	Connections    int    `json:"connections"`
	TotalMessages  int64  `json:"totalMessages"`
	Uptime         string `json:"uptime"`
}
