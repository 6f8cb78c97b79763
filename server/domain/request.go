package domain

import "strings"

type RequestType int

const (
	RequestJoinRoom RequestType = iota
	RequestMessage
	RequestTyping
	RequestSwitchRoom
	RequestDisconnect
)

func (t RequestType) String() string {
	switch t {
	case RequestJoinRoom:
		return "join_room"
	case RequestMessage:
		return "message"
	case RequestTyping:
		return "typing"
	case RequestSwitchRoom:
		return "switch_room"
	case RequestDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Request is one inbound event of a connection.
type Request struct {
	Type     RequestType
	Username string
	RoomID   string
	Text     string
	IsTyping bool
}

func NewJoinRoomRequest(username, roomID string) Request {
	return Request{
		Type:     RequestJoinRoom,
		Username: username,
		RoomID:   roomID,
	}
}

func NewMessageRequest(text string) Request {
	return Request{
		Type: RequestMessage,
		Text: text,
	}
}

func NewTypingRequest(isTyping bool) Request {
	return Request{
		Type:     RequestTyping,
		IsTyping: isTyping,
	}
}

func NewSwitchRoomRequest(roomID string) Request {
	return Request{
		Type:   RequestSwitchRoom,
		RoomID: roomID,
	}
}

func NewDisconnectRequest() Request {
	return Request{Type: RequestDisconnect}
}

func (r Request) IsValid() bool {
	switch r.Type {
	case RequestJoinRoom:
		return strings.TrimSpace(r.Username) != "" && strings.TrimSpace(r.RoomID) != ""
	case RequestMessage:
		return strings.TrimSpace(r.Text) != ""
	case RequestSwitchRoom:
		return strings.TrimSpace(r.RoomID) != ""
	case RequestTyping, RequestDisconnect:
		return true
	default:
		return false
	}
}

func (r Request) String() string {
	switch r.Type {
	case RequestJoinRoom:
		return r.Type.String() + ": " + r.Username + " -> " + r.RoomID
	case RequestSwitchRoom:
		return r.Type.String() + ": -> " + r.RoomID
	case RequestMessage:
		return r.Type.String() + ": " + r.Text
	default:
		return r.Type.String()
	}
}
