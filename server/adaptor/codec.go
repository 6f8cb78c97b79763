package adaptor

import (
	"fmt"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/ponyo877/chatrelay/server/domain"
)

type joinRoomData struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type messageData struct {
	Text string `json:"text"`
}

// decodeRequest converts an inbound frame into a domain request. Unknown events
// and payloads of the wrong shape yield relaypb.ErrMalformedFrame.
func decodeRequest(frame relaypb.Frame) (domain.Request, error) {
	switch frame.Event {
	case domain.RequestJoinRoom.String():
		var data joinRoomData
		if err := frame.Decode(&data); err != nil {
			return domain.Request{}, err
		}
		return domain.NewJoinRoomRequest(data.Username, data.RoomID), nil
	case domain.RequestMessage.String():
		var data messageData
		if err := frame.Decode(&data); err != nil {
			return domain.Request{}, err
		}
		return domain.NewMessageRequest(data.Text), nil
	case domain.RequestTyping.String():
		var isTyping bool
		if err := frame.Decode(&isTyping); err != nil {
			return domain.Request{}, err
		}
		return domain.NewTypingRequest(isTyping), nil
	case domain.RequestSwitchRoom.String():
		var roomID string
		if err := frame.Decode(&roomID); err != nil {
			return domain.Request{}, err
		}
		return domain.NewSwitchRoomRequest(roomID), nil
	case domain.RequestDisconnect.String():
		return domain.NewDisconnectRequest(), nil
	default:
		return domain.Request{}, fmt.Errorf("unknown event %q: %w", frame.Event, relaypb.ErrMalformedFrame)
	}
}

func encodeEvent(event domain.Event) (relaypb.Frame, error) {
	return relaypb.NewFrame(event.Name, event.Payload)
}
