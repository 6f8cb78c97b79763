package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ponyo877/chatrelay/relaypb"
)

const systemUserID = "system"

// clock renders an ISO-8601 timestamp from the server as local HH:MM:SS. An
// unparsable value is shown as is.
func clock(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}

func formatHistory(e historyEntry) string {
	return fmt.Sprintf("[%s] %s: %s", clock(e.Timestamp), e.Username, e.Message)
}

func formatMessage(m chatMessage) string {
	if m.UserID == systemUserID {
		return fmt.Sprintf("[%s] * %s", clock(m.Time), m.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", clock(m.Time), m.Username, m.Text)
}

func formatUsers(users []member) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return strings.Join(names, ", ")
}

// typingLine describes who is typing, given usernames keyed by connection.
func typingLine(typing map[string]string) string {
	names := make([]string, 0, len(typing))
	for _, name := range typing {
		names = append(names, name)
	}
	slices.Sort(names)
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	default:
		return strings.Join(names, ", ") + " are typing..."
	}
}

// chatView is the client-side state of one chat session, updated frame by
// frame. It knows nothing about the terminal.
type chatView struct {
	room   string
	users  []member
	typing map[string]string
}

func newChatView(room string) *chatView {
	return &chatView{room: room, typing: make(map[string]string)}
}

// apply folds frame into the view and returns the lines to print.
func (v *chatView) apply(frame relaypb.Frame) ([]string, error) {
	switch frame.Event {
	case "previous_messages":
		var entries []historyEntry
		if err := frame.Decode(&entries); err != nil {
			return nil, err
		}
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, formatHistory(e))
		}
		return lines, nil
	case "message":
		var m chatMessage
		if err := frame.Decode(&m); err != nil {
			return nil, err
		}
		delete(v.typing, m.UserID)
		return []string{formatMessage(m)}, nil
	case "user_joined":
		var p userJoined
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		v.users = p.Users
	case "user_left":
		var p userLeft
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		delete(v.typing, p.UserID)
		v.users = p.Users
	case "users_list":
		var users []member
		if err := frame.Decode(&users); err != nil {
			return nil, err
		}
		v.users = users
		v.typing = make(map[string]string)
		return []string{fmt.Sprintf("* now in %s", v.room)}, nil
	case "user_typing":
		var p userTyping
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		if p.IsTyping {
			v.typing[p.UserID] = p.Username
		} else {
			delete(v.typing, p.UserID)
		}
	}
	return nil, nil
}

func (v *chatView) status() string {
	line := fmt.Sprintf("#%s  %d online: %s", v.room, len(v.users), formatUsers(v.users))
	if t := typingLine(v.typing); t != "" {
		line += "  | " + t
	}
	return line
}
