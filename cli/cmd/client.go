package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type historyEntry struct {
	RoomID    string `json:"roomId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type member struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type roomSummary struct {
	RoomID string   `json:"roomId"`
	Users  []member `json:"users"`
}

type chatMessage struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

type userJoined struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Users    []member `json:"users"`
}

type userLeft struct {
	UserID string   `json:"userId"`
	Users  []member `json:"users"`
}

type userTyping struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// resolveRoom returns the room named in args, or the current room.
func resolveRoom(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return viper.GetString(currentRoomKey)
}

func fetchHistory(ctx context.Context, client relaypb.RelayClient, roomID string, limit int, pattern string) ([]historyEntry, error) {
	query := map[string]any{"roomId": roomID, "limit": limit}
	if pattern != "" {
		query["pattern"] = pattern
	}
	in, err := relaypb.StructFrom(query)
	if err != nil {
		return nil, err
	}
	out, err := client.History(ctx, in)
	if err != nil {
		return nil, err
	}
	var res struct {
		Messages []historyEntry `json:"messages"`
	}
	if err := relaypb.StructInto(out, &res); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return res.Messages, nil
}

func fetchRooms(ctx context.Context, client relaypb.RelayClient) ([]roomSummary, error) {
	out, err := client.ListRooms(ctx, &structpb.Struct{})
	if err != nil {
		return nil, err
	}
	var res struct {
		Rooms []roomSummary `json:"rooms"`
	}
	if err := relaypb.StructInto(out, &res); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return res.Rooms, nil
}

// relayStream wraps the Connect stream with frame-level helpers.
type relayStream struct {
	stream grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]
}

func openStream(ctx context.Context, client relaypb.RelayClient) (*relayStream, error) {
	stream, err := client.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect failed: %w", err)
	}
	return &relayStream{stream: stream}, nil
}

func (s *relayStream) send(event string, data any) error {
	frame, err := relaypb.NewFrame(event, data)
	if err != nil {
		return err
	}
	out, err := frame.ToStruct()
	if err != nil {
		return err
	}
	return s.stream.Send(out)
}

func (s *relayStream) join(username, roomID string) error {
	return s.send("join_room", map[string]string{"username": username, "roomId": roomID})
}

func (s *relayStream) message(text string) error {
	return s.send("message", map[string]string{"text": text})
}

func (s *relayStream) typing(isTyping bool) error {
	return s.send("typing", isTyping)
}

func (s *relayStream) switchRoom(roomID string) error {
	return s.send("switch_room", roomID)
}

// leave asks the server to end the session and half-closes the stream.
func (s *relayStream) leave() error {
	if err := s.send("disconnect", nil); err != nil {
		return err
	}
	return s.stream.CloseSend()
}

// recv returns io.EOF once the server has closed the stream.
func (s *relayStream) recv() (relaypb.Frame, error) {
	in, err := s.stream.Recv()
	if err != nil {
		return relaypb.Frame{}, err
	}
	return relaypb.FrameFromStruct(in)
}

// drain reads until the server closes the stream.
func (s *relayStream) drain() error {
	for {
		_, err := s.recv()
		switch {
		case err == nil, errors.Is(err, relaypb.ErrMalformedFrame):
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}
