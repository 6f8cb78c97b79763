package adaptor

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/ponyo877/chatrelay/server/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Adaptor struct {
	// conns ends every open Connect stream when it is cancelled.
	conns      context.Context
	uc         Usecase
	stream     StreamHandler
	sendBuffer int
	logger     *slog.Logger
	relaypb.UnimplementedRelayServer
}

func NewAdaptor(conns context.Context, uc Usecase, stream StreamHandler, sendBuffer int, logger *slog.Logger) *Adaptor {
	return &Adaptor{
		conns:      conns,
		uc:         uc,
		stream:     stream,
		sendBuffer: sendBuffer,
		logger:     logger.With("component", "grpc"),
	}
}

type grpcConn struct {
	stream grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]
}

func (c grpcConn) Recv() (relaypb.Frame, error) {
	in, err := c.stream.Recv()
	if err != nil {
		if status.Code(err) == codes.Canceled {
			return relaypb.Frame{}, io.EOF
		}
		return relaypb.Frame{}, err
	}
	return relaypb.FrameFromStruct(in)
}

func (c grpcConn) Send(frame relaypb.Frame) error {
	out, err := frame.ToStruct()
	if err != nil {
		return err
	}
	return c.stream.Send(out)
}

func (a *Adaptor) Connect(stream grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]) error {
	remote := "unknown"
	if p, ok := peer.FromContext(stream.Context()); ok && p.Addr != nil {
		remote = p.Addr.String()
	}
	connectionID := domain.NewConnectionID()

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	stop := context.AfterFunc(a.conns, cancel)
	defer stop()

	err := serveConn(ctx, a.stream, grpcConn{stream: stream}, connectionID, remote, a.sendBuffer, a.logger)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrOutboxFull):
		return status.Error(codes.ResourceExhausted, "connection could not keep up and was evicted")
	default:
		a.logger.Warn("stream ended with error", "connection", connectionID, "remote", remote, "err", err)
		return err
	}
}

type historyQuery struct {
	RoomID  string `json:"roomId"`
	Limit   int    `json:"limit"`
	Pattern string `json:"pattern"`
}

// History returns a room's stored messages. With a pattern it returns the
// messages matching that regular expression instead of the most recent ones.
func (a *Adaptor) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var query historyQuery
	if err := relaypb.StructInto(in, &query); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid history request: %v", err)
	}

	var messages []domain.ChatMessage
	var err error
	if query.Pattern != "" {
		messages, err = a.uc.SearchMessages(ctx, query.RoomID, query.Pattern)
	} else {
		messages, err = a.uc.ListMessages(ctx, query.RoomID, query.Limit)
	}
	if err != nil {
		a.logger.Warn("history query", "room", query.RoomID, "err", err)
		return nil, toStatus(err)
	}
	return relaypb.StructFrom(map[string]any{"messages": domain.NewHistoryEntries(messages)})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "history lookup timed out")
	default:
		return status.Error(codes.Internal, "history unavailable")
	}
}

func (a *Adaptor) ListRooms(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return relaypb.StructFrom(map[string]any{"rooms": a.uc.ListRooms()})
}
