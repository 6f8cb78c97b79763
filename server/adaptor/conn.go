package adaptor

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/ponyo877/chatrelay/server/domain"
)

const requestBuffer = 32

// frameConn is one client connection seen as a stream of frames. Recv blocks
// until a frame arrives; a malformed frame is reported with
// relaypb.ErrMalformedFrame and does not end the connection.
type frameConn interface {
	Recv() (relaypb.Frame, error)
	Send(relaypb.Frame) error
}

// serveConn pumps frames between conn and the stream handler until the client
// goes away, ctx ends or the handler evicts the connection. Inbound frames are
// decoded and queued in order, outbound events are written by a single
// goroutine. It returns after the handler has finished its disconnect cleanup
// and every queued event has been written or dropped. A Recv still blocked at
// that point is left to the caller, which unblocks it by closing the
// transport.
func serveConn(
	ctx context.Context,
	handler StreamHandler,
	conn frameConn,
	connectionID, remote string,
	sendBuffer int,
	logger *slog.Logger,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := make(chan domain.Request, requestBuffer)
	responses := make(chan domain.Event, sendBuffer)

	handlerErr := make(chan error, 1)
	go func() {
		defer close(responses)
		handlerErr <- handler.HandleStreamSession(ctx, requests, responses, connectionID, remote)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for event := range responses {
			if failed {
				continue
			}
			frame, err := encodeEvent(event)
			if err != nil {
				logger.Error("encode event", "connection", connectionID, "event", event.Name, "err", err)
				continue
			}
			if err := conn.Send(frame); err != nil {
				logger.Debug("write failed", "connection", connectionID, "err", err)
				failed = true
				cancel()
			}
		}
	}()

	readErr := make(chan error, 1)
	go func() {
		defer close(requests)
		readErr <- readLoop(ctx, conn, requests, connectionID, logger)
	}()

	err := <-handlerErr
	cancel()
	<-writerDone
	if err != nil {
		return err
	}
	select {
	case err := <-readErr:
		return err
	default:
		return nil
	}
}

func readLoop(ctx context.Context, conn frameConn, requests chan<- domain.Request, connectionID string, logger *slog.Logger) error {
	for {
		frame, err := conn.Recv()
		if errors.Is(err, relaypb.ErrMalformedFrame) {
			logger.Debug("malformed frame dropped", "connection", connectionID, "err", err)
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		request, err := decodeRequest(frame)
		if err != nil {
			logger.Debug("malformed frame dropped", "connection", connectionID, "event", frame.Event, "err", err)
			continue
		}

		select {
		case requests <- request:
		case <-ctx.Done():
			return nil
		}
	}
}
