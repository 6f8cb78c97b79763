package adaptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/ponyo877/chatrelay/server/domain"
)

const writeWait = 5 * time.Second

type WebSocketConfig struct {
	SendBuffer     int
	PingInterval   time.Duration
	ReadLimit      int64
	AllowedOrigins []string
}

type WebSocketServer struct {
	upgrader websocket.Upgrader
	stream   StreamHandler
	cfg      WebSocketConfig
	logger   *slog.Logger
}

func NewWebSocketServer(stream StreamHandler, cfg WebSocketConfig, logger *slog.Logger) *WebSocketServer {
	s := &WebSocketServer{
		stream: stream,
		cfg:    cfg,
		logger: logger.With("component", "websocket"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

// HandleWS upgrades GET /ws and serves the connection until it closes.
func (s *WebSocketServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	connectionID := domain.NewConnectionID()

	c := &wsConn{conn: conn, pingEvery: s.cfg.PingInterval}
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	ctx := r.Context()
	stop := make(chan struct{})
	go c.keepAlive(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := serveConn(ctx, s.stream, c, connectionID, r.RemoteAddr, s.cfg.SendBuffer, s.logger); err != nil {
		s.logger.Debug("ws connection ended with error", "connection", connectionID, "err", err)
	}
	close(stop)
	if err := conn.Close(); err != nil {
		s.logger.Debug("ws close failed", "connection", connectionID, "err", err)
	}
}

type wsConn struct {
	conn      *websocket.Conn
	pingEvery time.Duration
}

func (c *wsConn) extendDeadline() {
	if c.pingEvery > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * c.pingEvery))
	}
}

func (c *wsConn) keepAlive(stop <-chan struct{}) {
	if c.pingEvery <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (c *wsConn) Recv() (relaypb.Frame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return relaypb.Frame{}, io.EOF
		}
		return relaypb.Frame{}, err
	}
	if messageType != websocket.TextMessage {
		return relaypb.Frame{}, fmt.Errorf("binary message: %w", relaypb.ErrMalformedFrame)
	}
	var frame relaypb.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return relaypb.Frame{}, fmt.Errorf("%w: %v", relaypb.ErrMalformedFrame, err)
	}
	if frame.Event == "" {
		return relaypb.Frame{}, fmt.Errorf("missing event name: %w", relaypb.ErrMalformedFrame)
	}
	return frame, nil
}

func (c *wsConn) Send(frame relaypb.Frame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}
