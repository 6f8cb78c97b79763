package adaptor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ponyo877/chatrelay/server/domain"
)

type HTTPServer struct {
	uc     Usecase
	ws     *WebSocketServer
	logger *slog.Logger
}

func NewHTTPServer(uc Usecase, ws *WebSocketServer, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{
		uc:     uc,
		ws:     ws,
		logger: logger.With("component", "http"),
	}
}

func (s *HTTPServer) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/ws", s.ws.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Get("/rooms", s.listRooms)
		r.Get("/rooms/{roomID}/messages", s.listMessages)
		r.Get("/rooms/{roomID}/search", s.searchMessages)
		r.Get("/stats", s.stats)
	})
	return r
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds())
	})
}

func (s *HTTPServer) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.uc.ListRooms()})
}

func (s *HTTPServer) listMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	messages, err := s.uc.ListMessages(r.Context(), roomID, limit)
	if err != nil {
		s.writeQueryError(w, roomID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": domain.NewHistoryEntries(messages)})
}

func (s *HTTPServer) searchMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	messages, err := s.uc.SearchMessages(r.Context(), roomID, r.URL.Query().Get("q"))
	if err != nil {
		s.writeQueryError(w, roomID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": domain.NewHistoryEntries(messages)})
}

func (s *HTTPServer) writeQueryError(w http.ResponseWriter, roomID string, err error) {
	if errors.Is(err, domain.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("history query", "room", roomID, "err", err)
	writeError(w, http.StatusInternalServerError, "history unavailable")
}

func (s *HTTPServer) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.uc.GetStats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
