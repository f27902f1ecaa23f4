package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"stockotter/internal/domain"
	"stockotter/internal/store"
)

// Server serves the position book over HTTP. All endpoints are read-only;
// mutations happen exclusively through the CLI tools.
type Server struct {
	positions store.PositionStore
	events    store.EventStore
	log       *slog.Logger
}

// NewServer creates a Server over the given stores.
func NewServer(positions store.PositionStore, events store.EventStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		positions: positions,
		events:    events,
		log:       log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/positions/{ticker}", s.handlePosition)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []domain.Position
		err       error
	)
	if r.URL.Query().Get("open") == "true" {
		positions, err = s.positions.ListOpenPositions(r.Context())
	} else {
		positions, err = s.positions.ListPositions(r.Context())
	}
	if err != nil {
		s.log.Error("listing positions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	out := make([]PositionJSON, 0, len(positions))
	for i := range positions {
		out = append(out, convertPosition(&positions[i]))
	}
	s.writeJSON(w, PositionsResponse{Positions: out})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	pos, err := s.positions.GetPosition(r.Context(), ticker)
	if err != nil {
		s.log.Error("reading position", "ticker", ticker, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read position")
		return
	}
	if pos == nil {
		writeError(w, http.StatusNotFound, "no position for "+ticker)
		return
	}
	s.writeJSON(w, convertPosition(pos))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = n
	}

	events, err := s.events.ListEvents(r.Context(), ticker, limit)
	if err != nil {
		s.log.Error("listing events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	out := make([]EventJSON, 0, len(events))
	for i := range events {
		out = append(out, convertEvent(&events[i]))
	}
	s.writeJSON(w, EventsResponse{Events: out})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positions.ListPositions(r.Context())
	if err != nil {
		s.log.Error("listing positions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	resp := SummaryResponse{Total: len(positions)}
	for i := range positions {
		switch positions[i].State {
		case domain.StateEntered:
			resp.Entered++
		case domain.StatePartialExit:
			resp.PartialExit++
		case domain.StateExited:
			resp.Exited++
		}
	}
	s.writeJSON(w, resp)
}
