// Package server exposes the coordinator over HTTP for the companion app.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tlowery/cutline/internal/api"
	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/refresh"
	"github.com/tlowery/cutline/internal/service"
)

type Server struct {
	coordinator *refresh.Coordinator
	logger      *slog.Logger
	router      chi.Router
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func New(coordinator *refresh.Coordinator, logger *slog.Logger) *Server {
	s := &Server{coordinator: coordinator, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leagues", s.handleLeagues)

		r.Route("/leagues/{source}/{leagueID}", func(r chi.Router) {
			r.Get("/ranking", s.handleRanking)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/week", s.handleSelectWeek)
			r.Post("/live/start", s.handleLiveStart)
			r.Post("/live/stop", s.handleLiveStop)
			r.Get("/history", s.handleHistory)
			r.Get("/matchups", s.handleMatchups)
			r.Get("/bracket", s.handleBracket)
			r.Get("/digest", s.handleDigest)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "cutline",
	})
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.coordinator.Leagues(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"leagues": leagues,
		"count":   len(leagues),
	})
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}
	week := parseIntParam(r, "week", 0)

	ranking, err := s.coordinator.CurrentRanking(r.Context(), ref, week)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	if r.URL.Query().Get("force") == "true" {
		ranking, err := s.coordinator.ForceRefresh(r.Context(), ref)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, ranking)
		return
	}

	s.coordinator.RequestRefresh(ref)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleSelectWeek(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	var body struct {
		Week int `json:"week"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondBadRequest(w, fmt.Errorf("decoding body: %w", err))
		return
	}
	if body.Week < 1 {
		s.respondBadRequest(w, fmt.Errorf("week must be 1 or later, got %d", body.Week))
		return
	}

	ranking, err := s.coordinator.SelectWeek(r.Context(), ref, body.Week)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleLiveStart(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}
	s.coordinator.StartLiveUpdates(ref)
	respondJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

func (s *Server) handleLiveStop(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}
	s.coordinator.StopLiveUpdates(ref)
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	events, err := s.coordinator.History(r.Context(), ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleMatchups(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}
	week := parseIntParam(r, "week", 0)

	matchups, err := s.coordinator.Matchups(r.Context(), ref, week)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"matchups": matchups,
		"count":    len(matchups),
	})
}

func (s *Server) handleBracket(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	bracket, err := s.coordinator.Bracket(r.Context(), ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bracket)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	ref, err := leagueRef(r)
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	ranking, err := s.coordinator.CurrentRanking(r.Context(), ref, 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(service.FormatRankingDigest(ranking))); err != nil {
		s.logger.Error("writing digest", "error", err)
	}
}

func leagueRef(r *http.Request) (models.LeagueRef, error) {
	source := models.SourceType(chi.URLParam(r, "source"))
	switch source {
	case models.SourceSleeper, models.SourceESPN:
	default:
		return models.LeagueRef{}, fmt.Errorf("unknown platform %q", source)
	}
	return models.LeagueRef{Source: source, LeagueID: chi.URLParam(r, "leagueID")}, nil
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *Server) respondBadRequest(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}

// respondError translates upstream failures into statuses the app can act
// on: bad platform data reads as a gateway problem, not a local bug.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var reqErr *api.RequestError
	var decodeErr *api.DecodeError
	switch {
	case errors.Is(err, service.ErrUnknownSource):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrStatsTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &reqErr):
		status = http.StatusBadGateway
		if reqErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
	case errors.As(err, &decodeErr):
		status = http.StatusBadGateway
	}

	s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
