package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/repository"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

const dateLayout = "2006-01-02"

// Pinger reports whether the backing database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	reader contracts.ParlayReader
	db     Pinger
	logger zerolog.Logger
	now    func() time.Time
}

// NewHandler creates a new handler with dependencies
func NewHandler(reader contracts.ParlayReader, db Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		reader: reader,
		db:     db,
		logger: logger.With().Str("component", "api").Logger(),
		now:    time.Now,
	}
}

// HealthCheck returns the health status of the service
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
		"service":   "sgp-engine",
	})
}

// GetParlays lists the parlays of one Eastern game date
// Query params: date (YYYY-MM-DD, default today)
func (h *Handler) GetParlays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	date := models.EasternDate(h.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	parlays, err := h.reader.GetParlaysByDate(ctx, date)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve parlays", err)
		return
	}
	if parlays == nil {
		parlays = []models.Parlay{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date.Format(dateLayout),
		"parlays": parlays,
		"count":   len(parlays),
	})
}

// GetParlay retrieves a single parlay with its legs and settlement
func (h *Handler) GetParlay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "parlayID")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "parlay_id is required", nil)
		return
	}

	p, err := h.reader.GetParlay(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "parlay not found", nil)
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve parlay", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// GetPerformance aggregates settled parlays
// Query params: season (ending year), season_type
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var season int
	if raw := r.URL.Query().Get("season"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "season must be a year", nil)
			return
		}
		season = parsed
	}

	var seasonType models.SeasonType
	if raw := r.URL.Query().Get("season_type"); raw != "" {
		parsed, err := models.ParseSeasonType(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		seasonType = parsed
	}

	summary, err := h.reader.PerformanceSummary(ctx, season, seasonType)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to compute performance", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Headers are gone; nothing useful to send on failure
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg(message)
	}

	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
