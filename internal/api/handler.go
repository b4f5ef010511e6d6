// Package api provides HTTP handlers for the captcha-gate admin API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
	"github.com/GalaxyBotTeam/captcha-gate/internal/store"
)

const defaultListLimit = 50

// Handler serves verification history and service health.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the admin API on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/stats", h.handleStats)
		r.Get("/verifications", h.handleListVerifications)
		r.Get("/verifications/{memberID}", h.handleMemberVerifications)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByOutcome(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	stats := map[string]int64{
		"success":   counts[domain.OutcomeSuccess],
		"timeout":   counts[domain.OutcomeTimeout],
		"exhausted": counts[domain.OutcomeExhausted],
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	stats["total"] = total

	JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.repo.ListVerifications(r.Context(), limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load verifications")
		return
	}
	if records == nil {
		records = []*domain.VerificationRecord{}
	}
	JSON(w, http.StatusOK, records)
}

func (h *Handler) handleMemberVerifications(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	if memberID == "" {
		Error(w, http.StatusBadRequest, "member id is required")
		return
	}

	records, err := h.repo.GetVerificationsByMember(r.Context(), memberID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load verifications")
		return
	}
	if len(records) == 0 {
		Error(w, http.StatusNotFound, "no verifications for member")
		return
	}
	JSON(w, http.StatusOK, records)
}
