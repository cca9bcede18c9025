package handlers

import (
	"net/http"
	"slices"

	"github.com/benvon/corsgate/internal/cors"
	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/request"
	"github.com/benvon/corsgate/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AdminHandler serves the policy administration API.
type AdminHandler struct {
	policy  *cors.Policy
	origins *service.OriginService
	logger  *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(policy *cors.Policy, origins *service.OriginService, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{policy: policy, origins: origins, logger: logger}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/origins", h.ListOrigins).Methods("GET")
	r.HandleFunc("/origins", h.AddOrigin).Methods("POST")
	r.HandleFunc("/origins", h.RemoveOrigin).Methods("DELETE")
	r.HandleFunc("/origins/check", h.CheckOrigin).Methods("GET")
	r.HandleFunc("/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/stats/reset", h.ResetStats).Methods("POST")
	r.HandleFunc("/policy", h.GetPolicy).Methods("GET")
}

type originRequest struct {
	Origin string `json:"origin" validate:"required"`
}

// OriginsResponse lists the allowed origins.
type OriginsResponse struct {
	Origins  []string `json:"origins"`
	AllowAll bool     `json:"allow_all"`
	Count    int      `json:"count"`
}

// OriginCheckResponse reports whether a single origin is allowed.
type OriginCheckResponse struct {
	Origin  string `json:"origin"`
	Allowed bool   `json:"allowed"`
}

// ListOrigins handles GET /origins
func (h *AdminHandler) ListOrigins(w http.ResponseWriter, r *http.Request) {
	origins, err := h.origins.ListOrigins(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if origins == nil {
		origins = []string{}
	}
	respondJSON(w, http.StatusOK, OriginsResponse{
		Origins:  origins,
		AllowAll: slices.Contains(origins, cors.Wildcard),
		Count:    len(origins),
	})
}

// AddOrigin handles POST /origins
func (h *AdminHandler) AddOrigin(w http.ResponseWriter, r *http.Request) {
	var req originRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.origins.AddOrigin(r.Context(), req.Origin, request.Actor(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"origin": req.Origin})
}

// RemoveOrigin handles DELETE /origins?origin=
func (h *AdminHandler) RemoveOrigin(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")
	if origin == "" {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", "origin query parameter is required")
		return
	}
	if err := h.origins.RemoveOrigin(r.Context(), origin, request.Actor(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckOrigin handles GET /origins/check?origin=
func (h *AdminHandler) CheckOrigin(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")
	if origin == "" {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", "origin query parameter is required")
		return
	}
	respondJSON(w, http.StatusOK, OriginCheckResponse{Origin: origin, Allowed: h.policy.IsOriginAllowed(origin)})
}

// GetStats handles GET /stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.policy.Stats())
}

// ResetStats handles POST /stats/reset
func (h *AdminHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.origins.ResetStats(r.Context(), request.Actor(r))
	respondJSON(w, http.StatusOK, h.policy.Stats())
}

// GetPolicy handles GET /policy
func (h *AdminHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.policy.Config()
	if !ok {
		h.respondError(w, r, cors.ErrNotInitialized)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("admin_request_failed",
			zap.String("request_id", request.RequestID(r.Context())),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if status == http.StatusInternalServerError {
			respondJSONError(w, status, errorType, "Failed to update CORS policy")
			return
		}
	}
	respondJSONError(w, status, errorType, err.Error())
}
