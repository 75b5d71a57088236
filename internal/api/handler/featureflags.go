package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/featureflags"
)

// FeatureFlagsHandler handles the runtime switch admin endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service}
}

// ListFeatureFlags handles GET /v1/admin/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.service.List(r.Context()))
}

// UpsertFeatureFlags handles PUT /v1/admin/flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "Invalid request body", nil)
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "At least one update is required", []models.FieldError{
			{Field: "updates", Message: "must not be empty"},
		})
		return
	}

	list, err := h.service.Update(r.Context(), req, GetDriverID(r.Context()))
	if err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) || errors.Is(err, featureflags.ErrInvalidFlagValue) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "Failed to update feature flags")
		return
	}

	response.JSON(w, r, http.StatusOK, list)
}

// ResetFeatureFlag handles DELETE /v1/admin/flags/{flagKey}.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "flagKey")
	if err := h.service.Reset(r.Context(), key, GetDriverID(r.Context())); err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) {
			response.NotFound(w, r, "Unknown feature flag")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "Failed to reset feature flag")
		return
	}
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.Invalidate()
	response.NoContent(w, r)
}
