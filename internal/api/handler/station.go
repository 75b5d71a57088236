package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

// StationHandler handles station lookup and live state endpoints.
type StationHandler struct {
	service *station.Service
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(service *station.Service) *StationHandler {
	return &StationHandler{service: service}
}

// ListStations handles GET /v1/stations - paged station listing.
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if limit <= 0 {
		limit = station.DefaultListLimit
	}
	if limit > station.MaxListLimit {
		limit = station.MaxListLimit
	}

	result, err := h.service.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeStationError(w, r, err)
		return
	}

	list := models.StationList{
		Items: toStationModels(result.Items),
		Meta:  models.PagedResponseMeta{Limit: limit},
	}
	if result.NextCursor != "" {
		list.Meta.NextCursor = &result.NextCursor
	}
	response.JSON(w, r, http.StatusOK, list)
}

// NearbyStations handles GET /v1/stations/nearby?lat&lng&radius&limit.
func (h *StationHandler) NearbyStations(w http.ResponseWriter, r *http.Request) {
	lat, hasLat, latErr := queryFloat(r, "lat")
	lng, hasLng, lngErr := queryFloat(r, "lng")
	if !hasLat || !hasLng {
		response.BadRequest(w, r, "Latitude and longitude are required", nil)
		return
	}

	var fieldErrors []models.FieldError
	if latErr != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: latErr.Error()})
	}
	if lngErr != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lng", Message: lngErr.Error()})
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "radius", Message: err.Error()})
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "limit", Message: err.Error()})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	stations, err := h.service.Nearby(r.Context(), geo.Point{Lon: lng, Lat: lat}, radius, limit)
	if err != nil {
		writeStationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearbyStations{
		Stations: toStationModels(stations),
		RadiusKm: station.EffectiveRadiusKm(radius),
		Count:    len(stations),
	})
}

// GetStation handles GET /v1/stations/{stationId}.
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "stationId"))
	if err != nil {
		writeStationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toStationModel(st))
}

// CreateStation handles POST /v1/stations.
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req models.StationCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	st, err := fromStationCreate(req)
	if err != nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "location.coordinates", Message: err.Error()},
		})
		return
	}

	created, err := h.service.Create(r.Context(), st)
	if err != nil {
		writeStationError(w, r, err)
		return
	}
	response.Created(w, r, fmt.Sprintf("/v1/stations/%s", created.ID), toStationModel(created))
}

// UpdateOccupancy handles PUT /v1/stations/{stationId}/occupancy.
func (h *StationHandler) UpdateOccupancy(w http.ResponseWriter, r *http.Request) {
	var req models.OccupancyUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	st, err := h.service.UpdateOccupancy(r.Context(), chi.URLParam(r, "stationId"), station.OccupancyUpdate{
		CurrentOccupancy:     req.CurrentOccupancy,
		QueueLength:          req.QueueLength,
		EstimatedWaitMinutes: req.EstimatedWaitTime,
		SlotsAvailable:       req.SlotsAvailable,
	})
	if err != nil {
		writeStationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.OccupancyUpdateResponse{
		Message:        "Real-time data updated successfully",
		StationID:      st.ID,
		SlotsAvailable: st.SlotsAvailable,
		RealTimeData:   toRealTimeData(st.Occupancy),
	})
}

func writeStationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *station.ValidationError
	switch {
	case errors.Is(err, station.ErrStationNotFound):
		response.NotFound(w, r, "Station not found")
	case errors.As(err, &verr):
		response.BadRequest(w, r, "validation error", verr.Errors)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("station request failed")
		response.InternalError(w, r, "failed to process station request")
	}
}
