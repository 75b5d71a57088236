package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/geo"
)

// DirectionsService looks up routes between two points.
type DirectionsService interface {
	GetDirections(ctx context.Context, req directions.Request) (*directions.Response, error)
}

// DirectionsHandler proxies driving directions to a recommended station.
type DirectionsHandler struct {
	service DirectionsService
}

// NewDirectionsHandler creates a new DirectionsHandler.
func NewDirectionsHandler(service DirectionsService) *DirectionsHandler {
	return &DirectionsHandler{service: service}
}

// GetDirections handles POST /v1/directions.
func (h *DirectionsHandler) GetDirections(w http.ResponseWriter, r *http.Request) {
	var req models.DirectionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "Invalid request body", nil)
		return
	}

	resp, err := h.service.GetDirections(r.Context(), directions.Request{
		Origin:      geo.Point{Lat: req.Origin.Lat, Lon: req.Origin.Lng},
		Destination: geo.Point{Lat: req.Destination.Lat, Lon: req.Destination.Lng},
		Mode:        directions.Mode(req.Mode),
	})
	if err != nil {
		writeDirectionsError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toDirectionsModel(resp))
}

func writeDirectionsError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *directions.Error
	detail := ""
	if errors.As(err, &derr) {
		detail = derr.Message
	}

	switch {
	case errors.Is(err, directions.ErrInvalidRequest):
		var fields []models.FieldError
		if derr != nil && derr.Code != "" && derr.Provider == "" {
			fields = []models.FieldError{{Field: fieldForCode(derr.Code), Message: derr.Message}}
		}
		if detail == "" {
			detail = "Invalid directions request"
		}
		response.BadRequest(w, r, detail, fields)
	case errors.Is(err, directions.ErrNoRouteFound):
		response.NotFound(w, r, "No route found between the given points")
	case errors.Is(err, directions.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "Directions provider rate limit exceeded, please try again later")
	case errors.Is(err, directions.ErrProviderUnavailable):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("directions provider unavailable")
		response.BadGateway(w, r, "Directions provider is temporarily unavailable")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("directions lookup failed")
		response.InternalError(w, r, "Failed to fetch directions")
	}
}

func fieldForCode(code string) string {
	switch code {
	case "INVALID_ORIGIN":
		return "origin"
	case "INVALID_DESTINATION":
		return "destination"
	case "INVALID_MODE":
		return "mode"
	}
	return ""
}

func toDirectionsModel(resp *directions.Response) models.Directions {
	out := models.Directions{
		Provider:  resp.Provider,
		Routes:    make([]models.RouteLeg, 0, len(resp.Routes)),
		FetchedAt: models.Timestamp(resp.FetchedAt),
	}
	for i := range resp.Routes {
		rt := &resp.Routes[i]
		leg := models.RouteLeg{
			Summary:         rt.Summary,
			DistanceMeters:  rt.DistanceMeters,
			DurationSeconds: rt.DurationSeconds,
			Polyline:        rt.Polyline,
		}
		if len(rt.Path) > 0 {
			leg.Path = make([][]float64, len(rt.Path))
			for j, p := range rt.Path {
				leg.Path[j] = []float64{p.Lon, p.Lat}
			}
		}
		for _, st := range rt.Steps {
			leg.Steps = append(leg.Steps, models.RouteStep{
				Instruction:     st.Instruction,
				Maneuver:        st.Maneuver,
				DistanceMeters:  st.DistanceMeters,
				DurationSeconds: st.DurationSeconds,
				Start:           models.LatLng{Lat: st.Start.Lat, Lng: st.Start.Lon},
				End:             models.LatLng{Lat: st.End.Lat, Lng: st.End.Lon},
			})
		}
		out.Routes = append(out.Routes, leg)
	}
	return out
}
