package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/recommendation"
)

// Recommender produces a station recommendation. recommendation.Service implements it.
type Recommender interface {
	Recommend(ctx context.Context, q recommendation.Query) (*recommendation.Result, error)
}

// RecommendationHandler handles POST /v1/stations/recommend.
type RecommendationHandler struct {
	recommender Recommender
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommender Recommender) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender}
}

// Recommend handles POST /v1/stations/recommend - pick the best station for a driver.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	q, fieldErrors := toQuery(req)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "Invalid input parameters", fieldErrors)
		return
	}

	result, err := h.recommender.Recommend(r.Context(), q)
	if err != nil {
		var verr *recommendation.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "Invalid input parameters", verr.Errors)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("recommendation failed")
		response.InternalError(w, r, "Internal server error while processing EV station recommendation")
		return
	}

	switch result.Outcome {
	case recommendation.OutcomeCriticalBattery:
		response.JSON(w, r, http.StatusBadRequest, models.CriticalBattery{
			Message:        result.Message,
			UrgencyLevel:   recommendation.UrgencyCritical,
			Recommendation: result.Advice.Reason,
			NearestStation: toCandidateModel(result.Station),
		})
	case recommendation.OutcomeNoStationsFound, recommendation.OutcomeNoReachableStation:
		response.JSON(w, r, http.StatusNotFound, models.NoStations{
			Message:           result.Message,
			SearchRadius:      result.SearchRadiusKm,
			AvailableStations: result.StationsFound,
			RangeLeft:         result.RangeLeftKm,
		})
	default:
		response.JSON(w, r, http.StatusOK, toRecommendationModel(result))
	}
}

// toQuery converts the loosely typed body. Type errors are reported here;
// range checks are left to the service.
func toQuery(req models.RecommendationRequest) (recommendation.Query, []models.FieldError) {
	var fieldErrors []models.FieldError
	q := recommendation.Query{Timezone: req.Timezone}

	battery, ok := numberField(req.BatteryPercentage)
	if !ok {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "batteryPercentage",
			Message: "batteryPercentage must be a number between 0 and 100",
		})
	}
	q.BatteryPercentage = battery

	rangeLeft, ok := numberField(req.RangeLeft)
	if !ok {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "rangeLeft",
			Message: "rangeLeft must be a positive number",
		})
	}
	q.RangeLeftKm = rangeLeft

	if req.CurrentLocation != nil {
		q.Coordinates = req.CurrentLocation.Coordinates
	}
	return q, fieldErrors
}

// numberField returns nil for an absent value and false for a non-number.
func numberField(v interface{}) (*float64, bool) {
	if v == nil {
		return nil, true
	}
	f, ok := v.(float64)
	if !ok {
		return nil, false
	}
	return &f, true
}

func toRecommendationModel(result *recommendation.Result) models.Recommendation {
	m := models.Recommendation{
		RecommendedStation:    result.Advice.RecommendedStation,
		Reason:                result.Advice.Reason,
		AlternativeStation:    result.Advice.AlternativeStation,
		UrgencyLevel:          result.Advice.UrgencyLevel,
		EstimatedArrivalTime:  result.Advice.EstimatedArrivalTime,
		Confidence:            result.Advice.Confidence,
		Fallback:              result.Fallback,
		Error:                 result.FallbackError,
		StationDetails:        toCandidateModel(result.Station),
		TotalStationsAnalyzed: result.StationsAnalyzed,
		SearchRadius:          result.SearchRadiusKm,
		Timezone:              result.Timezone,
		Timestamp:             models.Timestamp(result.GeneratedAt),
	}
	for i := range result.Candidates {
		m.Candidates = append(m.Candidates, *toCandidateModel(&result.Candidates[i]))
	}
	return m
}
