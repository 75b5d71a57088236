package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/api/handler"
	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/recommendation"
)

type stubRecommender struct {
	result *recommendation.Result
	err    error
	calls  int
}

func (s *stubRecommender) Recommend(context.Context, recommendation.Query) (*recommendation.Result, error) {
	s.calls++
	return s.result, s.err
}

func postRecommend(t *testing.T, rec handler.Recommender, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/stations/recommend", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handler.NewRecommendationHandler(rec).Recommend(w, req)
	return w
}

const validRecommendBody = `{"batteryPercentage":35,"rangeLeft":60,"currentLocation":{"coordinates":[77.64,12.97]}}`

func TestRecommend_CriticalBattery(t *testing.T) {
	stub := &stubRecommender{result: &recommendation.Result{
		Outcome: recommendation.OutcomeCriticalBattery,
		Message: "Battery critically low",
		Advice:  recommendation.Advice{Reason: "Call roadside assistance"},
	}}

	w := postRecommend(t, stub, validRecommendBody)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body models.CriticalBattery
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, recommendation.UrgencyCritical, body.UrgencyLevel)
	assert.Equal(t, "Call roadside assistance", body.Recommendation)
}

func TestRecommend_NoStations(t *testing.T) {
	for _, outcome := range []recommendation.Outcome{
		recommendation.OutcomeNoStationsFound,
		recommendation.OutcomeNoReachableStation,
	} {
		t.Run(string(outcome), func(t *testing.T) {
			stub := &stubRecommender{result: &recommendation.Result{
				Outcome:        outcome,
				Message:        "No stations in range",
				SearchRadiusKm: 48,
				StationsFound:  2,
				RangeLeftKm:    60,
			}}

			w := postRecommend(t, stub, validRecommendBody)

			require.Equal(t, http.StatusNotFound, w.Code)
			var body models.NoStations
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, 48.0, body.SearchRadius)
			assert.Equal(t, 2, body.AvailableStations)
		})
	}
}

func TestRecommend_Fallback(t *testing.T) {
	stub := &stubRecommender{result: &recommendation.Result{
		Outcome:       recommendation.OutcomeFallback,
		Advice:        recommendation.Advice{RecommendedStation: "Koramangala Swap", UrgencyLevel: recommendation.UrgencyHigh},
		Fallback:      true,
		FallbackError: "advisory unavailable",
		Station:       &recommendation.EnrichedStation{ID: "stn_1", Name: "Koramangala Swap", DistanceKm: 2.4},
	}}

	w := postRecommend(t, stub, validRecommendBody)

	require.Equal(t, http.StatusOK, w.Code)
	var body models.Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Fallback)
	assert.Equal(t, "advisory unavailable", body.Error)
	require.NotNil(t, body.StationDetails)
	assert.Equal(t, "Koramangala Swap", body.StationDetails.Name)
}

func TestRecommend_TypeErrorsAreRejectedBeforeService(t *testing.T) {
	stub := &stubRecommender{}

	w := postRecommend(t, stub, `{"batteryPercentage":"forty","rangeLeft":60,"currentLocation":{"coordinates":[77.64,12.97]}}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, stub.calls)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "batteryPercentage", problem.Errors[0].Field)
}

func TestRecommend_ServiceValidationError(t *testing.T) {
	stub := &stubRecommender{err: &recommendation.ValidationError{
		Errors: []models.FieldError{{Field: "currentLocation", Message: "required"}},
	}}

	w := postRecommend(t, stub, `{"batteryPercentage":35,"rangeLeft":60}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommend_InternalError(t *testing.T) {
	stub := &stubRecommender{err: assert.AnError}

	w := postRecommend(t, stub, validRecommendBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
