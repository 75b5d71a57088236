package recommendation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/recommendation"
)

func TestParseAdvice_WrappedInProse(t *testing.T) {
	raw := "Sure! Here is my analysis:\n```json\n" + `{
		"recommendedStation": "MG Road Fast Charge",
		"reason": "Closest station with free slots and short wait.",
		"alternativeStation": "Indiranagar Swap Point",
		"urgencyLevel": "MEDIUM",
		"estimatedArrivalTime": "12 minutes",
		"confidence": 8
	}` + "\n```\nLet me know if you need anything else."

	advice, err := recommendation.ParseAdvice(raw)
	require.NoError(t, err)
	assert.Equal(t, "MG Road Fast Charge", advice.RecommendedStation)
	assert.Equal(t, "Closest station with free slots and short wait.", advice.Reason)
	assert.Equal(t, "Indiranagar Swap Point", advice.AlternativeStation)
	assert.Equal(t, "MEDIUM", advice.UrgencyLevel)
	assert.Equal(t, "12 minutes", advice.EstimatedArrivalTime)
	assert.Equal(t, 8.0, advice.Confidence)
}

func TestParseAdvice_LooseFieldTypes(t *testing.T) {
	raw := `{"recommendedStation": "A", "reason": "ok", "alternativeStation": null,
		"estimatedArrivalTime": 15, "confidence": "7/10"}`

	advice, err := recommendation.ParseAdvice(raw)
	require.NoError(t, err)
	assert.Empty(t, advice.AlternativeStation)
	assert.Equal(t, "15", advice.EstimatedArrivalTime)
	assert.Equal(t, 7.0, advice.Confidence)
}

func TestParseAdvice_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no json", "I recommend the first station."},
		{"broken json", `{"recommendedStation": "A", "reason": }`},
		{"missing station", `{"reason": "closest"}`},
		{"missing reason", `{"recommendedStation": "A"}`},
		{"blank station", `{"recommendedStation": "  ", "reason": "closest"}`},
		{"braces reversed", `} nothing here {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recommendation.ParseAdvice(tt.raw)
			assert.ErrorIs(t, err, recommendation.ErrAdvisoryMalformed)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := recommendation.BuildPrompt(recommendation.PromptContext{
		BatteryPercentage: 40,
		RangeLeftKm:       20,
		Day:               "monday",
		Time:              mustTime(t, "18:30"),
		Timezone:          "Asia/Kolkata",
	}, []recommendation.EnrichedStation{{
		Name:                 "MG Road Fast Charge",
		DistanceKm:           5,
		SlotsAvailable:       2,
		TotalSlots:           6,
		Demand:               "HIGH",
		AverageWaitMinutes:   8,
		PeakStart:            "18:00",
		PeakEnd:              "21:00",
		IsInPeakHours:        true,
		Rating:               4.5,
		BatterySwapAvailable: true,
		ChargingPower:        "60 kW",
		Price:                "18.00 per kWh",
		OperatingHours:       "24/7",
	}})

	assert.Contains(t, prompt, "- Battery Level: 40%")
	assert.Contains(t, prompt, "- Remaining Range: 20 km")
	assert.Contains(t, prompt, "- Current Time: 18:30 on monday")
	assert.Contains(t, prompt, "Station 1: MG Road Fast Charge")
	assert.Contains(t, prompt, "- Distance: 5 km")
	assert.Contains(t, prompt, "- Available Slots: 2/6")
	assert.Contains(t, prompt, "- Charging Demand: HIGH")
	assert.Contains(t, prompt, "- Average Wait Time: 8 minutes")
	assert.Contains(t, prompt, "- Peak Hours Today: 18:00 to 21:00")
	assert.Contains(t, prompt, "- Currently in Peak Hours: Yes")
	assert.Contains(t, prompt, "- Rating: 4.5/5.0")
	assert.Contains(t, prompt, "- Battery Swapping: Available")
	assert.Contains(t, prompt, "- Price: 18.00 per kWh")
	assert.Contains(t, prompt, `"recommendedStation"`)
	assert.NotContains(t, prompt, "Live Queue")
}
