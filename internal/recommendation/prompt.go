package recommendation

import (
	"fmt"
	"strings"
)

// PromptContext is the driver context embedded in an advisory prompt.
type PromptContext struct {
	BatteryPercentage float64
	RangeLeftKm       float64
	Day               string
	Time              TimeOfDay
	Timezone          string
}

// BuildPrompt renders the advisory prompt for the ranked candidates.
func BuildPrompt(pc PromptContext, candidates []EnrichedStation) string {
	var b strings.Builder

	b.WriteString("You are an expert EV charging station recommendation system. ")
	b.WriteString("Analyze the following data and recommend the optimal charging station.\n\n")

	b.WriteString("**Current EV Status:**\n")
	fmt.Fprintf(&b, "- Battery Level: %s%%\n", formatNumber(pc.BatteryPercentage))
	fmt.Fprintf(&b, "- Remaining Range: %s km\n", formatNumber(pc.RangeLeftKm))
	fmt.Fprintf(&b, "- Current Time: %s on %s\n", pc.Time, pc.Day)
	fmt.Fprintf(&b, "- Timezone: %s\n\n", pc.Timezone)

	b.WriteString("**Available Charging Stations:**\n")
	for i, s := range candidates {
		fmt.Fprintf(&b, "\nStation %d: %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "  - Distance: %s km\n", formatNumber(s.DistanceKm))
		fmt.Fprintf(&b, "  - Available Slots: %d/%d\n", s.SlotsAvailable, s.TotalSlots)
		fmt.Fprintf(&b, "  - Charging Demand: %s\n", s.Demand)
		fmt.Fprintf(&b, "  - Average Wait Time: %d minutes\n", s.AverageWaitMinutes)
		fmt.Fprintf(&b, "  - Peak Hours Today: %s to %s\n", s.PeakStart, s.PeakEnd)
		fmt.Fprintf(&b, "  - Currently in Peak Hours: %s\n", yesNo(s.IsInPeakHours, "Yes", "No"))
		fmt.Fprintf(&b, "  - Rating: %s/5.0\n", formatNumber(s.Rating))
		fmt.Fprintf(&b, "  - Battery Swapping: %s\n", yesNo(s.BatterySwapAvailable, "Available", "Not Available"))
		fmt.Fprintf(&b, "  - Charging Power: %s\n", s.ChargingPower)
		fmt.Fprintf(&b, "  - Price: %s\n", s.Price)
		fmt.Fprintf(&b, "  - Operating Hours: %s\n", s.OperatingHours)
		if s.Occupancy != nil {
			fmt.Fprintf(&b, "  - Live Queue: %d vehicles, about %d minutes wait (reported %s)\n",
				s.Occupancy.QueueLength, s.Occupancy.EstimatedWaitMinutes,
				s.Occupancy.LastUpdated.UTC().Format("15:04 UTC"))
		}
	}

	b.WriteString(`
**Recommendation Criteria (in order of priority):**
1. **Slot Availability Probability**: Consider current available slots, charging demand, and peak hour status
2. **Wait Time**: Minimize expected waiting time
3. **Distance**: Prefer closer stations when other factors are equal
4. **Reliability**: Consider station rating and operating status
5. **Additional Services**: Battery swapping, charging power, pricing

**Analysis Requirements:**
- Factor in travel time to reach the station
- Consider that high-demand stations may have no slots available upon arrival
- Account for current peak hour status and its impact on availability
- Evaluate the trade-off between distance and reliability

**Response Format:**
Provide a JSON response with these exact keys and use the station name exactly as listed:
{
  "recommendedStation": "Station Name",
  "reason": "Detailed explanation of your recommendation including specific factors considered",
  "alternativeStation": "Second best option (if applicable)",
  "urgencyLevel": "LOW/MEDIUM/HIGH based on battery level and available options",
  "estimatedArrivalTime": "Estimated time to reach recommended station",
  "confidence": "Confidence level (1-10) in this recommendation"
}`)

	return b.String()
}

// formatNumber prints v without trailing zeros.
func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
