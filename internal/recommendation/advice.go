package recommendation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseAdvice extracts and validates the JSON object embedded in an
// advisory reply. Errors wrap ErrAdvisoryMalformed.
func ParseAdvice(raw string) (Advice, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Advice{}, fmt.Errorf("%w: no JSON object in reply", ErrAdvisoryMalformed)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return Advice{}, fmt.Errorf("%w: %v", ErrAdvisoryMalformed, err)
	}

	advice := Advice{
		RecommendedStation:   textField(fields, "recommendedStation"),
		Reason:               textField(fields, "reason"),
		AlternativeStation:   textField(fields, "alternativeStation"),
		UrgencyLevel:         textField(fields, "urgencyLevel"),
		EstimatedArrivalTime: textField(fields, "estimatedArrivalTime"),
		Confidence:           numberField(fields, "confidence"),
	}

	var missing []string
	if advice.RecommendedStation == "" {
		missing = append(missing, "recommendedStation")
	}
	if advice.Reason == "" {
		missing = append(missing, "reason")
	}
	if len(missing) > 0 {
		return Advice{}, fmt.Errorf("%w: missing required fields %s", ErrAdvisoryMalformed, strings.Join(missing, ", "))
	}

	return advice, nil
}

// textField reads a string, number or boolean as trimmed text. Other
// shapes and null read as empty.
func textField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// numberField reads a number, or the leading number of a string such as
// "8" or "8/10". Anything else reads as zero.
func numberField(fields map[string]json.RawMessage, key string) float64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	n := 0
	for n < len(s) && (s[n] >= '0' && s[n] <= '9' || s[n] == '.') {
		n++
	}
	f, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0
	}
	return f
}

// normalizeUrgency returns level when it is a known urgency, otherwise an
// urgency derived from the battery level.
func normalizeUrgency(level string, batteryPercentage float64) string {
	switch u := strings.ToUpper(strings.TrimSpace(level)); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u
	}
	switch {
	case batteryPercentage < 15:
		return UrgencyHigh
	case batteryPercentage < 30:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
