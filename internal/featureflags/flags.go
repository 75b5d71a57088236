// Package featureflags holds the runtime switches operators flip without a
// deploy: turning off the advisory model, closing the live occupancy feed,
// and tuning how many stations the advisory prompt sees.
package featureflags

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Flag keys.
const (
	FlagDisableAdvisory        = "disable_advisory"
	FlagDisableLiveFeed        = "disable_live_feed"
	FlagAdvisoryCandidateLimit = "advisory_candidate_limit"
)

// DefaultAdvisoryCandidateLimit is the prompt cap when the flag is unset.
const DefaultAdvisoryCandidateLimit = 10

var (
	ErrUnknownFlag      = errors.New("unknown feature flag")
	ErrInvalidFlagValue = errors.New("invalid feature flag value")
)

// Kind is the type a flag's value must have.
type Kind string

const (
	KindBool Kind = "bool"
	KindInt  Kind = "int"
)

// Definition describes a flag the service understands.
type Definition struct {
	Key         string
	Kind        Kind
	Default     interface{}
	Description string
	// Degrades marks switches that turn a feature off when set to true.
	Degrades bool
}

var definitions = []Definition{
	{
		Key:         FlagDisableAdvisory,
		Kind:        KindBool,
		Default:     false,
		Description: "Skip the advisory model and serve the ranked fallback",
		Degrades:    true,
	},
	{
		Key:         FlagDisableLiveFeed,
		Kind:        KindBool,
		Default:     false,
		Description: "Reject websocket subscriptions to station occupancy",
		Degrades:    true,
	},
	{
		Key:         FlagAdvisoryCandidateLimit,
		Kind:        KindInt,
		Default:     float64(DefaultAdvisoryCandidateLimit),
		Description: "Maximum stations listed in the advisory prompt",
	},
}

// Definitions returns every known flag in key order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Flag is a flag's effective value.
type Flag struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Description string      `json:"description,omitempty"`
	// IsDefault is true when no override is stored.
	IsDefault bool      `json:"isDefault"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bool reports the value as a boolean. ok is false for a nil flag or a
// value of another type.
func (f *Flag) Bool() (v, ok bool) {
	if f == nil {
		return false, false
	}
	v, ok = f.Value.(bool)
	return v, ok
}

// Int reports the value as an integer. JSON numbers decode as float64, so
// both representations are accepted.
func (f *Flag) Int() (int, bool) {
	if f == nil {
		return 0, false
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// FlagList is the admin listing.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate sets one flag.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest is a batch of updates applied together.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// Validate checks that the update targets a known flag with a value of the
// right kind. Integer flags must be positive whole numbers.
func (u FlagUpdate) Validate() error {
	def, ok := lookup(u.Key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFlag, u.Key)
	}

	switch def.Kind {
	case KindBool:
		if _, ok := u.Value.(bool); !ok {
			return fmt.Errorf("%w: %s expects a boolean", ErrInvalidFlagValue, u.Key)
		}
	case KindInt:
		var n float64
		switch v := u.Value.(type) {
		case float64:
			n = v
		case int:
			n = float64(v)
		default:
			return fmt.Errorf("%w: %s expects an integer", ErrInvalidFlagValue, u.Key)
		}
		if n < 1 || n != math.Trunc(n) {
			return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidFlagValue, u.Key)
		}
	}
	return nil
}

// normalize stores integers as float64 so cached and persisted values
// decode the same way.
func normalize(v interface{}) interface{} {
	if n, ok := v.(int); ok {
		return float64(n)
	}
	return v
}
