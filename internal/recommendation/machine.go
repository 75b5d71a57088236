package recommendation

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Request lifecycle states.
const (
	StateValidating     = "validating"
	StateSearching      = "searching"
	StateEnriching      = "enriching"
	StateFiltering      = "filtering"
	StateConsulting     = "consulting"
	StateFinalizing     = "finalizing"
	StateEmptyResult    = "empty_result"
	StateFallbackResult = "fallback_result"
)

// Request lifecycle events.
const (
	eventSearch         = "search"
	eventCritical       = "critical"
	eventEnrich         = "enrich"
	eventNoStations     = "no_stations"
	eventFilter         = "filter"
	eventNoReachable    = "no_reachable"
	eventConsult        = "consult"
	eventAdvisoryFailed = "advisory_failed"
	eventFinalize       = "finalize"
)

// requestMachine tracks one recommendation request. Every request makes a
// single forward pass; no state is revisited.
type requestMachine struct {
	fsm    *fsm.FSM
	states []string
}

func newRequestMachine(logger zerolog.Logger) *requestMachine {
	m := &requestMachine{states: []string{StateValidating}}

	m.fsm = fsm.NewFSM(
		StateValidating,
		fsm.Events{
			{Name: eventSearch, Src: []string{StateValidating}, Dst: StateSearching},
			{Name: eventCritical, Src: []string{StateValidating}, Dst: StateEmptyResult},

			{Name: eventEnrich, Src: []string{StateSearching}, Dst: StateEnriching},
			{Name: eventNoStations, Src: []string{StateSearching}, Dst: StateEmptyResult},

			{Name: eventFilter, Src: []string{StateEnriching}, Dst: StateFiltering},

			{Name: eventConsult, Src: []string{StateFiltering}, Dst: StateConsulting},
			{Name: eventNoReachable, Src: []string{StateFiltering}, Dst: StateEmptyResult},

			{Name: eventFinalize, Src: []string{StateConsulting}, Dst: StateFinalizing},
			{Name: eventAdvisoryFailed, Src: []string{StateConsulting}, Dst: StateFallbackResult},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.states = append(m.states, e.Dst)
				logger.Debug().
					Str("from", e.Src).
					Str("to", e.Dst).
					Str("event", e.Event).
					Msg("recommendation state changed")
			},
		},
	)

	return m
}

// fire applies event. A rejected transition is a programming error in the
// request flow and is returned as such.
func (m *requestMachine) fire(ctx context.Context, event string) error {
	if err := m.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("recommendation state %s rejected event %s: %w", m.fsm.Current(), event, err)
	}
	return nil
}

// path returns the states visited so far, starting with validating.
func (m *requestMachine) path() []string {
	out := make([]string, len(m.states))
	copy(out, m.states)
	return out
}
