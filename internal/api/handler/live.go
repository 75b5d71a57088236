package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/live"
)

// LiveFeed attaches websocket subscribers to occupancy updates.
type LiveFeed interface {
	Serve(w http.ResponseWriter, r *http.Request, stationIDs []string) error
}

// LiveFeedSwitch reports whether the live feed is switched off.
type LiveFeedSwitch interface {
	IsLiveFeedDisabled(ctx context.Context) bool
}

// LiveHandler serves GET /v1/stations/live.
type LiveHandler struct {
	feed     LiveFeed
	switches LiveFeedSwitch
}

// NewLiveHandler creates a new LiveHandler. switches may be nil.
func NewLiveHandler(feed LiveFeed, switches LiveFeedSwitch) *LiveHandler {
	return &LiveHandler{feed: feed, switches: switches}
}

// Subscribe upgrades to a websocket streaming occupancy changes. The optional
// stationId query parameter (repeatable or comma separated) filters the feed.
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.switches != nil && h.switches.IsLiveFeedDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "Live occupancy feed is temporarily disabled")
		return
	}

	err := h.feed.Serve(w, r, stationFilter(r))
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, live.ErrHubStopped):
		// Upgrade already happened; nothing more can be written.
		zerolog.Ctx(r.Context()).Debug().Msg("live feed stopped during subscribe")
	default:
		// The upgrader has already replied with an HTTP error.
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
	}
}

func stationFilter(r *http.Request) []string {
	var ids []string
	for _, raw := range r.URL.Query()["stationId"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
