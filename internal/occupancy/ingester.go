package occupancy

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/station"
)

// Applier applies a reading to a station. station.Service implements it.
type Applier interface {
	UpdateOccupancy(ctx context.Context, id string, update station.OccupancyUpdate) (*station.Station, error)
}

// Handler processes one message. A nil return acknowledges the message; an
// error asks the source to redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Source delivers messages from a broker until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context, handle Handler) error
	Close() error
}

// Stats counts ingested messages.
type Stats struct {
	Received int64 `json:"received"`
	Applied  int64 `json:"applied"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
}

// Ingester decodes messages and applies them through an Applier.
type Ingester struct {
	applier Applier
	logger  zerolog.Logger

	received atomic.Int64
	applied  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewIngester creates an ingester.
func NewIngester(applier Applier, logger zerolog.Logger) *Ingester {
	return &Ingester{applier: applier, logger: logger}
}

// Handle is a Handler. Malformed messages, unknown stations and readings
// that fail validation are dropped because redelivery cannot fix them.
// Store failures are returned so the source retries.
func (i *Ingester) Handle(ctx context.Context, msg Message) error {
	i.received.Add(1)
	logger := i.logger.With().Str("message_id", msg.ID).Logger()

	u, err := Decode(msg)
	if err != nil {
		i.dropped.Add(1)
		logger.Warn().Err(err).Msg("dropping occupancy message")
		return nil
	}

	_, err = i.applier.UpdateOccupancy(ctx, u.StationID, u.toStationUpdate())
	if err != nil {
		var verr *station.ValidationError
		if errors.Is(err, station.ErrStationNotFound) || errors.As(err, &verr) {
			i.dropped.Add(1)
			logger.Warn().Err(err).Str("station_id", u.StationID).Msg("dropping occupancy update")
			return nil
		}
		i.failed.Add(1)
		logger.Error().Err(err).Str("station_id", u.StationID).Msg("failed to apply occupancy update")
		return err
	}

	i.applied.Add(1)
	logger.Debug().Str("station_id", u.StationID).Msg("applied occupancy update")
	return nil
}

// Stats returns a snapshot of the counters.
func (i *Ingester) Stats() Stats {
	return Stats{
		Received: i.received.Load(),
		Applied:  i.applied.Load(),
		Dropped:  i.dropped.Load(),
		Failed:   i.failed.Load(),
	}
}
