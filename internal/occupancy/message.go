// Package occupancy ingests live station occupancy readings from message
// brokers and applies them to the station store.
package occupancy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chargeroute/chargeroute/internal/station"
)

// ErrMalformed indicates a message that can never be applied.
var ErrMalformed = errors.New("malformed occupancy message")

// Message is a raw payload received from a source.
type Message struct {
	// ID is the broker's message identifier, when it has one.
	ID string

	// Data is the JSON-encoded Update.
	Data []byte

	// StationID is taken from the transport (MQTT topic or Kafka key) and is
	// used when the payload does not name a station.
	StationID string
}

// Update is the wire format of an occupancy reading.
type Update struct {
	StationID            string    `json:"stationId"`
	CurrentOccupancy     *int      `json:"currentOccupancy,omitempty"`
	QueueLength          *int      `json:"queueLength,omitempty"`
	EstimatedWaitMinutes *int      `json:"estimatedWaitTime,omitempty"`
	SlotsAvailable       *int      `json:"slotsAvailable,omitempty"`
	ObservedAt           time.Time `json:"observedAt,omitempty"`
}

// Decode parses a message into an Update. The transport station ID fills in
// for a missing stationId; a conflicting one is rejected.
func Decode(msg Message) (Update, error) {
	var u Update
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	u.StationID = strings.TrimSpace(u.StationID)
	switch {
	case u.StationID == "" && msg.StationID == "":
		return Update{}, fmt.Errorf("%w: stationId is required", ErrMalformed)
	case u.StationID == "":
		u.StationID = msg.StationID
	case msg.StationID != "" && u.StationID != msg.StationID:
		return Update{}, fmt.Errorf("%w: stationId %q does not match transport %q", ErrMalformed, u.StationID, msg.StationID)
	}

	if u.CurrentOccupancy == nil && u.QueueLength == nil && u.EstimatedWaitMinutes == nil && u.SlotsAvailable == nil {
		return Update{}, fmt.Errorf("%w: no occupancy fields set", ErrMalformed)
	}
	return u, nil
}

// toStationUpdate converts the wire format to the station service's update.
func (u Update) toStationUpdate() station.OccupancyUpdate {
	return station.OccupancyUpdate{
		CurrentOccupancy:     u.CurrentOccupancy,
		QueueLength:          u.QueueLength,
		EstimatedWaitMinutes: u.EstimatedWaitMinutes,
		SlotsAvailable:       u.SlotsAvailable,
		ObservedAt:           u.ObservedAt,
	}
}
