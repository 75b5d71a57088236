// Package live pushes station occupancy changes to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/station"
)

// Message types sent to subscribers.
const (
	MsgTypeConnected = "connected"
	MsgTypeOccupancy = "occupancy"
)

// Message is the envelope for every frame sent to a subscriber.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// OccupancyUpdate is the payload of an occupancy message.
type OccupancyUpdate struct {
	StationID            string    `json:"stationId"`
	StationName          string    `json:"stationName"`
	SlotsAvailable       int       `json:"slotsAvailable"`
	TotalSlots           int       `json:"totalSlots"`
	CurrentOccupancy     int       `json:"currentOccupancy"`
	QueueLength          int       `json:"queueLength"`
	EstimatedWaitMinutes int       `json:"estimatedWaitTime"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

type broadcast struct {
	stationID string
	payload   []byte
}

// HubConfig holds configuration for the hub.
type HubConfig struct {
	Logger zerolog.Logger

	// BroadcastBuffer is the number of pending events held before new ones
	// are dropped (default: 256).
	BroadcastBuffer int
}

// Hub fans occupancy events out to connected clients. The client set is
// owned by the Run goroutine.
type Hub struct {
	logger     zerolog.Logger
	clients    map[*Client]struct{}
	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	dropped    atomic.Int64
}

var _ station.OccupancyListener = (*Hub)(nil)

// NewHub creates a hub. Call Run before registering clients.
func NewHub(cfg HubConfig) *Hub {
	if cfg.BroadcastBuffer == 0 {
		cfg.BroadcastBuffer = 256
	}
	return &Hub{
		logger:     cfg.Logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan broadcast, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug().Int("total_clients", len(h.clients)).Msg("live client connected")
			h.deliver(c, mustMarshal(Message{Type: MsgTypeConnected, Data: c.filter}))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.logger.Debug().Int("total_clients", len(h.clients)).Msg("live client disconnected")
			}

		case b := <-h.broadcast:
			for c := range h.clients {
				if c.wants(b.stationID) {
					h.deliver(c, b.payload)
				}
			}
		}
	}
}

// deliver queues a frame; a client whose buffer is full is dropped.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn().Msg("live client too slow, disconnecting")
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// OccupancyChanged queues an event for broadcast. It never blocks; events
// are dropped when the broadcast buffer is full.
func (h *Hub) OccupancyChanged(ev station.OccupancyEvent) {
	payload, err := json.Marshal(Message{
		Type: MsgTypeOccupancy,
		Data: OccupancyUpdate{
			StationID:            ev.StationID,
			StationName:          ev.StationName,
			SlotsAvailable:       ev.SlotsAvailable,
			TotalSlots:           ev.TotalSlots,
			CurrentOccupancy:     ev.Occupancy.CurrentOccupancy,
			QueueLength:          ev.Occupancy.QueueLength,
			EstimatedWaitMinutes: ev.Occupancy.EstimatedWaitMinutes,
			LastUpdated:          ev.Occupancy.LastUpdated,
		},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal occupancy event")
		return
	}

	select {
	case h.broadcast <- broadcast{stationID: ev.StationID, payload: payload}:
	default:
		h.dropped.Add(1)
		h.logger.Warn().Str("station_id", ev.StationID).Msg("live broadcast buffer full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Dropped returns the number of events dropped because the buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return b
}
