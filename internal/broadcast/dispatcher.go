package broadcast

import (
	"chasehome/internal/observability"
	"chasehome/internal/presence"
	"chasehome/internal/protocol"
)

// Dispatcher fans server events out to the live channels of a room's
// occupants. Recipients are resolved at delivery time, so an identity that
// left or dropped between the triggering action and the send is skipped
// rather than queued.
type Dispatcher struct {
	registry *presence.Registry
	metrics  *observability.Metrics
}

func NewDispatcher(registry *presence.Registry, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: metrics}
}

// ToPlayer delivers one message to a single identity. Delivery to an absent
// or failing channel is dropped, never retried.
func (d *Dispatcher) ToPlayer(playerID string, msg protocol.ServerMessage) {
	ch, ok := d.registry.ChannelOf(playerID)
	if !ok {
		d.dropped()
		return
	}
	if err := ch.Send(msg); err != nil {
		d.dropped()
	}
}

// ToRoom delivers one message to every occupant of roomID except the
// identities in excludeIDs.
func (d *Dispatcher) ToRoom(roomID string, msg protocol.ServerMessage, excludeIDs ...string) {
	for _, id := range d.registry.OccupantsOf(roomID) {
		if containsID(excludeIDs, id) {
			continue
		}
		d.ToPlayer(id, msg)
	}
}

func (d *Dispatcher) dropped() {
	if d.metrics != nil {
		d.metrics.BroadcastDropped.Inc()
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
