package presence

import (
	"sync"
	"time"
)

// Channel is the outbound side of one connected client.
type Channel interface {
	Send(v any) error
	Close()
}

type entry struct {
	ch        Channel
	roomID    string
	connected bool
	lastSeen  time.Time
	gen       uint64
	grace     *time.Timer
}

// Registry maps authenticated identities to live channels and to the room
// each identity currently occupies.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	graceWindow time.Duration
	onExpire    func(playerID, roomID string)
}

func NewRegistry(graceWindow time.Duration) *Registry {
	return &Registry{
		entries:     make(map[string]*entry),
		graceWindow: graceWindow,
	}
}

// SetExpireHook registers a callback invoked outside the registry lock when
// a disconnected identity's grace window lapses without a rebind.
func (r *Registry) SetExpireHook(hook func(playerID, roomID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// Bind attaches a channel to an identity. A later bind supersedes an earlier
// one: the stale channel is closed and further deliveries target the new
// channel only.
func (r *Registry) Bind(playerID string, ch Channel) {
	r.mu.Lock()
	e, ok := r.entries[playerID]
	if !ok {
		e = &entry{}
		r.entries[playerID] = e
	}
	var stale Channel
	if e.ch != nil && e.ch != ch {
		stale = e.ch
	}
	if e.grace != nil {
		e.grace.Stop()
		e.grace = nil
	}
	e.gen++
	e.ch = ch
	e.connected = true
	e.lastSeen = time.Now().UTC()
	r.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
}

// Unbind detaches a channel on transport closure. A channel that has already
// been superseded is ignored. The identity stays registered until the grace
// window lapses; a rebind within the window cancels removal. Reports whether
// ch was the identity's current binding.
func (r *Registry) Unbind(playerID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[playerID]
	if !ok || e.ch != ch {
		return false
	}
	e.ch = nil
	e.connected = false
	e.lastSeen = time.Now().UTC()
	gen := e.gen
	e.grace = time.AfterFunc(r.graceWindow, func() { r.expire(playerID, gen) })
	return true
}

func (r *Registry) expire(playerID string, gen uint64) {
	r.mu.Lock()
	e, ok := r.entries[playerID]
	if !ok || e.connected || e.gen != gen {
		r.mu.Unlock()
		return
	}
	roomID := e.roomID
	hook := r.onExpire
	delete(r.entries, playerID)
	r.mu.Unlock()

	if hook != nil {
		hook(playerID, roomID)
	}
}

func (r *Registry) SetRoom(playerID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[playerID]; ok {
		e.roomID = roomID
	}
}

func (r *Registry) ClearRoom(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[playerID]; ok {
		e.roomID = ""
	}
}

func (r *Registry) RoomOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[playerID]
	if !ok || e.roomID == "" {
		return "", false
	}
	return e.roomID, true
}

func (r *Registry) ChannelOf(playerID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[playerID]
	if !ok || e.ch == nil {
		return nil, false
	}
	return e.ch, true
}

// OccupantsOf reports the identities in a room that currently hold a live
// channel, resolved at call time.
func (r *Registry) OccupantsOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, 4)
	for id, e := range r.entries {
		if e.roomID == roomID && e.ch != nil {
			out = append(out, id)
		}
	}
	return out
}

// Touch refreshes the liveness timestamp for heartbeats.
func (r *Registry) Touch(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[playerID]; ok {
		e.lastSeen = time.Now().UTC()
	}
}

func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.connected {
			n++
		}
	}
	return n
}
