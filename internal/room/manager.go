package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chasehome/internal/store"
)

type slot struct {
	mu  sync.Mutex
	cur *Room
}

// Manager is the authoritative registry of rooms. Every committed mutation
// is written through to the persistent store before it becomes visible;
// reads never consult the store.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*slot
	roomByHost  map[string]string
	persist     store.Store
	maxPlayers  int
	idleTimeout time.Duration
	onSweep     func(*Room)
}

func NewManager(persist store.Store, maxPlayers int, idleTimeout time.Duration) *Manager {
	if maxPlayers <= 0 {
		maxPlayers = 5
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Manager{
		rooms:       make(map[string]*slot),
		roomByHost:  make(map[string]string),
		persist:     persist,
		maxPlayers:  maxPlayers,
		idleTimeout: idleTimeout,
	}
}

// SetSweepHook registers a callback run outside all locks for each room the
// idle sweep closes.
func (m *Manager) SetSweepHook(hook func(*Room)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSweep = hook
}

// Create allocates a room owned by hostID. Creation is idempotent per host:
// if the host already owns an active room, that room is returned unchanged.
func (m *Manager) Create(ctx context.Context, hostID, hostName, roomName string) (*Room, bool, error) {
	if existing, err := m.hostRoom(hostID); err == nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	r := &Room{
		ID:           newRoomID(),
		Name:         roomName,
		HostID:       hostID,
		MaxPlayers:   m.maxPlayers,
		Active:       true,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := r.StartFloor(1, 1); err != nil {
		return nil, false, err
	}
	if err := r.Join(hostID, hostName); err != nil {
		return nil, false, err
	}

	if err := m.persist.SaveRoom(ctx, recordFromRoom(r)); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	m.mu.Lock()
	// A concurrent create for the same host may have won the race while the
	// durability write was in flight.
	if id, ok := m.roomByHost[hostID]; ok {
		if s, found := m.rooms[id]; found {
			s.mu.Lock()
			snap := clone(s.cur)
			s.mu.Unlock()
			m.mu.Unlock()
			// Tombstone the losing allocation so the store holds no
			// active duplicate.
			r.Active = false
			_ = m.persist.SaveRoom(ctx, recordFromRoom(r))
			return snap, false, nil
		}
	}
	m.rooms[r.ID] = &slot{cur: r}
	m.roomByHost[hostID] = r.ID
	m.mu.Unlock()
	return clone(r), true, nil
}

// Get returns a snapshot of the room. Closed rooms remain readable until the
// sweep purges them.
func (m *Manager) Get(roomID string) (*Room, error) {
	s, err := m.slotFor(roomID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.cur), nil
}

// Mutate applies one logical transform atomically. The transform runs
// against a copy; the copy becomes authoritative only after the durability
// write succeeds, so a storage failure leaves the room exactly as it was.
func (m *Manager) Mutate(ctx context.Context, roomID string, fn func(*Room) error) (*Room, error) {
	return m.MutateThen(ctx, roomID, fn, nil)
}

// MutateThen is Mutate with a post-commit hook that runs before the room
// accepts its next mutation. The hook sees the committed snapshot and must
// not call back into the manager.
func (m *Manager) MutateThen(ctx context.Context, roomID string, fn func(*Room) error, then func(*Room)) (*Room, error) {
	s, err := m.slotFor(roomID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cur.Active {
		return nil, ErrClosed
	}

	next := clone(s.cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.LastActivity = time.Now().UTC()

	if err := m.persist.SaveRoom(ctx, recordFromRoom(next)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.cur = next
	snap := clone(next)
	if then != nil {
		then(snap)
	}
	return snap, nil
}

// UpdatePosition is the last-writer-wins fast path for movement: atomic
// against other mutations but never written through per update.
func (m *Manager) UpdatePosition(roomID, playerID string, x, y float64) error {
	s, err := m.slotFor(roomID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Active {
		return ErrClosed
	}
	if err := s.cur.setPosition(playerID, x, y); err != nil {
		return err
	}
	s.cur.LastActivity = time.Now().UTC()
	return nil
}

// Touch refreshes activity on a heartbeat without a durability write.
func (m *Manager) Touch(roomID, playerID string) {
	s, err := m.slotFor(roomID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Active {
		return
	}
	now := time.Now().UTC()
	s.cur.LastActivity = now
	if i := s.cur.participantIndex(playerID); i >= 0 {
		s.cur.Participants[i].LastSeen = now
	}
}

// Close marks the room terminal. The in-memory close always commits; a
// failed durability write is reported to the caller but does not revive the
// room.
func (m *Manager) Close(ctx context.Context, roomID string) (*Room, error) {
	s, err := m.slotFor(roomID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.cur.Active {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.cur.Active = false
	s.cur.LastActivity = time.Now().UTC()
	snap := clone(s.cur)
	s.mu.Unlock()

	m.mu.Lock()
	if m.roomByHost[snap.HostID] == snap.ID {
		delete(m.roomByHost, snap.HostID)
	}
	m.mu.Unlock()

	if err := m.persist.SaveRoom(ctx, recordFromRoom(snap)); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return snap, nil
}

// ListActive returns snapshots of all active rooms.
func (m *Manager) ListActive() []*Room {
	m.mu.RLock()
	slots := make([]*slot, 0, len(m.rooms))
	for _, s := range m.rooms {
		slots = append(slots, s)
	}
	m.mu.RUnlock()

	out := make([]*Room, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		if s.cur.Active {
			out = append(out, clone(s.cur))
		}
		s.mu.Unlock()
	}
	return out
}

func (m *Manager) ActiveCount() int {
	return len(m.ListActive())
}

// StartJanitor sweeps idle rooms on an interval until ctx is done. Rooms
// closed by the sweep are reported through the sweep hook; rooms already
// closed are purged after a further idle period.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweepIdle(ctx)
			}
		}
	}()
}

func (m *Manager) sweepIdle(ctx context.Context) {
	now := time.Now().UTC()

	m.mu.RLock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var swept []*Room
	var purge []string
	for _, id := range ids {
		s, err := m.slotFor(id)
		if err != nil {
			continue
		}
		s.mu.Lock()
		if s.cur.Active {
			if now.Sub(s.cur.LastActivity) >= m.idleTimeout {
				s.cur.Active = false
				s.cur.LastActivity = now
				swept = append(swept, clone(s.cur))
			}
			s.mu.Unlock()
			continue
		}
		if now.Sub(s.cur.LastActivity) >= m.idleTimeout {
			purge = append(purge, id)
		}
		s.mu.Unlock()
	}

	m.mu.Lock()
	for _, r := range swept {
		if m.roomByHost[r.HostID] == r.ID {
			delete(m.roomByHost, r.HostID)
		}
	}
	for _, id := range purge {
		delete(m.rooms, id)
	}
	hook := m.onSweep
	m.mu.Unlock()

	for _, r := range swept {
		// Terminal write for a room nobody touched in the idle window;
		// best-effort like the close path.
		_ = m.persist.SaveRoom(ctx, recordFromRoom(r))
		if hook != nil {
			hook(r)
		}
	}
}

func (m *Manager) slotFor(roomID string) (*slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) hostRoom(hostID string) (*Room, error) {
	m.mu.RLock()
	id, ok := m.roomByHost[hostID]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrNotFound
	}
	s, found := m.rooms[id]
	m.mu.RUnlock()
	if !found {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Active {
		return nil, ErrNotFound
	}
	return clone(s.cur), nil
}

func newRoomID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
