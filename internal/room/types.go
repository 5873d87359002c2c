package room

import (
	"errors"
	"time"

	"chasehome/internal/catalog"
	"chasehome/internal/store"
)

const (
	SpawnX = 100
	SpawnY = 100
)

var (
	ErrNotFound        = errors.New("room not found")
	ErrClosed          = errors.New("room closed")
	ErrFull            = errors.New("room full")
	ErrFloorIncomplete = errors.New("floor incomplete")
	ErrStorage         = errors.New("storage failure")
)

type Participant struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Connected bool      `json:"connected"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joined_at"`
	LastSeen  time.Time `json:"last_seen"`
}

type Room struct {
	ID             string        `json:"room_id"`
	Name           string        `json:"name"`
	HostID         string        `json:"host_id"`
	HouseID        int           `json:"current_house"`
	Floor          int           `json:"current_floor"`
	MaxPlayers     int           `json:"max_players"`
	ActiveTasks    []string      `json:"active_tasks"`
	CompletedTasks []string      `json:"completed_tasks"`
	Participants   []Participant `json:"players"`
	Active         bool          `json:"is_active"`
	Started        bool          `json:"is_started"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivity   time.Time     `json:"last_activity"`
}

func clone(r *Room) *Room {
	c := *r
	c.ActiveTasks = append([]string(nil), r.ActiveTasks...)
	c.CompletedTasks = append([]string(nil), r.CompletedTasks...)
	c.Participants = append([]Participant(nil), r.Participants...)
	return &c
}

func (r *Room) participantIndex(playerID string) int {
	for i := range r.Participants {
		if r.Participants[i].ID == playerID {
			return i
		}
	}
	return -1
}

// Participant returns a copy of the roster entry for playerID.
func (r *Room) Participant(playerID string) (Participant, bool) {
	i := r.participantIndex(playerID)
	if i < 0 {
		return Participant{}, false
	}
	return r.Participants[i], true
}

// ActiveCount reports roster entries that currently count against capacity.
func (r *Room) ActiveCount() int {
	n := 0
	for i := range r.Participants {
		if r.Participants[i].Active {
			n++
		}
	}
	return n
}

// HasTask reports whether taskID is still open on the current floor.
func (r *Room) HasTask(taskID string) bool {
	for _, id := range r.ActiveTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// HasCompleted reports whether taskID was already completed on the current
// floor.
func (r *Room) HasCompleted(taskID string) bool {
	for _, id := range r.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// Join adds playerID to the roster or reactivates its retained entry.
// A join for an already-active entry only refreshes connectivity.
func (r *Room) Join(playerID, username string) error {
	now := time.Now().UTC()
	if i := r.participantIndex(playerID); i >= 0 {
		p := &r.Participants[i]
		if p.Active {
			p.Connected = true
			p.LastSeen = now
			return nil
		}
		if r.ActiveCount() >= r.MaxPlayers {
			return ErrFull
		}
		p.Active = true
		p.Connected = true
		p.Username = username
		p.X = SpawnX
		p.Y = SpawnY
		p.JoinedAt = now
		p.LastSeen = now
		return nil
	}

	if r.ActiveCount() >= r.MaxPlayers {
		return ErrFull
	}
	r.Participants = append(r.Participants, Participant{
		ID:        playerID,
		Username:  username,
		X:         SpawnX,
		Y:         SpawnY,
		Connected: true,
		Active:    true,
		JoinedAt:  now,
		LastSeen:  now,
	})
	return nil
}

// Leave marks playerID inactive. The roster entry is retained until the room
// closes.
func (r *Room) Leave(playerID string) error {
	i := r.participantIndex(playerID)
	if i < 0 || !r.Participants[i].Active {
		return ErrNotFound
	}
	p := &r.Participants[i]
	p.Active = false
	p.Connected = false
	p.LastSeen = time.Now().UTC()
	return nil
}

// SetConnected flips the connectivity flag without touching membership.
func (r *Room) SetConnected(playerID string, connected bool) error {
	i := r.participantIndex(playerID)
	if i < 0 || !r.Participants[i].Active {
		return ErrNotFound
	}
	p := &r.Participants[i]
	p.Connected = connected
	p.LastSeen = time.Now().UTC()
	return nil
}

// StartFloor points the room at (houseID, floor) and resets both task sets
// from the catalog. Completed progress never survives a scope change.
func (r *Room) StartFloor(houseID, floor int) error {
	ids, err := catalog.TaskIDsFor(houseID, floor)
	if err != nil {
		return err
	}
	r.HouseID = houseID
	r.Floor = floor
	r.ActiveTasks = ids
	r.CompletedTasks = []string{}
	return nil
}

func (r *Room) setPosition(playerID string, x, y float64) error {
	i := r.participantIndex(playerID)
	if i < 0 || !r.Participants[i].Active {
		return ErrNotFound
	}
	p := &r.Participants[i]
	p.X = x
	p.Y = y
	p.LastSeen = time.Now().UTC()
	return nil
}

func recordFromRoom(r *Room) store.RoomRecord {
	participants := make([]store.ParticipantRecord, len(r.Participants))
	for i, p := range r.Participants {
		participants[i] = store.ParticipantRecord{
			ID:        p.ID,
			Username:  p.Username,
			X:         p.X,
			Y:         p.Y,
			Connected: p.Connected,
			Active:    p.Active,
			JoinedAt:  p.JoinedAt,
			LastSeen:  p.LastSeen,
		}
	}
	return store.RoomRecord{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		HouseID:        r.HouseID,
		Floor:          r.Floor,
		MaxPlayers:     r.MaxPlayers,
		ActiveTasks:    append([]string(nil), r.ActiveTasks...),
		CompletedTasks: append([]string(nil), r.CompletedTasks...),
		Participants:   participants,
		Active:         r.Active,
		Started:        r.Started,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivity,
	}
}
