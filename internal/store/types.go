package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Account is the durable profile of a player across sessions.
type Account struct {
	ID             string    `json:"user_id"`
	Username       string    `json:"username"`
	CurrentHouse   int       `json:"current_house"`
	CurrentFloor   int       `json:"current_floor"`
	CompletedTasks []string  `json:"completed_tasks"`
	TotalScore     int       `json:"total_score"`
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active"`
}

// ParticipantRecord is the persisted roster entry of a room snapshot.
type ParticipantRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Connected bool      `json:"connected"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joined_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// RoomRecord is the persisted snapshot of a room.
type RoomRecord struct {
	ID             string              `json:"room_id"`
	Name           string              `json:"name"`
	HostID         string              `json:"host_id"`
	HouseID        int                 `json:"house_id"`
	Floor          int                 `json:"floor"`
	MaxPlayers     int                 `json:"max_players"`
	ActiveTasks    []string            `json:"active_tasks"`
	CompletedTasks []string            `json:"completed_tasks"`
	Participants   []ParticipantRecord `json:"participants"`
	Active         bool                `json:"active"`
	Started        bool                `json:"started"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
}

// ProgressUpdate adjusts an account after floor or house transitions.
type ProgressUpdate struct {
	HouseID    int
	Floor      int
	TaskIDs    []string
	ScoreDelta int
}

// Store persists accounts and room snapshots.
type Store interface {
	CreateAccount(ctx context.Context, username string) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	TouchAccount(ctx context.Context, id string) error
	UpdateAccountProgress(ctx context.Context, id string, update ProgressUpdate) (Account, error)
	SaveRoom(ctx context.Context, record RoomRecord) error
	GetRoom(ctx context.Context, id string) (RoomRecord, error)
	ListActiveRooms(ctx context.Context) ([]RoomRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
