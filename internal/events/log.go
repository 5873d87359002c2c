package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Kind names a state-changing occurrence within a room.
type Kind string

const (
	KindRoomCreated    Kind = "room_created"
	KindPlayerJoined   Kind = "player_joined"
	KindPlayerLeft     Kind = "player_left"
	KindPlayerMoved    Kind = "player_moved"
	KindTaskCompleted  Kind = "task_completed"
	KindFloorCompleted Kind = "floor_completed"
	KindFloorAdvanced  Kind = "floor_advanced"
	KindHouseChanged   Kind = "house_changed"
	KindRoomClosed     Kind = "room_closed"
)

// Event is an immutable, append-only record. Seq is assigned by storage,
// ordered by insertion within a room.
type Event struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Seq       uint64          `json:"seq"`
	Kind      Kind            `json:"kind"`
	ActorID   string          `json:"actor_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Log interface {
	Append(ctx context.Context, event Event) (Event, error)
	ListByRoom(ctx context.Context, roomID string, limit int) ([]Event, error)
	Close() error
}

// NewLog creates a postgres-backed log when configured, otherwise in-memory.
func NewLog(ctx context.Context, databaseURL string) (Log, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryLog(), nil
	}
	return NewPostgresLog(ctx, databaseURL)
}
