package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxEventsPerRoom = 1024

// InMemoryLog keeps a bounded per-room event ring for local/dev use.
type InMemoryLog struct {
	mu     sync.RWMutex
	byRoom map[string][]Event
	seqs   map[string]uint64
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		byRoom: make(map[string][]Event),
		seqs:   make(map[string]uint64),
	}
}

func (l *InMemoryLog) Append(_ context.Context, event Event) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	l.seqs[event.RoomID]++
	event.Seq = l.seqs[event.RoomID]

	arr := append(l.byRoom[event.RoomID], event)
	if len(arr) > maxEventsPerRoom {
		arr = arr[len(arr)-maxEventsPerRoom:]
	}
	l.byRoom[event.RoomID] = arr
	return event, nil
}

func (l *InMemoryLog) ListByRoom(_ context.Context, roomID string, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	arr := l.byRoom[roomID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Event, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

func (l *InMemoryLog) Close() error { return nil }
