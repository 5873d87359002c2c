package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestInMemoryAppendAssignsSeqPerRoom(t *testing.T) {
	l := NewInMemoryLog()
	ctx := context.Background()

	first, err := l.Append(ctx, Event{RoomID: "R1", Kind: KindRoomCreated, ActorID: "u1"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("first seq = %d, want 1", first.Seq)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("append did not fill identity fields: %+v", first)
	}

	second, err := l.Append(ctx, Event{RoomID: "R1", Kind: KindPlayerJoined, ActorID: "u2"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("second seq = %d, want 2", second.Seq)
	}

	other, err := l.Append(ctx, Event{RoomID: "R2", Kind: KindRoomCreated, ActorID: "u3"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if other.Seq != 1 {
		t.Fatalf("other room seq = %d, want 1", other.Seq)
	}
}

func TestInMemoryListByRoom(t *testing.T) {
	l := NewInMemoryLog()
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]string{"task_id": "fix_power_1_1_0"})
	kinds := []Kind{KindRoomCreated, KindPlayerJoined, KindTaskCompleted}
	for _, kind := range kinds {
		if _, err := l.Append(ctx, Event{RoomID: "R1", Kind: kind, Payload: payload}); err != nil {
			t.Fatalf("Append(%s) error = %v", kind, err)
		}
	}

	all, err := l.ListByRoom(ctx, "R1", 0)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	for i, e := range all {
		if e.Kind != kinds[i] {
			t.Errorf("event[%d].Kind = %s, want %s", i, e.Kind, kinds[i])
		}
	}

	tail, err := l.ListByRoom(ctx, "R1", 2)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(tail) != 2 || tail[0].Kind != KindPlayerJoined || tail[1].Kind != KindTaskCompleted {
		t.Fatalf("unexpected tail: %+v", tail)
	}

	none, err := l.ListByRoom(ctx, "empty", 10)
	if err != nil {
		t.Fatalf("ListByRoom(empty) error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("events for unknown room = %d, want 0", len(none))
	}
}

func TestInMemoryRingBound(t *testing.T) {
	l := NewInMemoryLog()
	ctx := context.Background()

	for i := 0; i < maxEventsPerRoom+10; i++ {
		if _, err := l.Append(ctx, Event{RoomID: "R1", Kind: KindPlayerMoved}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := l.ListByRoom(ctx, "R1", 0)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(all) != maxEventsPerRoom {
		t.Fatalf("ring length = %d, want %d", len(all), maxEventsPerRoom)
	}
	if all[len(all)-1].Seq != uint64(maxEventsPerRoom+10) {
		t.Fatalf("latest seq = %d, want %d", all[len(all)-1].Seq, maxEventsPerRoom+10)
	}
}
