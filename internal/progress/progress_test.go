package progress

import (
	"errors"
	"testing"
	"time"

	"chasehome/internal/room"
)

func testRoom(t *testing.T) *room.Room {
	t.Helper()
	r := &room.Room{
		ID:         "R1",
		HostID:     "u1",
		MaxPlayers: 5,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.StartFloor(1, 1); err != nil {
		t.Fatalf("StartFloor() error = %v", err)
	}
	if err := r.Join("u1", "derya"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	return r
}

func TestCompleteAppliesOnce(t *testing.T) {
	r := testRoom(t)
	taskID := r.ActiveTasks[0]

	res, err := Complete(r, "u1", taskID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !res.Applied {
		t.Fatalf("first completion applied = false, want true")
	}
	if res.TasksLeft != 2 {
		t.Fatalf("tasks left = %d, want 2", res.TasksLeft)
	}
	if !r.Started {
		t.Fatalf("room not marked started after first completion")
	}
	if r.HasTask(taskID) {
		t.Fatalf("completed task still active")
	}
	if !r.HasCompleted(taskID) {
		t.Fatalf("completed set missing task")
	}

	res, err = Complete(r, "u1", taskID)
	if err != nil {
		t.Fatalf("repeat Complete() error = %v", err)
	}
	if res.Applied {
		t.Fatalf("repeat completion applied = true, want false")
	}
	if len(r.CompletedTasks) != 1 {
		t.Fatalf("completed set grew on repeat: %v", r.CompletedTasks)
	}
}

func TestCompleteDetectsFloorCompletion(t *testing.T) {
	r := testRoom(t)
	all := append([]string(nil), r.ActiveTasks...)

	for i, taskID := range all {
		res, err := Complete(r, "u1", taskID)
		if err != nil {
			t.Fatalf("Complete(%s) error = %v", taskID, err)
		}
		wantComplete := i == len(all)-1
		if res.FloorComplete != wantComplete {
			t.Fatalf("after %d completions floorComplete = %v, want %v", i+1, res.FloorComplete, wantComplete)
		}
	}
	if !FloorComplete(r) {
		t.Fatalf("FloorComplete() = false with all tasks done")
	}
}

func TestCompleteRejectsStaleScope(t *testing.T) {
	r := testRoom(t)
	oldTask := r.ActiveTasks[0]

	if err := r.StartFloor(2, 1); err != nil {
		t.Fatalf("StartFloor() error = %v", err)
	}

	if _, err := Complete(r, "u1", oldTask); !errors.Is(err, ErrStaleTask) {
		t.Fatalf("Complete(old scope) error = %v, want ErrStaleTask", err)
	}
	if len(r.CompletedTasks) != 0 {
		t.Fatalf("stale completion mutated state: %v", r.CompletedTasks)
	}

	if _, err := Complete(r, "u1", "no_such_task_9_9_9"); !errors.Is(err, ErrStaleTask) {
		t.Fatalf("Complete(unknown) error = %v, want ErrStaleTask", err)
	}
}

func TestCompleteUnknownActor(t *testing.T) {
	r := testRoom(t)

	if _, err := Complete(r, "ghost", r.ActiveTasks[0]); !errors.Is(err, room.ErrNotFound) {
		t.Fatalf("Complete(ghost) error = %v, want room.ErrNotFound", err)
	}

	if err := r.Leave("u1"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if _, err := Complete(r, "u1", r.ActiveTasks[0]); !errors.Is(err, room.ErrNotFound) {
		t.Fatalf("Complete(departed) error = %v, want room.ErrNotFound", err)
	}
}

func TestFloorCompleteIsDerived(t *testing.T) {
	r := testRoom(t)
	if FloorComplete(r) {
		t.Fatalf("FloorComplete() = true with no completions")
	}

	// Completion state never survives a scope reset.
	for _, taskID := range append([]string(nil), r.ActiveTasks...) {
		if _, err := Complete(r, "u1", taskID); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}
	if err := r.StartFloor(1, 2); err != nil {
		t.Fatalf("StartFloor() error = %v", err)
	}
	if FloorComplete(r) {
		t.Fatalf("FloorComplete() = true after floor advance")
	}
}
