package progress

import (
	"errors"

	"chasehome/internal/catalog"
	"chasehome/internal/room"
)

var ErrStaleTask = errors.New("stale task reference")

// Result reports the outcome of a completion attempt.
type Result struct {
	Applied       bool
	FloorComplete bool
	TasksLeft     int
}

// Complete applies a task completion to the room within a mutation.
// Completing a task that is already done is a no-op, not an error; a task id
// outside the room's current (house, floor) scope is stale. The first
// applied completion marks the room started.
func Complete(r *room.Room, actorID, taskID string) (Result, error) {
	p, ok := r.Participant(actorID)
	if !ok || !p.Active {
		return Result{}, room.ErrNotFound
	}

	task, err := catalog.TaskByID(taskID)
	if err != nil || task.HouseID != r.HouseID || task.Floor != r.Floor {
		return Result{}, ErrStaleTask
	}

	if r.HasCompleted(taskID) {
		return Result{
			Applied:       false,
			FloorComplete: FloorComplete(r),
			TasksLeft:     len(r.ActiveTasks),
		}, nil
	}

	r.ActiveTasks = removeID(r.ActiveTasks, taskID)
	r.CompletedTasks = append(r.CompletedTasks, taskID)
	r.Started = true

	return Result{
		Applied:       true,
		FloorComplete: FloorComplete(r),
		TasksLeft:     len(r.ActiveTasks),
	}, nil
}

// FloorComplete derives completion from the sets: every catalog task for the
// room's current scope must be in the completed set. Nothing is ever stored
// for this predicate.
func FloorComplete(r *room.Room) bool {
	ids, err := catalog.TaskIDsFor(r.HouseID, r.Floor)
	if err != nil {
		return false
	}
	for _, id := range ids {
		if !r.HasCompleted(id) {
			return false
		}
	}
	return true
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
