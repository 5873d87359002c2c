package engine

import (
	"context"
	"errors"
	"time"

	"chasehome/internal/catalog"
	"chasehome/internal/events"
	"chasehome/internal/progress"
	"chasehome/internal/protocol"
	"chasehome/internal/room"
	"chasehome/internal/store"
)

// CreateRoom allocates a room hosted by playerID. A retried create while
// already hosting returns the existing room instead of allocating; creating
// while inside another player's room leaves that room first.
func (e *Engine) CreateRoom(ctx context.Context, playerID, username string, msg protocol.CreateRoom) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("create_room", time.Since(start)) }()

	if cur, ok := e.registry.RoomOf(playerID); ok {
		if r, err := e.rooms.Get(cur); err == nil && r.Active && r.HostID == playerID {
			e.dispatch.ToPlayer(playerID, protocol.ServerMessage{
				Event: protocol.EventRoomCreated,
				Data:  protocol.RoomCreatedData{RoomID: r.ID, RoomName: r.Name},
			})
			e.dispatch.ToPlayer(playerID, e.roomStateMessage(r))
			return nil
		}
		_ = e.leaveRoom(ctx, playerID, cur, "")
	}

	r, created, err := e.rooms.Create(ctx, playerID, username, msg.RoomName)
	if err != nil {
		return err
	}
	e.registry.SetRoom(playerID, r.ID)
	if created {
		e.appendEvent(ctx, r.ID, playerID, events.KindRoomCreated, protocol.RoomCreatedData{RoomID: r.ID, RoomName: r.Name})
		e.metrics.ActiveRooms.Set(float64(e.rooms.ActiveCount()))
	}

	e.dispatch.ToPlayer(playerID, protocol.ServerMessage{
		Event: protocol.EventRoomCreated,
		Data:  protocol.RoomCreatedData{RoomID: r.ID, RoomName: r.Name},
	})
	e.dispatch.ToPlayer(playerID, e.roomStateMessage(r))
	return nil
}

// JoinRoom adds playerID to a room and announces the arrival. Joining a new
// room while inside another one leaves the old room first.
func (e *Engine) JoinRoom(ctx context.Context, playerID, username string, msg protocol.JoinRoom) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("join_room", time.Since(start)) }()

	if msg.Username != "" {
		username = msg.Username
	}
	if cur, ok := e.registry.RoomOf(playerID); ok && cur != msg.RoomID {
		_ = e.leaveRoom(ctx, playerID, cur, "")
	}

	snap, err := e.rooms.MutateThen(ctx, msg.RoomID,
		func(r *room.Room) error {
			return r.Join(playerID, username)
		},
		func(r *room.Room) {
			// Bind before the announcement so the joiner hears it too.
			e.registry.SetRoom(playerID, r.ID)
			joined := protocol.PlayerJoinedData{UserID: playerID, Username: username}
			e.appendEvent(ctx, r.ID, playerID, events.KindPlayerJoined, joined)
			e.dispatch.ToRoom(r.ID, protocol.ServerMessage{Event: protocol.EventPlayerJoined, Data: joined})
		})
	if err != nil {
		return err
	}

	e.dispatch.ToPlayer(playerID, e.roomStateMessage(snap))
	return nil
}

func (e *Engine) LeaveRoom(ctx context.Context, playerID string) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("leave_room", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}
	if err := e.leaveRoom(ctx, playerID, roomID, ""); err != nil {
		return err
	}

	e.dispatch.ToPlayer(playerID, protocol.ServerMessage{
		Event: protocol.EventRoomLeft,
		Data:  protocol.RoomLeftData{RoomID: roomID},
	})
	return nil
}

// leaveRoom applies the departure mutation and closes the room when the
// leaver was the host or the roster emptied.
func (e *Engine) leaveRoom(ctx context.Context, playerID, roomID, reason string) error {
	snap, err := e.rooms.MutateThen(ctx, roomID,
		func(r *room.Room) error {
			return r.Leave(playerID)
		},
		func(r *room.Room) {
			left := protocol.PlayerLeftData{UserID: playerID, Reason: reason}
			e.appendEvent(ctx, r.ID, playerID, events.KindPlayerLeft, left)
			e.dispatch.ToRoom(r.ID, protocol.ServerMessage{Event: protocol.EventPlayerLeft, Data: left}, playerID)
		})
	e.registry.ClearRoom(playerID)
	if err != nil {
		return err
	}

	if playerID == snap.HostID || snap.ActiveCount() == 0 {
		e.closeRoom(ctx, snap.ID)
	}
	return nil
}

// PlayerMove is the last-writer-wins fast path: the position is applied
// atomically but not written through, and the journal append is best-effort.
func (e *Engine) PlayerMove(ctx context.Context, playerID string, msg protocol.PlayerMove) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("player_move", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}
	if err := e.rooms.UpdatePosition(roomID, playerID, msg.X, msg.Y); err != nil {
		return err
	}

	moved := protocol.PlayerMovedData{UserID: playerID, X: msg.X, Y: msg.Y}
	e.appendEvent(ctx, roomID, playerID, events.KindPlayerMoved, moved)
	e.dispatch.ToRoom(roomID, protocol.ServerMessage{Event: protocol.EventPlayerMoved, Data: moved}, playerID)
	return nil
}

// TaskComplete applies a completion. Duplicates are silent no-ops; the first
// completion that finishes the floor also announces floor completion before
// the room accepts its next mutation.
func (e *Engine) TaskComplete(ctx context.Context, playerID string, msg protocol.TaskComplete) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("task_complete", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}

	var result progress.Result
	snap, err := e.rooms.MutateThen(ctx, roomID,
		func(r *room.Room) error {
			res, err := progress.Complete(r, playerID, msg.TaskID)
			if err != nil {
				return err
			}
			if !res.Applied {
				return errNoChange
			}
			result = res
			return nil
		},
		func(r *room.Room) {
			completed := protocol.TaskCompletedData{
				TaskID:         msg.TaskID,
				CompletedBy:    playerID,
				TasksRemaining: result.TasksLeft,
			}
			e.appendEvent(ctx, r.ID, playerID, events.KindTaskCompleted, completed)
			e.dispatch.ToRoom(r.ID, protocol.ServerMessage{Event: protocol.EventTaskCompleted, Data: completed})

			if result.FloorComplete {
				done := protocol.FloorCompleteData{Message: "All tasks completed! Ready to progress.", Floor: r.Floor}
				e.appendEvent(ctx, r.ID, playerID, events.KindFloorCompleted, done)
				e.dispatch.ToRoom(r.ID, protocol.ServerMessage{Event: protocol.EventFloorComplete, Data: done})
			}
		})
	if errors.Is(err, errNoChange) {
		e.metrics.CountIndicator("duplicate_completion")
		return nil
	}
	if err != nil {
		if errors.Is(err, progress.ErrStaleTask) {
			e.metrics.CountIndicator("stale_task")
		}
		return err
	}

	e.metrics.TaskCompletions.Inc()
	if result.FloorComplete {
		e.metrics.FloorsCompleted.Inc()
	}
	if _, err := e.accounts.UpdateAccountProgress(ctx, playerID, store.ProgressUpdate{
		HouseID:    snap.HouseID,
		Floor:      snap.Floor,
		TaskIDs:    []string{msg.TaskID},
		ScoreDelta: taskScore,
	}); err != nil {
		e.storeError("account_progress")
	}
	return nil
}

// AdvanceFloor moves a room whose floor is complete to the next floor. At
// the top floor it announces house completion instead of advancing.
func (e *Engine) AdvanceFloor(ctx context.Context, playerID string) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("advance_floor", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}

	houseDone := false
	snap, err := e.rooms.MutateThen(ctx, roomID,
		func(r *room.Room) error {
			if !progress.FloorComplete(r) {
				return room.ErrFloorIncomplete
			}
			house, err := catalog.HouseByID(r.HouseID)
			if err != nil {
				return err
			}
			if r.Floor >= house.Floors {
				houseDone = true
				return errNoChange
			}
			return r.StartFloor(r.HouseID, r.Floor+1)
		},
		func(r *room.Room) {
			e.appendEvent(ctx, r.ID, playerID, events.KindFloorAdvanced, struct {
				Floor int `json:"floor"`
			}{r.Floor})
			e.dispatch.ToRoom(r.ID, e.roomStateMessage(r))
		})
	if errors.Is(err, errNoChange) {
		if houseDone {
			if r, gerr := e.rooms.Get(roomID); gerr == nil {
				e.dispatch.ToRoom(r.ID, protocol.ServerMessage{
					Event: protocol.EventHouseComplete,
					Data: protocol.HouseCompleteData{
						Message: "All floors completed! Choose the next house.",
						HouseID: r.HouseID,
					},
				})
			}
		}
		return nil
	}
	if err != nil {
		return err
	}

	e.updateRosterProgress(ctx, snap)
	return nil
}

// ChangeHouse points the room at a new house, floor 1. Progress never
// survives the scope change.
func (e *Engine) ChangeHouse(ctx context.Context, playerID string, msg protocol.ChangeHouse) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("change_house", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}

	snap, err := e.rooms.MutateThen(ctx, roomID,
		func(r *room.Room) error {
			return r.StartFloor(msg.HouseID, 1)
		},
		func(r *room.Room) {
			e.appendEvent(ctx, r.ID, playerID, events.KindHouseChanged, struct {
				HouseID int `json:"house_id"`
			}{r.HouseID})
			e.dispatch.ToRoom(r.ID, e.roomStateMessage(r))
		})
	if err != nil {
		return err
	}

	e.updateRosterProgress(ctx, snap)
	return nil
}

func (e *Engine) SendRoomState(ctx context.Context, playerID string) error {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("get_room_state", time.Since(start)) }()

	roomID, ok := e.registry.RoomOf(playerID)
	if !ok {
		return room.ErrNotFound
	}
	r, err := e.rooms.Get(roomID)
	if err != nil {
		return err
	}
	e.dispatch.ToPlayer(playerID, e.roomStateMessage(r))
	return nil
}

// updateRosterProgress writes the room's new coordinate to every active
// member's account, best-effort.
func (e *Engine) updateRosterProgress(ctx context.Context, snap *room.Room) {
	for _, p := range snap.Participants {
		if !p.Active {
			continue
		}
		if _, err := e.accounts.UpdateAccountProgress(ctx, p.ID, store.ProgressUpdate{
			HouseID: snap.HouseID,
			Floor:   snap.Floor,
		}); err != nil {
			e.storeError("account_progress")
		}
	}
}
