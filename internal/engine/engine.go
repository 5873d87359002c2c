package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chasehome/internal/broadcast"
	"chasehome/internal/catalog"
	"chasehome/internal/events"
	"chasehome/internal/observability"
	"chasehome/internal/presence"
	"chasehome/internal/progress"
	"chasehome/internal/protocol"
	"chasehome/internal/room"
	"chasehome/internal/store"
)

var ErrUnauthorized = errors.New("unauthorized")

// errNoChange aborts a mutation that turned out to be a no-op so nothing is
// persisted, journaled, or broadcast for it.
var errNoChange = errors.New("no change")

const taskScore = 10

// Engine coordinates rooms, presence, progress, durability, and fan-out.
// All cross-component state changes flow through it; the underlying
// components never reach into each other directly.
type Engine struct {
	rooms    *room.Manager
	registry *presence.Registry
	dispatch *broadcast.Dispatcher
	accounts store.Store
	journal  events.Log
	metrics  *observability.Metrics
}

func New(rooms *room.Manager, registry *presence.Registry, dispatch *broadcast.Dispatcher, accounts store.Store, journal events.Log, metrics *observability.Metrics) *Engine {
	e := &Engine{
		rooms:    rooms,
		registry: registry,
		dispatch: dispatch,
		accounts: accounts,
		journal:  journal,
		metrics:  metrics,
	}
	registry.SetExpireHook(e.onPresenceExpired)
	rooms.SetSweepHook(e.onRoomSwept)
	return e
}

// ErrorCode maps an error to the wire code carried in an error frame.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, room.ErrStorage):
		return "storage_failure"
	case errors.Is(err, progress.ErrStaleTask):
		return "stale_reference"
	case errors.Is(err, room.ErrFull), errors.Is(err, room.ErrClosed), errors.Is(err, room.ErrFloorIncomplete):
		return "conflict"
	case errors.Is(err, room.ErrNotFound), errors.Is(err, store.ErrNotFound),
		errors.Is(err, catalog.ErrUnknownHouse), errors.Is(err, catalog.ErrUnknownFloor), errors.Is(err, catalog.ErrUnknownTask):
		return "not_found"
	default:
		return "internal"
	}
}

// Authenticate resolves the identity behind a fresh channel, binds it, and
// replays room state when the identity is still inside a room from an
// earlier connection.
func (e *Engine) Authenticate(ctx context.Context, ch presence.Channel, msg protocol.Authenticate) (store.Account, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveAction("authenticate", time.Since(start)) }()

	var (
		account store.Account
		err     error
	)
	switch {
	case msg.UserID != "":
		account, err = e.accounts.GetAccount(ctx, msg.UserID)
		if err == nil {
			if terr := e.accounts.TouchAccount(ctx, account.ID); terr != nil {
				e.storeError("touch_account")
			}
		}
	case msg.Username != "":
		account, err = e.accounts.CreateAccount(ctx, msg.Username)
	default:
		return store.Account{}, ErrUnauthorized
	}
	if err != nil {
		return store.Account{}, err
	}

	e.registry.Bind(account.ID, ch)
	e.metrics.ConnectedPlayers.Set(float64(e.registry.ConnectedCount()))

	e.dispatch.ToPlayer(account.ID, protocol.ServerMessage{
		Event: protocol.EventAuthenticated,
		Data: protocol.AuthenticatedData{
			UserID:         account.ID,
			Username:       account.Username,
			CurrentHouse:   account.CurrentHouse,
			CurrentFloor:   account.CurrentFloor,
			TotalScore:     account.TotalScore,
			CompletedTasks: account.CompletedTasks,
		},
	})

	if roomID, ok := e.registry.RoomOf(account.ID); ok {
		snap, err := e.rooms.Mutate(ctx, roomID, func(r *room.Room) error {
			return r.SetConnected(account.ID, true)
		})
		if err != nil {
			e.registry.ClearRoom(account.ID)
		} else {
			e.dispatch.ToPlayer(account.ID, e.roomStateMessage(snap))
		}
	}
	return account, nil
}

// Disconnect detaches a channel. Membership survives until the grace window
// lapses; only the connectivity flag drops immediately.
func (e *Engine) Disconnect(playerID string, ch presence.Channel) {
	if !e.registry.Unbind(playerID, ch) {
		return
	}
	e.metrics.ConnectedPlayers.Set(float64(e.registry.ConnectedCount()))
	if roomID, ok := e.registry.RoomOf(playerID); ok {
		_, _ = e.rooms.Mutate(context.Background(), roomID, func(r *room.Room) error {
			return r.SetConnected(playerID, false)
		})
	}
}

// Touch refreshes liveness for an identity and its room on a heartbeat.
func (e *Engine) Touch(playerID string) {
	e.registry.Touch(playerID)
	if roomID, ok := e.registry.RoomOf(playerID); ok {
		e.rooms.Touch(roomID, playerID)
	}
}

func (e *Engine) onPresenceExpired(playerID, roomID string) {
	if roomID == "" {
		return
	}
	_ = e.leaveRoom(context.Background(), playerID, roomID, "timeout")
}

func (e *Engine) onRoomSwept(r *room.Room) {
	e.finalizeClosed(context.Background(), r)
}

func (e *Engine) closeRoom(ctx context.Context, roomID string) {
	snap, err := e.rooms.Close(ctx, roomID)
	if snap == nil {
		return
	}
	if err != nil {
		e.storeError("close_room")
	}
	e.finalizeClosed(ctx, snap)
}

// finalizeClosed journals and announces a room that is already terminal,
// then releases the occupants' room bindings.
func (e *Engine) finalizeClosed(ctx context.Context, snap *room.Room) {
	e.appendEvent(ctx, snap.ID, "", events.KindRoomClosed, nil)
	e.dispatch.ToRoom(snap.ID, e.roomStateMessage(snap))
	for _, id := range e.registry.OccupantsOf(snap.ID) {
		e.registry.ClearRoom(id)
	}
	e.metrics.ActiveRooms.Set(float64(e.rooms.ActiveCount()))
}

func (e *Engine) appendEvent(ctx context.Context, roomID, actorID string, kind events.Kind, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			e.metrics.EventAppendFailures.Inc()
			return
		}
		raw = b
	}
	if _, err := e.journal.Append(ctx, events.Event{
		RoomID:  roomID,
		ActorID: actorID,
		Kind:    kind,
		Payload: raw,
	}); err != nil {
		e.metrics.EventAppendFailures.Inc()
		return
	}
	e.metrics.RoomEvents.WithLabelValues(string(kind)).Inc()
}

func (e *Engine) storeError(op string) {
	e.metrics.StoreErrors.WithLabelValues(op).Inc()
}

func (e *Engine) roomStateMessage(r *room.Room) protocol.ServerMessage {
	return protocol.ServerMessage{Event: protocol.EventRoomState, Data: RoomState(r)}
}

// RoomState projects a room snapshot into its wire form. The task list is
// the full catalog set for the current floor; departed roster entries are
// omitted.
func RoomState(r *room.Room) protocol.RoomStateData {
	houseName := "Unknown"
	maxFloors := 1
	if house, err := catalog.HouseByID(r.HouseID); err == nil {
		houseName = house.Name
		maxFloors = house.Floors
	}

	players := make([]protocol.PlayerState, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !p.Active {
			continue
		}
		players = append(players, protocol.PlayerState{
			UserID:    p.ID,
			Username:  p.Username,
			X:         p.X,
			Y:         p.Y,
			Connected: p.Connected,
		})
	}

	tasks, _ := catalog.TasksFor(r.HouseID, r.Floor)
	infos := make([]protocol.TaskInfo, len(tasks))
	for i, t := range tasks {
		infos[i] = protocol.TaskInfo{
			ID:                 t.ID,
			Name:               t.Name,
			Description:        t.Description,
			HouseID:            t.HouseID,
			Floor:              t.Floor,
			Room:               t.Room,
			Steps:              t.Steps,
			Position:           protocol.Position{X: t.Position.X, Y: t.Position.Y},
			InteractTime:       t.InteractTime,
			RequiresAllPlayers: t.RequiresAllPlayers,
			TaskType:           t.TaskType,
		}
	}

	return protocol.RoomStateData{
		RoomID:          r.ID,
		RoomName:        r.Name,
		HostID:          r.HostID,
		Players:         players,
		CurrentHouse:    r.HouseID,
		HouseName:       houseName,
		CurrentFloor:    r.Floor,
		MaxFloors:       maxFloors,
		ActiveTasks:     infos,
		CompletedTasks:  append([]string(nil), r.CompletedTasks...),
		TasksRemaining:  len(tasks) - len(r.CompletedTasks),
		IsFloorComplete: progress.FloorComplete(r),
		IsStarted:       r.Started,
		IsActive:        r.Active,
	}
}
