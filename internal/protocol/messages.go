package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies websocket payload variants.
type EventType string

const (
	EventAuthenticate EventType = "authenticate"
	EventCreateRoom   EventType = "create_room"
	EventJoinRoom     EventType = "join_room"
	EventLeaveRoom    EventType = "leave_room"
	EventPlayerMove   EventType = "player_move"
	EventTaskComplete EventType = "task_complete"
	EventAdvanceFloor EventType = "advance_floor"
	EventChangeHouse  EventType = "change_house"
	EventGetRoomState EventType = "get_room_state"
)

const (
	EventAuthenticated EventType = "authenticated"
	EventRoomCreated   EventType = "room_created"
	EventRoomState     EventType = "room_state"
	EventRoomLeft      EventType = "room_left"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventPlayerMoved   EventType = "player_moved"
	EventTaskCompleted EventType = "task_completed"
	EventFloorComplete EventType = "floor_complete"
	EventHouseComplete EventType = "house_complete"
	EventError         EventType = "error"
)

var ErrUnsupportedEvent = errors.New("unsupported event")

type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the outbound envelope written to a client.
type ServerMessage struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

type Authenticate struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

type CreateRoom struct {
	RoomName string `json:"room_name"`
}

type JoinRoom struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username,omitempty"`
}

type LeaveRoom struct{}

type PlayerMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TaskComplete struct {
	TaskID string `json:"task_id"`
}

type AdvanceFloor struct{}

type ChangeHouse struct {
	HouseID int `json:"house_id"`
}

type GetRoomState struct{}

type AuthenticatedData struct {
	UserID         string   `json:"user_id"`
	Username       string   `json:"username"`
	CurrentHouse   int      `json:"current_house"`
	CurrentFloor   int      `json:"current_floor"`
	TotalScore     int      `json:"total_score"`
	CompletedTasks []string `json:"completed_tasks"`
}

type RoomCreatedData struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type RoomLeftData struct {
	RoomID string `json:"room_id"`
}

type PlayerState struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Connected bool    `json:"connected"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TaskInfo is the wire shape of one catalog task on the current floor.
type TaskInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	HouseID            int      `json:"house_id"`
	Floor              int      `json:"floor"`
	Room               string   `json:"room"`
	Steps              int      `json:"steps"`
	Position           Position `json:"position"`
	InteractTime       float64  `json:"interact_time"`
	RequiresAllPlayers bool     `json:"requires_all_players"`
	TaskType           string   `json:"task_type"`
}

type RoomStateData struct {
	RoomID          string        `json:"room_id"`
	RoomName        string        `json:"room_name"`
	HostID          string        `json:"host_id"`
	Players         []PlayerState `json:"players"`
	CurrentHouse    int           `json:"current_house"`
	HouseName       string        `json:"house_name"`
	CurrentFloor    int           `json:"current_floor"`
	MaxFloors       int           `json:"max_floors"`
	ActiveTasks     []TaskInfo    `json:"active_tasks"`
	CompletedTasks  []string      `json:"completed_tasks"`
	TasksRemaining  int           `json:"tasks_remaining"`
	IsFloorComplete bool          `json:"is_floor_complete"`
	IsStarted       bool          `json:"is_started"`
	IsActive        bool          `json:"is_active"`
}

type PlayerJoinedData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type PlayerLeftData struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

type PlayerMovedData struct {
	UserID string  `json:"user_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type TaskCompletedData struct {
	TaskID         string `json:"task_id"`
	CompletedBy    string `json:"completed_by"`
	TasksRemaining int    `json:"tasks_remaining"`
}

type FloorCompleteData struct {
	Message string `json:"message"`
	Floor   int    `json:"floor"`
}

type HouseCompleteData struct {
	Message string `json:"message"`
	HouseID int    `json:"house_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Event {
	case EventAuthenticate:
		var msg Authenticate
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" && msg.Username == "" {
			return nil, errors.New("invalid authenticate")
		}
		return msg, nil
	case EventCreateRoom:
		var msg CreateRoom
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		if msg.RoomName == "" {
			return nil, errors.New("invalid create_room")
		}
		return msg, nil
	case EventJoinRoom:
		var msg JoinRoom
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		if msg.RoomID == "" {
			return nil, errors.New("invalid join_room")
		}
		return msg, nil
	case EventLeaveRoom:
		return LeaveRoom{}, nil
	case EventPlayerMove:
		var msg PlayerMove
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case EventTaskComplete:
		var msg TaskComplete
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		if msg.TaskID == "" {
			return nil, errors.New("invalid task_complete")
		}
		return msg, nil
	case EventAdvanceFloor:
		return AdvanceFloor{}, nil
	case EventChangeHouse:
		var msg ChangeHouse
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, err
		}
		if msg.HouseID <= 0 {
			return nil, errors.New("invalid change_house")
		}
		return msg, nil
	case EventGetRoomState:
		return GetRoomState{}, nil
	default:
		return nil, ErrUnsupportedEvent
	}
}

func unmarshalData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, dst)
}
