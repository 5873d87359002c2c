package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chasehome/internal/protocol"
)

type options struct {
	baseURL       string
	players       int
	moves         int
	moveInterval  time.Duration
	completeFloor bool
	roomName      string
	stepTimeout   time.Duration
	verbose       bool
}

type wireMsg struct {
	Event protocol.EventType `json:"event"`
	Data  json.RawMessage    `json:"data"`
}

type player struct {
	name   string
	userID string
	conn   *websocket.Conn
	events chan wireMsg
	errCh  chan error
	tally  map[string]int
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "playsim: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "playsim: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var moveIntervalMS int
	var stepTimeoutMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8787", "server base URL")
	flag.IntVar(&cfg.players, "players", 3, "number of synthetic players in the room")
	flag.IntVar(&cfg.moves, "moves", 20, "movement updates per player")
	flag.IntVar(&moveIntervalMS, "move-interval-ms", 50, "delay between movement bursts in milliseconds")
	flag.BoolVar(&cfg.completeFloor, "complete-floor", true, "complete the first floor and advance")
	flag.StringVar(&cfg.roomName, "room-name", "playsim", "room name for the synthetic session")
	flag.IntVar(&stepTimeoutMS, "step-timeout-ms", 5000, "timeout per awaited server event in milliseconds")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.players < 1 {
		return options{}, fmt.Errorf("players must be >= 1")
	}
	if cfg.moves < 0 {
		return options{}, fmt.Errorf("moves must be >= 0")
	}
	if moveIntervalMS < 0 {
		moveIntervalMS = 0
	}
	if stepTimeoutMS < 500 {
		stepTimeoutMS = 500
	}
	cfg.moveInterval = time.Duration(moveIntervalMS) * time.Millisecond
	cfg.stepTimeout = time.Duration(stepTimeoutMS) * time.Millisecond
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	wsURL, err := wsURLFor(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}

	roster := make([]*player, 0, cfg.players)
	defer func() {
		for _, p := range roster {
			_ = p.conn.Close()
		}
	}()

	for i := 1; i <= cfg.players; i++ {
		p, err := connect(ctx, wsURL, fmt.Sprintf("playsim-%d", i))
		if err != nil {
			return fmt.Errorf("player %d connect: %w", i, err)
		}
		roster = append(roster, p)
		if err := p.authenticate(cfg.stepTimeout); err != nil {
			return fmt.Errorf("player %d authenticate: %w", i, err)
		}
	}

	host := roster[0]
	if err := host.send(protocol.EventCreateRoom, map[string]any{"room_name": cfg.roomName}); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	createdMsg, err := host.await(protocol.EventRoomCreated, cfg.stepTimeout)
	if err != nil {
		return fmt.Errorf("await room_created: %w", err)
	}
	var created protocol.RoomCreatedData
	if err := json.Unmarshal(createdMsg.Data, &created); err != nil {
		return fmt.Errorf("decode room_created: %w", err)
	}
	stateMsg, err := host.await(protocol.EventRoomState, cfg.stepTimeout)
	if err != nil {
		return fmt.Errorf("await room_state: %w", err)
	}
	var state protocol.RoomStateData
	if err := json.Unmarshal(stateMsg.Data, &state); err != nil {
		return fmt.Errorf("decode room_state: %w", err)
	}
	if cfg.verbose {
		fmt.Printf("playsim: room=%s house=%d floor=%d tasks=%d\n",
			created.RoomID, state.CurrentHouse, state.CurrentFloor, len(state.ActiveTasks))
	}

	for i, p := range roster[1:] {
		if err := p.send(protocol.EventJoinRoom, map[string]any{"room_id": created.RoomID}); err != nil {
			return fmt.Errorf("player %d join: %w", i+2, err)
		}
		if _, err := p.await(protocol.EventRoomState, cfg.stepTimeout); err != nil {
			return fmt.Errorf("player %d await room_state: %w", i+2, err)
		}
	}

	for m := 0; m < cfg.moves; m++ {
		for _, p := range roster {
			x := 100 + rand.Float64()*600
			y := 100 + rand.Float64()*400
			if err := p.send(protocol.EventPlayerMove, map[string]any{"x": x, "y": y}); err != nil {
				return fmt.Errorf("%s move: %w", p.name, err)
			}
		}
		if cfg.moveInterval > 0 {
			time.Sleep(cfg.moveInterval)
		}
	}

	if cfg.completeFloor {
		for _, task := range state.ActiveTasks {
			if err := host.send(protocol.EventTaskComplete, map[string]any{"task_id": task.ID}); err != nil {
				return fmt.Errorf("complete %s: %w", task.ID, err)
			}
			if _, err := host.await(protocol.EventTaskCompleted, cfg.stepTimeout); err != nil {
				return fmt.Errorf("await task_completed for %s: %w", task.ID, err)
			}
		}
		if _, err := host.await(protocol.EventFloorComplete, cfg.stepTimeout); err != nil {
			return fmt.Errorf("await floor_complete: %w", err)
		}
		if err := host.send(protocol.EventAdvanceFloor, nil); err != nil {
			return fmt.Errorf("advance floor: %w", err)
		}
		if _, err := host.await(protocol.EventRoomState, cfg.stepTimeout); err != nil {
			return fmt.Errorf("await room_state after advance: %w", err)
		}
		if cfg.verbose {
			fmt.Printf("playsim: floor %d completed and advanced\n", state.CurrentFloor)
		}
	}

	// Guests leave first so their departures broadcast; the host leave closes
	// the room.
	for i := len(roster) - 1; i >= 0; i-- {
		p := roster[i]
		if err := p.send(protocol.EventLeaveRoom, nil); err != nil {
			return fmt.Errorf("%s leave: %w", p.name, err)
		}
		if _, err := p.await(protocol.EventRoomLeft, cfg.stepTimeout); err != nil {
			return fmt.Errorf("%s await room_left: %w", p.name, err)
		}
	}

	for _, p := range roster {
		p.drain()
		if cfg.verbose {
			fmt.Printf("playsim: %s received %s\n", p.name, formatTally(p.tally))
		}
	}
	if cfg.verbose {
		fmt.Println("playsim: run completed")
	}
	return nil
}

func connect(ctx context.Context, wsURL, name string) (*player, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	p := &player{
		name:   name,
		conn:   conn,
		events: make(chan wireMsg, 1024),
		errCh:  make(chan error, 1),
		tally:  make(map[string]int),
	}
	go p.readLoop()
	return p, nil
}

func (p *player) readLoop() {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			select {
			case p.errCh <- err:
			default:
			}
			return
		}
		var msg wireMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		p.events <- msg
	}
}

func (p *player) send(event protocol.EventType, data map[string]any) error {
	env := map[string]any{"event": event}
	if data != nil {
		env["data"] = data
	}
	return p.conn.WriteJSON(env)
}

func (p *player) authenticate(timeout time.Duration) error {
	if err := p.send(protocol.EventAuthenticate, map[string]any{"username": p.name}); err != nil {
		return err
	}
	msg, err := p.await(protocol.EventAuthenticated, timeout)
	if err != nil {
		return err
	}
	var data protocol.AuthenticatedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return err
	}
	if data.UserID == "" {
		return fmt.Errorf("authenticated without user_id")
	}
	p.userID = data.UserID
	return nil
}

func (p *player) await(event protocol.EventType, timeout time.Duration) (wireMsg, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg := <-p.events:
			p.tally[string(msg.Event)]++
			if msg.Event == protocol.EventError {
				var errData protocol.ErrorData
				_ = json.Unmarshal(msg.Data, &errData)
				return wireMsg{}, fmt.Errorf("server error %s: %s", errData.Code, errData.Message)
			}
			if msg.Event == event {
				return msg, nil
			}
		case err := <-p.errCh:
			return wireMsg{}, err
		case <-timer.C:
			return wireMsg{}, fmt.Errorf("timeout after %s waiting for %s", timeout, event)
		}
	}
}

func (p *player) drain() {
	for {
		select {
		case msg := <-p.events:
			p.tally[string(msg.Event)]++
		default:
			return
		}
	}
}

func formatTally(tally map[string]int) string {
	if len(tally) == 0 {
		return "no frames"
	}
	parts := make([]string, 0, len(tally))
	total := 0
	for event, n := range tally {
		parts = append(parts, fmt.Sprintf("%s=%d", event, n))
		total += n
	}
	return fmt.Sprintf("%d frames (%s)", total, strings.Join(parts, " "))
}

func wsURLFor(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
