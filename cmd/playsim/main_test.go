package main

import (
	"strings"
	"testing"
	"time"

	"chasehome/internal/protocol"
)

func TestWSURLFor(t *testing.T) {
	got, err := wsURLFor("http://127.0.0.1:8787")
	if err != nil {
		t.Fatalf("wsURLFor() error = %v", err)
	}
	if got != "ws://127.0.0.1:8787/ws" {
		t.Fatalf("wsURLFor() = %q, want %q", got, "ws://127.0.0.1:8787/ws")
	}

	got, err = wsURLFor("https://play.example.com/game/")
	if err != nil {
		t.Fatalf("wsURLFor(https) error = %v", err)
	}
	if got != "wss://play.example.com/game/ws" {
		t.Fatalf("wsURLFor(https) = %q, want %q", got, "wss://play.example.com/game/ws")
	}

	if _, err := wsURLFor("ftp://example.com"); err == nil {
		t.Fatalf("wsURLFor(ftp) expected scheme error")
	}
	if _, err := wsURLFor("http://"); err == nil {
		t.Fatalf("wsURLFor(no host) expected host error")
	}
}

func TestAwaitSkipsUnrelatedAndFailsOnServerError(t *testing.T) {
	p := &player{
		name:   "p1",
		events: make(chan wireMsg, 4),
		errCh:  make(chan error, 1),
		tally:  make(map[string]int),
	}
	p.events <- wireMsg{Event: protocol.EventPlayerMoved}
	p.events <- wireMsg{Event: protocol.EventRoomState}

	msg, err := p.await(protocol.EventRoomState, time.Second)
	if err != nil {
		t.Fatalf("await() error = %v", err)
	}
	if msg.Event != protocol.EventRoomState {
		t.Fatalf("await() event = %s, want %s", msg.Event, protocol.EventRoomState)
	}
	if p.tally[string(protocol.EventPlayerMoved)] != 1 || p.tally[string(protocol.EventRoomState)] != 1 {
		t.Fatalf("tally = %v, want one count per observed frame", p.tally)
	}

	p.events <- wireMsg{Event: protocol.EventError, Data: []byte(`{"code":"conflict","message":"room is full"}`)}
	if _, err := p.await(protocol.EventRoomState, time.Second); err == nil {
		t.Fatalf("await() after error frame expected error")
	}
}

func TestFormatTally(t *testing.T) {
	if got := formatTally(nil); got != "no frames" {
		t.Fatalf("formatTally(nil) = %q, want %q", got, "no frames")
	}
	got := formatTally(map[string]int{"room_state": 3})
	if got != "3 frames (room_state=3)" {
		t.Fatalf("formatTally() = %q, want %q", got, "3 frames (room_state=3)")
	}
	got = formatTally(map[string]int{"room_state": 2, "player_moved": 4})
	if !strings.HasPrefix(got, "6 frames (") || !strings.Contains(got, "player_moved=4") {
		t.Fatalf("formatTally() = %q, want six frames with both entries", got)
	}
}
