package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientMessageJoinRoom(t *testing.T) {
	raw := []byte(`{"event":"join_room","data":{"room_id":"A1B2C3D4"}}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	join, ok := msg.(JoinRoom)
	if !ok {
		t.Fatalf("message type = %T, want JoinRoom", msg)
	}
	if join.RoomID != "A1B2C3D4" {
		t.Fatalf("RoomID = %q, want A1B2C3D4", join.RoomID)
	}
}

func TestParseClientMessageAuthenticate(t *testing.T) {
	raw := []byte(`{"event":"authenticate","data":{"username":"selin"}}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	auth, ok := msg.(Authenticate)
	if !ok {
		t.Fatalf("message type = %T, want Authenticate", msg)
	}
	if auth.Username != "selin" || auth.UserID != "" {
		t.Fatalf("unexpected authenticate: %+v", auth)
	}

	if _, err := ParseClientMessage([]byte(`{"event":"authenticate","data":{}}`)); err == nil {
		t.Fatalf("expected validation error for empty authenticate")
	}
}

func TestParseClientMessageMove(t *testing.T) {
	raw := []byte(`{"event":"player_move","data":{"x":420.5,"y":133}}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	move, ok := msg.(PlayerMove)
	if !ok {
		t.Fatalf("message type = %T, want PlayerMove", msg)
	}
	if move.X != 420.5 || move.Y != 133 {
		t.Fatalf("unexpected move: %+v", move)
	}
}

func TestParseClientMessageBareEvents(t *testing.T) {
	for _, raw := range []string{
		`{"event":"leave_room"}`,
		`{"event":"advance_floor"}`,
		`{"event":"get_room_state"}`,
	} {
		if _, err := ParseClientMessage([]byte(raw)); err != nil {
			t.Fatalf("ParseClientMessage(%s) error = %v", raw, err)
		}
	}
}

func TestParseClientMessageRejectsUnknownEvent(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"event":"wat"}`))
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("error = %v, want ErrUnsupportedEvent", err)
	}
}

func TestParseClientMessageRejectsMissingData(t *testing.T) {
	for _, raw := range []string{
		`{"event":"create_room"}`,
		`{"event":"join_room","data":{"room_id":""}}`,
		`{"event":"task_complete","data":{}}`,
		`{"event":"change_house","data":{"house_id":0}}`,
	} {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("ParseClientMessage(%s) expected error", raw)
		}
	}
}

func TestServerMessageEnvelope(t *testing.T) {
	msg := ServerMessage{
		Event: EventPlayerJoined,
		Data:  PlayerJoinedData{UserID: "u1", Username: "mert"},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if env.Event != EventPlayerJoined {
		t.Fatalf("event = %q, want %q", env.Event, EventPlayerJoined)
	}

	var data PlayerJoinedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Unmarshal(data) error = %v", err)
	}
	if data.UserID != "u1" || data.Username != "mert" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func BenchmarkParseClientMessageMove(b *testing.B) {
	raw := []byte(`{"event":"player_move","data":{"x":512.25,"y":224.75}}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(PlayerMove); !ok {
			b.Fatalf("message type = %T, want PlayerMove", msg)
		}
	}
}
