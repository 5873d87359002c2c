package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chasehome/internal/observability"
	"chasehome/internal/presence"
	"chasehome/internal/protocol"
)

type fakeChannel struct {
	mu   sync.Mutex
	fail bool
	sent []protocol.ServerMessage
}

func (c *fakeChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send failed")
	}
	if msg, ok := v.(protocol.ServerMessage); ok {
		c.sent = append(c.sent, msg)
	}
	return nil
}

func (c *fakeChannel) Close() {}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *presence.Registry) {
	t.Helper()
	metrics := observability.NewMetrics(fmt.Sprintf("chasehome_test_broadcast_%d", time.Now().UnixNano()))
	registry := presence.NewRegistry(time.Minute)
	return NewDispatcher(registry, metrics), registry
}

func TestToRoomDeliversToOccupantsOnly(t *testing.T) {
	d, registry := newTestDispatcher(t)

	chans := map[string]*fakeChannel{}
	for _, id := range []string{"u1", "u2", "u3"} {
		ch := &fakeChannel{}
		chans[id] = ch
		registry.Bind(id, ch)
		registry.SetRoom(id, "ROOM1")
	}
	outsider := &fakeChannel{}
	registry.Bind("u4", outsider)
	registry.SetRoom("u4", "ROOM2")

	d.ToRoom("ROOM1", protocol.ServerMessage{
		Event: protocol.EventPlayerMoved,
		Data:  protocol.PlayerMovedData{UserID: "u1", X: 120, Y: 200},
	})

	for id, ch := range chans {
		if got := ch.count(); got != 1 {
			t.Fatalf("channel %s received %d messages, want 1", id, got)
		}
	}
	if got := outsider.count(); got != 0 {
		t.Fatalf("outsider received %d messages, want 0", got)
	}
}

func TestToRoomExcludesListedIdentities(t *testing.T) {
	d, registry := newTestDispatcher(t)

	mover := &fakeChannel{}
	watcher := &fakeChannel{}
	registry.Bind("u1", mover)
	registry.SetRoom("u1", "ROOM1")
	registry.Bind("u2", watcher)
	registry.SetRoom("u2", "ROOM1")

	d.ToRoom("ROOM1", protocol.ServerMessage{
		Event: protocol.EventPlayerMoved,
		Data:  protocol.PlayerMovedData{UserID: "u1", X: 1, Y: 2},
	}, "u1")

	if got := mover.count(); got != 0 {
		t.Fatalf("excluded sender received %d messages, want 0", got)
	}
	if got := watcher.count(); got != 1 {
		t.Fatalf("watcher received %d messages, want 1", got)
	}
}

func TestToRoomSkipsDetachedChannels(t *testing.T) {
	d, registry := newTestDispatcher(t)

	stays := &fakeChannel{}
	leaves := &fakeChannel{}
	registry.Bind("u1", stays)
	registry.SetRoom("u1", "ROOM1")
	registry.Bind("u2", leaves)
	registry.SetRoom("u2", "ROOM1")

	registry.Unbind("u2", leaves)

	d.ToRoom("ROOM1", protocol.ServerMessage{Event: protocol.EventRoomState})

	if got := stays.count(); got != 1 {
		t.Fatalf("remaining channel received %d messages, want 1", got)
	}
	if got := leaves.count(); got != 0 {
		t.Fatalf("detached channel received %d messages, want 0", got)
	}
}

func TestToRoomSurvivesFailingChannel(t *testing.T) {
	d, registry := newTestDispatcher(t)

	broken := &fakeChannel{fail: true}
	healthy := &fakeChannel{}
	registry.Bind("u1", broken)
	registry.SetRoom("u1", "ROOM1")
	registry.Bind("u2", healthy)
	registry.SetRoom("u2", "ROOM1")

	d.ToRoom("ROOM1", protocol.ServerMessage{Event: protocol.EventRoomState})

	if got := healthy.count(); got != 1 {
		t.Fatalf("healthy channel received %d messages, want 1", got)
	}
}

func TestToPlayerAbsentIdentityIsDropped(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.ToPlayer("ghost", protocol.ServerMessage{Event: protocol.EventError})
}
