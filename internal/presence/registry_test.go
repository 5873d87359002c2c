package presence

import (
	"sync"
	"testing"
	"time"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (c *fakeChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegistryBindAndLookup(t *testing.T) {
	r := NewRegistry(time.Minute)
	ch := &fakeChannel{}

	r.Bind("u1", ch)
	r.SetRoom("u1", "R1")

	roomID, ok := r.RoomOf("u1")
	if !ok || roomID != "R1" {
		t.Fatalf("RoomOf() = %q, %v, want R1, true", roomID, ok)
	}
	got, ok := r.ChannelOf("u1")
	if !ok || got != Channel(ch) {
		t.Fatalf("ChannelOf() did not return the bound channel")
	}
	occupants := r.OccupantsOf("R1")
	if len(occupants) != 1 || occupants[0] != "u1" {
		t.Fatalf("OccupantsOf() = %v, want [u1]", occupants)
	}
	if r.ConnectedCount() != 1 {
		t.Fatalf("ConnectedCount() = %d, want 1", r.ConnectedCount())
	}
}

func TestRegistryRebindSupersedes(t *testing.T) {
	r := NewRegistry(time.Minute)
	old := &fakeChannel{}
	replacement := &fakeChannel{}

	r.Bind("u1", old)
	r.SetRoom("u1", "R1")
	r.Bind("u1", replacement)

	if !old.isClosed() {
		t.Fatalf("superseded channel was not closed")
	}
	got, ok := r.ChannelOf("u1")
	if !ok || got != Channel(replacement) {
		t.Fatalf("ChannelOf() should return the replacement channel")
	}

	// The stale channel's unbind must not disturb the new binding.
	if r.Unbind("u1", old) {
		t.Fatalf("Unbind() of a superseded channel reported true")
	}
	if _, ok := r.ChannelOf("u1"); !ok {
		t.Fatalf("stale unbind removed the live channel")
	}
	if roomID, ok := r.RoomOf("u1"); !ok || roomID != "R1" {
		t.Fatalf("room binding lost on rebind: %q, %v", roomID, ok)
	}
}

func TestRegistryGraceExpiry(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)

	var mu sync.Mutex
	var expired []string
	r.SetExpireHook(func(playerID, roomID string) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, playerID+"@"+roomID)
	})

	ch := &fakeChannel{}
	r.Bind("u1", ch)
	r.SetRoom("u1", "R1")
	if !r.Unbind("u1", ch) {
		t.Fatalf("Unbind() of the current channel reported false")
	}

	if _, ok := r.ChannelOf("u1"); ok {
		t.Fatalf("ChannelOf() should report no live channel during grace")
	}

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(expired) != 1 || expired[0] != "u1@R1" {
		t.Fatalf("expire hook calls = %v, want [u1@R1]", expired)
	}
	if _, ok := r.RoomOf("u1"); ok {
		t.Fatalf("expired identity still registered")
	}
}

func TestRegistryRebindWithinGrace(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)

	var mu sync.Mutex
	calls := 0
	r.SetExpireHook(func(string, string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})

	first := &fakeChannel{}
	r.Bind("u1", first)
	r.SetRoom("u1", "R1")
	r.Unbind("u1", first)

	time.Sleep(10 * time.Millisecond)
	second := &fakeChannel{}
	r.Bind("u1", second)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Fatalf("expire hook fired %d times after rebind, want 0", calls)
	}
	if roomID, ok := r.RoomOf("u1"); !ok || roomID != "R1" {
		t.Fatalf("room binding lost across reconnect: %q, %v", roomID, ok)
	}
}

func TestRegistryOccupantsExcludeUnbound(t *testing.T) {
	r := NewRegistry(time.Minute)
	ch1 := &fakeChannel{}
	ch2 := &fakeChannel{}

	r.Bind("u1", ch1)
	r.Bind("u2", ch2)
	r.SetRoom("u1", "R1")
	r.SetRoom("u2", "R1")

	r.Unbind("u2", ch2)

	occupants := r.OccupantsOf("R1")
	if len(occupants) != 1 || occupants[0] != "u1" {
		t.Fatalf("OccupantsOf() = %v, want [u1]", occupants)
	}
}
