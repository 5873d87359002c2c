package observability

import "testing"

func TestActionLatencyWindowSnapshot(t *testing.T) {
	w := newActionLatencyWindow(8)
	w.Observe("task_complete", 5)
	w.Observe("task_complete", 12)
	w.Observe("task_complete", 30)
	w.ObserveIndicator("stale_task")
	w.ObserveIndicator("stale_task")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Actions) != 1 {
		t.Fatalf("len(Actions) = %d, want 1", len(snap.Actions))
	}
	s := snap.Actions[0]
	if s.Action != "task_complete" {
		t.Fatalf("Action = %q, want %q", s.Action, "task_complete")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 30 {
		t.Fatalf("LastMS = %.2f, want 30", s.LastMS)
	}
	if s.P50MS != 12 {
		t.Fatalf("P50MS = %.2f, want 12", s.P50MS)
	}
	if s.P95MS <= 12 || s.P95MS > 30 {
		t.Fatalf("P95MS = %.2f, want (12,30]", s.P95MS)
	}
	if s.TargetP95MS != 75 {
		t.Fatalf("TargetP95MS = %.2f, want 75", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "stale_task" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "stale_task")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want %d", snap.Indicators[0].Count, 2)
	}
}

func TestActionLatencyWindowWraps(t *testing.T) {
	w := newActionLatencyWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("player_move", float64(i))
	}

	snap := w.Snapshot()
	if len(snap.Actions) != 1 {
		t.Fatalf("len(Actions) = %d, want 1", len(snap.Actions))
	}
	s := snap.Actions[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4 after wrap", s.Samples)
	}
	if s.LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", s.LastMS)
	}
	// Window holds 6..9 after ten observations.
	if s.AvgMS != 7.5 {
		t.Fatalf("AvgMS = %.2f, want 7.5", s.AvgMS)
	}
}
