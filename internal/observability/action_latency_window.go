package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type ActionStats struct {
	Action      string  `json:"action"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ActionLatencySnapshot struct {
	GeneratedAt time.Time     `json:"generated_at"`
	WindowSize  int           `json:"window_size"`
	Actions     []ActionStats `json:"actions"`
	Indicators  []Indicator   `json:"indicators,omitempty"`
}

type actionLatencyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	actions    map[string]*latencyBuffer
	indicators map[string]int
}

type latencyBuffer struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func newActionLatencyWindow(maxSamples int) *actionLatencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &actionLatencyWindow{
		maxSamples: maxSamples,
		actions:    make(map[string]*latencyBuffer),
		indicators: make(map[string]int),
	}
}

func (w *actionLatencyWindow) Observe(action string, ms float64) {
	if action == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, ok := w.actions[action]
	if !ok {
		buf = &latencyBuffer{
			values: make([]float64, w.maxSamples),
		}
		w.actions[action] = buf
	}
	buf.values[buf.next] = ms
	buf.last = ms
	buf.next++
	if buf.next >= len(buf.values) {
		buf.next = 0
		buf.filled = true
	}
}

func (w *actionLatencyWindow) ObserveIndicator(name string) {
	if w == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *actionLatencyWindow) Snapshot() ActionLatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	actions := make([]ActionStats, 0, len(w.actions))
	keys := make([]string, 0, len(w.actions))
	for action := range w.actions {
		keys = append(keys, action)
	}
	sort.Strings(keys)

	for _, action := range keys {
		buf := w.actions[action]
		if buf == nil {
			continue
		}
		n := buf.next
		if buf.filled {
			n = len(buf.values)
		}
		if n <= 0 {
			continue
		}
		samples := make([]float64, n)
		copy(samples, buf.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}

		actions = append(actions, ActionStats{
			Action:      action,
			Samples:     n,
			LastMS:      round2(buf.last),
			AvgMS:       round2(sum / float64(n)),
			P50MS:       round2(quantile(samples, 0.50)),
			P95MS:       round2(quantile(samples, 0.95)),
			P99MS:       round2(quantile(samples, 0.99)),
			TargetP95MS: actionTargetP95MS(action),
		})
	}

	indicators := make([]Indicator, 0, len(w.indicators))
	indicatorKeys := make([]string, 0, len(w.indicators))
	for name := range w.indicators {
		indicatorKeys = append(indicatorKeys, name)
	}
	sort.Strings(indicatorKeys)
	for _, name := range indicatorKeys {
		count := w.indicators[name]
		if count <= 0 {
			continue
		}
		indicators = append(indicators, Indicator{
			Name:  name,
			Count: count,
		})
	}

	return ActionLatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Actions:     actions,
		Indicators:  indicators,
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func actionTargetP95MS(action string) float64 {
	switch action {
	case "create_room":
		return 60
	case "join_room":
		return 60
	case "leave_room":
		return 60
	case "task_complete":
		return 75
	case "change_house":
		return 90
	case "advance_floor":
		return 90
	case "player_move":
		return 10
	case "get_room_state":
		return 15
	default:
		return 0
	}
}
