package web

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status aggregates what /api/status reports. Sections are opaque JSON
// values owned by the runtime (one per source plus stream health).
type Status struct {
	startUnixNano int64
	ticks         uint64
	lastTickNano  int64

	mu       sync.RWMutex
	sections map[string]any
}

func NewStatus() *Status {
	return &Status{
		startUnixNano: time.Now().UTC().UnixNano(),
		sections:      make(map[string]any),
	}
}

// Set replaces a section.
func (s *Status) Set(name string, v any) {
	s.mu.Lock()
	s.sections[name] = v
	s.mu.Unlock()
}

func (s *Status) MarkTick(nowUTC time.Time) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastTickNano, nowUTC.UnixNano())
	atomic.AddUint64(&s.ticks, 1)
}

type StatusSnapshot struct {
	Service     string         `json:"service"`
	NowUTC      string         `json:"now_utc"`
	UptimeSec   int64          `json:"uptime_sec"`
	Ticks       uint64         `json:"ticks"`
	LastTickUTC string         `json:"last_tick_utc,omitempty"`
	Sections    map[string]any `json:"sections"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	snap := StatusSnapshot{
		Service:   "navstream",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Ticks:     atomic.LoadUint64(&s.ticks),
		Sections:  make(map[string]any),
	}
	if lastTick := atomic.LoadInt64(&s.lastTickNano); lastTick != 0 {
		snap.LastTickUTC = time.Unix(0, lastTick).UTC().Format(time.RFC3339Nano)
	}
	s.mu.RLock()
	for k, v := range s.sections {
		snap.Sections[k] = v
	}
	s.mu.RUnlock()
	return snap
}
