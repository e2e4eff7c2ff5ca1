package ais

import (
	"sort"
	"sync"
	"time"
)

type StoreConfig struct {
	// MaxTargets limits memory use. When exceeded, the least recently seen
	// vessel is evicted.
	MaxTargets int
	// TTL controls how long a vessel is kept without updates.
	TTL time.Duration
}

// Store keeps the latest position report per MMSI.
type Store struct {
	mu sync.RWMutex

	cfg StoreConfig

	targets map[uint32]target
}

type target struct {
	report PositionReport
	seenAt time.Time
}

// Vessel is a stored report with the time it was last updated.
type Vessel struct {
	PositionReport
	SeenUTC string `json:"seen_utc"`
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.MaxTargets <= 0 {
		cfg.MaxTargets = 500
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &Store{
		cfg:     cfg,
		targets: make(map[uint32]target),
	}
}

func (s *Store) Upsert(nowUTC time.Time, rep PositionReport) {
	if s == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.targets[rep.MMSI] = target{report: rep, seenAt: nowUTC.UTC()}

	for len(s.targets) > s.cfg.MaxTargets {
		var oldest uint32
		var oldestAt time.Time
		first := true
		for k, v := range s.targets {
			if first || v.seenAt.Before(oldestAt) {
				oldest = k
				oldestAt = v.seenAt
				first = false
			}
		}
		delete(s.targets, oldest)
	}
}

// UpsertPayloads stores the position reports found in msgs and returns how
// many were stored.
func (s *Store) UpsertPayloads(nowUTC time.Time, msgs []Payload) int {
	n := 0
	for _, m := range msgs {
		rep, ok := m.PositionReport()
		if !ok {
			continue
		}
		s.Upsert(nowUTC, rep)
		n++
	}
	return n
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.targets)
}

// Snapshot purges expired vessels and returns the rest ordered by MMSI.
func (s *Store) Snapshot(nowUTC time.Time) []Vessel {
	if s == nil {
		return nil
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}

	s.mu.Lock()
	cutoff := nowUTC.UTC().Add(-s.cfg.TTL)
	out := make([]Vessel, 0, len(s.targets))
	for k, v := range s.targets {
		if v.seenAt.Before(cutoff) {
			delete(s.targets, k)
			continue
		}
		out = append(out, Vessel{
			PositionReport: v.report,
			SeenUTC:        v.seenAt.Format(time.RFC3339Nano),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MMSI < out[j].MMSI })
	return out
}
