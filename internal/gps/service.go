package gps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"navstream/internal/transport"
)

// Config controls the GNSS reader.
//
// Network selects the source: "serial" (Device at Baud) or "tcp" (Addr).
// Device may be empty to auto-detect the first USB serial port.
type Config struct {
	Enable bool

	Network string
	Device  string
	Baud    int
	Addr    string

	ReconnectDelay time.Duration

	// StaleAfter marks the fix stale when no RMC/GGA fix arrived for this long.
	StaleAfter time.Duration
}

type Snapshot struct {
	Enabled  bool   `json:"enabled"`
	Valid    bool   `json:"valid"`
	FixStale bool   `json:"fix_stale"`
	Endpoint string `json:"endpoint,omitempty"`
	State    string `json:"state,omitempty"`

	LatDeg     *float64 `json:"lat_deg,omitempty"`
	LonDeg     *float64 `json:"lon_deg,omitempty"`
	AltM       *float64 `json:"alt_m,omitempty"`
	SpeedKt    *float64 `json:"speed_kt,omitempty"`
	TrackDeg   *float64 `json:"track_deg,omitempty"`
	FixQuality *int     `json:"fix_quality,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`
	FixAgeSec  float64  `json:"fix_age_sec,omitempty"`
	Sentences  uint64   `json:"sentences"`

	LastFixUTC string `json:"last_fix_utc,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config
	log logrus.FieldLogger

	client *transport.StreamClient

	mu      sync.Mutex
	state   *State
	onFix   func(Snapshot)
	onChunk func(time.Time, []byte)
}

func New(cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.Network == "" {
		cfg.Network = "serial"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 3 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{cfg: cfg, log: log.WithField("component", "gnss"), state: NewState()}
}

// OnFix registers a callback run after every chunk that changed the fix.
// It must be set before Start.
func (s *Service) OnFix(fn func(Snapshot)) {
	s.onFix = fn
}

// OnChunk registers a tap that sees every raw chunk read by Start, before
// it is parsed. It must be set before Start.
func (s *Service) OnChunk(fn func(nowUTC time.Time, chunk []byte)) {
	s.onChunk = fn
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.client != nil {
		return nil
	}

	client, err := transport.NewStreamClient(transport.StreamConfig{
		Name:    "gnss",
		Network: s.cfg.Network,
		Addr:    s.cfg.Addr,
		Device:  s.cfg.Device,
		Baud:    s.cfg.Baud,

		ReconnectDelay: s.cfg.ReconnectDelay,
	}, s.log)
	if err != nil {
		return err
	}
	if err := client.Start(ctx, func(chunk []byte) error {
		now := time.Now().UTC()
		if s.onChunk != nil {
			s.onChunk(now, chunk)
		}
		s.Feed(now, chunk)
		return nil
	}); err != nil {
		return err
	}
	s.client = client
	s.log.WithField("endpoint", client.Snapshot().Endpoint).Info("gnss enabled")
	return nil
}

// Feed applies a chunk of NMEA text. Start calls it for every chunk read;
// replay and tests call it directly.
func (s *Service) Feed(nowUTC time.Time, chunk []byte) bool {
	s.mu.Lock()
	updated := s.state.Feed(nowUTC, chunk)
	var snap Snapshot
	if updated && s.onFix != nil {
		snap = s.state.Snapshot(nowUTC, s.cfg.StaleAfter)
	}
	s.mu.Unlock()

	if updated && s.onFix != nil {
		snap.Enabled = s.cfg.Enable
		s.onFix(snap)
	}
	return updated
}

func (s *Service) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}

func (s *Service) Snapshot(nowUTC time.Time) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	out := s.state.Snapshot(nowUTC, s.cfg.StaleAfter)
	s.mu.Unlock()

	out.Enabled = s.cfg.Enable
	if s.client != nil {
		st := s.client.Snapshot()
		out.Endpoint = st.Endpoint
		out.State = st.State
		if st.LastError != "" {
			out.LastError = st.LastError
		}
	}
	return out
}
