package gps

import (
	"math"
	"strconv"
	"strings"
	"time"

	gonmea "github.com/adrianmo/go-nmea"

	"navstream/internal/nmea"
)

// State accumulates a fix from a stream of NMEA text. It is not safe for
// concurrent use.
type State struct {
	framer *nmea.Framer

	latDeg float64
	lonDeg float64
	latOK  bool
	lonOK  bool

	speedKt float64
	spdOK   bool

	trackDeg float64
	trkOK    bool

	altM  float64
	altOK bool

	fixQuality   int
	fixQualityOK bool
	satellites   int
	satsOK       bool
	hdop         float64
	hdopOK       bool

	lastFix time.Time
	valid   bool

	sentences uint64
	lastErr   string
}

func NewState() *State {
	return &State{framer: nmea.NewFramer('$')}
}

// Feed drains every sentence in buf and reports whether the fix changed.
func (s *State) Feed(nowUTC time.Time, buf []byte) bool {
	updated := false
	for s.framer.Feed(buf) {
		// Any talker: GP, GN, GL...
		typ := s.framer.Field(0)
		if !strings.HasSuffix(typ, "RMC") && !strings.HasSuffix(typ, "GGA") {
			continue
		}
		sent, err := gonmea.Parse(s.framer.Sentence())
		if err != nil {
			s.lastErr = err.Error()
			continue
		}
		s.sentences++
		if s.apply(nowUTC, sent) {
			updated = true
		}
	}
	return updated
}

func (s *State) apply(nowUTC time.Time, sent gonmea.Sentence) bool {
	switch m := sent.(type) {
	case gonmea.RMC:
		return s.applyRMC(nowUTC, m)
	case gonmea.GGA:
		return s.applyGGA(nowUTC, m)
	default:
		return false
	}
}

func (s *State) applyRMC(nowUTC time.Time, m gonmea.RMC) bool {
	if m.Validity != gonmea.ValidRMC {
		// Do not update validity on void fixes.
		return false
	}
	if present(m.Fields, 3) && present(m.Fields, 5) {
		s.latDeg, s.latOK = m.Latitude, true
		s.lonDeg, s.lonOK = m.Longitude, true
	}
	if present(m.Fields, 7) {
		s.speedKt, s.spdOK = m.Speed, true
	}
	if present(m.Fields, 8) {
		s.trackDeg = math.Mod(m.Course+360.0, 360.0)
		s.trkOK = true
	}
	return s.markFix(nowUTC)
}

func (s *State) applyGGA(nowUTC time.Time, m gonmea.GGA) bool {
	if m.FixQuality == "" || m.FixQuality == gonmea.Invalid {
		return false
	}
	if q, err := strconv.Atoi(m.FixQuality); err == nil {
		s.fixQuality, s.fixQualityOK = q, true
	}
	if present(m.Fields, 7) {
		s.satellites, s.satsOK = int(m.NumSatellites), true
	}
	if present(m.Fields, 8) {
		s.hdop, s.hdopOK = m.HDOP, true
	}
	if present(m.Fields, 2) && present(m.Fields, 4) {
		s.latDeg, s.latOK = m.Latitude, true
		s.lonDeg, s.lonOK = m.Longitude, true
	}
	if present(m.Fields, 9) {
		s.altM, s.altOK = m.Altitude, true
	}
	return s.markFix(nowUTC)
}

func (s *State) markFix(nowUTC time.Time) bool {
	if !s.latOK || !s.lonOK {
		return false
	}
	s.lastFix = nowUTC
	s.valid = true
	return true
}

// present reports whether field i (1-based, after the type) was non-empty.
func present(fields []string, i int) bool {
	return i-1 < len(fields) && fields[i-1] != ""
}

// Snapshot returns the current fix. A fix older than staleAfter is marked
// stale; zero disables the check.
func (s *State) Snapshot(nowUTC time.Time, staleAfter time.Duration) Snapshot {
	out := Snapshot{
		Valid:     s.valid,
		Sentences: s.sentences,
		LastError: s.lastErr,
	}
	if s.latOK && s.lonOK {
		lat, lon := s.latDeg, s.lonDeg
		out.LatDeg, out.LonDeg = &lat, &lon
	}
	if s.altOK {
		v := s.altM
		out.AltM = &v
	}
	if s.spdOK {
		v := s.speedKt
		out.SpeedKt = &v
	}
	if s.trkOK {
		v := s.trackDeg
		out.TrackDeg = &v
	}
	if s.fixQualityOK {
		v := s.fixQuality
		out.FixQuality = &v
	}
	if s.satsOK {
		v := s.satellites
		out.Satellites = &v
	}
	if s.hdopOK {
		v := s.hdop
		out.HDOP = &v
	}
	if !s.lastFix.IsZero() {
		out.LastFixUTC = s.lastFix.UTC().Format(time.RFC3339Nano)
		if !nowUTC.IsZero() {
			age := nowUTC.Sub(s.lastFix)
			out.FixAgeSec = age.Seconds()
			out.FixStale = staleAfter > 0 && age > staleAfter
		}
	}
	return out
}
