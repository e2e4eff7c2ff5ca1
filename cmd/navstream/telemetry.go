package main

import (
	"time"

	"navstream/internal/ais"
	"navstream/internal/geo"
	"navstream/internal/gps"
	"navstream/internal/javad"
	"navstream/internal/transport"
	"navstream/internal/unicore"
)

// Telemetry is the periodic snapshot published to MQTT and WebSocket
// clients. Absent sources are nil.
type Telemetry struct {
	UTC     string                     `json:"utc"`
	GNSS    *gps.Snapshot              `json:"gnss,omitempty"`
	AIS     *AISTelemetry              `json:"ais,omitempty"`
	Javad   *JavadTelemetry            `json:"javad,omitempty"`
	Unicore *UnicoreTelemetry          `json:"unicore,omitempty"`
	Streams []transport.StreamSnapshot `json:"streams,omitempty"`
}

type AISTelemetry struct {
	Sentences uint64        `json:"sentences"`
	Dropped   uint64        `json:"dropped"`
	Vessels   []VesselRange `json:"vessels"`
}

// VesselRange is a stored vessel plus its distance from our own position,
// when both positions are known.
type VesselRange struct {
	ais.Vessel
	RangeM *float64 `json:"range_m,omitempty"`
}

type JavadTelemetry struct {
	Records map[string]javad.Record `json:"records"`
}

type UnicoreTelemetry struct {
	unicore.AGRICB
	AgeSec float64       `json:"age_sec"`
	Stats  unicore.Stats `json:"stats"`
	// Offset of the Unicore antenna from the GNSS fix, when both are known.
	OffsetNorthM *float64 `json:"offset_north_m,omitempty"`
	OffsetEastM  *float64 `json:"offset_east_m,omitempty"`
}

func (r *runtime) telemetry(now time.Time) Telemetry {
	t := Telemetry{UTC: now.Format(time.RFC3339Nano)}

	var ownLat, ownLon *float64
	if r.cfg.GNSS.Enable {
		snap := r.gnss.Snapshot(now)
		t.GNSS = &snap
		if snap.Valid && !snap.FixStale {
			ownLat, ownLon = snap.LatDeg, snap.LonDeg
		}
	}

	r.mu.Lock()
	last, lastAt, coeffs := r.unicoreLast, r.unicoreAt, r.coeffs
	r.mu.Unlock()

	if last != nil {
		u := &UnicoreTelemetry{
			AGRICB: *last,
			AgeSec: now.Sub(lastAt).Seconds(),
			Stats:  r.unicoreStats(),
		}
		if ownLat != nil && ownLon != nil {
			north, east := coeffs.Inverse(*ownLat, *ownLon, last.LatDeg, last.LonDeg)
			u.OffsetNorthM, u.OffsetEastM = &north, &east
		} else {
			lat, lon := last.LatDeg, last.LonDeg
			ownLat, ownLon = &lat, &lon
		}
		t.Unicore = u
	}

	if recs := r.javadParser.Snapshot(); len(recs) > 0 {
		j := &JavadTelemetry{Records: make(map[string]javad.Record, len(recs))}
		for k, v := range recs {
			j.Records[k.String()] = v
		}
		t.Javad = j
	}

	if r.cfg.AIS.Enable || r.aisStore.Len() > 0 {
		r.aisMu.Lock()
		sentences, dropped := r.aisReasm.Stats()
		r.aisMu.Unlock()
		a := &AISTelemetry{Sentences: sentences, Dropped: dropped}
		for _, v := range r.aisStore.Snapshot(now) {
			vr := VesselRange{Vessel: v}
			if ownLat != nil && ownLon != nil && v.LatDeg != nil && v.LonDeg != nil {
				d := geo.Distance(*ownLat, *ownLon, *v.LatDeg, *v.LonDeg)
				vr.RangeM = &d
			}
			a.Vessels = append(a.Vessels, vr)
		}
		t.AIS = a
	}

	for _, c := range r.clients {
		t.Streams = append(t.Streams, c.Snapshot())
	}
	return t
}

func (r *runtime) unicoreStats() unicore.Stats {
	if r.unicoreIn != nil {
		return r.unicoreRx.Stats()
	}
	return r.unicoreFramer.Stats()
}
