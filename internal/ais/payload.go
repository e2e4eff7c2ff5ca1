package ais

// Raw sentinels meaning "not available" for position report fields.
const (
	sogUnavailable     = 1023
	lonUnavailable     = 0x6791AC0 // 181 degrees
	latUnavailable     = 0x3412140 // 91 degrees
	cogUnavailable     = 3600
	headingUnavailable = 511
)

const (
	lonLatScale = 1.0 / 600000.0
	sogScale    = 0.0514444 // 0.1 knot in m/s
	cogScale    = 0.1
)

// Payload is a complete six-bit armored AIS message.
type Payload struct {
	armored string
	sextets []uint8
}

// NewPayload converts an armored payload string into its six-bit values.
func NewPayload(armored string) Payload {
	p := Payload{armored: armored, sextets: make([]uint8, len(armored))}
	for i := 0; i < len(armored); i++ {
		v := armored[i] - 48
		if v > 40 {
			v -= 8
		}
		p.sextets[i] = v
	}
	return p
}

// Armored returns the payload as received.
func (p Payload) Armored() string {
	return p.armored
}

// Bits returns the number of decoded bits.
func (p Payload) Bits() int {
	return len(p.sextets) * 6
}

// ReadBits reads length bits MSB-first starting at bit start. When signed is
// set and the first bit is 1 the result is sign-extended. ok is false when the
// range runs past the end of the payload.
func (p Payload) ReadBits(start, length int, signed bool) (v int32, ok bool) {
	if start < 0 || length <= 0 || length > 32 || start+length > p.Bits() {
		return 0, false
	}
	end := start + length
	for i := start; i < end; i++ {
		v <<= 1
		bit := (p.sextets[i/6] >> (5 - uint(i%6))) & 1
		if bit == 0 {
			continue
		}
		if i == start && signed {
			v = ^v
		}
		v |= 1
	}
	return v, true
}

// Type returns the message type (bits 0-5), or 0 for an empty payload.
func (p Payload) Type() int {
	v, ok := p.ReadBits(0, 6, false)
	if !ok {
		return 0
	}
	return int(v)
}

// MMSI returns the 30-bit source identifier.
func (p Payload) MMSI() (uint32, bool) {
	v, ok := p.ReadBits(8, 30, false)
	if !ok {
		return 0, false
	}
	return uint32(v), true
}

// PositionReport holds the navigation fields of message types 1, 2, 3, 18
// and 19. A nil field was not available in the message.
type PositionReport struct {
	Type int    `json:"type"`
	MMSI uint32 `json:"mmsi"`

	LatDeg     *float64 `json:"lat_deg,omitempty"`
	LonDeg     *float64 `json:"lon_deg,omitempty"`
	SOGMps     *float64 `json:"sog_mps,omitempty"`
	COGDeg     *float64 `json:"cog_deg,omitempty"`
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
}

type positionLayout struct {
	sog, lon, lat, cog, heading int
}

var (
	classALayout = positionLayout{sog: 50, lon: 61, lat: 89, cog: 116, heading: 128}
	classBLayout = positionLayout{sog: 46, lon: 57, lat: 85, cog: 112, heading: 124}
)

// PositionReport decodes the navigation fields. ok is false for message
// types that carry no position report.
func (p Payload) PositionReport() (rep PositionReport, ok bool) {
	var l positionLayout
	t := p.Type()
	switch t {
	case 1, 2, 3:
		l = classALayout
	case 18, 19:
		l = classBLayout
	default:
		return PositionReport{}, false
	}

	rep.Type = t
	rep.MMSI, _ = p.MMSI()
	rep.SOGMps = p.scaled(l.sog, 10, false, sogUnavailable, sogScale)
	rep.LonDeg = p.scaled(l.lon, 28, true, lonUnavailable, lonLatScale)
	rep.LatDeg = p.scaled(l.lat, 27, true, latUnavailable, lonLatScale)
	rep.COGDeg = p.scaled(l.cog, 12, false, cogUnavailable, cogScale)
	rep.HeadingDeg = p.scaled(l.heading, 9, false, headingUnavailable, 1)
	return rep, true
}

func (p Payload) scaled(start, length int, signed bool, sentinel int32, scale float64) *float64 {
	raw, ok := p.ReadBits(start, length, signed)
	if !ok || raw == sentinel {
		return nil
	}
	v := float64(raw) * scale
	return &v
}
