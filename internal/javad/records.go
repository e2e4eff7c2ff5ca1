package javad

import "navstream/internal/binfield"

// Record is one decoded message. The concrete type is selected by Kind.
type Record interface {
	Kind() Kind
}

// RT is receiver time.
type RT struct {
	TodMs uint32 `json:"tod_ms"` // modulo one day
}

// NT is GLONASS time.
type NT struct {
	TodMs  uint32 `json:"tod_ms"`
	Day    uint16 `json:"day"` // modulo 4 years starting from 1996
	Cycle4 uint8  `json:"cycle4"`
}

// PV is cartesian position and velocity.
type PV struct {
	XM         float64 `json:"x_m"`
	YM         float64 `json:"y_m"`
	ZM         float64 `json:"z_m"`
	PosSigmaM  float32 `json:"pos_sigma_m"`
	VXMs       float32 `json:"vx_mps"`
	VYMs       float32 `json:"vy_mps"`
	VZMs       float32 `json:"vz_mps"`
	VelSigmaMs float32 `json:"vel_sigma_mps"`
	SolType    uint8   `json:"sol_type"`
}

// PG is geodetic position. Latitude and longitude are in radians.
type PG struct {
	LatRad    float64 `json:"lat_rad"`
	LonRad    float64 `json:"lon_rad"`
	AltM      float64 `json:"alt_m"`
	PosSigmaM float32 `json:"pos_sigma_m"`
	SolType   uint8   `json:"sol_type"`
}

// VG is geodetic velocity.
type VG struct {
	NorthMs    float32 `json:"north_mps"`
	EastMs     float32 `json:"east_mps"`
	UpMs       float32 `json:"up_mps"`
	VelSigmaMs float32 `json:"vel_sigma_mps"`
	SolType    uint8   `json:"sol_type"`
}

func (RT) Kind() Kind { return KindRT }
func (NT) Kind() Kind { return KindNT }
func (PV) Kind() Kind { return KindPV }
func (PG) Kind() Kind { return KindPG }
func (VG) Kind() Kind { return KindVG }

// recordSize returns the packed payload size of kind, or -1 if unknown.
func recordSize(k Kind) int {
	switch k {
	case KindRT:
		return 4
	case KindNT:
		return 7
	case KindPV:
		return 45
	case KindPG:
		return 29
	case KindVG:
		return 17
	default:
		return -1
	}
}

// decode unpacks a payload. ok is false when the payload is too short for
// the record or the kind is unknown.
func decode(k Kind, payload []byte) (Record, bool) {
	r := binfield.NewReader(payload)
	var rec Record
	switch k {
	case KindRT:
		rec = RT{TodMs: r.U32(0)}
	case KindNT:
		rec = NT{TodMs: r.U32(0), Day: r.U16(4), Cycle4: r.U8(6)}
	case KindPV:
		rec = PV{
			XM:         r.F64(0),
			YM:         r.F64(8),
			ZM:         r.F64(16),
			PosSigmaM:  r.F32(24),
			VXMs:       r.F32(28),
			VYMs:       r.F32(32),
			VZMs:       r.F32(36),
			VelSigmaMs: r.F32(40),
			SolType:    r.U8(44),
		}
	case KindPG:
		rec = PG{
			LatRad:    r.F64(0),
			LonRad:    r.F64(8),
			AltM:      r.F64(16),
			PosSigmaM: r.F32(24),
			SolType:   r.U8(28),
		}
	case KindVG:
		rec = VG{
			NorthMs:    r.F32(0),
			EastMs:     r.F32(4),
			UpMs:       r.F32(8),
			VelSigmaMs: r.F32(12),
			SolType:    r.U8(16),
		}
	default:
		return nil, false
	}
	if r.Err() != nil {
		return nil, false
	}
	return rec, true
}
