package unicore

import (
	"math"

	"navstream/internal/binfield"
)

const (
	MessageIDAGRICB = 11276

	headerLen     = 24
	crcLen        = 4
	agricbPayload = 228
	agricbFrame   = headerLen + agricbPayload + crcLen
)

// AGRICB is the combined position, velocity and dual-antenna attitude message.
type AGRICB struct {
	Year   int `json:"year"` // full year, 2000 + the two-digit UTC year
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`

	TowMs int32 `json:"tow_ms"`

	// PosType is the rover solution status: 0 invalid, 1 single, 2 pseudorange
	// differential, 4 fixed, 5 float, 7 fixed position input.
	PosType    uint8 `json:"pos_type"`
	HeadStatus uint8 `json:"head_status"`

	NumGPS     uint8 `json:"num_gps"`
	NumBDS     uint8 `json:"num_bds"`
	NumGLO     uint8 `json:"num_glo"`
	NumGAL     uint8 `json:"num_gal"`
	Satellites int   `json:"satellites"`

	BaselineN    float32 `json:"baseline_n_m"`
	BaselineE    float32 `json:"baseline_e_m"`
	BaselineU    float32 `json:"baseline_u_m"`
	BaselineNStd float32 `json:"baseline_n_std_m"`
	BaselineEStd float32 `json:"baseline_e_std_m"`
	BaselineUStd float32 `json:"baseline_u_std_m"`

	HeadingDeg float32 `json:"heading_deg"`
	PitchDeg   float32 `json:"pitch_deg"`
	RollDeg    float32 `json:"roll_deg"`
	SpeedMs    float32 `json:"speed_mps"`

	VelN    float32 `json:"vel_n_mps"`
	VelE    float32 `json:"vel_e_mps"`
	VelU    float32 `json:"vel_u_mps"`
	VelNStd float32 `json:"vel_n_std_mps"`
	VelEStd float32 `json:"vel_e_std_mps"`
	VelUStd float32 `json:"vel_u_std_mps"`

	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
	XECEF  float64 `json:"x_ecef_m"`
	YECEF  float64 `json:"y_ecef_m"`
	ZECEF  float64 `json:"z_ecef_m"`

	LatStd   float32 `json:"lat_std_m"`
	LonStd   float32 `json:"lon_std_m"`
	AltStd   float32 `json:"alt_std_m"`
	XECEFStd float32 `json:"x_ecef_std_m"`
	YECEFStd float32 `json:"y_ecef_std_m"`
	ZECEFStd float32 `json:"z_ecef_std_m"`

	BaseLatDeg  float64 `json:"base_lat_deg"`
	BaseLonDeg  float64 `json:"base_lon_deg"`
	BaseAltM    float64 `json:"base_alt_m"`
	SlaveLatDeg float64 `json:"slave_lat_deg"`
	SlaveLonDeg float64 `json:"slave_lon_deg"`
	SlaveAltM   float64 `json:"slave_alt_m"`

	DiffAgeS        float32 `json:"diff_age_s"`
	SpeedHeadingDeg float32 `json:"speed_heading_deg"`
	UndulationM     float32 `json:"undulation_m"`
	// SpeedType is 0 when the speed solution is valid.
	SpeedType uint8 `json:"speed_type"`

	VelStd2D float64 `json:"vel_std_2d_mps"`
	VelStd3D float64 `json:"vel_std_3d_mps"`
	PosStd2D float64 `json:"pos_std_2d_m"`
	PosStd3D float64 `json:"pos_std_3d_m"`
}

// decodeAGRICB reads a verified frame. Offsets are relative to the end of
// the header.
func decodeAGRICB(frame []byte) (AGRICB, bool) {
	r := binfield.NewReader(frame)
	const h = headerLen
	m := AGRICB{
		Year:   2000 + int(r.U8(h+5)),
		Month:  int(r.U8(h + 6)),
		Day:    int(r.U8(h + 7)),
		Hour:   int(r.U8(h + 8)),
		Minute: int(r.U8(h + 9)),
		Second: int(r.U8(h + 10)),

		PosType:    r.U8(h + 11),
		HeadStatus: r.U8(h + 12),
		NumGPS:     r.U8(h + 13),
		NumBDS:     r.U8(h + 14),
		NumGLO:     r.U8(h + 15),

		BaselineN:    r.F32(h + 16),
		BaselineE:    r.F32(h + 20),
		BaselineU:    r.F32(h + 24),
		BaselineNStd: r.F32(h + 28),
		BaselineEStd: r.F32(h + 32),
		BaselineUStd: r.F32(h + 36),

		HeadingDeg: r.F32(h + 40),
		PitchDeg:   r.F32(h + 44),
		RollDeg:    r.F32(h + 48),
		SpeedMs:    r.F32(h + 52),

		VelN:    r.F32(h + 56),
		VelE:    r.F32(h + 60),
		VelU:    r.F32(h + 64),
		VelNStd: r.F32(h + 68),
		VelEStd: r.F32(h + 72),
		VelUStd: r.F32(h + 76),

		LatDeg: r.F64(h + 80),
		LonDeg: r.F64(h + 88),
		AltM:   r.F64(h + 96),
		XECEF:  r.F64(h + 104),
		YECEF:  r.F64(h + 112),
		ZECEF:  r.F64(h + 120),

		LatStd:   r.F32(h + 128),
		LonStd:   r.F32(h + 132),
		AltStd:   r.F32(h + 136),
		XECEFStd: r.F32(h + 140),
		YECEFStd: r.F32(h + 144),
		ZECEFStd: r.F32(h + 148),

		BaseLatDeg:  r.F64(h + 152),
		BaseLonDeg:  r.F64(h + 160),
		BaseAltM:    r.F64(h + 168),
		SlaveLatDeg: r.F64(h + 176),
		SlaveLonDeg: r.F64(h + 184),
		SlaveAltM:   r.F64(h + 192),

		TowMs:           r.I32(h + 200),
		DiffAgeS:        r.F32(h + 204),
		SpeedHeadingDeg: r.F32(h + 208),
		UndulationM:     r.F32(h + 212),
		NumGAL:          r.U8(h + 224),
		SpeedType:       r.U8(h + 225),
	}
	if r.Err() != nil {
		return AGRICB{}, false
	}

	m.Satellites = int(m.NumGPS) + int(m.NumBDS) + int(m.NumGLO) + int(m.NumGAL)
	m.VelStd2D = norm(m.VelNStd, m.VelEStd)
	m.VelStd3D = norm(m.VelNStd, m.VelEStd, m.VelUStd)
	m.PosStd2D = norm(m.LatStd, m.LonStd)
	m.PosStd3D = norm(m.XECEFStd, m.YECEFStd, m.ZECEFStd)
	return m, true
}

func norm(v ...float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
