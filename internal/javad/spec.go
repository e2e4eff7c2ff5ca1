package javad

import "fmt"

const (
	signatureLen = 5
	hexDigits    = "0123456789ABCDEF"
)

// Kind tags the record type a Spec decodes into.
type Kind uint8

const (
	KindRT Kind = iota + 1
	KindNT
	KindPV
	KindPG
	KindVG
)

func (k Kind) String() string {
	switch k {
	case KindRT:
		return "RT"
	case KindNT:
		return "NT"
	case KindPV:
		return "PV"
	case KindPG:
		return "PG"
	case KindVG:
		return "VG"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Spec describes one message type: its name, its declared size (payload plus
// checksum byte) and the record it decodes into.
type Spec struct {
	Name [2]byte
	Size int
	Kind Kind
}

// Default message set. NT and PV are not requested by default.
var (
	SpecRT = Spec{Name: [2]byte{'~', '~'}, Size: 5, Kind: KindRT}
	SpecNT = Spec{Name: [2]byte{'N', 'T'}, Size: 8, Kind: KindNT}
	SpecPV = Spec{Name: [2]byte{'P', 'V'}, Size: 46, Kind: KindPV}
	SpecPG = Spec{Name: [2]byte{'P', 'G'}, Size: 30, Kind: KindPG}
	SpecVG = Spec{Name: [2]byte{'V', 'G'}, Size: 18, Kind: KindVG}
)

// Signature returns the 5 bytes every framed message of this spec starts with.
func (s Spec) Signature() [signatureLen]byte {
	return [signatureLen]byte{
		s.Name[0],
		s.Name[1],
		hexDigits[(s.Size>>8)&0xF],
		hexDigits[(s.Size>>4)&0xF],
		hexDigits[s.Size&0xF],
	}
}

// FrameLen is the number of bytes a framed message occupies.
func (s Spec) FrameLen() int {
	return signatureLen + s.Size
}

// Validate reports specs that cannot frame anything.
func (s Spec) Validate() error {
	if s.Size < 1 || s.Size > 0xFFF {
		return fmt.Errorf("javad: %s size %d out of range 1..4095", s.Kind, s.Size)
	}
	if want := recordSize(s.Kind); want >= 0 && s.Size-1 < want {
		return fmt.Errorf("javad: %s size %d too small for %d payload bytes", s.Kind, s.Size, want)
	}
	return nil
}

// Checksum returns the rotate-XOR checksum of b.
func Checksum(b []byte) byte {
	var acc byte
	for _, v := range b {
		acc = rotl2(acc) ^ v
	}
	return rotl2(acc)
}

func rotl2(v byte) byte {
	return v<<2 | v>>6
}

// Frame builds a framed message for payload. It is mostly useful in tests and
// simulators.
func (s Spec) Frame(payload []byte) ([]byte, error) {
	if len(payload) != s.Size-1 {
		return nil, fmt.Errorf("javad: %s payload is %d bytes, want %d", s.Kind, len(payload), s.Size-1)
	}
	sig := s.Signature()
	out := make([]byte, 0, s.FrameLen())
	out = append(out, sig[:]...)
	out = append(out, payload...)
	return append(out, Checksum(out)), nil
}
