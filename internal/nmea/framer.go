package nmea

import (
	"strconv"
	"strings"
)

const (
	// MaxFields is the maximum number of comma-separated fields in one sentence.
	MaxFields = 32
	// MaxChars is the maximum number of characters accumulated across all fields.
	MaxChars = 512
)

const hexDigits = "0123456789ABCDEF"

type state uint8

const (
	stateIdle state = iota
	stateBody
	stateCRC1
	stateCRC2
	stateOK
)

// Framer extracts checksum-verified NMEA sentences from a byte stream.
//
// Feed is called repeatedly with the same buffer until it returns false; each
// true result leaves one sentence queryable through the accessors until the
// next Feed. A sentence cut by a chunk boundary is completed by the next chunk.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	start byte

	data   [MaxChars]byte
	begins [MaxFields]uint16
	ends   [MaxFields]uint16
	nField int
	nChar  int

	state state
	crc   byte

	// Resume position inside last, valid only while state == stateOK.
	last []byte
	pos  int
}

// NewFramer returns a framer for sentences starting with start ('$' or '!').
// Any other start character falls back to '$'.
func NewFramer(start byte) *Framer {
	f := &Framer{start: '$'}
	f.SetStart(start)
	return f
}

// SetStart changes the sentence start character. Only '$' and '!' are
// accepted; other values are ignored.
func (f *Framer) SetStart(c byte) {
	if c == '$' || c == '!' {
		f.start = c
	}
}

// Start returns the configured start character.
func (f *Framer) Start() byte {
	return f.start
}

// Reset drops any partial sentence and forgets the resume position.
func (f *Framer) Reset() {
	f.state = stateIdle
	f.crc = 0
	f.nField = 0
	f.nChar = 0
	f.last = nil
	f.pos = 0
}

// Feed scans buf for the next complete sentence. After a successful call,
// calling Feed again with the same buffer resumes right after that sentence;
// a different buffer is scanned from offset 0.
func (f *Framer) Feed(buf []byte) bool {
	if f.state == stateOK {
		f.state = stateIdle
		if !sameBuffer(f.last, buf) {
			f.pos = 0
		}
	} else {
		f.pos = 0
	}
	f.last = nil

	for ; f.pos < len(buf); f.pos++ {
		v := buf[f.pos]
		if v < 32 || v > 126 {
			f.state = stateIdle
			continue
		}
		if v == f.start {
			f.crc = 0
			f.nField = 0
			f.nChar = 0
			f.begins[0] = 0
			f.state = stateBody
			continue
		}

		switch f.state {
		case stateBody:
			f.body(v)
		case stateCRC1:
			if v == hexDigits[f.crc>>4] {
				f.state = stateCRC2
			} else {
				f.state = stateIdle
			}
		case stateCRC2:
			if v == hexDigits[f.crc&0x0F] {
				f.state = stateOK
				f.pos++
				f.last = buf
				return true
			}
			f.state = stateIdle
		}
	}
	return false
}

func (f *Framer) body(v byte) {
	switch v {
	case '*':
		f.ends[f.nField] = uint16(f.nChar)
		f.nField++
		f.state = stateCRC1
	case ',':
		f.crc ^= v
		f.ends[f.nField] = uint16(f.nChar)
		f.nField++
		if f.nField >= MaxFields {
			f.state = stateIdle
			return
		}
		f.begins[f.nField] = uint16(f.nChar)
	default:
		f.crc ^= v
		f.data[f.nChar] = v
		f.nChar++
		if f.nChar >= MaxChars {
			f.state = stateIdle
		}
	}
}

func sameBuffer(a, b []byte) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	return &a[0] == &b[0]
}

// Ok reports whether a complete sentence is currently available.
func (f *Framer) Ok() bool {
	return f.state == stateOK
}

// Len returns the number of fields in the current sentence, or 0.
func (f *Framer) Len() int {
	if f.state != stateOK {
		return 0
	}
	return f.nField
}

// Field returns field i of the current sentence, or "" when out of range.
func (f *Framer) Field(i int) string {
	if f.state != stateOK || i < 0 || i >= f.nField {
		return ""
	}
	return string(f.data[f.begins[i]:f.ends[i]])
}

// Fields returns a copy of all fields of the current sentence.
func (f *Framer) Fields() []string {
	n := f.Len()
	if n == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = f.Field(i)
	}
	return out
}

// IsName reports whether field i equals name.
func (f *Framer) IsName(i int, name string) bool {
	if f.state != stateOK || i < 0 || i >= f.nField {
		return false
	}
	return string(f.data[f.begins[i]:f.ends[i]]) == name
}

// IsMsg reports whether the current sentence is name (field 0) with exactly n fields.
func (f *Framer) IsMsg(name string, n int) bool {
	if f.state != stateOK || f.nField != n {
		return false
	}
	return f.IsName(0, name)
}

// Int parses field i like C atoi: leading integer digits, 0 when absent.
func (f *Framer) Int(i int) int {
	return atoi(f.Field(i))
}

// Uint8 returns field i as an integer in 0..255, or 0 when outside that range.
func (f *Framer) Uint8(i int) uint8 {
	v := f.Int(i)
	if v < 0 || v > 255 {
		return 0
	}
	return uint8(v)
}

// Float returns field i as a float, 0 when empty or malformed.
func (f *Framer) Float(i int) float64 {
	s := strings.TrimSpace(f.Field(i))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Sentence re-serializes the current sentence including its checksum.
func (f *Framer) Sentence() string {
	if f.state != stateOK {
		return ""
	}
	body := strings.Join(f.Fields(), ",")
	return string(f.start) + body + "*" + string([]byte{hexDigits[f.crc>>4], hexDigits[f.crc&0x0F]})
}

func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}
