package unicore

import "encoding/binary"

const (
	DefaultCapacity = 1024
	MinCapacity     = agricbFrame

	maxReady = 16
)

var preamble = [3]byte{0xAA, 0x44, 0xB5}

type state uint8

const (
	seekPreamble state = iota
	readHeader
	verifyCRC
)

// Stats counts framing events since the Framer was created.
type Stats struct {
	Frames    uint64 `json:"frames"`
	CRCErrors uint64 `json:"crc_errors"`
	Skipped   uint64 `json:"skipped_headers"`
	Overflows uint64 `json:"overflows"`
	Dropped   uint64 `json:"dropped"`
}

// Framer accumulates bytes in a fixed-capacity buffer and extracts AGRICB
// messages from it.
//
// When the buffer fills up without yielding a message its whole content is
// discarded and the search starts over. A Framer is not safe for concurrent
// use.
type Framer struct {
	buf   []byte
	idx   int // start of the candidate message
	state state
	size  int // full frame size once the header is accepted

	ready []AGRICB
	stats Stats
}

// NewFramer returns a framer with the given buffer capacity. Zero selects
// DefaultCapacity; smaller values are raised to MinCapacity.
func NewFramer(capacity int) *Framer {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Framer{buf: make([]byte, 0, capacity)}
}

// Capacity returns the size of the accumulation buffer.
func (f *Framer) Capacity() int {
	return cap(f.buf)
}

// Buffered returns the number of bytes waiting to be framed.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) Stats() Stats {
	return f.stats
}

// Overflows returns how many times the buffer was discarded because it was
// full.
func (f *Framer) Overflows() uint64 {
	return f.stats.Overflows
}

// Write appends p and frames as much as possible. Decoded messages are kept
// until Next is called; when more than a few are pending the oldest are
// dropped. Write never fails.
func (f *Framer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if len(f.buf) == cap(f.buf) {
			f.overflow()
		}
		k := min(cap(f.buf)-len(f.buf), len(p))
		f.buf = append(f.buf, p[:k]...)
		p = p[k:]
		f.parse()
	}
	return n, nil
}

// Next returns the oldest decoded message not yet returned.
func (f *Framer) Next() (AGRICB, bool) {
	if len(f.ready) == 0 {
		return AGRICB{}, false
	}
	m := f.ready[0]
	f.ready = f.ready[1:]
	if len(f.ready) == 0 {
		f.ready = nil
	}
	return m, true
}

// Decode writes p and returns every message completed by it.
func (f *Framer) Decode(p []byte) []AGRICB {
	_, _ = f.Write(p)
	var out []AGRICB
	for {
		m, ok := f.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

// Reset discards buffered bytes and pending messages.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.idx = 0
	f.state = seekPreamble
	f.size = 0
	f.ready = nil
}

func (f *Framer) overflow() {
	f.stats.Overflows++
	f.buf = f.buf[:0]
	f.idx = 0
	f.state = seekPreamble
}

func (f *Framer) parse() {
	for {
		switch f.state {
		case seekPreamble:
			if !f.seek() {
				return
			}
		case readHeader:
			if len(f.buf) < f.idx+headerLen {
				return
			}
			id := binary.LittleEndian.Uint16(f.buf[f.idx+4:])
			length := binary.LittleEndian.Uint16(f.buf[f.idx+6:])
			if id != MessageIDAGRICB || length != agricbPayload {
				f.stats.Skipped++
				f.skip()
				continue
			}
			f.size = headerLen + int(length) + crcLen
			f.state = verifyCRC
		case verifyCRC:
			if len(f.buf) < f.idx+f.size {
				return
			}
			frame := f.buf[f.idx : f.idx+f.size]
			body := len(frame) - crcLen
			if CRC32(frame[:body]) != binary.LittleEndian.Uint32(frame[body:]) {
				f.stats.CRCErrors++
				f.skip()
				continue
			}
			if m, ok := decodeAGRICB(frame); ok {
				f.stats.Frames++
				f.push(m)
			}
			f.consume(f.idx + f.size)
			f.state = seekPreamble
		}
	}
}

// seek moves idx to the next preamble. Without one, everything except a
// possible partial preamble at the end is discarded.
func (f *Framer) seek() bool {
	if len(f.buf) < f.idx+len(preamble) {
		return false
	}
	end := len(f.buf) - len(preamble) + 1
	for ; f.idx < end; f.idx++ {
		if f.buf[f.idx] == preamble[0] && f.buf[f.idx+1] == preamble[1] && f.buf[f.idx+2] == preamble[2] {
			f.state = readHeader
			return true
		}
	}
	f.consume(f.idx)
	return false
}

func (f *Framer) skip() {
	f.idx += len(preamble)
	f.state = seekPreamble
}

func (f *Framer) consume(n int) {
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
	f.idx = 0
}

func (f *Framer) push(m AGRICB) {
	if len(f.ready) == maxReady {
		f.stats.Dropped++
		f.ready = f.ready[1:]
	}
	f.ready = append(f.ready, m)
}
