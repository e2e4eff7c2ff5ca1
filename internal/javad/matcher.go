package javad

// Match is a message found by a Matcher.
type Match struct {
	// Offset is the index of the first signature byte.
	Offset int
	// Next is the index just past the checksum byte.
	Next   int
	Record Record
}

// Matcher finds messages of a single Spec.
type Matcher struct {
	spec Spec
	sig  [signatureLen]byte
}

func NewMatcher(spec Spec) *Matcher {
	return &Matcher{spec: spec, sig: spec.Signature()}
}

func (m *Matcher) Spec() Spec {
	return m.spec
}

// Scan returns the first valid message starting at or after start. A
// candidate with a matching signature but a bad checksum is skipped and the
// scan continues one byte later.
func (m *Matcher) Scan(buf []byte, start int) (Match, bool) {
	if start < 0 {
		start = 0
	}
	last := len(buf) - m.spec.FrameLen()
	for i := start; i <= last; i++ {
		if rec, ok := m.at(buf, i); ok {
			return Match{Offset: i, Next: i + m.spec.FrameLen(), Record: rec}, true
		}
	}
	return Match{}, false
}

// ScanLatest returns the valid message that starts last in buf.
func (m *Matcher) ScanLatest(buf []byte) (Match, bool) {
	for i := len(buf) - m.spec.FrameLen(); i >= 0; i-- {
		if rec, ok := m.at(buf, i); ok {
			return Match{Offset: i, Next: i + m.spec.FrameLen(), Record: rec}, true
		}
	}
	return Match{}, false
}

// ScanAll returns every valid message in buf in order.
func (m *Matcher) ScanAll(buf []byte) []Match {
	var out []Match
	for i := 0; ; {
		mt, ok := m.Scan(buf, i)
		if !ok {
			return out
		}
		out = append(out, mt)
		i = mt.Next
	}
}

func (m *Matcher) at(buf []byte, i int) (Record, bool) {
	if buf[i] != m.sig[0] {
		return nil, false
	}
	for k := 1; k < signatureLen; k++ {
		if buf[i+k] != m.sig[k] {
			return nil, false
		}
	}
	sum := i + signatureLen + m.spec.Size - 1
	if Checksum(buf[i:sum]) != buf[sum] {
		return nil, false
	}
	return decode(m.spec.Kind, buf[i+signatureLen:sum])
}
