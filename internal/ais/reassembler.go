package ais

import "navstream/internal/nmea"

const (
	sentenceVDM = "AIVDM"
	sentenceVDO = "AIVDO"
	vdmFields   = 7
)

// Reassembler turns a stream of !AIVDM sentences into complete payloads,
// joining multi-fragment messages.
//
// A broken fragment sequence (wrong index or sequence id) drops the message
// in progress; a first fragment always starts a new message. A Reassembler is
// not safe for concurrent use.
type Reassembler struct {
	framer *nmea.Framer

	// AcceptOwnVessel also accepts !AIVDO (own ship) sentences.
	AcceptOwnVessel bool

	part     []byte
	nextPart int // -1: no message in progress
	seq      int // -1: no message in progress

	sentences uint64
	dropped   uint64
}

// NewReassembler returns a reassembler with its own '!' framer.
func NewReassembler() *Reassembler {
	return &Reassembler{
		framer:   nmea.NewFramer('!'),
		nextPart: -1,
		seq:      -1,
	}
}

// Feed drains every sentence in buf and returns the messages completed by it.
func (r *Reassembler) Feed(buf []byte) []Payload {
	var out []Payload
	for r.framer.Feed(buf) {
		if !r.framer.IsMsg(sentenceVDM, vdmFields) &&
			!(r.AcceptOwnVessel && r.framer.IsMsg(sentenceVDO, vdmFields)) {
			continue
		}
		r.sentences++
		if p, ok := r.fragment(); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Reassembler) fragment() (Payload, bool) {
	f := r.framer
	total := f.Int(1)
	if total == 1 {
		return NewPayload(f.Field(5)), true
	}

	current := f.Int(2)
	if current == 1 {
		r.part = append(r.part[:0], f.Field(5)...)
		r.nextPart = 2
		r.seq = f.Int(3)
		return Payload{}, false
	}
	if current != r.nextPart || f.Int(3) != r.seq {
		if r.nextPart != -1 {
			r.dropped++
		}
		r.clear()
		return Payload{}, false
	}

	r.part = append(r.part, f.Field(5)...)
	if current != total {
		r.nextPart++
		return Payload{}, false
	}
	p := NewPayload(string(r.part))
	r.clear()
	return p, true
}

func (r *Reassembler) clear() {
	r.part = r.part[:0]
	r.nextPart = -1
	r.seq = -1
}

// Pending reports whether a multi-fragment message is in progress.
func (r *Reassembler) Pending() bool {
	return r.nextPart != -1
}

// Stats returns the number of accepted sentences and of multi-fragment
// messages dropped because of a broken sequence.
func (r *Reassembler) Stats() (sentences, dropped uint64) {
	return r.sentences, r.dropped
}
