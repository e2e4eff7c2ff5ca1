package javad

import (
	"fmt"
	"sync"
)

// Parser keeps the latest record of every registered message type.
//
// Update looks for the last occurrence of each type in a buffer. A type not
// found in the buffer loses its "present" flag, so Latest only reports data
// seen in the most recent Update.
type Parser struct {
	mu       sync.RWMutex
	matchers []*Matcher
	latest   map[Kind]Record
}

// DefaultSpecs is the message set requested from the receiver.
func DefaultSpecs() []Spec {
	return []Spec{SpecRT, SpecPG, SpecVG}
}

// NewParser registers specs, or DefaultSpecs when none are given.
func NewParser(specs ...Spec) (*Parser, error) {
	if len(specs) == 0 {
		specs = DefaultSpecs()
	}
	p := &Parser{latest: make(map[Kind]Record)}
	for _, s := range specs {
		if err := p.Register(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Register adds a message type. Only one spec per Kind is allowed.
func (p *Parser) Register(s Spec) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.matchers {
		if m.spec.Kind == s.Kind {
			return fmt.Errorf("javad: %s already registered", s.Kind)
		}
	}
	p.matchers = append(p.matchers, NewMatcher(s))
	return nil
}

// Update scans buf for the latest message of each registered type and
// reports how many types were found.
func (p *Parser) Update(buf []byte) int {
	if p == nil || len(buf) == 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	found := 0
	for _, m := range p.matchers {
		mt, ok := m.ScanLatest(buf)
		if !ok {
			delete(p.latest, m.spec.Kind)
			continue
		}
		p.latest[m.spec.Kind] = mt.Record
		found++
	}
	return found
}

// Latest returns the record of kind found by the last Update.
func (p *Parser) Latest(k Kind) (Record, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.latest[k]
	return rec, ok
}

// Snapshot returns a copy of all present records.
func (p *Parser) Snapshot() map[Kind]Record {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Kind]Record, len(p.latest))
	for k, v := range p.latest {
		out[k] = v
	}
	return out
}

// Reset clears every present flag.
func (p *Parser) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.latest)
}
