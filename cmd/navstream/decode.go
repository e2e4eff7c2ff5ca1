package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"navstream/internal/ais"
	"navstream/internal/capture"
	"navstream/internal/javad"
	"navstream/internal/nmea"
	"navstream/internal/unicore"
)

const decodeChunk = 4096

// decodedLine is one JSON line printed by the decode command.
type decodedLine struct {
	Protocol string `json:"protocol"`
	Kind     string `json:"kind,omitempty"`
	Offset   *int   `json:"offset,omitempty"`
	Record   any    `json:"record"`
}

type offlineDecoder interface {
	feed(chunk []byte) []decodedLine
	flush() []decodedLine
}

func newOfflineDecoder(protocol string) (offlineDecoder, error) {
	switch protocol {
	case "nmea":
		return &nmeaDecoder{framer: nmea.NewFramer('$')}, nil
	case "ais":
		return &aisDecoder{reasm: ais.NewReassembler()}, nil
	case "javad":
		return &javadDecoder{}, nil
	case "unicore":
		return &unicoreDecoder{framer: unicore.NewFramer(unicore.DefaultCapacity)}, nil
	default:
		return nil, fmt.Errorf("unknown protocol %q (want nmea, ais, javad or unicore)", protocol)
	}
}

type nmeaDecoder struct {
	framer *nmea.Framer
}

func (d *nmeaDecoder) feed(chunk []byte) []decodedLine {
	var out []decodedLine
	for d.framer.Feed(chunk) {
		out = append(out, decodedLine{
			Protocol: "nmea",
			Kind:     d.framer.Field(0),
			Record:   d.framer.Fields(),
		})
	}
	return out
}

func (d *nmeaDecoder) flush() []decodedLine { return nil }

type aisDecoder struct {
	reasm *ais.Reassembler
}

type aisRecord struct {
	Armored  string              `json:"armored"`
	Type     int                 `json:"type"`
	MMSI     uint32              `json:"mmsi"`
	Position *ais.PositionReport `json:"position,omitempty"`
}

func (d *aisDecoder) feed(chunk []byte) []decodedLine {
	var out []decodedLine
	for _, p := range d.reasm.Feed(chunk) {
		rec := aisRecord{Armored: p.Armored(), Type: p.Type()}
		rec.MMSI, _ = p.MMSI()
		if rep, ok := p.PositionReport(); ok {
			rec.Position = &rep
		}
		out = append(out, decodedLine{Protocol: "ais", Kind: fmt.Sprintf("type%d", rec.Type), Record: rec})
	}
	return out
}

func (d *aisDecoder) flush() []decodedLine { return nil }

// javadDecoder scans the whole input at the end so messages split across
// chunks are found exactly once.
type javadDecoder struct {
	buf []byte
}

func (d *javadDecoder) feed(chunk []byte) []decodedLine {
	d.buf = append(d.buf, chunk...)
	return nil
}

func (d *javadDecoder) flush() []decodedLine {
	var matches []javad.Match
	for _, s := range []javad.Spec{javad.SpecRT, javad.SpecNT, javad.SpecPV, javad.SpecPG, javad.SpecVG} {
		matches = append(matches, javad.NewMatcher(s).ScanAll(d.buf)...)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Offset < matches[j].Offset })

	out := make([]decodedLine, 0, len(matches))
	for _, m := range matches {
		off := m.Offset
		out = append(out, decodedLine{Protocol: "javad", Kind: m.Record.Kind().String(), Offset: &off, Record: m.Record})
	}
	return out
}

type unicoreDecoder struct {
	framer *unicore.Framer
}

func (d *unicoreDecoder) feed(chunk []byte) []decodedLine {
	var out []decodedLine
	for _, m := range d.framer.Decode(chunk) {
		out = append(out, decodedLine{Protocol: "unicore", Kind: "AGRICB", Record: m})
	}
	return out
}

func (d *unicoreDecoder) flush() []decodedLine { return nil }

type decodeOptions struct {
	Protocol string
	Capture  bool
	// Source filters capture records; empty keeps all.
	Source string
}

// decodeFile decodes path and writes one JSON object per record to w. It
// returns the number of records written.
func decodeFile(ctx context.Context, w io.Writer, path string, opts decodeOptions) (int, error) {
	dec, err := newOfflineDecoder(opts.Protocol)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(w)
	n := 0
	emit := func(lines []decodedLine) error {
		for _, l := range lines {
			if err := enc.Encode(l); err != nil {
				return err
			}
			n++
		}
		return nil
	}

	if opts.Capture {
		recs, err := capture.NewReader(f).ReadAll()
		if err != nil {
			return 0, fmt.Errorf("read capture %s: %w", path, err)
		}
		err = capture.Play(ctx, recs, 0, false, nil, func(source string, chunk []byte) error {
			if opts.Source != "" && source != opts.Source {
				return nil
			}
			return emit(dec.feed(chunk))
		})
		if err != nil {
			return n, err
		}
	} else {
		buf := make([]byte, decodeChunk)
		for {
			k, rerr := f.Read(buf)
			if k > 0 {
				if err := emit(dec.feed(buf[:k])); err != nil {
					return n, err
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return n, fmt.Errorf("read %s: %w", path, rerr)
			}
			if ctx.Err() != nil {
				return n, nil
			}
		}
	}
	return n, emit(dec.flush())
}
