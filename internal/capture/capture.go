// Package capture records raw input chunks to a text log and plays them back
// with their original timing.
//
// Log format, one record per line:
//
//   - Blank lines and lines starting with '#' are ignored.
//   - "START" resets the time origin.
//   - Data lines are <t_ns>,<source>,<hex> where t_ns is nanoseconds since
//     START and hex is the chunk exactly as read. The source column may be
//     omitted (<t_ns>,<hex>) for single-stream logs.
package capture

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Record struct {
	At     time.Duration
	Source string
	// Chunk is nil for START markers.
	Chunk []byte
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("capture line %d: want <t_ns>,[source,]<hex>: %q", lineNo, line)
		}
		tsStr := strings.TrimSpace(parts[0])
		hexStr := strings.TrimSpace(parts[len(parts)-1])
		var source string
		if len(parts) == 3 {
			source = strings.TrimSpace(parts[1])
		}
		if tsStr == "" || hexStr == "" {
			return nil, fmt.Errorf("capture line %d: empty field", lineNo)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("capture line %d: timestamp %q: %w", lineNo, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("capture line %d: negative timestamp %d", lineNo, tsNs)
		}

		b, err := hex.DecodeString(strings.ReplaceAll(hexStr, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("capture line %d: %w", lineNo, err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("capture line %d: empty chunk", lineNo)
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Source: source, Chunk: b})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Writer appends chunks to a capture log. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteChunk(now time.Time, source string, chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if strings.ContainsAny(source, ",\n") {
		return fmt.Errorf("capture source %q contains a separator", source)
	}
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("capture writer is closed")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	var err error
	if source == "" {
		_, err = fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(chunk))
	} else {
		_, err = fmt.Fprintf(ww.w, "%d,%s,%s\n", d.Nanoseconds(), source, hex.EncodeToString(chunk))
	}
	return err
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) bool
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Play replays records with their relative timing, calling cb for every
// record that carries a chunk. START markers reset the origin.
//
// speed: 1.0 = real time, 2.0 = half the waits. Zero or less plays without
// waiting.
func Play(ctx context.Context, records []Record, speed float64, loop bool, sleeper Sleeper, cb func(source string, chunk []byte) error) error {
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin, lastAt time.Duration
		haveLast := false

		for _, r := range records {
			if ctx.Err() != nil {
				return nil
			}
			if r.Chunk == nil {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := max(r.At-origin, 0)
			if haveLast && speed > 0 {
				wait := time.Duration(float64(max(at-lastAt, 0)) / speed)
				if wait > 0 && !sleeper.Sleep(ctx, wait) {
					return nil
				}
			}

			if err := cb(r.Source, r.Chunk); err != nil {
				return err
			}
			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
