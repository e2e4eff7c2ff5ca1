package unicore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"navstream/internal/mailbox"
)

const readChunk = 512

// Receiver reads a byte stream, frames it and publishes the newest AGRICB.
//
// Consumers either poll Latest or receive from Results. Both are latest-wins:
// a value nobody picked up is replaced by the next one.
type Receiver struct {
	framer  *Framer
	log     logrus.FieldLogger
	latest  mailbox.Latest[AGRICB]
	results chan AGRICB

	mu    sync.Mutex
	stats Stats
}

func NewReceiver(framer *Framer, log logrus.FieldLogger) *Receiver {
	if framer == nil {
		framer = NewFramer(DefaultCapacity)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Receiver{
		framer:  framer,
		log:     log,
		results: make(chan AGRICB, 1),
	}
}

// Latest is the mailbox holding the newest message.
func (r *Receiver) Latest() *mailbox.Latest[AGRICB] {
	return &r.latest
}

// Results delivers decoded messages. It is never closed.
func (r *Receiver) Results() <-chan AGRICB {
	return r.results
}

// Run reads src until ctx is cancelled or src fails. If src is an io.Closer
// it is closed on cancellation to unblock a pending Read.
func (r *Receiver) Run(ctx context.Context, src io.Reader) error {
	if src == nil {
		return fmt.Errorf("unicore receiver: src is nil")
	}
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	buf := make([]byte, readChunk)
	var overflows uint64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			for _, m := range r.framer.Decode(buf[:n]) {
				r.publish(m)
			}
			st := r.framer.Stats()
			r.mu.Lock()
			r.stats = st
			r.mu.Unlock()
			if st.Overflows != overflows {
				overflows = st.Overflows
				r.log.WithField("overflows", overflows).Warn("unicore buffer reset")
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("unicore read: %w", err)
		}
	}
}

func (r *Receiver) publish(m AGRICB) {
	r.latest.Put(m)
	select {
	case r.results <- m:
		return
	default:
	}
	// Replace the stale value.
	select {
	case <-r.results:
	default:
	}
	select {
	case r.results <- m:
	default:
	}
}

// Stats returns the framer counters as of the last chunk read.
func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
