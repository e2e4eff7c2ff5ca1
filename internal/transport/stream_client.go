package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

const (
	StateStopped      = "stopped"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateError        = "error"
)

const (
	evDial        = "dial"
	evConnectOK   = "connect_ok"
	evConnectFail = "connect_fail"
	evReadFail    = "read_fail"
	evStop        = "stop"
)

type StreamConfig struct {
	Name string

	// Network is "tcp" or "serial".
	Network string
	Addr    string

	Device string
	Baud   int

	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	ChunkSize      int
}

// StreamClient keeps a byte stream open, reconnecting after failures, and
// delivers raw chunks with no framing of its own.
type StreamClient struct {
	cfg  StreamConfig
	log  logrus.FieldLogger
	dial func(ctx context.Context) (io.ReadCloser, error)

	started atomic.Bool
	closed  atomic.Bool

	fsm *fsm.FSM

	mu       sync.RWMutex
	lastErr  string
	lastSeen time.Time
	chunks   uint64
	bytes    uint64

	cancel context.CancelFunc
	done   chan struct{}
}

type StreamSnapshot struct {
	Name        string `json:"name"`
	Network     string `json:"network"`
	Endpoint    string `json:"endpoint"`
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastSeenUTC string `json:"last_seen_utc,omitempty"`
	Chunks      uint64 `json:"chunks"`
	Bytes       uint64 `json:"bytes"`
}

func NewStreamClient(cfg StreamConfig, log logrus.FieldLogger) (*StreamClient, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("stream client name is required")
	}
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &StreamClient{
		cfg:  cfg,
		log:  log.WithField("stream", cfg.Name),
		done: make(chan struct{}),
	}
	switch cfg.Network {
	case "tcp":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("stream %s: addr is required", cfg.Name)
		}
		c.dial = c.dialTCP
	case "serial":
		if cfg.Device == "" {
			cfg.Device = DetectSerial()
			c.cfg.Device = cfg.Device
		}
		if cfg.Device == "" {
			return nil, fmt.Errorf("stream %s: no serial device found", cfg.Name)
		}
		if !SupportedBaud(cfg.Baud) {
			return nil, fmt.Errorf("stream %s: unsupported baud %d", cfg.Name, cfg.Baud)
		}
		c.dial = c.dialSerial
	default:
		return nil, fmt.Errorf("stream %s: unknown network %q", cfg.Name, cfg.Network)
	}
	c.fsm = c.newFSM()
	return c, nil
}

func (c *StreamClient) newFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: evDial, Src: []string{StateStopped, StateDisconnected, StateError}, Dst: StateConnecting},
			{Name: evConnectOK, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: evConnectFail, Src: []string{StateConnecting}, Dst: StateError},
			{Name: evReadFail, Src: []string{StateConnected}, Dst: StateDisconnected},
			{Name: evStop, Src: []string{StateConnecting, StateConnected, StateDisconnected, StateError}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				c.log.WithFields(logrus.Fields{"from": e.Src, "to": e.Dst}).Debug("stream state")
			},
			"enter_" + StateConnected: func(e *fsm.Event) {
				c.mu.Lock()
				c.lastErr = ""
				c.mu.Unlock()
			},
		},
	)
}

// event fires a transition and records errMsg, if any, as the last error.
func (c *StreamClient) event(name, errMsg string) {
	if errMsg != "" {
		c.mu.Lock()
		c.lastErr = errMsg
		c.mu.Unlock()
	}
	if err := c.fsm.Event(name); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			c.log.WithError(err).WithField("event", name).Debug("stream transition rejected")
		}
	}
}

// State returns the current connection state.
func (c *StreamClient) State() string {
	return c.fsm.Current()
}

// Start connects and calls onChunk for each chunk read. onChunk runs on the
// client goroutine and should be fast; an error from it is recorded but does
// not drop the connection.
func (c *StreamClient) Start(ctx context.Context, onChunk func(chunk []byte) error) error {
	if c == nil {
		return fmt.Errorf("stream client is nil")
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if onChunk == nil {
		return fmt.Errorf("stream onChunk is nil")
	}
	if c.started.Swap(true) {
		return fmt.Errorf("stream client already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		defer close(c.done)
		c.runLoop(runCtx, onChunk)
	}()
	return nil
}

func (c *StreamClient) Close() {
	if c == nil {
		return
	}
	if c.closed.Swap(true) {
		return
	}
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *StreamClient) Snapshot() StreamSnapshot {
	if c == nil {
		return StreamSnapshot{}
	}
	c.mu.RLock()
	out := StreamSnapshot{
		Name:      c.cfg.Name,
		Network:   c.cfg.Network,
		Endpoint:  c.endpoint(),
		LastError: c.lastErr,
		Chunks:    c.chunks,
		Bytes:     c.bytes,
	}
	lastSeen := c.lastSeen
	c.mu.RUnlock()

	out.State = c.State()
	if !lastSeen.IsZero() {
		out.LastSeenUTC = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func (c *StreamClient) endpoint() string {
	if c.cfg.Network == "serial" {
		return fmt.Sprintf("%s@%d", c.cfg.Device, c.cfg.Baud)
	}
	return c.cfg.Addr
}

func (c *StreamClient) dialTCP(ctx context.Context) (io.ReadCloser, error) {
	d := &net.Dialer{Timeout: c.cfg.DialTimeout}
	return d.DialContext(ctx, "tcp", c.cfg.Addr)
}

func (c *StreamClient) dialSerial(ctx context.Context) (io.ReadCloser, error) {
	return OpenSerial(c.cfg.Device, c.cfg.Baud)
}

func (c *StreamClient) runLoop(ctx context.Context, onChunk func([]byte) error) {
	defer c.event(evStop, "")

	for ctx.Err() == nil {
		c.event(evDial, "")
		conn, err := c.dial(ctx)
		if err != nil {
			c.event(evConnectFail, err.Error())
			c.log.WithError(err).Warn("stream connect failed")
			if !sleepCtx(ctx, c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		c.event(evConnectOK, "")
		c.log.WithField("endpoint", c.endpoint()).Info("stream connected")

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err = Pump(ctx, conn, c.cfg.ChunkSize, func(chunk []byte) error {
			c.mu.Lock()
			c.lastSeen = time.Now().UTC()
			c.chunks++
			c.bytes += uint64(len(chunk))
			c.mu.Unlock()
			if herr := onChunk(chunk); herr != nil {
				c.mu.Lock()
				c.lastErr = "handler: " + herr.Error()
				c.mu.Unlock()
			}
			return nil
		})
		stop()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		msg := "eof"
		if err != nil && !errors.Is(err, net.ErrClosed) {
			msg = err.Error()
		}
		c.event(evReadFail, msg)
		c.log.WithField("reason", msg).Warn("stream disconnected")

		if !sleepCtx(ctx, c.cfg.ReconnectDelay) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
