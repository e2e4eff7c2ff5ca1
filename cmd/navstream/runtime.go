package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"navstream/internal/ais"
	"navstream/internal/capture"
	"navstream/internal/config"
	"navstream/internal/geo"
	"navstream/internal/gps"
	"navstream/internal/javad"
	"navstream/internal/publish"
	"navstream/internal/transport"
	"navstream/internal/unicore"
	"navstream/internal/web"
)

// Sources, also used as capture tags, MQTT topic suffixes and status sections.
const (
	sourceGNSS    = "gnss"
	sourceAIS     = "ais"
	sourceJavad   = "javad"
	sourceUnicore = "unicore"
)

// runtime owns one decoder per enabled source. Stream callbacks feed raw
// chunks in; the poll loop moves decoded data into the telemetry snapshot.
type runtime struct {
	cfg    config.Config
	log    logrus.FieldLogger
	status *web.Status
	pub    publish.Publisher
	rec    *capture.Writer

	gnss *gps.Service

	aisMu    sync.Mutex
	aisReasm *ais.Reassembler
	aisStore *ais.Store

	javadMu     sync.Mutex
	javadParser *javad.Parser
	javadWin    []byte
	javadFresh  bool
	javadCarry  int

	unicoreFramer *unicore.Framer
	unicoreRx     *unicore.Receiver
	unicoreIn     *io.PipeWriter

	mu          sync.Mutex
	unicoreLast *unicore.AGRICB
	unicoreAt   time.Time
	coeffs      geo.Coefficients

	clients []*transport.StreamClient
	wg      sync.WaitGroup
}

func newRuntime(cfg config.Config, log logrus.FieldLogger, status *web.Status, pub publish.Publisher, rec *capture.Writer) (*runtime, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if status == nil {
		status = web.NewStatus()
	}
	if pub == nil {
		pub = publish.Nop{}
	}

	parser, err := javad.NewParser()
	if err != nil {
		return nil, err
	}
	carry := 0
	for _, s := range javad.DefaultSpecs() {
		carry = max(carry, s.FrameLen()-1)
	}

	r := &runtime{
		cfg:    cfg,
		log:    log,
		status: status,
		pub:    pub,
		rec:    rec,

		gnss: gps.New(gps.Config{
			Enable:         cfg.GNSS.Enable,
			Network:        cfg.GNSS.Source,
			Device:         cfg.GNSS.Device,
			Baud:           cfg.GNSS.Baud,
			Addr:           cfg.GNSS.Addr,
			ReconnectDelay: cfg.GNSS.ReconnectDelay,
		}, log),

		aisReasm: ais.NewReassembler(),
		aisStore: ais.NewStore(ais.StoreConfig{
			MaxTargets: cfg.AIS.MaxTargets,
			TTL:        cfg.AIS.TTL,
		}),

		javadParser: parser,
		javadCarry:  carry,

		unicoreFramer: unicore.NewFramer(cfg.Unicore.BufSize),
		coeffs:        geo.Coefficients{Threshold: geo.DefaultThreshold},
	}
	r.aisReasm.AcceptOwnVessel = cfg.AIS.OwnVessel
	r.gnss.OnFix(func(s gps.Snapshot) {
		if s.LatDeg == nil {
			return
		}
		r.mu.Lock()
		r.coeffs.Update(*s.LatDeg)
		r.mu.Unlock()
	})
	r.unicoreRx = unicore.NewReceiver(r.unicoreFramer, log.WithField("component", sourceUnicore))
	return r, nil
}

// startStreams connects every enabled live source.
func (r *runtime) startStreams(ctx context.Context) error {
	r.gnss.OnChunk(func(now time.Time, chunk []byte) {
		r.record(now, sourceGNSS, chunk)
	})
	if err := r.gnss.Start(ctx); err != nil {
		return fmt.Errorf("gnss: %w", err)
	}

	streams := []struct {
		name   string
		cfg    config.StreamConfig
		handle func(time.Time, []byte)
	}{
		{sourceAIS, r.cfg.AIS.StreamConfig, r.handleAIS},
		{sourceJavad, r.cfg.Javad.StreamConfig, r.handleJavad},
		{sourceUnicore, r.cfg.Unicore.StreamConfig, r.handleUnicore},
	}
	for _, s := range streams {
		if !s.cfg.Enable {
			continue
		}
		client, err := transport.NewStreamClient(transport.StreamConfig{
			Name:           s.name,
			Network:        s.cfg.Source,
			Addr:           s.cfg.Addr,
			Device:         s.cfg.Device,
			Baud:           s.cfg.Baud,
			ReconnectDelay: s.cfg.ReconnectDelay,
		}, r.log)
		if err != nil {
			return err
		}
		handle, name := s.handle, s.name
		if err := client.Start(ctx, func(chunk []byte) error {
			now := time.Now().UTC()
			r.record(now, name, chunk)
			handle(now, chunk)
			return nil
		}); err != nil {
			return err
		}
		r.clients = append(r.clients, client)
	}
	return nil
}

// startUnicore runs the receiver goroutine that handleUnicore writes into.
func (r *runtime) startUnicore(ctx context.Context) {
	pr, pw := io.Pipe()
	r.unicoreIn = pw
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.unicoreRx.Run(ctx, pr); err != nil {
			r.log.WithError(err).Warn("unicore receiver stopped")
		}
	}()
}

func (r *runtime) record(now time.Time, source string, chunk []byte) {
	if r.rec == nil {
		return
	}
	if err := r.rec.WriteChunk(now, source, chunk); err != nil {
		r.log.WithError(err).Warn("capture write failed")
	}
}

// dispatch routes a replayed chunk to its decoder.
func (r *runtime) dispatch(source string, chunk []byte) error {
	now := time.Now().UTC()
	switch source {
	case sourceGNSS:
		r.gnss.Feed(now, chunk)
	case sourceAIS:
		r.handleAIS(now, chunk)
	case sourceJavad:
		r.handleJavad(now, chunk)
	case sourceUnicore:
		r.handleUnicore(now, chunk)
	default:
		r.log.WithField("source", source).Debug("replay chunk for unknown source")
	}
	return nil
}

func (r *runtime) handleAIS(now time.Time, chunk []byte) {
	r.aisMu.Lock()
	msgs := r.aisReasm.Feed(chunk)
	r.aisMu.Unlock()
	r.aisStore.UpsertPayloads(now, msgs)
}

// handleJavad appends to the scan window; the poll loop scans it.
func (r *runtime) handleJavad(_ time.Time, chunk []byte) {
	r.javadMu.Lock()
	r.javadWin = append(r.javadWin, chunk...)
	r.javadFresh = true
	if over := len(r.javadWin) - r.cfg.Javad.Window; over > 0 {
		r.javadWin = append(r.javadWin[:0], r.javadWin[over:]...)
	}
	r.javadMu.Unlock()
}

func (r *runtime) handleUnicore(_ time.Time, chunk []byte) {
	if r.unicoreIn == nil {
		for _, m := range r.unicoreFramer.Decode(chunk) {
			r.unicoreRx.Latest().Put(m)
		}
		return
	}
	if _, err := r.unicoreIn.Write(chunk); err != nil {
		r.log.WithError(err).Debug("unicore receiver gone")
	}
}

// poll runs once per app period.
func (r *runtime) poll(now time.Time) {
	r.javadMu.Lock()
	if r.javadFresh {
		r.javadFresh = false
		r.javadParser.Update(r.javadWin)
		// Keep a tail that may hold the start of a message cut by the chunking.
		if keep := min(len(r.javadWin), r.javadCarry); keep < len(r.javadWin) {
			r.javadWin = append(r.javadWin[:0], r.javadWin[len(r.javadWin)-keep:]...)
		}
	}
	r.javadMu.Unlock()

	if m, ok := r.unicoreRx.Latest().Take(); ok {
		r.mu.Lock()
		r.unicoreLast = &m
		r.unicoreAt = now
		r.coeffs.Update(m.LatDeg)
		r.mu.Unlock()
	}

	r.status.MarkTick(now)
}

// loop polls decoders and publishes telemetry until ctx is done.
func (r *runtime) loop(ctx context.Context) {
	pollT := time.NewTicker(r.cfg.App.Period)
	defer pollT.Stop()
	pubT := time.NewTicker(r.cfg.App.PublishPeriod)
	defer pubT.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-pollT.C:
			r.poll(now.UTC())
		case now := <-pubT.C:
			r.publish(r.telemetry(now.UTC()))
		}
	}
}

// publish updates the status page and pushes every present section.
func (r *runtime) publish(t Telemetry) {
	sections := []struct {
		name string
		v    any
		ok   bool
	}{
		{sourceGNSS, t.GNSS, t.GNSS != nil},
		{sourceAIS, t.AIS, t.AIS != nil},
		{sourceJavad, t.Javad, t.Javad != nil},
		{sourceUnicore, t.Unicore, t.Unicore != nil},
	}
	for _, s := range sections {
		if !s.ok {
			continue
		}
		r.status.Set(s.name, s.v)
		if err := r.pub.Publish(s.name, s.v); err != nil {
			r.log.WithError(err).WithField("source", s.name).Debug("publish failed")
		}
	}
	r.status.Set("streams", t.Streams)
}

func (r *runtime) close() {
	for _, c := range r.clients {
		c.Close()
	}
	r.gnss.Close()
	if r.unicoreIn != nil {
		_ = r.unicoreIn.Close()
	}
	r.wg.Wait()
}
