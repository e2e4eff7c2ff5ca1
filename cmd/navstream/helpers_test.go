package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"navstream/internal/config"
	"navstream/internal/javad"
	"navstream/internal/unicore"
)

func quietLogger() logrus.FieldLogger {
	l, _ := logtest.NewNullLogger()
	return l
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	require.NoError(t, config.DefaultAndValidate(&cfg))
	return cfg
}

// armor packs MSB-first (start, length, value) fields into an AIS payload.
func armor(nbits int, fields ...[3]int64) string {
	bits := make([]byte, nbits)
	for _, f := range fields {
		start, length, v := int(f[0]), int(f[1]), f[2]
		for i := 0; i < length; i++ {
			bits[start+i] = byte(v>>(length-1-i)) & 1
		}
	}
	out := make([]byte, 0, nbits/6)
	for i := 0; i+6 <= len(bits); i += 6 {
		var v byte
		for j := 0; j < 6; j++ {
			v = v<<1 | bits[i+j]
		}
		if v < 40 {
			out = append(out, v+48)
		} else {
			out = append(out, v+56)
		}
	}
	return string(out)
}

// classAPosition is a type 1 report; lat/lon in degrees.
func classAPosition(mmsi int64, lat, lon float64) string {
	return armor(168,
		[3]int64{0, 6, 1},
		[3]int64{8, 30, mmsi},
		[3]int64{50, 10, 100},
		[3]int64{61, 28, int64(math.Round(lon * 600000))},
		[3]int64{89, 27, int64(math.Round(lat * 600000))},
		[3]int64{116, 12, 900},
		[3]int64{128, 9, 90},
	)
}

func vdm(payload string) string {
	body := "AIVDM,1,1,,A," + payload + ",0"
	ck := byte(0)
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return fmt.Sprintf("!%s*%02X\r\n", body, ck)
}

func nmeaSentence(body string) string {
	ck := byte(0)
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, ck)
}

func javadPG(t *testing.T, latRad, lonRad, alt float64) []byte {
	t.Helper()
	b := make([]byte, javad.SpecPG.Size-1)
	binary.LittleEndian.PutUint64(b[0:], math.Float64bits(latRad))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(lonRad))
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(alt))
	binary.LittleEndian.PutUint32(b[24:], math.Float32bits(0.5))
	b[28] = 3
	f, err := javad.SpecPG.Frame(b)
	require.NoError(t, err)
	return f
}

// unicoreFrame builds an AGRICB frame with only position and heading set.
func unicoreFrame(lat, lon float64, heading float32) []byte {
	const header = 24
	b := make([]byte, 256)
	b[0], b[1], b[2], b[3] = 0xAA, 0x44, 0xB5, header
	binary.LittleEndian.PutUint16(b[4:], unicore.MessageIDAGRICB)
	binary.LittleEndian.PutUint16(b[6:], 228)
	binary.LittleEndian.PutUint32(b[header+40:], math.Float32bits(heading))
	binary.LittleEndian.PutUint64(b[header+80:], math.Float64bits(lat))
	binary.LittleEndian.PutUint64(b[header+88:], math.Float64bits(lon))
	binary.LittleEndian.PutUint32(b[252:], unicore.CRC32(b[:252]))
	return b
}

// recorder is a publish.Publisher that keeps what it was given.
type recorder struct {
	mu   sync.Mutex
	got  map[string]any
	done bool
}

func (r *recorder) Publish(source string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.got == nil {
		r.got = make(map[string]any)
	}
	r.got[source] = v
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

func (r *recorder) sources() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.got))
	for k, v := range r.got {
		out[k] = v
	}
	return out
}
