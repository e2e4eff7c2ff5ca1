package javad

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgPayload(lat, lon, alt float64, sigma float32, sol uint8) []byte {
	b := make([]byte, 29)
	binary.LittleEndian.PutUint64(b[0:], math.Float64bits(lat))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(lon))
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(alt))
	binary.LittleEndian.PutUint32(b[24:], math.Float32bits(sigma))
	b[28] = sol
	return b
}

func rtPayload(tod uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, tod)
	return b
}

func mustFrame(t *testing.T, s Spec, payload []byte) []byte {
	t.Helper()
	f, err := s.Frame(payload)
	require.NoError(t, err)
	return f
}

func TestSignature(t *testing.T) {
	assert.Equal(t, [5]byte{'P', 'G', '0', '1', 'E'}, SpecPG.Signature())
	assert.Equal(t, [5]byte{'~', '~', '0', '0', '5'}, SpecRT.Signature())
	assert.Equal(t, [5]byte{'P', 'V', '0', '2', 'E'}, SpecPV.Signature())
	assert.Equal(t, [5]byte{'X', 'Y', 'A', 'B', 'C'}, Spec{Name: [2]byte{'X', 'Y'}, Size: 0xABC}.Signature())
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, byte(0), Checksum(nil))
	// One byte: rotl2(rotl2(0) ^ 0x41) = rotl2(0x41) = 0x05.
	assert.Equal(t, byte(0x05), Checksum([]byte{0x41}))
	// Two bytes: rotl2(0x41)=0x05, ^0x80=0x85, rotl2(0x85)=0x16.
	assert.Equal(t, byte(0x16), Checksum([]byte{0x41, 0x80}))
}

func TestMatcher_ScanPG(t *testing.T) {
	msg := mustFrame(t, SpecPG, pgPayload(0.8, -2.1, 123.5, 0.02, 3))
	require.Len(t, msg, 35)

	buf := append([]byte("junk PG0 garbage"), msg...)
	buf = append(buf, "tail"...)
	off := 16

	m := NewMatcher(SpecPG)
	mt, ok := m.Scan(buf, 0)
	require.True(t, ok)
	assert.Equal(t, off, mt.Offset)
	assert.Equal(t, off+35, mt.Next)
	assert.Equal(t, Checksum(buf[off:off+34]), buf[off+34])

	pg, ok := mt.Record.(PG)
	require.True(t, ok)
	assert.Equal(t, KindPG, pg.Kind())
	assert.Equal(t, 0.8, pg.LatRad)
	assert.Equal(t, -2.1, pg.LonRad)
	assert.Equal(t, 123.5, pg.AltM)
	assert.Equal(t, float32(0.02), pg.PosSigmaM)
	assert.Equal(t, uint8(3), pg.SolType)

	_, ok = m.Scan(buf, mt.Next)
	assert.False(t, ok)
}

func TestMatcher_CorruptedPayloadSkipped(t *testing.T) {
	good := mustFrame(t, SpecPG, pgPayload(1, 2, 3, 4, 5))
	m := NewMatcher(SpecPG)

	for i := signatureLen; i < len(good)-1; i++ {
		bad := append([]byte(nil), good...)
		bad[i] ^= 0x01
		_, ok := m.Scan(bad, 0)
		assert.False(t, ok, "flipped byte %d", i)
	}

	// A corrupted candidate does not hide a valid message behind it.
	bad := append([]byte(nil), good...)
	bad[10] ^= 0xFF
	buf := append(bad, good...)
	mt, ok := m.Scan(buf, 0)
	require.True(t, ok)
	assert.Equal(t, len(bad), mt.Offset)
}

func TestMatcher_MessageAtEndOfBuffer(t *testing.T) {
	msg := mustFrame(t, SpecRT, rtPayload(42))
	m := NewMatcher(SpecRT)

	mt, ok := m.Scan(msg, 0)
	require.True(t, ok)
	assert.Equal(t, 0, mt.Offset)
	assert.Equal(t, len(msg), mt.Next)
	assert.Equal(t, RT{TodMs: 42}, mt.Record)

	_, ok = m.Scan(msg[:len(msg)-1], 0)
	assert.False(t, ok)
}

func TestMatcher_ScanLatestAndAll(t *testing.T) {
	var buf []byte
	for _, tod := range []uint32{1, 2, 3} {
		buf = append(buf, mustFrame(t, SpecRT, rtPayload(tod))...)
		buf = append(buf, 0xAA, 0x55)
	}
	m := NewMatcher(SpecRT)

	mt, ok := m.ScanLatest(buf)
	require.True(t, ok)
	assert.Equal(t, RT{TodMs: 3}, mt.Record)
	assert.Equal(t, 2*12, mt.Offset)

	all := m.ScanAll(buf)
	require.Len(t, all, 3)
	assert.Equal(t, RT{TodMs: 1}, all[0].Record)
	assert.Equal(t, RT{TodMs: 2}, all[1].Record)
}

func TestMatcher_EmptyBuffer(t *testing.T) {
	m := NewMatcher(SpecVG)
	_, ok := m.Scan(nil, 0)
	assert.False(t, ok)
	_, ok = m.ScanLatest([]byte{})
	assert.False(t, ok)
	assert.Empty(t, m.ScanAll(nil))
}

func TestParser_Update(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	vg := make([]byte, 17)
	binary.LittleEndian.PutUint32(vg[0:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(vg[8:], math.Float32bits(-0.25))
	vg[16] = 2

	buf := mustFrame(t, SpecRT, rtPayload(1000))
	buf = append(buf, mustFrame(t, SpecPG, pgPayload(0.1, 0.2, 10, 1, 1))...)
	buf = append(buf, mustFrame(t, SpecVG, vg)...)
	buf = append(buf, mustFrame(t, SpecRT, rtPayload(1100))...)

	assert.Equal(t, 3, p.Update(buf))

	rec, ok := p.Latest(KindRT)
	require.True(t, ok)
	assert.Equal(t, RT{TodMs: 1100}, rec)

	rec, ok = p.Latest(KindVG)
	require.True(t, ok)
	assert.Equal(t, VG{NorthMs: 1.5, UpMs: -0.25, SolType: 2}, rec)

	_, ok = p.Latest(KindPV)
	assert.False(t, ok, "PV is not registered by default")

	// An empty buffer leaves the records alone.
	assert.Equal(t, 0, p.Update(nil))
	assert.Len(t, p.Snapshot(), 3)

	// A buffer without PG clears PG only.
	assert.Equal(t, 1, p.Update(mustFrame(t, SpecRT, rtPayload(7))))
	_, ok = p.Latest(KindPG)
	assert.False(t, ok)
	rec, ok = p.Latest(KindRT)
	require.True(t, ok)
	assert.Equal(t, RT{TodMs: 7}, rec)

	p.Reset()
	assert.Empty(t, p.Snapshot())
}

func TestParser_Register(t *testing.T) {
	p, err := NewParser(SpecNT, SpecPV)
	require.NoError(t, err)
	require.Error(t, p.Register(SpecNT))
	require.Error(t, p.Register(Spec{Name: [2]byte{'P', 'G'}, Size: 10, Kind: KindPG}))

	nt := []byte{0x10, 0x27, 0, 0, 0x2C, 0x01, 7}
	pv := make([]byte, 45)
	binary.LittleEndian.PutUint64(pv[0:], math.Float64bits(2850000.5))
	pv[44] = 4

	buf := append(mustFrame(t, SpecNT, nt), mustFrame(t, SpecPV, pv)...)
	assert.Equal(t, 2, p.Update(buf))

	rec, ok := p.Latest(KindNT)
	require.True(t, ok)
	assert.Equal(t, NT{TodMs: 10000, Day: 300, Cycle4: 7}, rec)

	rec, ok = p.Latest(KindPV)
	require.True(t, ok)
	pvRec := rec.(PV)
	assert.Equal(t, 2850000.5, pvRec.XM)
	assert.Equal(t, uint8(4), pvRec.SolType)
}

func TestSpec_FrameRejectsWrongLength(t *testing.T) {
	_, err := SpecPG.Frame(make([]byte, 3))
	assert.Error(t, err)
}
