package binfield

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Fields(t *testing.T) {
	buf := make([]byte, 19)
	buf[0] = 0xFE
	binary.LittleEndian.PutUint16(buf[1:], 11276)
	binary.LittleEndian.PutUint32(buf[3:], uint32(0xFFFFFFFE))
	binary.LittleEndian.PutUint32(buf[7:], math.Float32bits(-1.5))
	binary.LittleEndian.PutUint64(buf[11:], math.Float64bits(47.123456789))

	r := NewReader(buf)
	assert.Equal(t, uint8(0xFE), r.U8(0))
	assert.Equal(t, uint16(11276), r.U16(1))
	assert.Equal(t, int32(-2), r.I32(3))
	assert.Equal(t, uint32(0xFFFFFFFE), r.U32(3))
	assert.Equal(t, float32(-1.5), r.F32(7))
	assert.Equal(t, 47.123456789, r.F64(11))
	require.NoError(t, r.Err())
	assert.Equal(t, 19, r.Len())
}

func TestReader_ShortBufferIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})

	assert.Equal(t, uint16(0x0201), r.U16(0))
	assert.Zero(t, r.F64(0))
	require.ErrorIs(t, r.Err(), ErrShortBuffer)

	// In-range reads after a failure still return zero.
	assert.Zero(t, r.U8(0))
	assert.Zero(t, r.U8(-1))
}

func TestReader_NilBuffer(t *testing.T) {
	r := NewReader(nil)
	assert.Zero(t, r.U8(0))
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)
}
