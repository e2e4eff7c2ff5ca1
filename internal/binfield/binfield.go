// Package binfield reads fixed-offset little-endian fields out of packed
// binary records.
//
// Every read is bounds-checked against the real slice length. The first
// failed read is remembered and later reads return zero, so a decoder can read
// a whole table of fields and check Err once.
package binfield

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrShortBuffer = errors.New("binfield: short buffer")

// Reader reads fields at absolute offsets within buf.
type Reader struct {
	buf []byte
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first out-of-range read, if any.
func (r *Reader) Err() error {
	return r.err
}

// Len returns the length of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.buf)
}

func (r *Reader) field(off, size int) []byte {
	if r.err != nil {
		return nil
	}
	if off < 0 || off+size > len(r.buf) {
		r.err = fmt.Errorf("%w: %d bytes at offset %d, have %d", ErrShortBuffer, size, off, len(r.buf))
		return nil
	}
	return r.buf[off : off+size]
}

func (r *Reader) U8(off int) uint8 {
	b := r.field(off, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16(off int) uint16 {
	b := r.field(off, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32(off int) uint32 {
	b := r.field(off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32(off int) int32 {
	return int32(r.U32(off))
}

func (r *Reader) F32(off int) float32 {
	return math.Float32frombits(r.U32(off))
}

func (r *Reader) F64(off int) float64 {
	b := r.field(off, 8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
