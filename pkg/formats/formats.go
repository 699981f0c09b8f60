// Package formats provides byte-level parsers for the binary 3D asset
// formats no library covers: FBX and RSM.
//
// Parsers never return partially filled results: any structural problem is
// reported as an error wrapping one of the package's sentinel errors.
package formats

import (
	"encoding/binary"
	"errors"
	"math"
)

// errShortRead is the sticky error a reader carries after running out of data.
var errShortRead = errors.New("unexpected end of data")

// reader is a little-endian cursor over an in-memory buffer. The first short
// read sets err; every later read returns zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = errShortRead
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *reader) vec3() [3]float32 {
	return [3]float32{r.f32(), r.f32(), r.f32()}
}

// fixedString reads a NUL-padded string of exactly n bytes.
func (r *reader) fixedString(n int) string {
	b := r.take(n)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// count reads an int32 element count and checks that count elements of
// elemSize bytes fit in the remaining data.
func (r *reader) count(elemSize int) int {
	n := r.i32()
	if r.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(elemSize) > int64(r.remaining()) {
		r.err = errShortRead
		return 0
	}
	return int(n)
}
