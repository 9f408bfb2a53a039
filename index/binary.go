package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// Magic marks the start of a serialized index ("VSX1").
	Magic uint32 = 0x31585356

	// Version is the current binary format version.
	Version uint16 = 1

	// HeaderSize is the fixed size of the binary header in bytes.
	HeaderSize = 32
)

// ErrInvalidFormat is returned when a serialized index cannot be decoded.
var ErrInvalidFormat = errors.New("invalid index format")

// Header is the fixed-size prefix of every serialized index.
//
// Layout (little endian):
//
//	0  magic     uint32
//	4  version   uint16
//	6  kind      uint8
//	7  state     uint8
//	8  dimension uint32
//	12 count     uint32
//	16 reserved  [16]byte
type Header struct {
	Version   uint16
	Kind      Kind
	State     State
	Dimension uint32
	Count     uint32
}

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	buf[6] = byte(h.Kind)
	buf[7] = byte(h.State)
	binary.LittleEndian.PutUint32(buf[8:12], h.Dimension)
	binary.LittleEndian.PutUint32(buf[12:16], h.Count)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads and validates a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %v", ErrInvalidFormat, err)
	}

	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != Magic {
		return Header{}, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidFormat, magic)
	}

	h := Header{
		Version:   binary.LittleEndian.Uint16(buf[4:6]),
		Kind:      Kind(buf[6]),
		State:     State(buf[7]),
		Dimension: binary.LittleEndian.Uint32(buf[8:12]),
		Count:     binary.LittleEndian.Uint32(buf[12:16]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, h.Version)
	}
	if h.Dimension == 0 {
		return Header{}, fmt.Errorf("%w: zero dimension", ErrInvalidFormat)
	}

	return h, nil
}

// countingWriter tracks the number of bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Encoder writes little endian sections and remembers the first error.
type Encoder struct {
	cw  countingWriter
	err error
	buf [8]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{cw: countingWriter{w: w}}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.cw.Write(p)
}

// Header writes an index header.
func (e *Encoder) Header(h Header) {
	if e.err != nil {
		return
	}
	e.err = WriteHeader(&e.cw, h)
}

// Uint32 writes v.
func (e *Encoder) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

// Uint64 writes v.
func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

// Float32s writes the values without a length prefix.
func (e *Encoder) Float32s(vs []float32) {
	if e.err != nil || len(vs) == 0 {
		return
	}
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	e.write(buf)
}

// Uint32s writes a length-prefixed list.
func (e *Encoder) Uint32s(vs []uint32) {
	e.Uint32(uint32(len(vs)))
	if e.err != nil || len(vs) == 0 {
		return
	}
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	e.write(buf)
}

// Result returns the bytes written and the first error.
func (e *Encoder) Result() (int64, error) {
	return e.cw.n, e.err
}

// maxBlockBytes bounds a single decoded section.
const maxBlockBytes = 1 << 36

// readChunk is the allocation step used when the input size is unknown.
const readChunk = 1 << 16

// Decoder reads little endian sections and remembers the first error.
// Sections whose declared size exceeds the remaining input fail with
// ErrInvalidFormat before anything is allocated.
type Decoder struct {
	r         io.Reader
	remaining int64 // -1 when unknown
	err       error
	buf       [8]byte
}

// NewDecoder returns a Decoder reading from r. Readers reporting their
// unread length (bytes.Reader, bytes.Buffer) bound every section by it.
func NewDecoder(r io.Reader) *Decoder {
	if l, ok := r.(interface{ Len() int }); ok {
		return NewSizedDecoder(r, int64(l.Len()))
	}
	return &Decoder{r: r, remaining: -1}
}

// NewSizedDecoder returns a Decoder that reads at most size bytes from r.
func NewSizedDecoder(r io.Reader, size int64) *Decoder {
	return &Decoder{r: r, remaining: size}
}

func (d *Decoder) read(p []byte) {
	if d.err != nil {
		return
	}
	if !d.fits(uint64(len(p))) {
		return
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		return
	}
	if d.remaining >= 0 {
		d.remaining -= int64(len(p))
	}
}

// fits reports whether n more bytes can be read and records an error otherwise.
func (d *Decoder) fits(n uint64) bool {
	if n > maxBlockBytes {
		d.err = fmt.Errorf("%w: section of %d bytes too large", ErrInvalidFormat, n)
		return false
	}
	if d.remaining >= 0 && n > uint64(d.remaining) {
		d.err = fmt.Errorf("%w: section of %d bytes exceeds remaining %d", ErrInvalidFormat, n, d.remaining)
		return false
	}
	return true
}

// Uint32 reads a value.
func (d *Decoder) Uint32() uint32 {
	d.read(d.buf[:4])
	if d.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

// Uint64 reads a value.
func (d *Decoder) Uint64() uint64 {
	d.read(d.buf[:8])
	if d.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(d.buf[:8])
}

// Float32s reads n values.
func (d *Decoder) Float32s(n int) []float32 {
	if d.err != nil || n == 0 {
		return nil
	}
	if n < 0 {
		d.err = fmt.Errorf("%w: negative length %d", ErrInvalidFormat, n)
		return nil
	}
	return d.float32s(uint64(n))
}

// Matrix reads a rows x cols block of values. The size is computed without
// overflow and checked against the remaining input.
func (d *Decoder) Matrix(rows, cols int) []float32 {
	if d.err != nil || rows == 0 || cols == 0 {
		return nil
	}
	if rows < 0 || cols < 0 {
		d.err = fmt.Errorf("%w: negative block %dx%d", ErrInvalidFormat, rows, cols)
		return nil
	}

	r, c := uint64(rows), uint64(cols)
	if r > maxBlockBytes/4/c {
		d.err = fmt.Errorf("%w: block %dx%d too large", ErrInvalidFormat, rows, cols)
		return nil
	}
	return d.float32s(r * c)
}

func (d *Decoder) float32s(n uint64) []float32 {
	if n > maxBlockBytes/4 {
		d.err = fmt.Errorf("%w: %d values too large", ErrInvalidFormat, n)
		return nil
	}
	if !d.fits(4 * n) {
		return nil
	}

	// Grow in chunks when the input size is unknown so a bogus length
	// fails on EOF instead of allocating up front.
	step := n
	if d.remaining < 0 {
		step = min(n, readChunk)
	}

	out := make([]float32, 0, step)
	buf := make([]byte, 4*step)
	for left := n; left > 0; {
		k := min(left, step)
		d.read(buf[:4*k])
		if d.err != nil {
			return nil
		}
		for i := range k {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
		left -= k
	}
	return out
}

// Uint32s reads a length-prefixed list of at most limit entries.
func (d *Decoder) Uint32s(limit int) []uint32 {
	n := int(d.Uint32())
	if d.err != nil {
		return nil
	}
	if n > limit {
		d.err = fmt.Errorf("%w: list length %d exceeds %d", ErrInvalidFormat, n, limit)
		return nil
	}
	if n == 0 || !d.fits(4*uint64(n)) {
		return nil
	}
	buf := make([]byte, 4*n)
	d.read(buf)
	if d.err != nil {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out
}

// Fail records err unless an earlier error exists.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}
