package amqpwire

import "io"

// Default buffer configuration values.
const (
	// defaultBufferCapacity is the initial capacity of each half's buffer.
	defaultBufferCapacity = 8192
	// defaultReadChunkSize is the maximum number of bytes appended per
	// transport read.
	defaultReadChunkSize = 4096
)

// buffer is a growable byte accumulator backing one half of a split
// connection. It supports appending, peeking without consuming, discarding
// from the front, and in-place overwrite of already-appended bytes, which the
// frame writer needs to patch the payload length into the header after the
// payload has been encoded.
//
// Consumed space is reclaimed lazily: advance only moves a cursor. The
// backing array is compacted once the consumed prefix outgrows both the
// initial capacity and the unconsumed remainder, so a long-lived connection
// does not accumulate unbounded slack.
type buffer struct {
	data    []byte
	off     int
	initCap int
}

func newBuffer(capacity int) *buffer {
	return &buffer{data: make([]byte, 0, capacity), initCap: capacity}
}

// len returns the number of unconsumed bytes.
func (b *buffer) len() int { return len(b.data) - b.off }

// bytes returns the unconsumed bytes without copying or consuming them.
// The returned slice is only valid until the next mutation of the buffer.
func (b *buffer) bytes() []byte { return b.data[b.off:] }

// advance discards n bytes from the front of the buffer. Remaining bytes are
// preserved for the next operation.
func (b *buffer) advance(n int) {
	b.off += n
	if b.off >= len(b.data) {
		b.data = b.data[:0]
		b.off = 0
		return
	}
	if b.off > b.initCap && b.off > b.len() {
		kept := copy(b.data, b.data[b.off:])
		b.data = b.data[:kept]
		b.off = 0
	}
}

// reset discards all buffered bytes.
func (b *buffer) reset() {
	b.data = b.data[:0]
	b.off = 0
}

// write appends p to the buffer.
func (b *buffer) write(p []byte) {
	b.data = append(b.data, p...)
}

// patchUint32 overwrites the four bytes at offset off within the unconsumed
// region with the big-endian encoding of v. The bytes must already have been
// appended.
func (b *buffer) patchUint32(off int, v uint32) {
	p := b.data[b.off+off:]
	p[0] = byte(v >> 24)
	p[1] = byte(v >> 16)
	p[2] = byte(v >> 8)
	p[3] = byte(v)
}

// readFrom performs a single Read from r, appending up to chunk bytes after
// the existing unconsumed bytes. It returns the number of bytes appended and
// the error reported by the read, if any.
func (b *buffer) readFrom(r io.Reader, chunk int) (int, error) {
	start := len(b.data)
	if cap(b.data)-start < chunk {
		b.data = append(b.data, make([]byte, chunk)...)
	} else {
		b.data = b.data[:start+chunk]
	}
	n, err := r.Read(b.data[start : start+chunk])
	b.data = b.data[:start+n]
	return n, err
}
