package amqpwire

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Offset of the payload-size field within an encoded frame header.
const frameSizeOffset = 3

// Writer owns the outbound half of a split connection plus a send buffer.
// Frames are staged in the buffer and flushed to the transport in a single
// write; sent bytes are discarded afterwards.
//
// A Writer must be driven by at most one goroutine at a time. After any
// error the half must be treated as unusable: a partial frame may already
// have reached the wire.
type Writer struct {
	conn   io.Writer
	closer func() error
	buf    *buffer
	logger Logger

	closed atomic.Bool
}

// Write serializes a handshake-phase value directly to the wire without
// frame wrapping and reports the number of bytes sent. It exists for the
// protocol header exchange that precedes framing.
func (w *Writer) Write(v Encodable) (int, error) {
	if w.closed.Load() {
		return 0, ErrConnectionClosed
	}
	if err := v.encodeWire(w.buf); err != nil {
		w.buf.reset()
		return 0, errors.Wrap(err, "amqpwire: encode")
	}
	return w.flush()
}

// WriteFrame encodes frame, addressed to channel, and sends it as one
// complete wire frame. The header is appended first with a zero payload-size
// placeholder; once the payload's encoded length is known it is patched into
// the already-appended header, the end marker is appended and the whole
// buffer is flushed. It reports the number of bytes sent.
func (w *Writer) WriteFrame(channel uint16, frame Frame) (int, error) {
	if w.closed.Load() {
		return 0, ErrConnectionClosed
	}

	mark := w.buf.len()
	header := FrameHeader{Type: frame.FrameType(), Channel: channel}
	header.encode(w.buf)

	payloadStart := w.buf.len()
	if err := frame.encodePayload(w.buf); err != nil {
		w.buf.reset()
		return 0, errors.Wrap(err, "amqpwire: encode frame")
	}

	w.buf.patchUint32(mark+frameSizeOffset, uint32(w.buf.len()-payloadStart))
	w.buf.writeOctet(frameEnd)
	return w.flush()
}

// Close flushes any buffered bytes, then shuts down the outbound half.
// Safe to call multiple times.
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	if _, err := w.flush(); err != nil {
		_ = w.closer()
		return err
	}
	return w.closer()
}

// flush writes the entire buffer to the transport and discards the sent
// bytes. There is no partial-success: a short or failed write leaves the
// half unusable.
func (w *Writer) flush() (int, error) {
	data := w.buf.bytes()
	if len(data) == 0 {
		return 0, nil
	}
	if _, err := w.conn.Write(data); err != nil {
		w.logger.Debug("flush failed", "bytes", len(data), "error", err)
		return 0, errors.Wrap(err, "amqpwire: flush")
	}
	n := len(data)
	w.buf.advance(n)
	return n, nil
}
