package amqpwire

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// End-of-stream conditions reported by ReadFrame.
var (
	// ErrPeerShutdown is returned when the peer closes the stream with no
	// partial frame pending. This is the expected outcome of an orderly
	// close, not a failure.
	ErrPeerShutdown = errors.New("amqpwire: peer shutdown")
	// ErrConnectionFailure is returned when the stream ends while a partial
	// frame is still buffered. Data has been lost; always fatal.
	ErrConnectionFailure = errors.New("amqpwire: connection failure")
)

// Reader owns the inbound half of a split connection. It accumulates bytes
// in a receive buffer that persists across calls, so a frame may arrive split
// across arbitrarily many transport reads.
//
// A Reader must be driven by at most one goroutine at a time.
type Reader struct {
	conn      io.Reader
	closer    func() error
	buf       *buffer
	chunkSize int
	frameMax  uint32
	logger    Logger

	closed atomic.Bool
	failed error
}

// ReadFrame returns the next frame and the channel it is addressed to.
//
// Buffered bytes are decoded before the transport is read again, so frames
// that arrived concatenated are returned one per call without further reads.
// Bytes belonging to a not-yet-complete frame are never discarded.
//
// On end-of-stream it returns ErrPeerShutdown if the receive buffer is empty
// and ErrConnectionFailure if a partial frame was pending. ErrCorruptedFrame
// and ErrFrameTooLarge are fatal: the Reader refuses further reads and the
// caller must close the connection.
func (r *Reader) ReadFrame() (uint16, Frame, error) {
	if r.closed.Load() {
		return 0, nil, ErrConnectionClosed
	}
	if r.failed != nil {
		return 0, nil, r.failed
	}

	for {
		if r.buf.len() > 0 {
			consumed, channel, frame, err := decodeFrame(r.buf.bytes(), r.frameMax)
			switch {
			case err == nil:
				r.buf.advance(consumed)
				return channel, frame, nil
			case err == errIncompleteFrame:
				// Need more bytes; fall through to the transport read.
			default:
				r.failed = err
				r.logger.Debug("frame decode failed", "error", err)
				return 0, nil, err
			}
		}

		n, err := r.buf.readFrom(r.conn, r.chunkSize)
		if n > 0 {
			r.logger.Debug("read from transport", "bytes", n)
			continue
		}
		switch {
		case err == nil:
			continue
		case err == io.EOF:
			if r.buf.len() == 0 {
				return 0, nil, ErrPeerShutdown
			}
			r.logger.Debug("stream ended mid-frame", "buffered", r.buf.len())
			return 0, nil, ErrConnectionFailure
		default:
			return 0, nil, errors.Wrap(err, "amqpwire: read")
		}
	}
}

// Close shuts down the inbound half. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.closer()
}
