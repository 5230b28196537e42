// Package amqpwire implements the transport framing layer of an AMQP 0-9-1
// client. It turns a raw byte-stream connection into a sequence of typed,
// channel-addressed frames, and turns outgoing frames into correctly
// length-prefixed bytes on the wire.
//
// A connection is split into a Reader and a Writer that own independent
// halves and share no mutable state, so one goroutine can read while another
// writes without locking. Operations on a single half are not reentrant: each
// half must be driven by at most one goroutine at a time.
package amqpwire

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"
)

// ErrConnectionClosed is returned when operating on a closed half.
var ErrConnectionClosed = errors.New("amqpwire: use of closed connection")

// Dial establishes a TCP connection to addr and splits it into a Reader and
// a Writer bound to its two halves. Dial cancellation and deadlines are taken
// from ctx (plus the optional DialTimeoutOption).
func Dial(ctx context.Context, addr string, opt ...Option) (*Reader, *Writer, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	d := net.Dialer{Timeout: opts.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "amqpwire: dial %s", addr)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	opts.logger.Info("connection established", "addr", conn.RemoteAddr())
	r, w := split(conn, opts)
	return r, w, nil
}

// Split builds a Reader/Writer pair over an already established connection.
// The two halves are independently usable; closing one shuts down only its
// direction when conn supports half-close (as *net.TCPConn does).
func Split(conn io.ReadWriteCloser, opt ...Option) (*Reader, *Writer) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return split(conn, opts)
}

func split(conn io.ReadWriteCloser, opts options) (*Reader, *Writer) {
	r := &Reader{
		conn:      conn,
		closer:    readCloser(conn),
		buf:       newBuffer(opts.bufferCapacity),
		chunkSize: opts.readChunkSize,
		frameMax:  opts.frameMax,
		logger:    opts.logger,
	}
	w := &Writer{
		conn:   conn,
		closer: writeCloser(conn),
		buf:    newBuffer(opts.bufferCapacity),
		logger: opts.logger,
	}
	return r, w
}

// readCloser returns the function that shuts down the inbound direction,
// preferring a TCP half-close so the peer's outbound half stays usable.
func readCloser(conn io.ReadWriteCloser) func() error {
	if hc, ok := conn.(interface{ CloseRead() error }); ok {
		return hc.CloseRead
	}
	return conn.Close
}

// writeCloser is the outbound counterpart of readCloser.
func writeCloser(conn io.ReadWriteCloser) func() error {
	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite
	}
	return conn.Close
}
