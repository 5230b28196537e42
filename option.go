package amqpwire

import "time"

// defaultFrameMax is the payload size cap applied when no FrameMaxOption is
// given. Frames declaring a larger payload are rejected rather than buffered.
const defaultFrameMax = 1024 * 1024

// options holds the configuration for a split connection.
type options struct {
	logger Logger

	bufferCapacity int           // initial capacity of each half's buffer
	readChunkSize  int           // bytes requested per transport read
	frameMax       uint32        // maximum accepted frame payload size
	dialTimeout    time.Duration // connect timeout for Open
}

// Option is a function that configures a split connection.
type Option func(*options)

// checkOptions fills in default values for unset options.
func checkOptions(opts *options) {
	if opts.bufferCapacity <= 0 {
		opts.bufferCapacity = defaultBufferCapacity
	}
	if opts.readChunkSize <= 0 {
		opts.readChunkSize = defaultReadChunkSize
	}
	if opts.frameMax == 0 {
		opts.frameMax = defaultFrameMax
	}
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// BufferCapacityOption returns an Option that sets the initial capacity of
// the send and receive buffers. Buffers still grow past it on demand.
func BufferCapacityOption(capacity int) Option {
	return func(o *options) {
		o.bufferCapacity = capacity
	}
}

// ReadChunkSizeOption returns an Option that sets how many bytes the Reader
// requests from the transport per read.
func ReadChunkSizeOption(size int) Option {
	return func(o *options) {
		o.readChunkSize = size
	}
}

// FrameMaxOption returns an Option that sets the maximum accepted frame
// payload size. A decoded header declaring a larger payload fails the
// connection with ErrFrameTooLarge.
func FrameMaxOption(size uint32) Option {
	return func(o *options) {
		o.frameMax = size
	}
}

// DialTimeoutOption returns an Option that bounds connection establishment
// in Open, in addition to any deadline on the context.
func DialTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}
