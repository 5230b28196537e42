package amqpwire

import "errors"

// Frame type tags and framing constants (AMQP 0-9-1 section 2.3.5).
//
// A frame on the wire is exactly:
//
//	type:1  channel:2(BE)  payload_size:4(BE)  payload:payload_size  end:1
//
// where end is always frameEnd.
const (
	frameTypeMethod    byte = 1
	frameTypeHeader    byte = 2
	frameTypeBody      byte = 3
	frameTypeHeartbeat byte = 8

	frameEnd        byte = 0xCE
	frameHeaderSize      = 7
)

// Errors reported by the frame codec.
var (
	// ErrCorruptedFrame is returned when buffered bytes violate the framing
	// shape. It is fatal: no resynchronization is attempted and the caller
	// must close the connection.
	ErrCorruptedFrame = errors.New("amqpwire: corrupted frame")
	// ErrFrameTooLarge is returned when a frame's declared payload size
	// exceeds the configured maximum. Fatal, handled like corruption.
	ErrFrameTooLarge = errors.New("amqpwire: frame exceeds maximum size")
)

// errIncompleteFrame signals that the buffer does not yet hold a full frame.
// It triggers another transport read and never escapes ReadFrame.
var errIncompleteFrame = errors.New("amqpwire: incomplete frame")

// FrameHeader is the fixed 7-byte prefix of every frame. It is a transient
// encoding artifact: the writer emits it with a zero PayloadSize placeholder
// and patches the real size in once the payload has been encoded.
type FrameHeader struct {
	Type        byte
	Channel     uint16
	PayloadSize uint32
}

func (h FrameHeader) encode(b *buffer) {
	b.writeOctet(h.Type)
	b.writeShort(h.Channel)
	b.writeLong(h.PayloadSize)
}

func decodeFrameHeader(buf []byte) (FrameHeader, error) {
	if len(buf) < frameHeaderSize {
		return FrameHeader{}, errIncompleteFrame
	}
	return FrameHeader{
		Type:        buf[0],
		Channel:     uint16(buf[1])<<8 | uint16(buf[2]),
		PayloadSize: uint32(buf[3])<<24 | uint32(buf[4])<<16 | uint32(buf[5])<<8 | uint32(buf[6]),
	}, nil
}

// Frame is one self-describing unit of the wire protocol, tagged with a type
// and addressed to a channel. The channel id is carried by the framing, not
// by the frame value itself.
type Frame interface {
	// FrameType returns the frame's type tag.
	FrameType() byte
	// encodePayload appends the frame payload to the send buffer.
	encodePayload(b *buffer) error
}

// Encodable is a handshake-phase value written to the wire without frame
// wrapping. It exists for the protocol header exchange that precedes framing.
type Encodable interface {
	encodeWire(b *buffer) error
}

// ProtocolHeader is the 8-byte preamble a client sends before any frame.
type ProtocolHeader struct {
	Major    byte
	Minor    byte
	Revision byte
}

// DefaultProtocolHeader returns the AMQP 0-9-1 protocol header.
func DefaultProtocolHeader() ProtocolHeader {
	return ProtocolHeader{Major: 0, Minor: 9, Revision: 1}
}

func (h ProtocolHeader) encodeWire(b *buffer) error {
	b.write([]byte{'A', 'M', 'Q', 'P', 0, h.Major, h.Minor, h.Revision})
	return nil
}

// Heartbeat is the empty-payload keepalive frame.
type Heartbeat struct{}

func (*Heartbeat) FrameType() byte { return frameTypeHeartbeat }

func (*Heartbeat) encodePayload(b *buffer) error { return nil }

// Body is a content body frame carrying an opaque chunk of message content.
type Body struct {
	Data []byte
}

func (*Body) FrameType() byte { return frameTypeBody }

func (f *Body) encodePayload(b *buffer) error {
	b.write(f.Data)
	return nil
}

// ContentHeader is a content header frame. The property list past the fixed
// fields is carried verbatim; interpreting it belongs to the layer above.
type ContentHeader struct {
	ClassID       uint16
	Weight        uint16
	BodySize      uint64
	PropertyFlags uint16
	Properties    []byte
}

func (*ContentHeader) FrameType() byte { return frameTypeHeader }

func (f *ContentHeader) encodePayload(b *buffer) error {
	b.writeShort(f.ClassID)
	b.writeShort(f.Weight)
	b.writeLongLong(f.BodySize)
	b.writeShort(f.PropertyFlags)
	b.write(f.Properties)
	return nil
}

func decodeContentHeader(payload []byte) (Frame, error) {
	d := decoder{buf: payload}
	f := &ContentHeader{}
	f.ClassID = d.short()
	f.Weight = d.short()
	f.BodySize = d.longLong()
	f.PropertyFlags = d.short()
	f.Properties = d.remaining()
	if err := d.done(); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeFrame attempts to decode one frame from the front of buf. On success
// it returns the total number of bytes consumed, the channel id and the
// decoded frame. errIncompleteFrame means more bytes are needed; any other
// error is fatal for the connection.
func decodeFrame(buf []byte, frameMax uint32) (int, uint16, Frame, error) {
	h, err := decodeFrameHeader(buf)
	if err != nil {
		return 0, 0, nil, err
	}

	switch h.Type {
	case frameTypeMethod, frameTypeHeader, frameTypeBody, frameTypeHeartbeat:
	default:
		return 0, 0, nil, ErrCorruptedFrame
	}
	if frameMax > 0 && h.PayloadSize > frameMax {
		return 0, 0, nil, ErrFrameTooLarge
	}

	total := frameHeaderSize + int(h.PayloadSize) + 1
	if len(buf) < total {
		return 0, 0, nil, errIncompleteFrame
	}
	if buf[total-1] != frameEnd {
		return 0, 0, nil, ErrCorruptedFrame
	}

	payload := buf[frameHeaderSize : total-1]
	var f Frame
	switch h.Type {
	case frameTypeMethod:
		f, err = decodeMethod(payload)
	case frameTypeHeader:
		f, err = decodeContentHeader(payload)
	case frameTypeBody:
		f = &Body{Data: append([]byte(nil), payload...)}
	case frameTypeHeartbeat:
		if len(payload) != 0 {
			return 0, 0, nil, ErrCorruptedFrame
		}
		f = &Heartbeat{}
	}
	if err != nil {
		return 0, 0, nil, err
	}

	return total, h.Channel, f, nil
}
