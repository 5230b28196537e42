package amqpwire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Table is an AMQP field table. Supported value types are bool, int8, int32,
// int64, string (encoded as a long string), nested Table and nil (void).
type Table map[string]interface{}

// Wire primitive append helpers. All multi-byte integers are big-endian.

func (b *buffer) writeOctet(v byte) {
	b.data = append(b.data, v)
}

func (b *buffer) writeShort(v uint16) {
	b.data = append(b.data, byte(v>>8), byte(v))
}

func (b *buffer) writeLong(v uint32) {
	b.data = append(b.data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (b *buffer) writeLongLong(v uint64) {
	b.data = append(b.data,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// writeShortStr appends a length-prefixed short string (at most 255 bytes).
func (b *buffer) writeShortStr(s string) error {
	if len(s) > math.MaxUint8 {
		return errors.Errorf("short string exceeds 255 bytes: %d", len(s))
	}
	b.writeOctet(byte(len(s)))
	b.data = append(b.data, s...)
	return nil
}

// writeLongStr appends a string with a 32-bit length prefix.
func (b *buffer) writeLongStr(s string) {
	b.writeLong(uint32(len(s)))
	b.data = append(b.data, s...)
}

// writeTable appends a field table. The table's byte size is unknown until
// its pairs are encoded, so a zero placeholder is written first and patched
// in place afterwards.
func (b *buffer) writeTable(t Table) error {
	mark := b.len()
	b.writeLong(0)
	for key, value := range t {
		if err := b.writeShortStr(key); err != nil {
			return errors.Wrapf(err, "table key %q", key)
		}
		if err := b.writeFieldValue(value); err != nil {
			return errors.Wrapf(err, "table key %q", key)
		}
	}
	b.patchUint32(mark, uint32(b.len()-mark-4))
	return nil
}

func (b *buffer) writeFieldValue(value interface{}) error {
	switch v := value.(type) {
	case bool:
		b.writeOctet('t')
		if v {
			b.writeOctet(1)
		} else {
			b.writeOctet(0)
		}
	case int8:
		b.writeOctet('b')
		b.writeOctet(byte(v))
	case int32:
		b.writeOctet('I')
		b.writeLong(uint32(v))
	case int64:
		b.writeOctet('l')
		b.writeLongLong(uint64(v))
	case string:
		b.writeOctet('S')
		b.writeLongStr(v)
	case Table:
		b.writeOctet('F')
		return b.writeTable(v)
	case nil:
		b.writeOctet('V')
	default:
		return errors.Errorf("unsupported table value type %T", value)
	}
	return nil
}

// decoder reads wire primitives from a fully buffered frame payload. The
// first out-of-bounds or malformed read marks the decoder corrupted;
// subsequent reads return zero values, so call sites can decode a whole
// payload and check the error once.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) fail() {
	if d.err == nil {
		d.err = ErrCorruptedFrame
	}
}

func (d *decoder) octet() byte {
	if d.err != nil || d.pos+1 > len(d.buf) {
		d.fail()
		return 0
	}
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *decoder) short() uint16 {
	if d.err != nil || d.pos+2 > len(d.buf) {
		d.fail()
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) long() uint32 {
	if d.err != nil || d.pos+4 > len(d.buf) {
		d.fail()
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) longLong() uint64 {
	if d.err != nil || d.pos+8 > len(d.buf) {
		d.fail()
		return 0
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v
}

func (d *decoder) shortStr() string {
	n := int(d.octet())
	if d.err != nil || d.pos+n > len(d.buf) {
		d.fail()
		return ""
	}
	v := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return v
}

func (d *decoder) longStr() string {
	n := int(d.long())
	if d.err != nil || d.pos+n > len(d.buf) {
		d.fail()
		return ""
	}
	v := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return v
}

func (d *decoder) table() Table {
	n := int(d.long())
	if d.err != nil || d.pos+n > len(d.buf) {
		d.fail()
		return nil
	}
	end := d.pos + n
	t := Table{}
	for d.pos < end && d.err == nil {
		key := d.shortStr()
		t[key] = d.fieldValue()
	}
	if d.err == nil && d.pos != end {
		d.fail()
	}
	return t
}

func (d *decoder) fieldValue() interface{} {
	switch tag := d.octet(); tag {
	case 't':
		return d.octet() != 0
	case 'b':
		return int8(d.octet())
	case 'I':
		return int32(d.long())
	case 'l':
		return int64(d.longLong())
	case 'S':
		return d.longStr()
	case 'F':
		return d.table()
	case 'V':
		return nil
	default:
		d.fail()
		return nil
	}
}

// remaining returns a copy of the undecoded tail of the payload.
func (d *decoder) remaining() []byte {
	if d.err != nil {
		return nil
	}
	tail := append([]byte(nil), d.buf[d.pos:]...)
	d.pos = len(d.buf)
	return tail
}

// done reports the decoder's error, treating undecoded leftover bytes as
// corruption.
func (d *decoder) done() error {
	if d.err != nil {
		return d.err
	}
	if d.pos != len(d.buf) {
		return ErrCorruptedFrame
	}
	return nil
}
