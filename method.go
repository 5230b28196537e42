package amqpwire

// Connection class and method ids (AMQP 0-9-1 section 1.4).
const (
	classConnection uint16 = 10

	methodConnectionStart   uint16 = 10
	methodConnectionStartOk uint16 = 11
	methodConnectionTune    uint16 = 30
	methodConnectionTuneOk  uint16 = 31
	methodConnectionOpen    uint16 = 40
	methodConnectionOpenOk  uint16 = 41
	methodConnectionClose   uint16 = 50
	methodConnectionCloseOk uint16 = 51
)

// Start announces the server's protocol version and capabilities.
type Start struct {
	VersionMajor     byte
	VersionMinor     byte
	ServerProperties Table
	Mechanisms       string
	Locales          string
}

func (*Start) FrameType() byte { return frameTypeMethod }

func (f *Start) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionStart)
	b.writeOctet(f.VersionMajor)
	b.writeOctet(f.VersionMinor)
	if err := b.writeTable(f.ServerProperties); err != nil {
		return err
	}
	b.writeLongStr(f.Mechanisms)
	b.writeLongStr(f.Locales)
	return nil
}

// StartOk selects a security mechanism and carries the client's properties.
type StartOk struct {
	ClientProperties Table
	Mechanism        string
	Response         string
	Locale           string
}

func (*StartOk) FrameType() byte { return frameTypeMethod }

func (f *StartOk) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionStartOk)
	if err := b.writeTable(f.ClientProperties); err != nil {
		return err
	}
	if err := b.writeShortStr(f.Mechanism); err != nil {
		return err
	}
	b.writeLongStr(f.Response)
	return b.writeShortStr(f.Locale)
}

// Tune proposes the server's connection limits.
type Tune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*Tune) FrameType() byte { return frameTypeMethod }

func (f *Tune) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionTune)
	b.writeShort(f.ChannelMax)
	b.writeLong(f.FrameMax)
	b.writeShort(f.Heartbeat)
	return nil
}

// TuneOk echoes the limits the client accepts.
type TuneOk struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*TuneOk) FrameType() byte { return frameTypeMethod }

func (f *TuneOk) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionTuneOk)
	b.writeShort(f.ChannelMax)
	b.writeLong(f.FrameMax)
	b.writeShort(f.Heartbeat)
	return nil
}

// Open requests access to a virtual host.
type Open struct {
	VirtualHost string
	// Capabilities and Insist are reserved in 0-9-1 but still occupy wire
	// space, so they are carried through.
	Capabilities string
	Insist       bool
}

func (*Open) FrameType() byte { return frameTypeMethod }

func (f *Open) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionOpen)
	if err := b.writeShortStr(f.VirtualHost); err != nil {
		return err
	}
	if err := b.writeShortStr(f.Capabilities); err != nil {
		return err
	}
	if f.Insist {
		b.writeOctet(1)
	} else {
		b.writeOctet(0)
	}
	return nil
}

// OpenOk confirms the virtual host is open.
type OpenOk struct {
	KnownHosts string
}

func (*OpenOk) FrameType() byte { return frameTypeMethod }

func (f *OpenOk) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionOpenOk)
	return b.writeShortStr(f.KnownHosts)
}

// Close begins the close handshake, from either peer.
type Close struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (*Close) FrameType() byte { return frameTypeMethod }

func (f *Close) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionClose)
	b.writeShort(f.ReplyCode)
	if err := b.writeShortStr(f.ReplyText); err != nil {
		return err
	}
	b.writeShort(f.ClassID)
	b.writeShort(f.MethodID)
	return nil
}

// CloseOk confirms a Close.
type CloseOk struct{}

func (*CloseOk) FrameType() byte { return frameTypeMethod }

func (*CloseOk) encodePayload(b *buffer) error {
	b.writeShort(classConnection)
	b.writeShort(methodConnectionCloseOk)
	return nil
}

func decodeMethod(payload []byte) (Frame, error) {
	d := decoder{buf: payload}
	class := d.short()
	method := d.short()
	if d.err != nil {
		return nil, d.err
	}
	if class != classConnection {
		// Only the connection class is known to this layer; anything else
		// cannot be dispatched and is treated as corruption.
		return nil, ErrCorruptedFrame
	}

	var f Frame
	switch method {
	case methodConnectionStart:
		m := &Start{}
		m.VersionMajor = d.octet()
		m.VersionMinor = d.octet()
		m.ServerProperties = d.table()
		m.Mechanisms = d.longStr()
		m.Locales = d.longStr()
		f = m
	case methodConnectionStartOk:
		m := &StartOk{}
		m.ClientProperties = d.table()
		m.Mechanism = d.shortStr()
		m.Response = d.longStr()
		m.Locale = d.shortStr()
		f = m
	case methodConnectionTune:
		m := &Tune{}
		m.ChannelMax = d.short()
		m.FrameMax = d.long()
		m.Heartbeat = d.short()
		f = m
	case methodConnectionTuneOk:
		m := &TuneOk{}
		m.ChannelMax = d.short()
		m.FrameMax = d.long()
		m.Heartbeat = d.short()
		f = m
	case methodConnectionOpen:
		m := &Open{}
		m.VirtualHost = d.shortStr()
		m.Capabilities = d.shortStr()
		m.Insist = d.octet() != 0
		f = m
	case methodConnectionOpenOk:
		m := &OpenOk{}
		m.KnownHosts = d.shortStr()
		f = m
	case methodConnectionClose:
		m := &Close{}
		m.ReplyCode = d.short()
		m.ReplyText = d.shortStr()
		m.ClassID = d.short()
		m.MethodID = d.short()
		f = m
	case methodConnectionCloseOk:
		f = &CloseOk{}
	default:
		return nil, ErrCorruptedFrame
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return f, nil
}
