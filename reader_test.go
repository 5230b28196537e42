package amqpwire

import (
	"net"
	"reflect"
	"testing"
	"time"
)

// newPipeReader returns a Reader over one end of an in-memory pipe and the
// peer conn used to feed it bytes.
func newPipeReader(t *testing.T, opt ...Option) (*Reader, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	r, _ := Split(client, opt...)
	return r, server
}

// feed writes chunks to conn from a goroutine, one transport write each.
func feed(t *testing.T, conn net.Conn, chunks ...[]byte) {
	t.Helper()

	go func() {
		for _, chunk := range chunks {
			if _, err := conn.Write(chunk); err != nil {
				return
			}
		}
	}()
}

func TestReader_SingleFrame(t *testing.T) {
	r, peer := newPipeReader(t)
	raw := encodeTestFrame(t, 7, &Tune{ChannelMax: 4, FrameMax: 4096, Heartbeat: 30})
	feed(t, peer, raw)

	channel, frame, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if channel != 7 {
		t.Errorf("channel = %d, want 7", channel)
	}
	tune, ok := frame.(*Tune)
	if !ok {
		t.Fatalf("frame = %T, want *Tune", frame)
	}
	if tune.FrameMax != 4096 {
		t.Errorf("FrameMax = %d, want 4096", tune.FrameMax)
	}
}

func TestReader_SplitDelivery(t *testing.T) {
	want := &StartOk{
		ClientProperties: Table{"product": "amqpwire"},
		Mechanism:        "PLAIN",
		Response:         "\x00guest\x00guest",
		Locale:           "en_US",
	}
	raw := encodeTestFrame(t, 0, want)

	// Deliver the frame across every possible two-chunk boundary, plus fully
	// byte-by-byte, and expect one correct frame each time.
	splits := make([][][]byte, 0, len(raw)+1)
	for cut := 1; cut < len(raw); cut++ {
		splits = append(splits, [][]byte{raw[:cut], raw[cut:]})
	}
	var single [][]byte
	for i := range raw {
		single = append(single, raw[i:i+1])
	}
	splits = append(splits, single)

	for _, chunks := range splits {
		r, peer := newPipeReader(t)
		feed(t, peer, chunks...)

		channel, frame, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("%d chunks: ReadFrame failed: %v", len(chunks), err)
		}
		if channel != 0 {
			t.Errorf("%d chunks: channel = %d, want 0", len(chunks), channel)
		}
		if !reflect.DeepEqual(frame, want) {
			t.Errorf("%d chunks: frame = %#v, want %#v", len(chunks), frame, want)
		}
	}
}

func TestReader_MultiFrameSingleRead(t *testing.T) {
	first := encodeTestFrame(t, 1, &OpenOk{})
	second := encodeTestFrame(t, 2, &Body{Data: []byte("trailing")})
	combined := append(append([]byte{}, first...), second...)

	r, peer := newPipeReader(t)
	feed(t, peer, combined)

	channel, frame, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("first ReadFrame failed: %v", err)
	}
	if channel != 1 {
		t.Errorf("first channel = %d, want 1", channel)
	}
	if _, ok := frame.(*OpenOk); !ok {
		t.Errorf("first frame = %T, want *OpenOk", frame)
	}

	// The second frame is already buffered; this call must not block on the
	// transport even though the peer sends nothing further.
	channel, frame, err = r.ReadFrame()
	if err != nil {
		t.Fatalf("second ReadFrame failed: %v", err)
	}
	if channel != 2 {
		t.Errorf("second channel = %d, want 2", channel)
	}
	body, ok := frame.(*Body)
	if !ok {
		t.Fatalf("second frame = %T, want *Body", frame)
	}
	if string(body.Data) != "trailing" {
		t.Errorf("body = %q, want %q", body.Data, "trailing")
	}
}

func TestReader_PeerShutdown(t *testing.T) {
	r, peer := newPipeReader(t)
	peer.Close()

	_, _, err := r.ReadFrame()
	if err != ErrPeerShutdown {
		t.Errorf("err = %v, want ErrPeerShutdown", err)
	}
}

func TestReader_ShutdownAfterCompleteFrames(t *testing.T) {
	raw := encodeTestFrame(t, 0, &Heartbeat{})

	r, peer := newPipeReader(t)
	go func() {
		peer.Write(raw)
		peer.Close()
	}()

	if _, _, err := r.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	// No partial frame pending, so end-of-stream is a graceful shutdown.
	if _, _, err := r.ReadFrame(); err != ErrPeerShutdown {
		t.Errorf("err = %v, want ErrPeerShutdown", err)
	}
}

func TestReader_ConnectionFailureMidFrame(t *testing.T) {
	raw := encodeTestFrame(t, 0, &Body{Data: []byte("truncated payload")})

	r, peer := newPipeReader(t)
	go func() {
		peer.Write(raw[:frameHeaderSize+3])
		peer.Close()
	}()

	_, _, err := r.ReadFrame()
	if err != ErrConnectionFailure {
		t.Errorf("err = %v, want ErrConnectionFailure", err)
	}
}

func TestReader_CorruptedEndMarker(t *testing.T) {
	raw := encodeTestFrame(t, 0, &CloseOk{})
	raw[len(raw)-1] ^= 0xFF

	r, peer := newPipeReader(t)
	feed(t, peer, raw)

	_, _, err := r.ReadFrame()
	if err != ErrCorruptedFrame {
		t.Fatalf("err = %v, want ErrCorruptedFrame", err)
	}

	// Corruption is unrecoverable: the Reader stays failed without touching
	// the transport again.
	_, _, err = r.ReadFrame()
	if err != ErrCorruptedFrame {
		t.Errorf("second err = %v, want ErrCorruptedFrame", err)
	}
}

func TestReader_FrameTooLarge(t *testing.T) {
	raw := encodeTestFrame(t, 0, &Body{Data: make([]byte, 256)})

	r, peer := newPipeReader(t, FrameMaxOption(64))
	feed(t, peer, raw)

	_, _, err := r.ReadFrame()
	if err != ErrFrameTooLarge {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReader_SmallReadChunks(t *testing.T) {
	// A chunk size smaller than the frame forces accumulation over many
	// transport reads even when the peer sends everything at once.
	raw := encodeTestFrame(t, 3, &Open{VirtualHost: "/production"})

	r, peer := newPipeReader(t, ReadChunkSizeOption(2))
	feed(t, peer, raw)

	channel, frame, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if channel != 3 {
		t.Errorf("channel = %d, want 3", channel)
	}
	open, ok := frame.(*Open)
	if !ok {
		t.Fatalf("frame = %T, want *Open", frame)
	}
	if open.VirtualHost != "/production" {
		t.Errorf("VirtualHost = %q, want %q", open.VirtualHost, "/production")
	}
}

func TestReader_ReadAfterClose(t *testing.T) {
	r, _ := newPipeReader(t)
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, _, err := r.ReadFrame(); err != ErrConnectionClosed {
		t.Errorf("err = %v, want ErrConnectionClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestReader_DoesNotBlockWithBufferedFrame(t *testing.T) {
	raw := encodeTestFrame(t, 0, &Heartbeat{})

	r, peer := newPipeReader(t)
	feed(t, peer, raw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, _, err := r.ReadFrame(); err != nil {
			t.Errorf("ReadFrame failed: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ReadFrame did not return within timeout")
	}
}
