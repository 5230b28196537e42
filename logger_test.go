package amqpwire

import (
	"log/slog"
	"testing"
)

func TestLogger_Interface(t *testing.T) {
	// Verify that *slog.Logger implements our Logger interface
	var _ Logger = slog.Default()
}

func TestDefaultLogger(t *testing.T) {
	logger := defaultLogger()

	if logger == nil {
		t.Fatal("defaultLogger returned nil")
	}

	// Verify it's the slog default
	if logger != slog.Default() {
		t.Error("defaultLogger did not return slog.Default()")
	}
}

// mockLogger for testing Logger interface
type mockLogger struct {
	debugCalled bool
	infoCalled  bool
	lastMsg     string
	lastArgs    []any
}

func (l *mockLogger) Debug(msg string, args ...any) {
	l.debugCalled = true
	l.lastMsg = msg
	l.lastArgs = args
}

func (l *mockLogger) Info(msg string, args ...any) {
	l.infoCalled = true
	l.lastMsg = msg
	l.lastArgs = args
}

func (l *mockLogger) Warn(msg string, args ...any) {}

func (l *mockLogger) Error(msg string, args ...any) {}

func TestLogger_UsedByReader(t *testing.T) {
	logger := &mockLogger{}

	raw := encodeTestFrame(t, 0, &CloseOk{})
	raw[len(raw)-1] ^= 0xFF

	conn := &fakeConn{}
	conn.Write(raw)

	r, _ := Split(conn, LoggerOption(logger))
	if _, _, err := r.ReadFrame(); err != ErrCorruptedFrame {
		t.Fatalf("err = %v, want ErrCorruptedFrame", err)
	}

	if !logger.debugCalled {
		t.Error("Reader did not log the decode failure")
	}
}
