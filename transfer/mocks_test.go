package transfer

import (
	"bytes"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/swiftshare/protocol"
	"github.com/opd-ai/swiftshare/transport"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// recordingObserver collects finished transfers.
type recordingObserver struct {
	mu      sync.Mutex
	results []Result
	ch      chan Result
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ch: make(chan Result, 16)}
}

func (o *recordingObserver) TransferFinished(r Result) {
	o.mu.Lock()
	o.results = append(o.results, r)
	o.mu.Unlock()
	o.ch <- r
}

func (o *recordingObserver) wait(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-o.ch:
		return r
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for transfer result")
		return Result{}
	}
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GraceWindow = testGraceWindow
	cfg.AcceptWait = 10 * time.Millisecond
	cfg.DrainTimeout = 500 * time.Millisecond
	cfg.DialTimeout = time.Second
	cfg.Conn = transport.ConnOptions{NoDelay: true, IOTimeout: 2 * time.Second}
	return cfg
}

// writeRandomFile creates dir/name with size pseudo-random bytes.
func writeRandomFile(t *testing.T, dir, name string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(data)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

// dialReceiver opens a raw connection to a receiver under test.
func dialReceiver(t *testing.T, port uint16) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(testLoopback, strconv.Itoa(int(port))), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sendPreamble writes hello and metadata and returns the resume offset.
func sendPreamble(t *testing.T, conn net.Conn, meta protocol.FileMeta) uint64 {
	t.Helper()
	require.NoError(t, protocol.WriteHello(conn, protocol.ModeSend))
	require.NoError(t, protocol.WriteMeta(conn, meta))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testWaitTimeout)))
	offset, err := protocol.ReadOffset(conn)
	require.NoError(t, err)
	return offset
}

// waitClosed reports whether the peer closed conn within the wait timeout.
func waitClosed(conn net.Conn) bool {
	conn.SetReadDeadline(time.Now().Add(testWaitTimeout))
	_, err := conn.Read(make([]byte, 1))
	return err != nil && !transport.IsTimeout(err)
}

// fakeReceiver accepts a single connection and hands it to handle.
func fakeReceiver(t *testing.T, handle func(net.Conn)) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", net.JoinHostPort(testLoopback, "0"))
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// capture is what a fakeReceiver observed from a sender.
type capture struct {
	hello    protocol.Hello
	meta     protocol.FileMeta
	frames   int
	endSeen  bool
	data     bytes.Buffer
	err      error
	nameSeen string
}
