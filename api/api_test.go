package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/swiftshare/journal"
	"github.com/opd-ai/swiftshare/protocol"
	"github.com/opd-ai/swiftshare/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type senderCall struct {
	path string
	ip   string
	port uint16
}

type fakeEngine struct {
	mu         sync.Mutex
	receiverOK bool
	senderOK   bool
	ports      []uint16
	sends      []senderCall
	cancelled  int
	snapshot   session.Snapshot
	entries    []journal.Entry
	listErr    error
	lastLimit  int
}

func (f *fakeEngine) StartReceiver(port uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ports = append(f.ports, port)
	return f.receiverOK
}

func (f *fakeEngine) StartSender(path, ip string, port uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, senderCall{path, ip, port})
	return f.senderOK
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

func (f *fakeEngine) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeEngine) setSnapshot(s session.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
}

func (f *fakeEngine) Transfers(_ context.Context, limit int) ([]journal.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, StatusResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp StatusResponse
	if w.Body.Len() > 0 && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestStartReceiver(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		engineOK   bool
		wantCode   int
		wantStatus protocol.Status
		wantCalls  int
	}{
		{name: "started", body: `{"port":8080}`, engineOK: true, wantCode: http.StatusOK, wantStatus: protocol.StatusOK, wantCalls: 1},
		{name: "bind_failure", body: `{"port":8080}`, engineOK: false, wantCode: http.StatusOK, wantStatus: protocol.StatusError, wantCalls: 1},
		{name: "missing_port", body: `{}`, wantCode: http.StatusBadRequest, wantStatus: protocol.StatusError},
		{name: "port_out_of_range", body: `{"port":70000}`, wantCode: http.StatusBadRequest, wantStatus: protocol.StatusError},
		{name: "malformed_json", body: `{"port":`, wantCode: http.StatusBadRequest, wantStatus: protocol.StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{receiverOK: tt.engineOK}
			w, resp := doJSON(t, NewRouter(eng, 0), http.MethodPost, "/receiver", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, eng.ports, tt.wantCalls)
		})
	}
}

func TestStartSender(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		engineOK   bool
		wantCode   int
		wantStatus protocol.Status
		wantCall   *senderCall
	}{
		{
			name:       "started",
			body:       `{"path":"/data/report.pdf","ip":"192.168.1.20","port":8080}`,
			engineOK:   true,
			wantCode:   http.StatusOK,
			wantStatus: protocol.StatusOK,
			wantCall:   &senderCall{"/data/report.pdf", "192.168.1.20", 8080},
		},
		{
			name:       "busy",
			body:       `{"path":"/data/report.pdf","ip":"10.0.0.1","port":1}`,
			wantCode:   http.StatusOK,
			wantStatus: protocol.StatusError,
			wantCall:   &senderCall{"/data/report.pdf", "10.0.0.1", 1},
		},
		{
			name:       "invalid_ip",
			body:       `{"path":"/data/report.pdf","ip":"not-an-ip","port":8080}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: protocol.StatusError,
		},
		{
			name:       "missing_path",
			body:       `{"ip":"10.0.0.1","port":8080}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: protocol.StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{senderOK: tt.engineOK}
			w, resp := doJSON(t, NewRouter(eng, 0), http.MethodPost, "/sender", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantCall == nil {
				assert.Empty(t, eng.sends)
				return
			}
			require.Len(t, eng.sends, 1)
			assert.Equal(t, *tt.wantCall, eng.sends[0])
		})
	}
}

func TestCancel(t *testing.T) {
	eng := &fakeEngine{}
	w, resp := doJSON(t, NewRouter(eng, 0), http.MethodPost, "/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, 1, eng.cancelled)
}

func TestProgress(t *testing.T) {
	eng := &fakeEngine{snapshot: session.Snapshot{
		Progress:         0.5,
		BytesTransferred: 512,
		TotalBytes:       1024,
		FileName:         "report.pdf",
		FileSize:         1024,
	}}

	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	w := httptest.NewRecorder()
	NewRouter(eng, 0).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 0.5, got["progress"])
	assert.Equal(t, "report.pdf", got["file_name"])
	assert.Equal(t, float64(512), got["bytes_transferred"])
	assert.Equal(t, float64(1024), got["total_bytes"])
}

func TestTransfers(t *testing.T) {
	entries := make([]journal.Entry, 3)
	for i := range entries {
		entries[i] = journal.Entry{ID: uuid.New(), FileName: fmt.Sprintf("f%d", i), Status: journal.StatusCompleted}
	}

	tests := []struct {
		name      string
		query     string
		listErr   error
		wantCode  int
		wantLen   int
		wantLimit int
	}{
		{name: "default_limit", query: "", wantCode: http.StatusOK, wantLen: 3, wantLimit: DefaultListLimit},
		{name: "explicit_limit", query: "?limit=2", wantCode: http.StatusOK, wantLen: 2, wantLimit: 2},
		{name: "bad_limit", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "negative_limit", query: "?limit=-1", wantCode: http.StatusBadRequest},
		{name: "store_error", query: "", listErr: errors.New("redis down"), wantCode: http.StatusInternalServerError, wantLimit: DefaultListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{entries: entries, listErr: tt.listErr}
			req := httptest.NewRequest(http.MethodGet, "/transfers"+tt.query, nil)
			w := httptest.NewRecorder()
			NewRouter(eng, 0).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantLimit, eng.lastLimit)
			if tt.wantCode != http.StatusOK {
				return
			}
			var got []journal.Entry
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, "f0", got[0].FileName)
		})
	}
}

func TestProgressStream(t *testing.T) {
	eng := &fakeEngine{snapshot: session.Snapshot{FileName: "a.bin", Progress: 0.25}}
	srv := httptest.NewServer(NewRouter(eng, 10*time.Millisecond))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first session.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "a.bin", first.FileName)

	eng.setSnapshot(session.Snapshot{FileName: "a.bin", Progress: 1})
	for {
		var next session.Snapshot
		require.NoError(t, conn.ReadJSON(&next))
		if next.Progress == 1 {
			break
		}
	}
}

func TestServerLifecycle(t *testing.T) {
	eng := &fakeEngine{snapshot: session.Snapshot{FileName: "x"}}
	s := NewServer(eng, 10*time.Millisecond)
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + s.Addr().String() + "/progress")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := "ws://" + s.Addr().String() + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-s.Done())

	// The stream handler ends with the base context and closes the socket.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ne net.Error
		assert.False(t, errors.As(err, &ne) && ne.Timeout(), "stream should close, not time out")
		break
	}
}
