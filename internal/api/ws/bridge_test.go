package ws

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/infrastructure/monitoring"
	"github.com/swefoundry/backend/internal/terminal"
)

func newTestServer(t *testing.T) (*terminal.Registry, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := terminal.NewRegistry(1<<20, zap.NewNop())
	t.Cleanup(registry.CloseAll)

	bridge := NewBridge(registry, monitoring.NewMetrics(), zap.NewNop())
	router := gin.New()
	router.GET("/api/ws/:id", bridge.HandleAttach)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return registry, srv
}

func dialViewer(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// collector accumulates binary frames from a viewer connection until the
// connection closes, exposing a snapshot of everything seen so far.
type collector struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *collector) run(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.BinaryMessage {
			c.mu.Lock()
			c.buf.Write(data)
			c.mu.Unlock()
		}
	}
}

func (c *collector) snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestAttachUnknownSessionRejected(t *testing.T) {
	_, srv := newTestServer(t)

	conn := dialViewer(t, srv, "nope")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected close 1008, got %v", err)
}

func TestReplayThenLive(t *testing.T) {
	registry, srv := newTestServer(t)

	session, err := registry.Create("t", "cat", "", nil)
	require.NoError(t, err)

	// Produce output before any viewer attaches; cat echoes it back.
	require.NoError(t, session.Write([]byte("replay-marker\n")))
	require.Eventually(t, func() bool {
		replay, _, cancel := session.Attach()
		cancel()
		return strings.Contains(flatten(replay), "replay-marker")
	}, 5*time.Second, 20*time.Millisecond)

	conn := dialViewer(t, srv, session.ID)
	col := &collector{}
	go col.run(conn)

	require.Eventually(t, func() bool {
		return strings.Contains(col.snapshot(), "replay-marker")
	}, 5*time.Second, 20*time.Millisecond, "history not replayed to viewer")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("live-marker\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(col.snapshot(), "live-marker")
	}, 5*time.Second, 20*time.Millisecond, "live output not forwarded")
}

func TestTwoViewersBothReceiveEverything(t *testing.T) {
	registry, srv := newTestServer(t)

	session, err := registry.Create("t", "cat", "", nil)
	require.NoError(t, err)

	first := dialViewer(t, srv, session.ID)
	second := dialViewer(t, srv, session.ID)
	colA, colB := &collector{}, &collector{}
	go colA.run(first)
	go colB.run(second)

	for i := 0; i < 10; i++ {
		msg := fmt.Sprintf("chunk-%d\n", i)
		require.NoError(t, first.WriteMessage(websocket.BinaryMessage, []byte(msg)))
	}

	sawAll := func(col *collector) func() bool {
		return func() bool {
			out := col.snapshot()
			for i := 0; i < 10; i++ {
				if !strings.Contains(out, fmt.Sprintf("chunk-%d", i)) {
					return false
				}
			}
			return true
		}
	}
	require.Eventually(t, sawAll(colA), 5*time.Second, 20*time.Millisecond, "first viewer missed chunks")
	require.Eventually(t, sawAll(colB), 5*time.Second, 20*time.Millisecond, "second viewer missed chunks")
}

func TestResizeControlNotForwardedAsInput(t *testing.T) {
	registry, srv := newTestServer(t)

	session, err := registry.Create("t", "cat", "", nil)
	require.NoError(t, err)

	conn := dialViewer(t, srv, session.ID)
	col := &collector{}
	go col.run(conn)

	// A well-formed resize is a control frame: applied to the PTY and
	// never written to the process, so cat never echoes it.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("__RESIZE__ 120 40")))
	// A malformed one is treated as literal input.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("__RESIZE__ lol\n")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("after-resize\n")))

	require.Eventually(t, func() bool {
		return strings.Contains(col.snapshot(), "after-resize")
	}, 5*time.Second, 20*time.Millisecond)

	out := col.snapshot()
	assert.Contains(t, out, "__RESIZE__ lol", "malformed resize should reach the process as input")
	assert.NotContains(t, out, "__RESIZE__ 120 40", "valid resize must not reach the process")
}

func TestSessionCloseEndsViewerStream(t *testing.T) {
	registry, srv := newTestServer(t)

	session, err := registry.Create("t", "sleep 30", "", nil)
	require.NoError(t, err)

	conn := dialViewer(t, srv, session.ID)

	done := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				done <- err
				return
			}
		}
	}()

	require.NoError(t, registry.Delete(session.ID))

	select {
	case err := <-done:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure) ||
			websocket.IsUnexpectedCloseError(err), "expected stream to end, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer stream did not end after session close")
	}
}

func TestParseResize(t *testing.T) {
	cols, rows, ok := parseResize("__RESIZE__ 120 40")
	require.True(t, ok)
	assert.Equal(t, 120, cols)
	assert.Equal(t, 40, rows)

	for _, text := range []string{
		"__RESIZE__",
		"__RESIZE__ 120",
		"__RESIZE__ 120 40 9",
		"__RESIZE__ lol 40",
		"__RESIZE__ 120 lol",
		"__RESIZE__ -1 40",
		"__RESIZE__ 0 40",
		"resize 120 40",
	} {
		_, _, ok := parseResize(text)
		assert.False(t, ok, "text %q should not parse", text)
	}
}

func flatten(chunks [][]byte) string {
	var b bytes.Buffer
	for _, c := range chunks {
		b.Write(c)
	}
	return b.String()
}
