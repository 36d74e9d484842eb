package terminal

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fanoutSession builds a session around the publish/attach plumbing without
// a real process, for byte-exact assertions free of shell noise.
func fanoutSession(historyMaxBytes int) *Session {
	return &Session{
		ID:      "sess-test",
		logger:  zap.NewNop(),
		history: newHistory(historyMaxBytes),
		sinks:   make(map[uint64]*Sink),
		status:  StatusRunning,
	}
}

// drain collects n chunks from a sink, failing the test on early stream end.
func drain(t *testing.T, sink *Sink, n int) []byte {
	t.Helper()
	var out bytes.Buffer
	for i := 0; i < n; i++ {
		chunk, ok := sink.Next()
		require.True(t, ok, "stream ended after %d of %d chunks", i, n)
		out.Write(chunk)
	}
	return out.Bytes()
}

func TestReplayThenLiveHandoff(t *testing.T) {
	s := fanoutSession(0)

	var produced bytes.Buffer
	for i := 0; i < 5; i++ {
		chunk := []byte(fmt.Sprintf("early-%d;", i))
		s.publish(chunk)
		produced.Write(chunk)
	}

	replay, sink, cancel := s.Attach()
	defer cancel()

	for i := 0; i < 5; i++ {
		chunk := []byte(fmt.Sprintf("late-%d;", i))
		s.publish(chunk)
		produced.Write(chunk)
	}

	var observed bytes.Buffer
	observed.Write(bytes.Join(replay, nil))
	observed.Write(drain(t, sink, 5))

	// Concatenated replay+live equals production, in order, no dup, no gap.
	assert.Equal(t, produced.String(), observed.String())
}

func TestHandoffUnderConcurrentPublish(t *testing.T) {
	const chunks = 500

	s := fanoutSession(0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < chunks; i++ {
			s.publish([]byte(fmt.Sprintf("%06d;", i)))
		}
	}()

	// Attach mid-stream: every chunk must appear exactly once across
	// replay + live, in order.
	replay, sink, cancel := s.Attach()
	defer cancel()
	wg.Wait()

	var observed bytes.Buffer
	observed.Write(bytes.Join(replay, nil))
	live := chunks - len(replay)
	observed.Write(drain(t, sink, live))

	var want bytes.Buffer
	for i := 0; i < chunks; i++ {
		fmt.Fprintf(&want, "%06d;", i)
	}
	assert.Equal(t, want.String(), observed.String())
}

func TestTwoViewersIndependentDelivery(t *testing.T) {
	s := fanoutSession(0)

	_, fast, cancelFast := s.Attach()
	defer cancelFast()
	_, slow, cancelSlow := s.Attach()
	defer cancelSlow()

	var want bytes.Buffer
	for i := 0; i < 10; i++ {
		chunk := []byte(fmt.Sprintf("chunk-%d;", i))
		s.publish(chunk)
		want.Write(chunk)
	}

	// Fast viewer drains immediately; slow viewer drains afterwards. Both
	// see all ten chunks in order.
	assert.Equal(t, want.String(), string(drain(t, fast, 10)))
	assert.Equal(t, want.String(), string(drain(t, slow, 10)))
}

func TestDetachedViewerDoesNotAffectOthers(t *testing.T) {
	s := fanoutSession(0)

	_, gone, cancelGone := s.Attach()
	_, stays, cancelStays := s.Attach()
	defer cancelStays()

	cancelGone()
	_, ok := gone.Next()
	assert.False(t, ok)

	s.publish([]byte("after-detach"))
	assert.Equal(t, "after-detach", string(drain(t, stays, 1)))
}

func TestAttachAfterCloseReplaysHistory(t *testing.T) {
	s := fanoutSession(0)
	s.publish([]byte("kept"))

	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()

	replay, sink, cancel := s.Attach()
	defer cancel()

	assert.Equal(t, "kept", string(bytes.Join(replay, nil)))
	_, ok := sink.Next()
	assert.False(t, ok, "sink of a closed session must end immediately")
}

func TestMarkStaleDoesNotResurrectClosed(t *testing.T) {
	s := fanoutSession(0)

	s.MarkStale()
	assert.Equal(t, StatusStale, s.Status())

	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()

	s.MarkStale()
	assert.Equal(t, StatusClosed, s.Status())
}

// Lifecycle tests below exercise a real PTY-backed process.

func startLiveSession(t *testing.T, command string) *Session {
	t.Helper()
	s, err := newSession("test", command, t.TempDir(), 0, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := startLiveSession(t, "sleep 30")

	assert.Equal(t, StatusRunning, s.Status())
	assert.Greater(t, s.PID, 0)
	assert.True(t, Alive(s.PID))

	info := s.Info()
	assert.Equal(t, s.ID, info.ID)
	assert.Equal(t, "sleep 30", info.Command)

	s.Close()
	assert.Equal(t, StatusClosed, s.Status())

	// SIGTERM to the process group; the shell should be gone shortly.
	require.Eventually(t, func() bool { return !Alive(s.PID) },
		5*time.Second, 20*time.Millisecond)

	// Idempotent.
	s.Close()
	assert.Equal(t, StatusClosed, s.Status())
}

func TestCloseEndsAttachedViewer(t *testing.T) {
	s := startLiveSession(t, "sleep 30")

	_, sink, cancel := s.Attach()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for {
			if _, ok := sink.Next(); !ok {
				close(done)
				return
			}
		}
	}()

	s.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("viewer stream did not terminate after session close")
	}
}

func TestWriteAfterCloseIsNoOp(t *testing.T) {
	s := startLiveSession(t, "sleep 30")
	s.Close()

	assert.ErrorIs(t, s.Write([]byte("ignored")), ErrClosed)

	// Resize on a closed session is silently ignored.
	s.Resize(120, 40)
}

func TestSessionOutputReachesViewer(t *testing.T) {
	s := startLiveSession(t, "cat")

	_, sink, cancel := s.Attach()
	defer cancel()

	require.NoError(t, s.Write([]byte("marker-42\r")))

	deadline := time.After(5 * time.Second)
	var seen bytes.Buffer
	for !bytes.Contains(seen.Bytes(), []byte("marker-42")) {
		next := make(chan []byte, 1)
		go func() {
			chunk, ok := sink.Next()
			if ok {
				next <- chunk
			} else {
				close(next)
			}
		}()
		select {
		case chunk, ok := <-next:
			require.True(t, ok, "stream ended before marker was seen")
			seen.Write(chunk)
		case <-deadline:
			t.Fatalf("marker not observed; got %q", seen.String())
		}
	}
}

func TestActivityCallbackPanicDoesNotKillReader(t *testing.T) {
	calls := make(chan string, 16)
	cb := func(id string) {
		calls <- id
		panic("boom")
	}

	s, err := newSession("test", "echo activity", t.TempDir(), 0, cb, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	select {
	case id := <-calls:
		assert.Equal(t, s.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("activity callback never fired")
	}

	// Reader survives the panic and still reaches EOF cleanly.
	require.Eventually(t, func() bool { return s.Status() == StatusClosed },
		5*time.Second, 20*time.Millisecond)
}

func TestAliveOnBogusPID(t *testing.T) {
	assert.False(t, Alive(-1))
	assert.False(t, Alive(0))
}
