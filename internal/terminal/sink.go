package terminal

import "sync"

// Sink is one viewer's consumption path off a session's reader. The queue
// is unbounded so publication never blocks the reader: a slow viewer buffers
// here instead of back-pressuring the session or other viewers.
type Sink struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	ready  chan struct{}
}

func newSink() *Sink {
	return &Sink{ready: make(chan struct{}, 1)}
}

// push enqueues a chunk and wakes a blocked Next. Called by the session
// reader; no-op after close.
func (s *Sink) push(chunk []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, chunk)
	s.mu.Unlock()
	s.wake()
}

// close marks the sink finished. Next drains remaining chunks and then
// reports end-of-stream. Idempotent.
func (s *Sink) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *Sink) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until a chunk is available or the sink is closed and drained.
// The second result is false once the stream has ended.
func (s *Sink) Next() ([]byte, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			chunk := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return chunk, true
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return nil, false
		}
		<-s.ready
	}
}
