package terminal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session wraps one PTY-backed process with identity, bounded scrollback,
// an activity hook, and per-viewer output fan-out.
type Session struct {
	ID        string
	Name      string
	Command   string
	Cwd       string
	PID       int
	CreatedAt time.Time

	proc       *Process
	onActivity ActivityFunc
	logger     *zap.Logger

	mu           sync.Mutex
	history      history
	sinks        map[uint64]*Sink
	nextSinkID   uint64
	status       Status
	lastActivity time.Time
}

// newSession spawns the process and starts the reader goroutine. The reader
// runs for the lifetime of the session, whether or not anyone is attached;
// that is what makes history replay possible.
func newSession(name, command, cwd string, historyMaxBytes int, onActivity ActivityFunc, logger *zap.Logger) (*Session, error) {
	proc, err := startProcess(command, cwd)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         uuid.NewString(),
		Name:       name,
		Command:    command,
		Cwd:        cwd,
		PID:        proc.PID(),
		CreatedAt:  time.Now().UTC(),
		proc:       proc,
		onActivity: onActivity,
		logger:     logger,
		history:    newHistory(historyMaxBytes),
		sinks:      make(map[uint64]*Sink),
		status:     StatusRunning,
	}

	s.logger.Info("session started",
		zap.String("session_id", s.ID),
		zap.Int("pid", s.PID),
		zap.String("name", name),
		zap.String("cwd", cwd),
	)

	go s.readLoop()
	return s, nil
}

// readLoop drains the PTY master until end-of-stream. It runs on its own
// goroutine because the underlying read is a blocking syscall.
func (s *Session) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.proc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.publish(chunk)
			s.touch()
		}
		if err != nil {
			// EOF and read errors both mean the child is gone.
			break
		}
	}
	s.Close()
	s.logger.Info("session reader closed", zap.String("session_id", s.ID))
}

// publish appends to history and fans the chunk out to every attached
// viewer. Both happen under one lock so Attach's snapshot+subscribe is
// atomic with respect to the reader: a chunk lands either in the snapshot
// or in the live stream, never both, never neither.
func (s *Session) publish(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.append(chunk)
	for _, sink := range s.sinks {
		sink.push(chunk)
	}
}

// touch records activity and fires the callback. The callback is
// fire-and-forget: a panic inside it must not take down the reader.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()

	if s.onActivity == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("activity callback panicked",
				zap.String("session_id", s.ID),
				zap.Any("panic", r),
			)
		}
	}()
	s.onActivity(s.ID)
}

// Attach returns a point-in-time history snapshot plus a live sink for
// everything produced afterwards, and a cancel function releasing the sink.
// Attaching to a closed session yields the snapshot and an already-ended
// sink, so the viewer still gets the replay.
func (s *Session) Attach() (replay [][]byte, sink *Sink, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replay = s.history.snapshot()
	sink = newSink()

	if s.status == StatusClosed {
		sink.close()
		return replay, sink, func() {}
	}

	id := s.nextSinkID
	s.nextSinkID++
	s.sinks[id] = sink

	return replay, sink, func() {
		s.mu.Lock()
		if existing, ok := s.sinks[id]; ok {
			delete(s.sinks, id)
			existing.close()
		}
		s.mu.Unlock()
	}
}

// Write forwards input bytes to the PTY. No-op returning ErrClosed once the
// session is closed; a write failure on a live descriptor closes the
// session (the child hung up).
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	closed := s.status == StatusClosed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := s.proc.Write(data); err != nil {
		s.Close()
		return ErrClosed
	}
	s.touch()
	return nil
}

// Resize forwards a window-size change. Silently ignored when closed or on
// failure; the process may already be gone.
func (s *Session) Resize(cols, rows int) {
	s.mu.Lock()
	closed := s.status == StatusClosed
	s.mu.Unlock()
	if closed {
		return
	}
	if err := s.proc.Resize(cols, rows); err == nil {
		s.logger.Debug("session resized",
			zap.String("session_id", s.ID),
			zap.Int("cols", cols),
			zap.Int("rows", rows),
		)
	}
}

// Close terminates the process, ends every attached viewer's stream, and
// marks the session closed. Idempotent; termination is best-effort.
func (s *Session) Close() {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return
	}
	s.status = StatusClosed
	sinks := s.sinks
	s.sinks = make(map[uint64]*Sink)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.close()
	}
	s.proc.Terminate()
	s.logger.Info("session closed", zap.String("session_id", s.ID))
}

// MarkStale records that a liveness probe found the process dead. Advisory
// only: history stays attachable. Never resurrects a closed session.
func (s *Session) MarkStale() {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.status = StatusStale
	}
	s.mu.Unlock()
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Info snapshots the public descriptor.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:      s.ID,
		Name:    s.Name,
		Command: s.Command,
		PID:     s.PID,
		Cwd:     s.Cwd,
		Status:  s.status,
	}
	if !s.lastActivity.IsZero() {
		info.LastActivity = s.lastActivity.Format(time.RFC3339)
	}
	return info
}
