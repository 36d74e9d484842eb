package terminal

import "errors"

// Status describes the lifecycle state of a session.
type Status string

const (
	// StatusRunning means the backing process is believed alive.
	StatusRunning Status = "running"
	// StatusStale means a liveness probe found the backing process dead.
	// The session is still attachable for history replay.
	StatusStale Status = "stale"
	// StatusClosed means the session was deleted or its PTY reached EOF.
	StatusClosed Status = "closed"
)

var (
	// ErrNotFound is returned when a session id is unknown to the registry.
	ErrNotFound = errors.New("session not found")
	// ErrClosed is returned on writes to a closed session.
	ErrClosed = errors.New("session is closed")
)

// ActivityFunc is invoked with the session id whenever input or output
// activity occurs. It is best-effort: failures (including panics) never
// affect the session.
type ActivityFunc func(sessionID string)

// Info is the public descriptor of a session.
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Command      string `json:"command"`
	PID          int    `json:"pid"`
	Cwd          string `json:"cwd"`
	Status       Status `json:"status"`
	LastActivity string `json:"last_activity_at,omitempty"`
}
