// Package terminal implements persistent, remotely attachable terminal
// sessions backed by a PTY (pseudo-terminal).
//
// Each session owns one shell process attached to the slave side of a PTY
// pair. A dedicated reader goroutine drains the master side for the whole
// lifetime of the session, independent of any viewer being attached: output
// is appended to a byte-capped history buffer and fanned out to every
// currently subscribed viewer sink. A newly attaching viewer replays the
// history snapshot and then receives live chunks, with an exactly-once
// handoff between the two.
//
// Architecture:
//   - Process: PTY allocation, child spawn, raw read/write/resize/terminate
//   - Session: identity, history, activity hook, per-viewer fan-out
//   - Sink: unbounded per-viewer queue; a slow viewer never blocks the reader
//   - Registry: thread-safe id -> session map used by the HTTP/WS layer
//
// Sessions transition running -> stale (backing process found dead by a
// liveness probe) and running/stale -> closed (explicit delete or EOF on the
// master). No transition leaves closed. Stale is advisory: history stays
// attachable, writes become no-ops.
package terminal
