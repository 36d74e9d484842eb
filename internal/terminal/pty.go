package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/creack/pty"
)

// readChunkSize is the maximum number of bytes pulled from the PTY master
// per read.
const readChunkSize = 4096

// Default terminal dimensions before the first resize frame arrives.
const (
	defaultCols = 80
	defaultRows = 24
)

// Process owns one PTY master descriptor and the shell child attached to the
// slave side. The child is the session leader of its own process group with
// the PTY as controlling terminal, so Terminate can signal the whole group.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// startProcess allocates a PTY pair and spawns the command line under
// /bin/bash -lc with its standard streams attached to the slave side.
// A failure here is fatal to session creation; no partial state escapes.
func startProcess(command, cwd string) (*Process, error) {
	cmd := exec.Command("/bin/bash", "-lc", command)
	cmd.Dir = cwd
	cmd.Env = terminalEnv(os.Environ())

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: defaultCols,
		Rows: defaultRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &Process{cmd: cmd, ptmx: ptmx}, nil
}

// terminalEnv appends default terminal variables unless already present.
func terminalEnv(env []string) []string {
	defaults := map[string]string{
		"TERM":      "xterm-256color",
		"COLORTERM": "truecolor",
	}
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i > 0 {
			delete(defaults, kv[:i])
		}
	}
	for k, v := range defaults {
		env = append(env, k+"="+v)
	}
	return env
}

// PID returns the child process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Read performs a blocking read of up to readChunkSize bytes from the PTY
// master. Any error (EOF included) means end-of-stream: the child exited or
// hung up.
func (p *Process) Read(buf []byte) (int, error) {
	return p.ptmx.Read(buf)
}

// Write performs a blocking write to the PTY master.
func (p *Process) Write(data []byte) error {
	_, err := p.ptmx.Write(data)
	return err
}

// Resize changes the PTY window size. Failures are non-fatal: the process
// may already have exited.
func (p *Process) Resize(cols, rows int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

// Terminate sends SIGTERM to the child's process group and closes the
// master descriptor. Idempotent and best-effort: all errors are swallowed.
func (p *Process) Terminate() {
	if pid := p.PID(); pid > 0 {
		// Negative pid signals the whole group the shell leads.
		syscall.Kill(-pid, syscall.SIGTERM)
	}
	p.ptmx.Close()
}

// Alive reports whether a process with the given pid exists. Used by the
// boundary layer's staleness sweep.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
