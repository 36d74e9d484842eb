// Package gitops runs read-only git queries against project checkouts.
package gitops

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// commandTimeout bounds a single git invocation; a repo on a hung network
// mount must not stall the request forever.
const commandTimeout = 15 * time.Second

// Result captures one git invocation.
type Result struct {
	OK     bool   `json:"ok"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   int    `json:"code"`
}

// Run executes `git -C dir args...` and captures the outcome. A non-zero
// exit is data, not an error; only a failure to launch is abnormal and is
// reported through Result.Stderr with Code -1.
func Run(ctx context.Context, dir string, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	switch {
	case err == nil:
		res.Code = 0
	case cmd.ProcessState != nil:
		res.Code = cmd.ProcessState.ExitCode()
	default:
		// git never started (missing binary, bad dir).
		res.Code = -1
		res.Stderr = err.Error()
	}
	res.OK = res.Code == 0
	return res
}
