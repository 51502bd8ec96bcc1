package scenario

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Invocation is one process to start.
type Invocation struct {
	Path string
	Args []string
	// Env is the complete environment; nothing is inherited.
	Env     map[string]string
	Dir     string
	// Scratch is the writable root Dir lies within. Empty means Dir.
	Scratch string
	Timeout time.Duration
	// MaxOutputBytes bounds stdout and stderr together.
	MaxOutputBytes int
}

// Outcome is what happened to the process. Exactly one of ExitCode and
// Signal is set when the process ran.
type Outcome struct {
	ExitCode        *int
	Signal          *int
	TimedOut        bool
	Stdout          []byte
	Stderr          []byte
	StdoutTruncated bool
	StderrTruncated bool
	Duration        time.Duration
}

// ProcessRunner starts processes. Run returns an error only when the
// process could not be started or the parent context was cancelled; exit
// statuses, signals, and timeouts are reported in the Outcome.
type ProcessRunner interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

// ExecRunner is the os/exec implementation of ProcessRunner.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the
	// process group is killed.
	WaitDelay time.Duration
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: 2 * time.Second}
}

// Run starts the process in its own process group. On timeout the whole
// group receives SIGKILL so children spawned by the target die with it.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	runCtx := ctx
	cancel := func() {}
	if inv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = envList(inv.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = r.WaitDelay

	stdout, stderr := newCaptures(inv.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	outcome := Outcome{
		Duration:        time.Since(start),
		Stdout:          stdout.buf.Bytes(),
		Stderr:          stderr.buf.Bytes(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}

	if cmd.ProcessState == nil {
		return outcome, fmt.Errorf("failed to start %s: %w", inv.Path, err)
	}
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) && !errors.Is(err, context.DeadlineExceeded) {
			return outcome, fmt.Errorf("failed to run %s: %w", inv.Path, err)
		}
	}

	outcome.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		sig := int(status.Signal())
		outcome.Signal = &sig
	} else {
		code := cmd.ProcessState.ExitCode()
		outcome.ExitCode = &code
	}
	return outcome, nil
}

// SignalName returns the conventional name of a signal number, such as
// "SIGKILL", or "" when unknown.
func SignalName(sig int) string {
	return unix.SignalName(syscall.Signal(sig))
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}
