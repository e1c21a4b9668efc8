package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/stream"
)

// maxCapturedLines bounds the diagnostics buffer kept for abnormal exits.
const maxCapturedLines = 200

// Logger interface for debug logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noopLogger struct{}

func (n *noopLogger) Debug(format string, args ...interface{}) {}
func (n *noopLogger) Info(format string, args ...interface{})  {}
func (n *noopLogger) Error(format string, args ...interface{}) {}

// ExitError is returned when the subprocess exits with a non-zero status.
// It carries the output observed up to that point so the caller can present
// actionable diagnostics (a missing gem, a load error) instead of a bare
// exit code.
type ExitError struct {
	Code   int
	Output []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("test command exited with status %d", e.Code)
}

// Diagnostics joins the captured output lines for display.
func (e *ExitError) Diagnostics() string {
	return strings.Join(e.Output, "\n")
}

// Process owns one test-runner subprocess. Both output channels are drained
// concurrently, each strictly ordered internally, through its own
// demultiplexer. The handle is exclusively owned: Dispose (or context
// cancellation) force-terminates the subprocess without waiting for a
// graceful shutdown.
type Process struct {
	command []string
	env     []string
	dir     string
	logger  Logger

	stdoutDemux *stream.Demuxer
	stderrDemux *stream.Demuxer

	mu       sync.Mutex
	captured []string
	cmd      *exec.Cmd
	disposed atomic.Bool
}

// NewProcess prepares a subprocess invocation. handlers receives the
// demultiplexed events from both channels.
func NewProcess(command []string, env []string, dir string, handlers stream.Handlers, logger Logger) *Process {
	if logger == nil {
		logger = &noopLogger{}
	}
	p := &Process{
		command: command,
		env:     env,
		dir:     dir,
		logger:  logger,
	}

	// Wrap the line observer so every raw line also lands in the
	// diagnostics buffer.
	observed := handlers.Line
	handlers.Line = func(line string) {
		p.capture(line)
		if observed != nil {
			observed(line)
		}
	}

	p.stdoutDemux = stream.NewDemuxer(stream.ChannelStdout, handlers, logger)
	p.stderrDemux = stream.NewDemuxer(stream.ChannelStderr, handlers, logger)
	return p
}

// Run starts the subprocess and blocks until both channels are drained and
// the process has exited. Cancelling the context kills the subprocess
// immediately; output racing the cancellation is dropped by the disposed
// demultiplexers.
func (p *Process) Run(ctx context.Context) error {
	if len(p.command) == 0 {
		return fmt.Errorf("empty test command")
	}

	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Dir = p.dir
	cmd.Env = append(os.Environ(), p.env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	p.logger.Debug("Starting test command: %v", p.command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start test command: %w", err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	// Kill on cancellation. released when Run returns.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			p.Dispose()
		case <-watchDone:
		}
	}()

	var g errgroup.Group
	g.Go(func() error { return p.stdoutDemux.Consume(stdout) })
	g.Go(func() error { return p.stderrDemux.Consume(stderr) })
	drainErr := g.Wait()

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			p.logger.Debug("Test command exited with status %d", exitErr.ExitCode())
			return &ExitError{Code: exitErr.ExitCode(), Output: p.CapturedOutput()}
		}
		return fmt.Errorf("test command failed: %w", waitErr)
	}

	// Reconciliation errors surface only after the streams are drained.
	return drainErr
}

// Dispose force-terminates the subprocess and silences both demultiplexers.
// Safe to call multiple times and from other goroutines.
func (p *Process) Dispose() {
	if !p.disposed.CompareAndSwap(false, true) {
		return
	}

	p.stdoutDemux.Dispose()
	p.stderrDemux.Dispose()

	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		p.logger.Debug("Killing test subprocess pid %d", cmd.Process.Pid)
		_ = cmd.Process.Kill()
	}
}

// CapturedOutput returns a copy of the diagnostics buffer.
func (p *Process) CapturedOutput() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.captured))
	copy(out, p.captured)
	return out
}

func (p *Process) capture(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captured = append(p.captured, line)
	if len(p.captured) > maxCapturedLines {
		p.captured = p.captured[len(p.captured)-maxCapturedLines:]
	}
}
