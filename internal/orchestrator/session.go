// Package orchestrator ties the pieces of a test run together: it resolves
// the framework definition from configuration, owns the test tree and the
// status event bus for one workspace, and drives the framework subprocess,
// feeding its demultiplexed output into the tree and the reconciler.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/config"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/events"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/report"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/runner"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/stream"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/tree"
)

// Logger interface for logging
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// Session is one workspace's test-run state: a tree that persists across
// runs, a bus its subscribers stay attached to, and at most one active
// subprocess at a time.
type Session struct {
	cfg       config.Provider
	defn      runner.Definition
	workspace string
	logger    Logger

	tree       *tree.Manager
	bus        *events.Bus
	reconciler *report.Reconciler

	// eventMu funnels the two concurrently drained subprocess channels
	// into the single mutation path the tree and bus require. Handlers
	// never hold it across blocking work.
	eventMu     sync.Mutex
	resultsSeen bool

	mu      sync.Mutex
	process *runner.Process
}

// NewSession creates a session for the configured framework.
func NewSession(cfg config.Provider, workspace string, logger Logger) (*Session, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	defn, err := runner.ForFramework(cfg.Framework())
	if err != nil {
		return nil, err
	}

	t := tree.NewManager(cfg.GetRelativeTestDirectory(), logger)
	bus := events.NewBus()

	return &Session{
		cfg:        cfg,
		defn:       defn,
		workspace:  workspace,
		logger:     logger,
		tree:       t,
		bus:        bus,
		reconciler: report.NewReconciler(t, bus, logger),
	}, nil
}

// Tree returns the session's test tree.
func (s *Session) Tree() *tree.Manager {
	return s.tree
}

// Bus returns the session's status event bus.
func (s *Session) Bus() *events.Bus {
	return s.bus
}

// Framework returns the active framework definition.
func (s *Session) Framework() runner.Definition {
	return s.defn
}

// Run executes the given test ids (all tests when empty) and blocks until
// the subprocess exits and its output is fully processed. Cancelling the
// context kills the subprocess; a *runner.ExitError is returned for
// non-zero exits, carrying the captured output.
func (s *Session) Run(ctx context.Context, testIDs []string) error {
	command := s.defn.BuildCommand(s.cfg, testIDs)
	return s.run(ctx, command, nil)
}

// Debug executes the given test ids under the configured debugger command.
// onReady fires once, when the debugger announces it is listening.
func (s *Session) Debug(ctx context.Context, testIDs []string, onReady func()) error {
	command := s.defn.BuildDebugCommand(s.cfg, testIDs)
	return s.run(ctx, command, onReady)
}

func (s *Session) run(ctx context.Context, command []string, onReady func()) error {
	handlers := s.streamHandlers(onReady)

	env := s.defn.BuildEnv(s.cfg)
	proc := runner.NewProcess(command, env, s.workspace, handlers, s.logger)

	s.mu.Lock()
	if s.process != nil {
		s.mu.Unlock()
		return fmt.Errorf("a test run is already active")
	}
	s.process = proc
	s.mu.Unlock()

	s.eventMu.Lock()
	s.resultsSeen = false
	s.eventMu.Unlock()

	defer func() {
		s.mu.Lock()
		s.process = nil
		s.mu.Unlock()
	}()

	s.logger.Info("Running test command: %v", command)
	return proc.Run(ctx)
}

// Dispose kills the active subprocess, if any. Output racing the disposal
// is dropped.
func (s *Session) Dispose() {
	s.mu.Lock()
	proc := s.process
	s.mu.Unlock()
	if proc != nil {
		proc.Dispose()
	}
}

// streamHandlers builds the demultiplexer callbacks for one run. The same
// handlers serve both channels: test code is free to print to stderr, so a
// status line or result document can legitimately arrive on either.
func (s *Session) streamHandlers(onReady func()) stream.Handlers {
	return stream.Handlers{
		Status:        s.handleStatus,
		Results:       s.reconcileResults,
		DebuggerReady: onReady,
	}
}

// reconcileResults applies a result batch under the event lock.
func (s *Session) reconcileResults(doc []byte) error {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	if err := s.reconciler.Reconcile(doc); err != nil {
		return err
	}
	s.resultsSeen = true
	return nil
}

// ResultsReconciled reports whether the current or most recent run produced
// a result batch that was applied to the tree. A non-zero subprocess exit
// after a reconciled batch is the ordinary failing-suite signal, not a
// runner breakage.
func (s *Session) ResultsReconciled() bool {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	return s.resultsSeen
}

// handleStatus projects one framework status line onto the tree and the
// bus. An unknown node is created as a placeholder; the JSON batch that
// follows enriches it.
func (s *Session) handleStatus(line stream.StatusLine) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	id := s.tree.Normalize(line.TestID)
	node := s.tree.GetOrCreate(id, nil)

	ev := events.StatusEvent{
		Node:    node,
		Outcome: events.Outcome(line.Status),
	}
	if line.FailureMessage != "" {
		lineNo := node.Line
		if lineNo < 0 {
			lineNo = 0
		}
		ev.Failure = &events.FailureDetail{
			Message: line.FailureMessage,
			File:    node.File,
			Line:    lineNo,
		}
	}
	s.bus.Publish(ev)
}
