package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/config"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/logger"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/orchestrator"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/runner"
)

var (
	version = "0.0.1"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var workspace string

	rootCmd := &cobra.Command{
		Use:   "rubytest",
		Short: "Ruby test adapter core",
		Long: `rubytest runs RSpec and Minitest suites through their custom result
formatters, maintains a hierarchical test tree from the streamed output, and
prints live per-test status.

Configuration is read from .rubytest.yml in the workspace; a .env file is
loaded into the subprocess environment when present.

Examples:
  rubytest run                                # whole suite
  rubytest run spec/square_spec.rb[1:2]       # one example
  rubytest watch                              # rerun changed test files`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "project root containing the test suite")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	runCmd := &cobra.Command{
		Use:   "run [test ids...]",
		Short: "Run the suite, or only the given test ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(workspace, args)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the test directory and rerun changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchTests(workspace)
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds a session plus its cleanup.
func setup(workspace string) (*orchestrator.Session, *config.Config, *logger.FileLogger, error) {
	fileLogger, err := logger.NewFileLogger()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create debug logger: %w", err)
	}

	cfg, err := config.Load(workspace)
	if err != nil {
		_ = fileLogger.Close()
		return nil, nil, nil, err
	}

	session, err := orchestrator.NewSession(cfg, workspace, fileLogger)
	if err != nil {
		_ = fileLogger.Close()
		return nil, nil, nil, err
	}
	return session, cfg, fileLogger, nil
}

func runTests(workspace string, testIDs []string) error {
	session, _, fileLogger, err := setup(workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = fileLogger.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := orchestrator.NewConsole(os.Stdout)
	unsubscribe := console.Attach(session.Bus())
	defer unsubscribe()

	err = session.Run(ctx, testIDs)
	console.PrintSummary()

	if err != nil {
		if !suiteFailureExit(err, session.ResultsReconciled()) {
			reportRunError(err)
		}
		os.Exit(1)
	}
	if console.Failed() {
		os.Exit(1)
	}
	return nil
}

// suiteFailureExit reports whether err is the runner's ordinary non-zero
// exit for a red suite: a result batch was reconciled, so the per-test
// output already tells the story and replaying the captured subprocess
// output would drown it. The exit code still propagates.
func suiteFailureExit(err error, resultsReconciled bool) bool {
	var exitErr *runner.ExitError
	return errors.As(err, &exitErr) && resultsReconciled
}

func watchTests(workspace string) error {
	session, cfg, fileLogger, err := setup(workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = fileLogger.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial full run, then rerun only the files that change.
	runOnce(ctx, session, nil)

	watcher, err := orchestrator.NewWatcher(cfg.GetAbsoluteTestDirectory(), cfg.FilePatterns(), fileLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nWatching for changes. Press Ctrl-C to stop.")
	err = watcher.Watch(ctx, func(changed []string) {
		runOnce(ctx, session, relativeIDs(workspace, changed))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return nil
}

func runOnce(ctx context.Context, session *orchestrator.Session, testIDs []string) {
	console := orchestrator.NewConsole(os.Stdout)
	unsubscribe := console.Attach(session.Bus())
	defer unsubscribe()

	if err := session.Run(ctx, testIDs); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if !suiteFailureExit(err, session.ResultsReconciled()) {
			reportRunError(err)
		}
	}
	console.PrintSummary()
}

// relativeIDs converts changed absolute file paths into test ids relative
// to the workspace, which is what the framework command expects.
func relativeIDs(workspace string, files []string) []string {
	ids := make([]string, 0, len(files))
	for _, file := range files {
		if rel, err := filepath.Rel(workspace, file); err == nil && !strings.HasPrefix(rel, "..") {
			ids = append(ids, rel)
			continue
		}
		ids = append(ids, file)
	}
	return ids
}

func reportRunError(err error) {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "\n%v\n", exitErr)
		if diag := exitErr.Diagnostics(); diag != "" {
			fmt.Fprintf(os.Stderr, "%s\n", diag)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Test execution failed: %v\n", err)
}
