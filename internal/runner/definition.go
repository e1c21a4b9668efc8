// Package runner builds and owns the test-runner subprocess for the two
// supported Ruby frameworks. Definitions translate the configured base
// command into a concrete invocation; Process owns one subprocess per run
// and feeds its output through the stream demultiplexer.
package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/config"
)

// Definition describes how to invoke one test framework.
type Definition interface {
	// Name returns the framework name, matching config.Framework().
	Name() string

	// FileSuffix is the framework's test file suffix, e.g. "_spec.rb".
	FileSuffix() string

	// BuildCommand produces the argv for running the given test ids.
	// An empty id list runs the whole suite.
	BuildCommand(cfg config.Provider, testIDs []string) []string

	// BuildDebugCommand produces the argv for running under a debugger.
	BuildDebugCommand(cfg config.Provider, testIDs []string) []string

	// BuildEnv produces extra KEY=VALUE environment entries.
	BuildEnv(cfg config.Provider) []string
}

// ForFramework resolves the definition for a configured framework name.
func ForFramework(name string) (Definition, error) {
	switch name {
	case config.FrameworkRSpec:
		return &RSpecDefinition{}, nil
	case config.FrameworkMinitest:
		return &MinitestDefinition{}, nil
	default:
		return nil, fmt.Errorf("no test framework definition for %q", name)
	}
}

// RSpecDefinition drives RSpec. RSpec addresses tests with nested
// colon-delimited locations ("spec/a_spec.rb[1:2:1]") and accepts those ids
// directly as command arguments.
type RSpecDefinition struct{}

func (d *RSpecDefinition) Name() string {
	return config.FrameworkRSpec
}

func (d *RSpecDefinition) FileSuffix() string {
	return "_spec.rb"
}

func (d *RSpecDefinition) BuildCommand(cfg config.Provider, testIDs []string) []string {
	args := strings.Fields(cfg.TestCommand())
	args = append(args,
		"--require", cfg.FormatterPath(),
		"--format", "RubyTestFormatter",
		"--order", "defined",
	)
	if len(testIDs) == 0 {
		args = append(args, cfg.GetRelativeTestDirectory())
	}
	return append(args, testIDs...)
}

func (d *RSpecDefinition) BuildDebugCommand(cfg config.Provider, testIDs []string) []string {
	args := strings.Fields(cfg.DebugCommand())
	args = append(args,
		"--require", cfg.FormatterPath(),
		"--format", "RubyTestFormatter",
		"--order", "defined",
	)
	if len(testIDs) == 0 {
		args = append(args, cfg.GetRelativeTestDirectory())
	}
	return append(args, testIDs...)
}

func (d *RSpecDefinition) BuildEnv(cfg config.Provider) []string {
	return envSlice(cfg.Env())
}

// MinitestDefinition drives Minitest through a rake task. Minitest has no
// nested-context syntax; a test id carries the defining line number as a
// single bracketed integer ("test/abs_test.rb[4]").
type MinitestDefinition struct{}

func (d *MinitestDefinition) Name() string {
	return config.FrameworkMinitest
}

func (d *MinitestDefinition) FileSuffix() string {
	return "_test.rb"
}

func (d *MinitestDefinition) BuildCommand(cfg config.Provider, testIDs []string) []string {
	args := strings.Fields(cfg.TestCommand())
	args = append(args, "-R", cfg.FormatterPath(), "rubytest:run")
	return append(args, testIDs...)
}

func (d *MinitestDefinition) BuildDebugCommand(cfg config.Provider, testIDs []string) []string {
	args := strings.Fields(cfg.DebugCommand())
	args = append(args, "-R", cfg.FormatterPath(), "rubytest:run")
	return append(args, testIDs...)
}

func (d *MinitestDefinition) BuildEnv(cfg config.Provider) []string {
	env := []string{
		"TESTS_DIR=" + cfg.GetRelativeTestDirectory(),
		"TESTS_PATTERN=" + strings.Join(cfg.FilePatterns(), ","),
	}
	return append(env, envSlice(cfg.Env())...)
}

func envSlice(env map[string]string) []string {
	entries := make([]string, 0, len(env))
	for k, v := range env {
		entries = append(entries, k+"="+v)
	}
	sort.Strings(entries)
	return entries
}
