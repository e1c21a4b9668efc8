// Package config loads the adapter configuration: which framework to drive,
// where its tests live, and how to invoke it. Settings come from an optional
// .rubytest.yml in the workspace, with a .env overlay for the Ruby process
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the workspace root.
const ConfigFileName = ".rubytest.yml"

// Supported frameworks.
const (
	FrameworkRSpec    = "rspec"
	FrameworkMinitest = "minitest"
)

// Provider is the configuration surface the run session consumes.
type Provider interface {
	Framework() string
	GetRelativeTestDirectory() string
	GetAbsoluteTestDirectory() string
	TestCommand() string
	DebugCommand() string
	FilePatterns() []string
	FormatterPath() string
	Env() map[string]string
}

// FrameworkSettings configures one framework's invocation.
type FrameworkSettings struct {
	Command      string   `yaml:"command"`
	DebugCommand string   `yaml:"debug_command"`
	Directory    string   `yaml:"directory"`
	FilePatterns []string `yaml:"file_patterns"`

	// FormatterPath locates the external reporter the subprocess loads:
	// the custom RSpec formatter file, or the directory holding the
	// Minitest rake task.
	FormatterPath string `yaml:"formatter_path"`
}

// Config is the YAML-backed Provider implementation.
type Config struct {
	Selected string            `yaml:"framework"`
	RSpec    FrameworkSettings `yaml:"rspec"`
	Minitest FrameworkSettings `yaml:"minitest"`
	Extra    map[string]string `yaml:"env"`

	workspace string
}

// Defaults returns the configuration used when no file is present.
func Defaults(workspace string) *Config {
	return &Config{
		Selected: FrameworkRSpec,
		RSpec: FrameworkSettings{
			Command:       "bundle exec rspec",
			DebugCommand:  "rdebug-ide -- $(bundle show rspec-core)/exe/rspec",
			Directory:     "./spec/",
			FilePatterns:  []string{"*_spec.rb"},
			FormatterPath: "./.rubytest/rspec_formatter.rb",
		},
		Minitest: FrameworkSettings{
			Command:       "bundle exec rake",
			DebugCommand:  "rdebug-ide -- bundle exec rake",
			Directory:     "./test/",
			FilePatterns:  []string{"*_test.rb", "test_*.rb"},
			FormatterPath: "./.rubytest/minitest",
		},
		workspace: workspace,
	}
}

// Load reads the workspace configuration. A missing config file falls back
// to defaults; a present but malformed one is an error. The .env overlay is
// loaded into the process environment when present, matching how Rails
// projects keep their local settings.
func Load(workspace string) (*Config, error) {
	cfg := Defaults(workspace)

	path := filepath.Join(workspace, ConfigFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	// .env is optional; absence is not an error.
	_ = godotenv.Load(filepath.Join(workspace, ".env"))

	if cfg.Selected != FrameworkRSpec && cfg.Selected != FrameworkMinitest {
		return nil, fmt.Errorf("unknown framework %q (want %s or %s)",
			cfg.Selected, FrameworkRSpec, FrameworkMinitest)
	}

	cfg.workspace = workspace
	return cfg, nil
}

// Framework returns the configured framework name.
func (c *Config) Framework() string {
	return c.Selected
}

func (c *Config) active() FrameworkSettings {
	if c.Selected == FrameworkMinitest {
		return c.Minitest
	}
	return c.RSpec
}

// GetRelativeTestDirectory returns the test root as configured, e.g.
// "./spec/". Test identifiers are normalized against this prefix.
func (c *Config) GetRelativeTestDirectory() string {
	return c.active().Directory
}

// GetAbsoluteTestDirectory resolves the test root against the workspace.
func (c *Config) GetAbsoluteTestDirectory() string {
	abs, err := filepath.Abs(filepath.Join(c.workspace, c.active().Directory))
	if err != nil {
		return filepath.Join(c.workspace, c.active().Directory)
	}
	return abs
}

// TestCommand returns the base command used to run tests.
func (c *Config) TestCommand() string {
	return c.active().Command
}

// DebugCommand returns the command used to run tests under a debugger.
func (c *Config) DebugCommand() string {
	return c.active().DebugCommand
}

// FilePatterns returns the glob patterns identifying test files.
func (c *Config) FilePatterns() []string {
	return c.active().FilePatterns
}

// FormatterPath returns the external reporter location for the framework.
func (c *Config) FormatterPath() string {
	return c.active().FormatterPath
}

// Env returns extra environment entries for the subprocess.
func (c *Config) Env() map[string]string {
	return c.Extra
}

// Workspace returns the workspace root the config was loaded from.
func (c *Config) Workspace() string {
	return c.workspace
}
