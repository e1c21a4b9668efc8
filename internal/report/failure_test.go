package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/tree"
)

func TestFormatFailure_CollapsesMessageAndAppendsBacktrace(t *testing.T) {
	exc := &Exception{
		Class:   "RSpec::Expectations::ExpectationNotMetError",
		Message: "expected: 4\ngot: 5\n",
		Backtrace: []string{
			"./spec/square_spec.rb:4:in `block (2 levels) in <top (required)>'",
			"./spec/spec_helper.rb:10:in `run'",
		},
	}

	m := tree.NewManager("", nil)
	node := m.GetOrCreate("square_spec.rb[1:1]", nil)

	detail := FormatFailure(exc, node)
	require.NotNil(t, detail)

	assert.Contains(t, detail.Message, "RSpec::Expectations::ExpectationNotMetError:\n")
	assert.Contains(t, detail.Message, "expected: 4 got: 5")
	assert.NotContains(t, detail.Message, "expected: 4\n")
	assert.Contains(t, detail.Message, "Backtrace:\n./spec/square_spec.rb:4")

	assert.Equal(t, "spec/square_spec.rb", detail.File)
	assert.Equal(t, 3, detail.Line)
	assert.Equal(t, 0, detail.Column)
}

func TestFormatFailure_FallsBackToNodeLocation(t *testing.T) {
	exc := &Exception{Class: "RuntimeError", Message: "boom"}

	m := tree.NewManager("", nil)
	node := m.GetOrCreate("square_spec.rb[1:2]", nil)
	node.SetLocation("./spec/square_spec.rb", 6)

	detail := FormatFailure(exc, node)
	require.NotNil(t, detail)
	assert.Equal(t, "./spec/square_spec.rb", detail.File)
	assert.Equal(t, 6, detail.Line)
	assert.NotContains(t, detail.Message, "Backtrace:")
}

func TestFormatFailure_UnresolvedNodeClampsLine(t *testing.T) {
	exc := &Exception{Class: "RuntimeError", Message: "boom"}

	m := tree.NewManager("", nil)
	node := m.GetOrCreate("square_spec.rb[1:2]", nil)

	detail := FormatFailure(exc, node)
	require.NotNil(t, detail)
	assert.Equal(t, 0, detail.Line)
}
