package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/events"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/tree"
)

var (
	lineBreaks = regexp.MustCompile(`[\r\n]+`)

	// Ruby backtrace frames look like "./spec/a_spec.rb:8:in `block (2 levels)'".
	backtraceFrame = regexp.MustCompile(`^(.+?):(\d+)(?::in .*)?$`)
)

// FormatFailure builds the failure detail attached to a failed or errored
// status event. The exception message is collapsed onto one line; the
// backtrace, when present, is appended frame per line. The detail is anchored
// at the exception's own reported position when one can be read from the
// backtrace, otherwise at the test node's own start line, column 0.
func FormatFailure(exc *Exception, node *tree.TestNode) *events.FailureDetail {
	var b strings.Builder
	b.WriteString(exc.Class)
	b.WriteString(":\n")
	b.WriteString(lineBreaks.ReplaceAllString(exc.Message, " "))

	if len(exc.Backtrace) > 0 {
		b.WriteString("\n\nBacktrace:\n")
		for _, frame := range exc.Backtrace {
			b.WriteString(frame)
			b.WriteString("\n")
		}
	}

	file, line, ok := backtracePosition(exc.Backtrace)
	if !ok {
		file = node.File
		line = node.Line
		if line < 0 {
			line = 0
		}
	}

	return &events.FailureDetail{
		Message: b.String(),
		File:    file,
		Line:    line,
		Column:  0,
	}
}

// backtracePosition reads "file:line" from the topmost parseable frame,
// returning a zero-based line.
func backtracePosition(backtrace []string) (string, int, bool) {
	for _, frame := range backtrace {
		m := backtraceFrame.FindStringSubmatch(strings.TrimSpace(frame))
		if m == nil {
			continue
		}
		line, err := strconv.Atoi(m[2])
		if err != nil || line < 1 {
			continue
		}
		return strings.TrimPrefix(m[1], "./"), line - 1, true
	}
	return "", 0, false
}
