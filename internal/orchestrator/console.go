package orchestrator

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/events"
)

// Console projects status events onto a terminal. It is one subscriber
// among any number; the tree itself carries no presentation state.
type Console struct {
	out io.Writer

	startTime time.Time
	passed    int
	failed    int
	errored   int
	skipped   int
}

// NewConsole creates a console projection writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:       out,
		startTime: time.Now(),
	}
}

// Attach subscribes the console to the bus and returns the unsubscribe
// function.
func (c *Console) Attach(bus *events.Bus) func() {
	return bus.Subscribe(c.Handle)
}

// Handle renders one status event. Containers are silent; only leaf tests
// produce output and counts.
func (c *Console) Handle(ev events.StatusEvent) {
	if ev.Node == nil || ev.Node.CanResolveChildren {
		return
	}

	switch ev.Outcome {
	case events.OutcomeRunning:
		// Running tests are not printed; the next terminal outcome for
		// the same node follows shortly.
	case events.OutcomePassed:
		c.passed++
		fmt.Fprintf(c.out, "%s %s%s\n",
			color.GreenString("✓"), ev.Node.Label, formatDuration(ev.Duration))
	case events.OutcomeFailed:
		c.failed++
		fmt.Fprintf(c.out, "%s %s%s\n",
			color.RedString("✗"), ev.Node.Label, formatDuration(ev.Duration))
		c.printFailure(ev.Failure)
	case events.OutcomeErrored:
		c.errored++
		fmt.Fprintf(c.out, "%s %s%s\n",
			color.RedString("!"), ev.Node.Label, formatDuration(ev.Duration))
		c.printFailure(ev.Failure)
	case events.OutcomeSkipped:
		c.skipped++
		fmt.Fprintf(c.out, "%s %s\n",
			color.YellowString("-"), ev.Node.Label)
	}
}

func (c *Console) printFailure(f *events.FailureDetail) {
	if f == nil {
		return
	}
	for _, line := range strings.Split(f.Message, "\n") {
		fmt.Fprintf(c.out, "    %s\n", color.RedString("%s", line))
	}
	if f.File != "" {
		fmt.Fprintf(c.out, "    %s\n", color.CyanString("at %s:%d", f.File, f.Line+1))
	}
}

// PrintSummary writes the final counts and elapsed time.
func (c *Console) PrintSummary() {
	elapsed := time.Since(c.startTime).Round(10 * time.Millisecond)

	var parts []string
	if c.passed > 0 {
		parts = append(parts, color.GreenString("%d passed", c.passed))
	}
	if c.failed > 0 {
		parts = append(parts, color.RedString("%d failed", c.failed))
	}
	if c.errored > 0 {
		parts = append(parts, color.RedString("%d errored", c.errored))
	}
	if c.skipped > 0 {
		parts = append(parts, color.YellowString("%d skipped", c.skipped))
	}
	if len(parts) == 0 {
		parts = append(parts, "no tests")
	}

	fmt.Fprintf(c.out, "\n%s (%s)\n", strings.Join(parts, ", "), elapsed)
}

// Failed reports whether any test failed or errored.
func (c *Console) Failed() bool {
	return c.failed > 0 || c.errored > 0
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", d.Round(time.Millisecond))
}
