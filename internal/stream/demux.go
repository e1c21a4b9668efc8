// Package stream demultiplexes the raw output of a test-runner subprocess.
// The runner interleaves free-form log lines, framework status lines, and a
// JSON result document delimited by sentinel markers; each line is classified
// and dispatched to the appropriate handler in observation order.
package stream

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"sync/atomic"
)

const (
	// Markers bounding the JSON result document inside otherwise noisy
	// runner output. Located by substring search, never by line boundary.
	jsonStartMarker = "START_OF_TEST_JSON"
	jsonEndMarker   = "END_OF_TEST_JSON"

	// DebuggerReadySentinel is printed to stderr by the debug runner once
	// it is paused awaiting a debugger attach.
	DebuggerReadySentinel = "Fast Debugger"
)

// statusLinePattern is the complete grammar of a framework status line:
//
//	<STATUS>(<ExceptionClass>: <message>)?: <test-id>
//
// where STATUS is one of RUNNING, PASSED, FAILED, ERRORED, SKIPPED. The
// parenthesized failure detail is only present on FAILED/ERRORED lines.
var statusLinePattern = regexp.MustCompile(`^(RUNNING|PASSED|FAILED|ERRORED|SKIPPED)(?:\((.+)\))?: (.+)$`)

// Channel identifies which subprocess stream a demuxer consumes.
type Channel string

const (
	ChannelStdout Channel = "stdout"
	ChannelStderr Channel = "stderr"
)

// StatusLine is a parsed framework status line.
type StatusLine struct {
	Status         string
	FailureMessage string // "ExceptionClass: message", empty when absent
	TestID         string
}

// Handlers receives the demultiplexed events. Any handler may be nil.
type Handlers struct {
	// Status is called for every matched status line.
	Status func(StatusLine)
	// Results receives the JSON document extracted between the sentinel
	// markers. A returned error is remembered and surfaced by Consume;
	// it does not stop the demuxer from draining the stream.
	Results func(doc []byte) error
	// DebuggerReady fires at most once, on the first stderr line carrying
	// the debugger-ready sentinel.
	DebuggerReady func()
	// Line observes every raw line before classification, for diagnostics
	// capture on abnormal exits.
	Line func(line string)
}

// Logger interface for debug logging
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Demuxer consumes one subprocess channel. Each channel is strictly ordered
// internally; no cross-channel ordering is guaranteed or assumed.
type Demuxer struct {
	channel  Channel
	handlers Handlers
	logger   Logger

	buffering     bool
	jsonBuf       strings.Builder
	sentinelFired bool
	disposed      atomic.Bool
	resultErr     error
}

// NewDemuxer creates a demuxer for one channel.
func NewDemuxer(channel Channel, handlers Handlers, logger Logger) *Demuxer {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Demuxer{
		channel:  channel,
		handlers: handlers,
		logger:   logger,
	}
}

// Consume reads the stream to EOF, dispatching each complete line. A line is
// only dispatched once its terminator is observed. Returns the first error a
// Results handler reported, or the read error that ended the stream.
func (d *Demuxer) Consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	// The result document can be a single very long line.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		d.handleLine(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		d.logger.Error("Error reading %s: %v", d.channel, err)
		return err
	}
	return d.resultErr
}

// Dispose makes the demuxer silently drop all further output. Output racing
// a cancellation is tolerated, not an error.
func (d *Demuxer) Dispose() {
	d.disposed.Store(true)
}

func (d *Demuxer) handleLine(line string) {
	if d.disposed.Load() {
		return
	}

	if d.handlers.Line != nil {
		d.handlers.Line(line)
	}

	if d.channel == ChannelStderr && !d.sentinelFired && strings.HasPrefix(line, DebuggerReadySentinel) {
		d.sentinelFired = true
		if d.handlers.DebuggerReady != nil {
			d.handlers.DebuggerReady()
		}
		return
	}

	if d.buffering {
		d.continueJSON(line)
		return
	}

	if idx := strings.Index(line, jsonStartMarker); idx >= 0 {
		d.beginJSON(line[idx+len(jsonStartMarker):])
		return
	}

	if m := statusLinePattern.FindStringSubmatch(line); m != nil {
		if d.handlers.Status != nil {
			d.handlers.Status(StatusLine{Status: m[1], FailureMessage: m[2], TestID: m[3]})
		}
		return
	}

	// Incidental process chatter, e.g. coverage-tool banners.
	d.logger.Debug("Discarding unrecognized %s line: %s", d.channel, line)
}

// beginJSON starts extraction after a start marker. The runner emits the
// whole payload atomically in practice, but the document may still span
// lines, so the end marker is searched for rather than assumed.
func (d *Demuxer) beginJSON(rest string) {
	if end := strings.Index(rest, jsonEndMarker); end >= 0 {
		d.dispatchJSON(rest[:end])
		return
	}

	d.buffering = true
	d.jsonBuf.Reset()
	d.jsonBuf.WriteString(rest)
}

func (d *Demuxer) continueJSON(line string) {
	if end := strings.Index(line, jsonEndMarker); end >= 0 {
		d.jsonBuf.WriteString("\n")
		d.jsonBuf.WriteString(line[:end])
		d.buffering = false
		d.dispatchJSON(d.jsonBuf.String())
		d.jsonBuf.Reset()
		return
	}

	d.jsonBuf.WriteString("\n")
	d.jsonBuf.WriteString(line)
}

// dispatchJSON hands the enclosed {...} substring to the results handler.
// Missing braces mean the markers wrapped no document; the fragment is
// discarded as noise.
func (d *Demuxer) dispatchJSON(raw string) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last < first {
		d.logger.Debug("Discarding marker block without JSON object on %s", d.channel)
		return
	}

	if d.handlers.Results == nil {
		return
	}
	if err := d.handlers.Results([]byte(raw[first : last+1])); err != nil {
		d.logger.Error("Result batch failed: %v", err)
		if d.resultErr == nil {
			d.resultErr = err
		}
	}
}

type noopLogger struct{}

func (n *noopLogger) Debug(format string, args ...interface{}) {}
func (n *noopLogger) Error(format string, args ...interface{}) {}
