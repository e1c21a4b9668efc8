package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStatuses(t *testing.T, channel Channel, input string) []StatusLine {
	t.Helper()

	var lines []StatusLine
	d := NewDemuxer(channel, Handlers{
		Status: func(s StatusLine) { lines = append(lines, s) },
	}, nil)

	require.NoError(t, d.Consume(strings.NewReader(input)))
	return lines
}

func TestDemuxer_StatusLines(t *testing.T) {
	input := strings.Join([]string{
		"RUNNING: ./spec/square_spec.rb[1:1]",
		"PASSED: ./spec/square_spec.rb[1:1]",
		"FAILED(RuntimeError: kaboom): ./spec/square_spec.rb[1:2]",
		"SKIPPED: abs_test.rb[4]",
	}, "\n")

	lines := collectStatuses(t, ChannelStdout, input)
	require.Len(t, lines, 4)

	assert.Equal(t, StatusLine{Status: "RUNNING", TestID: "./spec/square_spec.rb[1:1]"}, lines[0])
	assert.Equal(t, StatusLine{Status: "PASSED", TestID: "./spec/square_spec.rb[1:1]"}, lines[1])
	assert.Equal(t, StatusLine{
		Status:         "FAILED",
		FailureMessage: "RuntimeError: kaboom",
		TestID:         "./spec/square_spec.rb[1:2]",
	}, lines[2])
	assert.Equal(t, StatusLine{Status: "SKIPPED", TestID: "abs_test.rb[4]"}, lines[3])
}

func TestDemuxer_DiscardsProcessChatter(t *testing.T) {
	input := strings.Join([]string{
		"Coverage report generated for RSpec",
		"PASSED: a_spec.rb[1:1]",
		"Randomized with seed 4321",
		"",
	}, "\n")

	lines := collectStatuses(t, ChannelStdout, input)
	require.Len(t, lines, 1)
	assert.Equal(t, "a_spec.rb[1:1]", lines[0].TestID)
}

func TestDemuxer_SingleLineJSON(t *testing.T) {
	var doc []byte
	d := NewDemuxer(ChannelStdout, Handlers{
		Results: func(b []byte) error { doc = b; return nil },
	}, nil)

	input := `START_OF_TEST_JSON{"examples":[]}END_OF_TEST_JSON`
	require.NoError(t, d.Consume(strings.NewReader(input)))
	assert.JSONEq(t, `{"examples":[]}`, string(doc))
}

func TestDemuxer_JSONEmbeddedInNoise(t *testing.T) {
	var doc []byte
	d := NewDemuxer(ChannelStdout, Handlers{
		Results: func(b []byte) error { doc = b; return nil },
	}, nil)

	input := `some noise START_OF_TEST_JSON {"version":"3.12"} END_OF_TEST_JSON trailing`
	require.NoError(t, d.Consume(strings.NewReader(input)))
	assert.JSONEq(t, `{"version":"3.12"}`, string(doc))
}

func TestDemuxer_JSONSpanningLines(t *testing.T) {
	var doc []byte
	d := NewDemuxer(ChannelStdout, Handlers{
		Results: func(b []byte) error { doc = b; return nil },
	}, nil)

	input := strings.Join([]string{
		"START_OF_TEST_JSON{",
		`  "examples": []`,
		"}END_OF_TEST_JSON",
		"PASSED: late_spec.rb[1:1]",
	}, "\n")

	require.NoError(t, d.Consume(strings.NewReader(input)))
	assert.JSONEq(t, `{"examples":[]}`, string(doc))
}

func TestDemuxer_MarkersWithoutObjectDiscarded(t *testing.T) {
	called := false
	d := NewDemuxer(ChannelStdout, Handlers{
		Results: func([]byte) error { called = true; return nil },
	}, nil)

	require.NoError(t, d.Consume(strings.NewReader("START_OF_TEST_JSON END_OF_TEST_JSON")))
	assert.False(t, called)
}

func TestDemuxer_ResultErrorSurfacedAfterDrain(t *testing.T) {
	batchErr := errors.New("bad batch")
	var statuses []StatusLine
	d := NewDemuxer(ChannelStdout, Handlers{
		Status:  func(s StatusLine) { statuses = append(statuses, s) },
		Results: func([]byte) error { return batchErr },
	}, nil)

	input := strings.Join([]string{
		`START_OF_TEST_JSON{"examples":[]}END_OF_TEST_JSON`,
		"PASSED: after_spec.rb[1:1]",
	}, "\n")

	err := d.Consume(strings.NewReader(input))
	assert.ErrorIs(t, err, batchErr)
	assert.Len(t, statuses, 1, "stream must keep draining after a batch error")
}

func TestDemuxer_DebuggerSentinelOneShot(t *testing.T) {
	fired := 0
	d := NewDemuxer(ChannelStderr, Handlers{
		DebuggerReady: func() { fired++ },
	}, nil)

	input := strings.Join([]string{
		"Fast Debugger (ruby-debug-ide 0.7.3) listens on 127.0.0.1:1234",
		"Fast Debugger (ruby-debug-ide 0.7.3) listens on 127.0.0.1:1234",
	}, "\n")

	require.NoError(t, d.Consume(strings.NewReader(input)))
	assert.Equal(t, 1, fired)
}

func TestDemuxer_SentinelIgnoredOnStdout(t *testing.T) {
	fired := 0
	d := NewDemuxer(ChannelStdout, Handlers{
		DebuggerReady: func() { fired++ },
	}, nil)

	require.NoError(t, d.Consume(strings.NewReader("Fast Debugger listens\n")))
	assert.Equal(t, 0, fired)
}

func TestDemuxer_DisposedDropsOutput(t *testing.T) {
	var statuses []StatusLine
	d := NewDemuxer(ChannelStdout, Handlers{
		Status: func(s StatusLine) { statuses = append(statuses, s) },
	}, nil)

	d.Dispose()
	require.NoError(t, d.Consume(strings.NewReader("PASSED: a_spec.rb[1:1]\n")))
	assert.Empty(t, statuses)
}

func TestDemuxer_LineObserverSeesEverything(t *testing.T) {
	var raw []string
	d := NewDemuxer(ChannelStderr, Handlers{
		Line: func(line string) { raw = append(raw, line) },
	}, nil)

	input := "warning: something\nFAILED(E: m): a_spec.rb[1]\n"
	require.NoError(t, d.Consume(strings.NewReader(input)))
	assert.Equal(t, []string{"warning: something", "FAILED(E: m): a_spec.rb[1]"}, raw)
}
