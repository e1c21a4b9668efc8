package logger

import (
	"fmt"
	"sync"
)

// TestLogger collects adapter log output in memory so tests can assert on
// it without touching the .rubytest dotdir. It satisfies every Logger
// interface the packages declare.
type TestLogger struct {
	mu      sync.Mutex
	entries []testEntry
}

type testEntry struct {
	level   LogLevel
	message string
}

// NewTestLogger creates an empty in-memory logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func (l *TestLogger) record(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, testEntry{level: level, message: fmt.Sprintf(format, args...)})
}

func (l *TestLogger) Debug(format string, args ...interface{}) {
	l.record(DEBUG, format, args...)
}

func (l *TestLogger) Info(format string, args ...interface{}) {
	l.record(INFO, format, args...)
}

func (l *TestLogger) Error(format string, args ...interface{}) {
	l.record(ERROR, format, args...)
}

// Close is a no-op; there is no file behind the logger.
func (l *TestLogger) Close() error {
	return nil
}

// Messages returns the recorded messages at the given level, in order.
func (l *TestLogger) Messages(level LogLevel) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.message)
		}
	}
	return out
}
