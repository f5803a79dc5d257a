package core

import (
	"context"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: &[]logEntry{}}
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: append([]any(nil), args...)})
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.record("trace", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args) }

func (l *recordingLogger) WithContext(context.Context) glog.Logger { return l }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, entry := range *l.entries {
		if level == "" || entry.level == level {
			out = append(out, entry.msg)
		}
	}
	return out
}

type counterCall struct {
	name string
	tags map[string]string
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters []counterCall
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, counterCall{name: name, tags: tags})
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var (
	_ glog.Logger     = (*recordingLogger)(nil)
	_ MetricsRecorder = (*recordingMetrics)(nil)
)
