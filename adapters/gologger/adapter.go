package gologger

import (
	"io"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// RootName is the logger name content sync components resolve under.
const RootName = "contentsync"

// LoggerName joins component onto RootName ("contentsync.worker").
func LoggerName(component string) string {
	component = strings.Trim(strings.TrimSpace(component), ".")
	if component == "" {
		return RootName
	}
	return RootName + "." + component
}

// NewConsole returns a go-logger root named RootName that writes key=value
// lines to w. Children come from GetLogger. Fatal logs without exiting so the
// CLI keeps control of its exit code.
func NewConsole(w io.Writer, level string) *glog.BaseLogger {
	return glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLoggerTypeConsole(),
		glog.WithLevel(normalizeLevel(level)),
		glog.WithName(RootName),
		glog.WithFatalBehavior(glog.FatalBehaviorLogOnly),
	)
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	default:
		return glog.Info
	}
}

// Named resolves the logger for component. A provider wins over a direct
// logger and the result is never nil.
func Named(component string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	resolvedProvider, resolved := glog.Resolve(LoggerName(component), provider, logger)
	return resolvedProvider, glog.Ensure(resolved)
}

// JobLoggers resolves component the same way as Named and returns the
// go-job views used by queue workers.
func JobLoggers(component string, provider glog.LoggerProvider, logger glog.Logger) (job.LoggerProvider, job.Logger) {
	resolvedProvider, resolved := Named(component, provider, logger)
	var jobProvider job.LoggerProvider
	if resolvedProvider != nil {
		jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	return jobProvider, job.GoLogger(resolved)
}
