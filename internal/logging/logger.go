package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. Components derive scoped loggers with For.
var L = clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})

// Setup configures L from a level name and a format (text, json or logfmt).
func Setup(w io.Writer, level, format string) error {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	l := clog.NewWithOptions(w, clog.Options{ReportTimestamp: true, Level: lvl})
	switch strings.ToLower(format) {
	case "", "text":
	case "json":
		l.SetFormatter(clog.JSONFormatter)
	case "logfmt":
		l.SetFormatter(clog.LogfmtFormatter)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	L = l
	return nil
}

// For returns a logger tagged with the component name.
func For(component string) *clog.Logger {
	return L.WithPrefix(component)
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...any) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...any) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...any) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...any) {
	L.Error(fmt.Sprintf(format, v...))
}
