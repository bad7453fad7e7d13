// Package logging builds the process logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go-engage/internal/logging/logkeys"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/stdlogfmt"
)

// New returns a logger writing to stderr. Only the "debug" level turns on
// debug output. When json is false the output is logfmt-style text.
func New(level string, json bool) log.Logger {
	debug := strings.EqualFold(level, "debug")
	if json {
		return NewJSON(os.Stderr, debug)
	}
	return stdlogfmt.New(stdlogfmt.WithDebugFlag(debug))
}

// jsonLogger writes one JSON object per line. The logkeys.Message pair
// becomes the record message.
type jsonLogger struct {
	l *slog.Logger
}

// NewJSON returns a log.Logger writing JSON lines to w.
func NewJSON(w io.Writer, debug bool) log.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return &jsonLogger{l: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

func (l *jsonLogger) Info(args ...interface{}) { l.log(slog.LevelInfo, args) }

func (l *jsonLogger) Debug(args ...interface{}) { l.log(slog.LevelDebug, args) }

func (l *jsonLogger) With(args ...interface{}) log.Logger {
	return &jsonLogger{l: l.l.With(args...)}
}

func (l *jsonLogger) log(level slog.Level, args []interface{}) {
	msg, rest := splitMessage(args)
	l.l.Log(context.Background(), level, msg, rest...)
}

// splitMessage removes the first logkeys.Message pair from args.
func splitMessage(args []interface{}) (string, []interface{}) {
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok && k == logkeys.Message {
			rest := make([]interface{}, 0, len(args)-2)
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return fmt.Sprint(args[i+1]), rest
		}
	}
	return "", args
}
