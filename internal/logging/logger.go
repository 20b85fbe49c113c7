// Package logging adapts zerolog to the runtime.Logger interface used by
// the game core, so the standalone server logs the same lines Nakama would.
package logging

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger implements runtime.Logger on top of a zerolog.Logger.
type Logger struct {
	zl     zerolog.Logger
	fields map[string]interface{}
}

var _ runtime.Logger = (*Logger)(nil)

// New wraps zl.
func New(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, fields: map[string]interface{}{}}
}

// Global wraps the process-wide zerolog logger.
func Global() *Logger {
	return New(log.Logger)
}

// Setup points the global zerolog logger at a console writer on w and sets
// the global level. Unknown levels fall back to info.
func Setup(w io.Writer, level string) zerolog.Level {
	if w == nil {
		w = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &Logger{zl: l.zl.With().Fields(fields).Logger(), fields: merged}
}

func (l *Logger) Fields() map[string]interface{} {
	return maps.Clone(l.fields)
}
