package observability

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// PrintfLogger adapts zerolog to the printf-style logger interfaces used by
// kafka-go (kafka.Logger) and golang-migrate (migrate.Logger).
type PrintfLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewPrintfLogger creates a PrintfLogger that writes every message at the
// given level, adding a "component" field.
func NewPrintfLogger(logger zerolog.Logger, component string, level zerolog.Level) *PrintfLogger {
	return &PrintfLogger{
		logger: logger.With().Str("component", component).Logger(),
		level:  level,
	}
}

// Printf logs a formatted message.
func (l *PrintfLogger) Printf(format string, args ...interface{}) {
	l.logger.WithLevel(l.level).Msg(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Verbose reports whether verbose messages should be emitted. Verbose output
// is on when the underlying logger is at debug level or lower.
func (l *PrintfLogger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
