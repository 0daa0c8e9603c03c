package observability

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// PrintfLogger adapts zerolog to client libraries that log through a
// Printf(format, args...) method, such as the Kafka writer.
type PrintfLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewPrintfLogger creates a PrintfLogger that writes every message at level,
// tagged with the given component name.
func NewPrintfLogger(logger zerolog.Logger, component string, level zerolog.Level) *PrintfLogger {
	return &PrintfLogger{
		logger: logger.With().Str("component", component).Logger(),
		level:  level,
	}
}

// Printf formats and logs a message.
func (l *PrintfLogger) Printf(format string, args ...interface{}) {
	l.logger.WithLevel(l.level).Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
