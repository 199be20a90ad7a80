package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger создаёт настроенный zerolog. Дополнительные sinks получают каждую запись вместе со stdout.
func NewLogger(appEnv string, sinks ...io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	var out io.Writer = os.Stdout
	if len(sinks) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{os.Stdout}, sinks...)...)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}
