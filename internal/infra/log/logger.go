package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger создаёт настроенный zerolog для указанного сервиса.
func NewLogger(appEnv, service string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, service)
}

func newLogger(w io.Writer, appEnv, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger().Level(level)
}
