package util

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKeyDisableLogger struct{}

// LogFromContext returns the request scoped logger stored in ctx or the global logger otherwise
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		if ShouldDisableLogger(ctx) {
			return l
		}
		l = &log.Logger
	}
	return l
}

// DisableLogger marks ctx so that LogFromContext keeps returning the disabled logger
func DisableLogger(ctx context.Context, shouldDisable bool) context.Context {
	return context.WithValue(ctx, ctxKeyDisableLogger{}, shouldDisable)
}

// ShouldDisableLogger reports whether logging was disabled for ctx
func ShouldDisableLogger(ctx context.Context) bool {
	s, ok := ctx.Value(ctxKeyDisableLogger{}).(bool)
	return ok && s
}

// ConfigureLogger sets the global log level and output format
func ConfigureLogger(level zerolog.Level, prettyPrintConsole bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)

	if prettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = "15:04:05"
		}))
	}
}
