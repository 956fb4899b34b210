package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	once         sync.Once
)

type Options struct {
	FilePath string
	Level    string
	// Console switches stderr output to zerolog's human readable writer.
	Console bool
}

// InitLogging configures the global zerolog logger. Only the first call has effect.
func InitLogging(opts Options) {
	once.Do(func() {
		var stderr io.Writer = os.Stderr
		if opts.Console {
			stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}
		writers := []io.Writer{stderr}

		if opts.FilePath != "" {
			file, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
			if err != nil {
				// logger is not ready yet
				os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			} else {
				writers = append(writers, file)
			}
		}

		multi := zerolog.MultiLevelWriter(writers...)
		l := zerolog.New(multi).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
		globalLogger = l
		log.Logger = l
	})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || raw == "" {
		return zerolog.InfoLevel
	}
	return level
}

// WithLogger returns a context carrying a logger with the extra fields attached.
func WithLogger(ctx context.Context, fields map[string]any) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &globalLogger
	}
	return l
}

func DebugLog(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug().Msgf(msg, args...)
}

func InfoLog(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info().Msgf(msg, args...)
}

func WarnLog(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn().Msgf(msg, args...)
}

// ErrorLog logs at error level with err attached as a structured field.
func ErrorLog(ctx context.Context, err error, msg string, args ...any) {
	FromContext(ctx).Error().Err(err).Msgf(msg, args...)
}
