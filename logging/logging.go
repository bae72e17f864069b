// Package logging builds the slog loggers used across bulkload.
//
// Records are handled by a zap core so the output format and level are
// configured in one place. Printf adapts a *slog.Logger to the printf-style
// logger interfaces expected by the database driver and the worker pool.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidFormat indicates an unknown log format.
var ErrInvalidFormat = errors.New("invalid log format")

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New creates a logger writing to w at the given level and format.
// Level is one of debug, info, warn, error.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return slog.New(zapslog.NewHandler(core, zapslog.WithName("bulkload"))), nil
}

// Printf adapts a *slog.Logger to printf-style logger interfaces.
// Messages are logged at Level.
type Printf struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewPrintf returns a Printf logging at debug level.
func NewPrintf(logger *slog.Logger) *Printf {
	if logger == nil {
		logger = slog.Default()
	}
	return &Printf{Logger: logger, Level: slog.LevelDebug}
}

// Print logs its arguments formatted as fmt.Sprint does.
func (p *Printf) Print(v ...any) {
	p.log(fmt.Sprint(v...))
}

// Printf logs its arguments formatted as fmt.Sprintf does.
func (p *Printf) Printf(format string, v ...any) {
	p.log(fmt.Sprintf(format, v...))
}

// Println logs its arguments formatted as fmt.Sprintln does.
func (p *Printf) Println(v ...any) {
	p.log(fmt.Sprintln(v...))
}

func (p *Printf) log(msg string) {
	p.Logger.Log(context.Background(), p.Level, strings.TrimRight(msg, "\n"))
}
