// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// formd writes lifecycle and error events to one JSON log per day under
// `<dir>/YYYY-MM-DD.log`.  When running in an interactive TTY we tee the
// same events, colorized, to stdout.  Rotation, compression, and retention
// are handled by Lumberjack; no external log-rotate job is required.
//
// Library code (the form engine, actions, sessions) never builds its own
// logger.  It takes a *zap.SugaredLogger from its caller, or falls back to
// the request-scoped logger stored in a context, or finally to zap.S().
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: "info", Tee: runningInTTY()})
//	if err != nil { … }
//	ctx = logger.WithContext(ctx, log.With("session", id))
//	logger.FromContext(ctx).Infow("submit accepted", "form", formID)
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • An unknown level is a configuration error, not a silent fallback.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Dir   string // log directory, created when missing
	Level string // debug, info, warn, or error; "" means info
	Tee   bool   // also write colored lines to stdout
}

// Rotation limits for the file sink.
const (
	maxSizeMB  = 50
	maxBackups = 7
	maxAgeDays = 14
)

// New returns a *zap.SugaredLogger that writes JSON to Dir/YYYY-MM-DD.log and
// installs it as the process-wide default via zap.ReplaceGlobals.  Both
// cores share one AtomicLevel.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("logger: level %q: %w", opts.Level, err)
		}
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, time.Now().Format("2006-01-02")+".log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(sink), level)
	if opts.Tee {
		console := enc
		console.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stdout), level))
	}

	z := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.AddSync(sink))).Sugar()
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "dir", opts.Dir, "level", level.String(), "tee", opts.Tee)
	return z, nil
}

//
// Context helpers
//

type ctxKey struct{}

// WithContext returns a copy of ctx carrying log.
func WithContext(ctx context.Context, log *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored by WithContext, or zap.S() when ctx
// carries none.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}
	return zap.S()
}
