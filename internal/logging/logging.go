// Package logging constructs the structured logger shared by all
// clusterpilot components. Components receive a logr.Logger backed by
// zap; verbosity is expressed through the named levels below.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logr's V(). INFO is the default output
// level; DEBUG and TRACE are enabled by raising the configured level.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Options controls logger construction.
type Options struct {
	// Development enables console encoding and stacktraces on warnings.
	Development bool

	// Level is the maximum verbosity emitted (0=info, 1=debug, 2=trace).
	Level int
}

// NewLogger builds a zap-backed logr.Logger with the given options.
func NewLogger(opts Options) (logr.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	// logr verbosity maps to negative zap levels.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Level)) //nolint:gosec

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger returns a development logger suitable for tests. It
// panics on construction failure, which cannot happen with the fixed
// development config.
func NewTestLogger() logr.Logger {
	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return zapr.NewLogger(zl)
}
