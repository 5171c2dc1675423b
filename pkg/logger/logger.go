// Package logger builds the logr.Logger used by the codefold commands.
//
// The CLI logger writes console encoded lines without timestamps to stderr.
// The JSON logger writes one JSON object per line and is meant for scripts.
package logger

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MaxVerbosity is the highest verbosity a zap level can express; larger
// values are treated as MaxVerbosity
const MaxVerbosity = 127

// VerbosityEnvVar overrides the verbosity from flags and configuration
const VerbosityEnvVar = "CODEFOLD_LOG_VERBOSITY"

// Config selects the log format and level
type Config struct {
	// Verbosity enables logr V-levels up to this value
	Verbosity int
	// JSON switches from console to JSON encoding
	JSON bool
	// Quiet suppresses everything below error level
	Quiet bool
	// Timestamps adds a timestamp to console lines
	Timestamps bool
}

// AddFlags registers the logging flags
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.Verbosity, "verbosity", "v", c.Verbosity, "number for the log level verbosity")
	fs.BoolVar(&c.JSON, "json", c.JSON, "write logs as JSON")
	fs.BoolVarP(&c.Quiet, "quiet", "q", c.Quiet, "only log errors")
	fs.BoolVar(&c.Timestamps, "timestamps", c.Timestamps, "add timestamps to console logs")
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
}

var cliEncoderConfig = zapcore.EncoderConfig{
	TimeKey:        "",
	LevelKey:       "level",
	NameKey:        "logger",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseColorLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
}

// New creates a logger for the given configuration
func New(c Config) (logr.Logger, error) {
	zapCfg, err := zapConfig(c)
	if err != nil {
		return logr.Logger{}, err
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(zapLog), nil
}

func zapConfig(c Config) (zap.Config, error) {
	cfg := zap.Config{
		Development:       false,
		Encoding:          "console",
		DisableStacktrace: true,
		DisableCaller:     true,
		EncoderConfig:     cliEncoderConfig,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if c.JSON {
		cfg.Encoding = "json"
		cfg.EncoderConfig = encoderConfig
	} else if c.Timestamps {
		cfg.EncoderConfig.TimeKey = "ts"
	}

	if v := os.Getenv(VerbosityEnvVar); len(v) != 0 {
		verbosity, err := strconv.Atoi(v)
		if err != nil {
			return zap.Config{}, fmt.Errorf("parse %s %q: %w", VerbosityEnvVar, v, err)
		}
		c.Verbosity = verbosity
	}
	if c.Verbosity < 0 {
		return zap.Config{}, fmt.Errorf("verbosity must not be negative, got %d", c.Verbosity)
	}
	if c.Verbosity > MaxVerbosity {
		c.Verbosity = MaxVerbosity
	}

	// logr V(n) maps to zap level -n
	level := zapcore.Level(int8(0 - c.Verbosity))
	if c.Quiet {
		level = zapcore.ErrorLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg, nil
}
