package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestZapConfigLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		level zapcore.Level
	}{
		{"default", Config{}, zapcore.InfoLevel},
		{"verbose", Config{Verbosity: 1}, zapcore.DebugLevel},
		{"very verbose", Config{Verbosity: 3}, zapcore.Level(-3)},
		{"quiet", Config{Verbosity: 2, Quiet: true}, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := zapConfig(tt.cfg)
			if err != nil {
				t.Fatalf("zapConfig failed: %v", err)
			}
			if got := cfg.Level.Level(); got != tt.level {
				t.Fatalf("Level = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestZapConfigEncoding(t *testing.T) {
	cfg, err := zapConfig(Config{})
	if err != nil {
		t.Fatalf("zapConfig failed: %v", err)
	}
	if cfg.Encoding != "console" || cfg.EncoderConfig.TimeKey != "" {
		t.Errorf("Unexpected console config: %s %q", cfg.Encoding, cfg.EncoderConfig.TimeKey)
	}

	cfg, err = zapConfig(Config{Timestamps: true})
	if err != nil {
		t.Fatalf("zapConfig failed: %v", err)
	}
	if cfg.EncoderConfig.TimeKey != "ts" {
		t.Errorf("Timestamps not enabled")
	}

	cfg, err = zapConfig(Config{JSON: true})
	if err != nil {
		t.Fatalf("zapConfig failed: %v", err)
	}
	if cfg.Encoding != "json" {
		t.Errorf("Encoding = %s, want json", cfg.Encoding)
	}
}

func TestZapConfigEnv(t *testing.T) {
	t.Setenv(VerbosityEnvVar, "2")
	cfg, err := zapConfig(Config{})
	if err != nil {
		t.Fatalf("zapConfig failed: %v", err)
	}
	if got := cfg.Level.Level(); got != zapcore.Level(-2) {
		t.Fatalf("Level = %v, want -2", got)
	}

	t.Setenv(VerbosityEnvVar, "loud")
	if _, err := zapConfig(Config{}); err == nil {
		t.Fatalf("Expected error for invalid %s", VerbosityEnvVar)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Verbosity: -1}); err == nil {
		t.Fatalf("Expected error for negative verbosity")
	}
	log, err := New(Config{Verbosity: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !log.V(1).Enabled() {
		t.Errorf("V(1) should be enabled at verbosity 1")
	}
	if log.V(2).Enabled() {
		t.Errorf("V(2) should be disabled at verbosity 1")
	}
}

func TestZapConfigVerbosityCap(t *testing.T) {
	for _, v := range []int{MaxVerbosity, 128, 200, 1000} {
		cfg, err := zapConfig(Config{Verbosity: v})
		if err != nil {
			t.Fatalf("zapConfig(%d) failed: %v", v, err)
		}
		if got := cfg.Level.Level(); got != zapcore.Level(-MaxVerbosity) {
			t.Fatalf("zapConfig(%d) level = %v, want %d", v, got, -MaxVerbosity)
		}
		if !cfg.Level.Enabled(zapcore.InfoLevel) {
			t.Fatalf("zapConfig(%d) disables info logging", v)
		}
	}
}
