package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "ESPBLINK_LOG_LEVEL"
	EnvLogTimestamp = "ESPBLINK_LOG_TIMESTAMP"
	EnvLogNoColor   = "ESPBLINK_LOG_NOCOLOR"
	EnvLogBypass    = "ESPBLINK_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger configuration.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// Bypass skips console formatting and writes raw JSON lines.
	Bypass bool
	Out    io.Writer
	File   FileSink
}

// FileSink mirrors log output into a rotating file when Path is set.
type FileSink struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Option mutates the profile defaults before env overrides are applied.
type Option func(*Config)

// WithFileSink mirrors output into a rotating log file.
func WithFileSink(sink FileSink) Option {
	return func(cfg *Config) {
		cfg.File = sink
	}
}

// WithOutput replaces the console writer.
func WithOutput(w io.Writer) Option {
	return func(cfg *Config) {
		cfg.Out = w
	}
}

var (
	configureOnce sync.Once
	mu            sync.RWMutex
	root          = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

func ConfigureRuntime(opts ...Option) {
	Configure(ProfileRuntime, opts...)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile, opts ...Option) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		for _, opt := range opts {
			opt(&cfg)
		}
		applyEnvOverrides(&cfg)
		apply(cfg)
	})
}

// Logger returns the configured root logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func defaultConfig(profile Profile) Config {
	cfg := Config{Out: os.Stdout}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

func apply(cfg Config) {
	var out io.Writer = cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if !cfg.Bypass {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	if path := strings.TrimSpace(cfg.File.Path); path != "" {
		out = zerolog.MultiLevelWriter(out, rotatingFile(cfg.File))
	}

	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}

	mu.Lock()
	root = ctx.Logger()
	mu.Unlock()
}

func rotatingFile(sink FileSink) io.Writer {
	maxSize := sink.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := sink.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	return &lumberjack.Logger{
		Filename:   strings.TrimSpace(sink.Path),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     sink.MaxAgeDays,
		Compress:   true,
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogBypass)); ok {
		cfg.Bypass = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
