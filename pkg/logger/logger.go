package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes how the client logger should behave.
type Config struct {
	Level       string
	Format      string
	OutputPaths []string
	Audit       AuditConfig
}

// AuditConfig controls the audit trail of submitted transactions. Each
// mined, reverted or failed transaction becomes one JSON line in Path.
type AuditConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

const (
	defaultAuditSizeMB  = 50
	defaultAuditBackups = 10
	defaultAuditAgeDays = 90
)

// sinks holds the active loggers together with the files they write to.
type sinks struct {
	base  *slog.Logger
	audit *slog.Logger
	files []io.Closer
}

var (
	mu      sync.RWMutex
	current *sinks
)

// Init configures the global logger instances. Calling it again replaces the
// previous loggers and closes their file outputs.
func Init(cfg Config) error {
	next, err := build(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	previous := current
	current = next
	mu.Unlock()
	if previous == nil {
		return nil
	}
	return closeFiles(previous.files)
}

func build(cfg Config) (*sinks, error) {
	s := &sinks{}
	var writers []io.Writer
	for _, target := range cfg.OutputPaths {
		switch strings.ToLower(strings.TrimSpace(target)) {
		case "", "stderr":
			writers = append(writers, os.Stderr)
		case "stdout":
			writers = append(writers, os.Stdout)
		default:
			file := &lumberjack.Logger{Filename: target}
			s.files = append(s.files, file)
			writers = append(writers, file)
		}
	}
	var out io.Writer = os.Stderr
	if len(writers) == 1 {
		out = writers[0]
	} else if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		s.base = slog.New(slog.NewJSONHandler(out, opts))
	} else {
		s.base = slog.New(slog.NewTextHandler(out, opts))
	}

	s.audit = s.base
	if cfg.Audit.Enabled {
		if strings.TrimSpace(cfg.Audit.Path) == "" {
			_ = closeFiles(s.files)
			return nil, errors.New("audit log enabled without a path")
		}
		trail := auditWriter(cfg.Audit)
		s.files = append(s.files, trail)
		s.audit = slog.New(slog.NewJSONHandler(trail, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return s, nil
}

// auditWriter returns a size rotated file for the audit trail. Rotated
// files keep a timestamp suffix and old ones are pruned by count and age.
func auditWriter(cfg AuditConfig) *lumberjack.Logger {
	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	if w.MaxSize <= 0 {
		w.MaxSize = defaultAuditSizeMB
	}
	if w.MaxBackups <= 0 {
		w.MaxBackups = defaultAuditBackups
	}
	if w.MaxAge <= 0 {
		w.MaxAge = defaultAuditAgeDays
	}
	return w
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func closeFiles(files []io.Closer) error {
	var err error
	for _, f := range files {
		err = errors.Join(err, f.Close())
	}
	return err
}

func active() *sinks {
	mu.RLock()
	s := current
	mu.RUnlock()
	if s != nil {
		return s
	}
	_ = Init(Config{})
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// L returns the structured logger instance.
func L() *slog.Logger { return active().base }

// Audit returns the audit logger, or L when no audit trail is configured.
func Audit() *slog.Logger { return active().audit }

// Named returns a child logger tagged with the provided component name.
func Named(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Sync flushes and closes file outputs. The loggers stay usable; a closed
// lumberjack file is reopened on the next write.
func Sync() error {
	mu.Lock()
	var files []io.Closer
	if current != nil {
		files = current.files
	}
	mu.Unlock()
	return closeFiles(files)
}
