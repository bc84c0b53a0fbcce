package cli

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/sensorsync/internal/config"
)

// newLogger builds the process logger. Logs always go to stderr; when
// cfg.File is set they are also appended to a size-rotated file. The
// returned close function flushes and closes that file.
func newLogger(cfg config.LogConfig, verbose bool, stderr io.Writer) (*slog.Logger, func() error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	w := stderr
	closeFn := func() error { return nil }
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(stderr, rotator)
		closeFn = rotator.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), closeFn
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	return config.Load(config.Options{
		Path:    opts.Config,
		EnvFile: opts.EnvFile,
	})
}
