// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"cloudnav/internal/config"
)

// New returns a JSON logrus logger writing to stdout and, when cfg.File is
// set, to a size-rotated file as well.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with a different console writer. Client commands log
// to stderr so their stdout stays clean.
func NewWithOutput(cfg config.LogConfig, console io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q is not supported: %w", cfg.Level, err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(level)
	log.SetOutput(output(cfg, console))
	return log, nil
}

func output(cfg config.LogConfig, stdout io.Writer) io.Writer {
	if cfg.File == "" {
		return stdout
	}
	return io.MultiWriter(stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
}
