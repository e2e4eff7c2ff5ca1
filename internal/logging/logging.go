// Package logging configures logrus output for the daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"navstream/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Apply sets level, formatter and output on l. Output always goes to stdout,
// to a rotating file when cfg.File is set, and to every extra writer. The
// returned closer releases the file.
func Apply(l *logrus.Logger, cfg config.LogConfig, extra ...io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}

	writers := []io.Writer{os.Stdout}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,  // megabytes
			MaxBackups: cfg.MaxBackups, // number of backups
			MaxAge:     cfg.MaxAgeDays, // days
		}
		writers = append(writers, file)
		closer = file
	}
	for _, w := range extra {
		if w != nil {
			writers = append(writers, w)
		}
	}

	l.SetLevel(level)
	l.SetOutput(io.MultiWriter(writers...))
	return closer, nil
}

// New returns a fresh logger configured by Apply.
func New(cfg config.LogConfig, extra ...io.Writer) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	c, err := Apply(l, cfg, extra...)
	if err != nil {
		return nil, nil, err
	}
	return l, c, nil
}
