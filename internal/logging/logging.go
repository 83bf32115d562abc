package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"health-report-agent/internal/config"
)

// Configure sets up logrus from the logging config. When a file is set, output
// goes to stdout and to a rotated log file.
func Configure(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
		logger.SetLevel(lvl)
	}
	logger.SetOutput(output(cfg.File))
	return logger
}

func output(file string) io.Writer {
	if file == "" {
		return os.Stdout
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     30,
	}
	return io.MultiWriter(os.Stdout, rotator)
}
