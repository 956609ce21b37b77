package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger set by InitLogger.
var Log = logrus.New()

// InitLogger configures Log from level and format ("json" or "text").
func InitLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	switch format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)

	Log = logger
	return logger, nil
}
