package logging

import (
	"strings"

	"bookkeeping/internal/config"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger from cfg.
// Unknown levels fall back to info.
func Setup(cfg config.LogConfig) {
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
