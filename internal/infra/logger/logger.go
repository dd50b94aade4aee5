// Package logger owns the process-wide logrus instance. Structured JSON in
// deployed environments, colored text locally.
package logger

import (
	"os"
	"strings"

	"elbp_record_service/internal/infra/config"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// deployedEnvs get machine-readable output for log aggregation.
var deployedEnvs = map[string]bool{
	"production": true,
	"staging":    true,
}

// Init applies level and format from configuration. An unparseable level
// falls back to info rather than failing startup.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(formatterFor(cfg.Environment))

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
		Log.Warnf("Invalid log level %q, defaulting to info.", cfg.LogLevel)
	}
	Log.SetLevel(level)
	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
}

func formatterFor(env string) logrus.Formatter {
	if deployedEnvs[env] {
		return &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	}
}

// Get returns the configured global logger.
func Get() *logrus.Logger {
	return Log
}
