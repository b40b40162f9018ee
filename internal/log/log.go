package log

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = logrus.New()
)

// Configure sets the global log level and output format.
// Level is one of trace, debug, info, warn, error; format is console or json.
func Configure(level, format string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "trace":
		logger.SetLevel(logrus.TraceLevel)
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetOutput(os.Stderr)
}

// Debug logs a debug message with optional key/value pairs
func Debug(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Debug(msg)
}

// Info logs an informational message with optional key/value pairs
func Info(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Info(msg)
}

// Warn logs a warning message with optional key/value pairs
func Warn(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Warn(msg)
}

// Error logs an error message with optional key/value pairs
func Error(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Error(msg)
}

// entry converts alternating key/value pairs into logrus fields.
// A trailing key without a value is logged under "arg".
func entry(keysAndValues []interface{}) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()

	fields := logrus.Fields{}
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if i+1 < len(keysAndValues) {
			fields[key] = keysAndValues[i+1]
		} else {
			fields["arg"] = key
		}
	}

	return logger.WithFields(fields)
}
