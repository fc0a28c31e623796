package logging

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// moneyScale is the number of decimals money fields are logged with.
const moneyScale = 2

// LogrusAdapter implements Logger on top of logrus. Field values are
// normalised before they reach logrus: decimals are printed at money scale
// and optional ids are dereferenced, so records stay readable in both text
// and JSON output.
type LogrusAdapter struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrusAdapter creates a logger for the given level ("debug", "info",
// "warn", "error") and format ("json" or "text"). Defaults are attached to
// every record, typically the organization the ledger belongs to.
func NewLogrusAdapter(level, format string, defaults ...Field) Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &LogrusAdapter{
		logger: logger,
		entry:  logrus.NewEntry(logger).WithFields(convertFields(defaults)),
	}
}

// NewLogrusAdapterFromLogger wraps an existing logrus logger.
func NewLogrusAdapterFromLogger(logger *logrus.Logger) Logger {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogrusAdapter{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// SetOutput redirects the underlying logrus output.
func (l *LogrusAdapter) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

func (l *LogrusAdapter) Debug(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Debug(msg)
}

func (l *LogrusAdapter) Info(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Info(msg)
}

func (l *LogrusAdapter) Warn(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Warn(msg)
}

func (l *LogrusAdapter) Error(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Error(msg)
}

// WithError returns a logger carrying err on every record.
func (l *LogrusAdapter) WithError(err error) Logger {
	return l.derive(l.entry.WithError(err))
}

// WithField returns a logger carrying key on every record.
func (l *LogrusAdapter) WithField(key string, value interface{}) Logger {
	return l.derive(l.entry.WithField(key, fieldValue(value)))
}

// WithFields returns a logger carrying fields on every record.
func (l *LogrusAdapter) WithFields(fields ...Field) Logger {
	return l.derive(l.entry.WithFields(convertFields(fields)))
}

func (l *LogrusAdapter) derive(entry *logrus.Entry) Logger {
	return &LogrusAdapter{logger: l.logger, entry: entry}
}

func convertFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = fieldValue(f.Value)
	}
	return out
}

// fieldValue renders ledger values: money at fixed scale, a null amount or an
// unset id as nil.
func fieldValue(v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.StringFixed(moneyScale)
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.StringFixed(moneyScale)
	case decimal.NullDecimal:
		if !val.Valid {
			return nil
		}
		return val.Decimal.StringFixed(moneyScale)
	case *uint:
		if val == nil {
			return nil
		}
		return *val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}
