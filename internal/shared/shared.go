// package shared defines helpers used across the sync engine, its stores and the CLI
package shared

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ConfigureLogger applies the level and output format from [LoggingConfig].
func ConfigureLogger(l *log.Logger, cfg LoggingConfig) error {
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.Level)
		}
		SetLogLevel(l, level)
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(log.TextFormatter)
	case "json":
		l.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, cfg.Format)
	}
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// SanitizePathSegment turns a display name into a single directory name.
//
// Separators and characters rejected by common filesystems become underscores, leading and
// trailing dots and spaces are dropped. With ascii set the name is transliterated first.
// The result may be empty.
func SanitizePathSegment(name string, ascii bool) string {
	if ascii {
		name = unidecode.Unidecode(name)
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	return strings.Trim(strings.Join(strings.Fields(b.String()), " "), " .")
}
