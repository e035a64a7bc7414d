package execution

import (
	"log/slog"
	"strings"
	"time"
)

// Layouts tried in order. Values without an offset are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime turns an upstream ISO-8601 timestamp into a UTC instant.
// Empty input yields nil silently; unparsable input yields nil and a warning.
func ParseTime(raw string, logger *slog.Logger) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.UTC()
		return &t
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("unparsable timestamp", "value", raw)
	return nil
}
