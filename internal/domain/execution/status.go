package execution

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusRunning  Status = "running"
	StatusCanceled Status = "canceled"
	StatusUnknown  Status = "unknown"
)

// Statuses lists every normalized status in bucket order.
var Statuses = []Status{StatusSuccess, StatusError, StatusRunning, StatusCanceled, StatusUnknown}

// "crashed" appears in both the error and canceled vocabularies upstream; error wins.
var statusAliases = map[string]Status{
	"success":   StatusSuccess,
	"finished":  StatusSuccess,
	"error":     StatusError,
	"failed":    StatusError,
	"crashed":   StatusError,
	"running":   StatusRunning,
	"executing": StatusRunning,
	"new":       StatusRunning,
	"waiting":   StatusRunning,
	"canceled":  StatusCanceled,
	"cancelled": StatusCanceled,
	"stopped":   StatusCanceled,
	"crash":     StatusCanceled,
}

// LookupStatus maps a raw upstream status to its normalized form without logging.
// ok is false when the value fell through to StatusUnknown.
func LookupStatus(raw string) (Status, bool) {
	key := cases.Fold().String(strings.TrimSpace(raw))
	if key == "" {
		return StatusUnknown, false
	}
	st, ok := statusAliases[key]
	if !ok {
		return StatusUnknown, false
	}
	return st, true
}

// NormalizeStatus is total: unrecognized input maps to StatusUnknown and is logged
// so the alias table can be extended later.
func NormalizeStatus(raw string, logger *slog.Logger) Status {
	st, ok := LookupStatus(raw)
	if ok {
		return st
	}
	if strings.TrimSpace(raw) != "" {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("unrecognized execution status", "raw_status", raw, "normalized", StatusUnknown)
	}
	return StatusUnknown
}

func (s Status) String() string {
	return string(s)
}
