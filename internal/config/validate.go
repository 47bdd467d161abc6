package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; it returns a slice of Issue values, and callers may decide whether
// to treat warnings as fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, validateStorage(cfg.Storage)...)
	issues = append(issues, validateRuntime(cfg.Runtime)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	switch s.Kind {
	case "postgres", "sqlite":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; expected postgres or sqlite", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}

	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue

	if r.ChunkRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_rows",
			Message:  "chunk_rows must not be negative; omit it to use the default",
		})
	}
	if r.InsertBatch < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.insert_batch",
			Message:  "insert_batch must not be negative; omit it to use the default",
		})
	}
	if r.InsertBatch > 10000 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.insert_batch",
			Message:  "very large insert batches inflate transaction memory; consider 500-2000",
		})
	}

	return issues
}
