package config

import (
	"strings"
	"testing"
)

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, i := range issues {
		if i.Severity == sev && i.Path == path {
			return true
		}
	}
	return false
}

func TestValidateOK(t *testing.T) {
	cfg := Config{
		Storage: Storage{Kind: "sqlite", DSN: "recon.db"},
		Runtime: Runtime{ChunkRows: 50000, InsertBatch: 500},
	}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
}

func TestValidateEmptyStorageKind(t *testing.T) {
	issues := Validate(Config{Storage: Storage{DSN: "recon.db"}})
	if !hasIssue(issues, SeverityError, "storage.kind") {
		t.Fatalf("issues = %v", issues)
	}
}

func TestValidateUnknownStorageKind(t *testing.T) {
	issues := Validate(Config{Storage: Storage{Kind: "oracle", DSN: "x"}})
	if !hasIssue(issues, SeverityError, "storage.kind") {
		t.Fatalf("issues = %v", issues)
	}
}

func TestValidateEmptyDSN(t *testing.T) {
	issues := Validate(Config{Storage: Storage{Kind: "postgres"}})
	if !hasIssue(issues, SeverityError, "storage.dsn") {
		t.Fatalf("issues = %v", issues)
	}
}

func TestValidateNegativeRuntime(t *testing.T) {
	cfg := Config{
		Storage: Storage{Kind: "sqlite", DSN: "recon.db"},
		Runtime: Runtime{ChunkRows: -1, InsertBatch: -1},
	}
	issues := Validate(cfg)
	if !hasIssue(issues, SeverityError, "runtime.chunk_rows") {
		t.Fatalf("issues = %v", issues)
	}
	if !hasIssue(issues, SeverityError, "runtime.insert_batch") {
		t.Fatalf("issues = %v", issues)
	}
}

func TestValidateHugeInsertBatchWarns(t *testing.T) {
	cfg := Config{
		Storage: Storage{Kind: "sqlite", DSN: "recon.db"},
		Runtime: Runtime{InsertBatch: 50000},
	}
	issues := Validate(cfg)
	if !hasIssue(issues, SeverityWarning, "runtime.insert_batch") {
		t.Fatalf("issues = %v", issues)
	}
}

func TestIssueError(t *testing.T) {
	i := Issue{Severity: SeverityError, Path: "storage.kind", Message: "must not be empty"}
	s := i.Error()
	if !strings.Contains(s, "storage.kind") || !strings.Contains(s, "error") {
		t.Fatalf("Error() = %q", s)
	}
}
