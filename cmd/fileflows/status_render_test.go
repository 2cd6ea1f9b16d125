package main

import (
	"strings"
	"testing"
	"time"

	"fileflows/internal/api"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Database", statusOK, "ready", false)
	if !strings.Contains(line, "Database:") || !strings.Contains(line, "[OK] ready") {
		t.Fatalf("unexpected status line %q", line)
	}
	colored := renderStatusLine("Database", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatStatusLabel("processing_failed"); got != "Processing Failed" {
		t.Fatalf("formatStatusLabel = %q", got)
	}
	if got := formatSize(0); got != "-" {
		t.Fatalf("formatSize(0) = %q", got)
	}
	if got := formatSize(1536); got != "1.5 KiB" {
		t.Fatalf("formatSize(1536) = %q", got)
	}
	if got := formatAge(""); got != "-" {
		t.Fatalf("formatAge(empty) = %q", got)
	}
	const layout = "2006-01-02T15:04:05.000Z07:00"
	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got := formatDuration(started.Format(layout), started.Add(90*time.Second).Format(layout))
	if got != "1m30s" {
		t.Fatalf("formatDuration = %q", got)
	}
	if got := splitStatuses([]string{"Processed, unprocessed", " ", "duplicate"}); strings.Join(got, "|") != "processed|unprocessed|duplicate" {
		t.Fatalf("splitStatuses = %v", got)
	}
}

func TestPrintStatusOffline(t *testing.T) {
	var b strings.Builder
	printStatus(&b, api.DaemonStatus{
		Database:  api.DatabaseHealth{DBPath: "/tmp/fileflows.db", DatabaseExists: true, DatabaseReadable: true, SchemaVersion: 1},
		Libraries: []api.Library{{Name: "movies", Path: "/media/movies", Enabled: true, Files: 3}},
		Workflow:  api.WorkflowStatus{FileStats: []api.StatusCount{{Status: "unprocessed", Count: 3}}},
		Preflight: []api.CheckResult{{Name: "Flow copy", Passed: false, Detail: "command not found"}},
	}, false)
	out := b.String()
	for _, want := range []string{"Not running", "schema v1", "[ERROR] command not found", "movies", "Unprocessed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Watching") {
		t.Fatalf("offline status should not show watch columns:\n%s", out)
	}
}
