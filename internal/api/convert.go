package api

import (
	"slices"
	"strings"
	"time"

	"fileflows/internal/daemon"
	"fileflows/internal/ingest"
	"fileflows/internal/preflight"
	"fileflows/internal/store"
	"fileflows/internal/workflow"
)

// FromFile converts a store record to its API representation.
func FromFile(file *store.File) LibraryFile {
	if file == nil {
		return LibraryFile{}
	}
	dto := LibraryFile{
		ID:                file.ID,
		Path:              file.Path,
		RelativePath:      file.RelativePath,
		Library:           file.LibraryName,
		IsDirectory:       file.IsDirectory,
		Status:            string(file.Status),
		Fingerprint:       file.Fingerprint,
		OriginalSize:      file.OriginalSize,
		FinalSize:         file.FinalSize,
		ProcessingOrder:   file.ProcessingOrder,
		HoldUntil:         formatTime(file.HoldUntil),
		Flow:              file.FlowName,
		RequestID:         file.RequestID,
		FailureReason:     file.FailureReason,
		LogPath:           file.LogPath,
		CreationTime:      formatTime(file.CreationTime),
		ProcessingStarted: formatTime(file.ProcessingStarted),
		ProcessingEnded:   formatTime(file.ProcessingEnded),
		CreatedAt:         formatTime(file.CreatedAt),
		UpdatedAt:         formatTime(file.UpdatedAt),
	}
	if file.DuplicateOf != nil {
		dto.DuplicateOfID = file.DuplicateOf.ID
		dto.DuplicateOfPath = file.DuplicateOf.Path
	}
	return dto
}

// FromFiles converts a slice of store records into API DTOs.
func FromFiles(files []*store.File) []LibraryFile {
	out := make([]LibraryFile, 0, len(files))
	for _, file := range files {
		if file == nil {
			continue
		}
		out = append(out, FromFile(file))
	}
	return out
}

// FromLibraries converts persisted libraries and overlays the ingestion state
// of the ones that are running.
func FromLibraries(states []store.LibraryState, running []ingest.LibraryStatus) []Library {
	live := make(map[string]ingest.LibraryStatus, len(running))
	for _, status := range running {
		live[status.Name] = status
	}
	out := make([]Library, 0, len(states))
	for _, state := range states {
		lib := Library{
			Name:        state.Name,
			Path:        state.Path,
			Priority:    state.Priority,
			Enabled:     state.Enabled,
			LastScanned: formatTime(state.LastScanned),
			Files:       state.Files,
		}
		if status, ok := live[state.Name]; ok {
			lib.Watching = status.Watching
			lib.ScanComplete = status.ScanComplete
			lib.Queued = status.Queued
		}
		out = append(out, lib)
	}
	return out
}

// FromStatusSummary converts a scheduler status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    summary.Running,
		Runners:    summary.Runners,
		Active:     make([]ActiveFile, 0, len(summary.Active)),
		FileStats:  StatusCounts(summary.FileStats),
		LastError:  summary.LastError,
		FlowHealth: make([]FlowHealth, 0, len(summary.FlowHealth)),
	}
	for _, run := range summary.Active {
		wf.Active = append(wf.Active, ActiveFile{
			ID:        run.ID,
			Path:      run.Path,
			Library:   run.Library,
			Flow:      run.Flow,
			RequestID: run.RequestID,
			Started:   formatTime(run.Started),
		})
	}

	names := make([]string, 0, len(summary.FlowHealth))
	for name := range summary.FlowHealth {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		h := summary.FlowHealth[name]
		wf.FlowHealth = append(wf.FlowHealth, FlowHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}

	if summary.LastFile != nil {
		last := FromFile(summary.LastFile)
		wf.LastFile = &last
	}
	return wf
}

// FromDaemonStatus converts daemon runtime information. libraries carries the
// persisted library rows so the status view can show file counts.
func FromDaemonStatus(status daemon.Status, libraries []store.LibraryState) DaemonStatus {
	return DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Workflow:     FromStatusSummary(status.Workflow),
		Libraries:    FromLibraries(libraries, status.Libraries),
		Preflight:    FromPreflight(status.Preflight),
		Database: DatabaseHealth{
			DBPath:           status.Database.DBPath,
			DatabaseExists:   status.Database.DatabaseExists,
			DatabaseReadable: status.Database.DatabaseReadable,
			SchemaVersion:    status.Database.SchemaVersion,
			Error:            status.Database.Error,
		},
	}
}

// FromPreflight converts preflight results.
func FromPreflight(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// StatusCounts orders per-status counts by lifecycle and drops empty ones.
func StatusCounts(stats map[store.Status]int) []StatusCount {
	out := make([]StatusCount, 0, len(stats))
	for _, status := range store.AllStatuses() {
		if n := stats[status]; n > 0 {
			out = append(out, StatusCount{Status: string(status), Count: n})
		}
	}
	return out
}

// ParseStatuses converts status names, ignoring unknown values.
func ParseStatuses(values []string) []store.Status {
	out := make([]store.Status, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if status, ok := store.ParseStatus(part); ok {
				out = append(out, status)
			}
		}
	}
	return out
}

// ParseTime reads a timestamp produced by this package. Empty or malformed
// values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
