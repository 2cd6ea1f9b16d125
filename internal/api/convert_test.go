package api

import (
	"testing"
	"time"

	"fileflows/internal/flow"
	"fileflows/internal/ingest"
	"fileflows/internal/store"
	"fileflows/internal/workflow"
)

func TestFromFileFormatsOptionalFields(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	file := &store.File{
		ID:                7,
		Path:              "/lib/a.mkv",
		RelativePath:      "a.mkv",
		LibraryName:       "movies",
		Status:            store.StatusDuplicate,
		DuplicateOf:       &store.Reference{ID: 3, Path: "/lib/b.mkv"},
		ProcessingStarted: started,
		ProcessingOrder:   store.UnsetOrder,
	}

	dto := FromFile(file)
	if dto.Status != "duplicate" || dto.Library != "movies" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.DuplicateOfID != 3 || dto.DuplicateOfPath != "/lib/b.mkv" {
		t.Fatalf("duplicate reference not carried: %+v", dto)
	}
	if dto.ProcessingStarted != "2026-03-01T09:00:00.000Z" {
		t.Fatalf("expected UTC timestamp, got %q", dto.ProcessingStarted)
	}
	if dto.ProcessingEnded != "" || dto.HoldUntil != "" {
		t.Fatalf("zero times must be omitted, got %+v", dto)
	}
	if got := ParseTime(dto.ProcessingStarted); !got.Equal(started) {
		t.Fatalf("ParseTime = %s, want %s", got, started)
	}
}

func TestFromStatusSummaryOrdersFlowsAndCounts(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		Runners: 2,
		FileStats: map[store.Status]int{
			store.StatusProcessed:   4,
			store.StatusUnprocessed: 2,
			store.StatusDuplicate:   0,
		},
		FlowHealth: map[string]flow.Health{
			"zeta":  flow.Healthy("zeta"),
			"alpha": flow.Unhealthy("alpha", "missing"),
		},
		LastFile: &store.File{ID: 1, Status: store.StatusProcessed},
	}

	wf := FromStatusSummary(summary)
	if len(wf.FileStats) != 2 || wf.FileStats[0].Status != "unprocessed" || wf.FileStats[1].Count != 4 {
		t.Fatalf("unexpected file stats %+v", wf.FileStats)
	}
	if len(wf.FlowHealth) != 2 || wf.FlowHealth[0].Name != "alpha" || wf.FlowHealth[0].Ready {
		t.Fatalf("unexpected flow health %+v", wf.FlowHealth)
	}
	if wf.LastFile == nil || wf.LastFile.ID != 1 {
		t.Fatalf("expected last file, got %+v", wf.LastFile)
	}
}

func TestFromLibrariesOverlaysRunningState(t *testing.T) {
	states := []store.LibraryState{
		{Name: "movies", Path: "/m", Enabled: true, Files: 3},
		{Name: "shows", Path: "/s", Enabled: false},
	}
	running := []ingest.LibraryStatus{{Name: "movies", Watching: true, ScanComplete: true, Queued: 2}}

	libs := FromLibraries(states, running)
	if len(libs) != 2 {
		t.Fatalf("expected 2 libraries, got %d", len(libs))
	}
	if !libs[0].Watching || libs[0].Queued != 2 || libs[0].Files != 3 {
		t.Fatalf("running state not overlaid: %+v", libs[0])
	}
	if libs[1].Watching || libs[1].Enabled {
		t.Fatalf("unexpected state for stopped library: %+v", libs[1])
	}
}

func TestParseStatuses(t *testing.T) {
	got := ParseStatuses([]string{"unprocessed,Processed", "bogus", " duplicate "})
	want := []store.Status{store.StatusUnprocessed, store.StatusProcessed, store.StatusDuplicate}
	if len(got) != len(want) {
		t.Fatalf("ParseStatuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseStatuses[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
