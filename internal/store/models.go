package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a library file.
type Status string

const (
	StatusUnprocessed      Status = "unprocessed"
	StatusOutOfSchedule    Status = "out_of_schedule"
	StatusProcessing       Status = "processing"
	StatusProcessed        Status = "processed"
	StatusProcessingFailed Status = "processing_failed"
	StatusFlowNotFound     Status = "flow_not_found"
	StatusDuplicate        Status = "duplicate"
)

// CancelledReason is the failure reason recorded for cancelled files.
const CancelledReason = "cancelled"

// UnsetOrder marks a file without an explicit processing position.
const UnsetOrder = -1

var allStatuses = []Status{
	StatusUnprocessed,
	StatusOutOfSchedule,
	StatusProcessing,
	StatusProcessed,
	StatusProcessingFailed,
	StatusFlowNotFound,
	StatusDuplicate,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string to a Status, returning false when unknown.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Terminal reports whether the status ends a processing attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusProcessed, StatusProcessingFailed, StatusFlowNotFound:
		return true
	default:
		return false
	}
}

// Reference points at another library file.
type Reference struct {
	ID   int64
	Path string
}

// File is one persisted library file or library folder.
type File struct {
	ID                int64
	Path              string
	RelativePath      string
	LibraryName       string
	IsDirectory       bool
	Fingerprint       string
	OriginalSize      int64
	FinalSize         int64
	CreationTime      time.Time
	LastWriteTime     time.Time
	Status            Status
	ProcessingOrder   int
	DuplicateOf       *Reference
	HoldUntil         time.Time
	FlowName          string
	RequestID         string
	FailureReason     string
	LogPath           string
	ProcessingStarted time.Time
	ProcessingEnded   time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Ref returns a reference to f.
func (f *File) Ref() Reference {
	return Reference{ID: f.ID, Path: f.Path}
}

// LibraryState is the persisted view of a library.
type LibraryState struct {
	Name        string
	Path        string
	Priority    int
	Enabled     bool
	LastScanned time.Time
	Files       int
}

// ListOptions filters File listings.
type ListOptions struct {
	Library  string
	Statuses []Status
	Limit    int
}
