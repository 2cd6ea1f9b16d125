package library

import (
	"strings"
	"time"
)

const (
	// MinScanInterval is the smallest scan interval honoured; shorter values fall back to DefaultScanInterval.
	MinScanInterval = 10 * time.Second
	// DefaultScanInterval applies when a library is configured below MinScanInterval.
	DefaultScanInterval = 60 * time.Second
	// FullScanInterval forces a full scan when the last one is older than this.
	FullScanInterval = time.Hour
	// MaxSizeDetectionWait caps the accessibility size-compare wait.
	MaxSizeDetectionWait = 300 * time.Second
)

// RescanEpoch marks a last-scanned value that requests a full rescan.
// Any LastScanned before this instant means the library has never been
// scanned or a rescan was requested.
var RescanEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Library describes a watched root and the rules used to turn its contents
// into library files.
type Library struct {
	Name                      string
	Path                      string
	Flow                      string
	Enabled                   bool
	Folders                   bool
	Scan                      bool
	ScanInterval              time.Duration
	Schedule                  Schedule
	Filter                    string
	ExclusionFilter           string
	ExcludeHidden             bool
	UseFingerprinting         bool
	WaitTime                  time.Duration
	HoldMinutes               int
	ReprocessRecreatedFiles   bool
	SkipFileAccessTests       bool
	FileSizeDetectionInterval time.Duration
	Priority                  int
	LastScanned               time.Time
}

// EffectiveScanInterval applies the scan interval floor.
func (l Library) EffectiveScanInterval() time.Duration {
	if l.ScanInterval < MinScanInterval {
		return DefaultScanInterval
	}
	return l.ScanInterval
}

// SizeDetectionWait returns how long the accessibility probe waits before
// comparing file sizes.
func (l Library) SizeDetectionWait() time.Duration {
	if l.FileSizeDetectionInterval <= 0 {
		return 0
	}
	if l.FileSizeDetectionInterval > MaxSizeDetectionWait {
		return MaxSizeDetectionWait
	}
	return l.FileSizeDetectionInterval
}

// RescanRequested reports whether LastScanned was reset to force a full scan.
func (l Library) RescanRequested() bool {
	return l.LastScanned.Before(RescanEpoch)
}

// HoldUntil returns the earliest time a newly discovered file may be claimed.
// The zero time means no hold.
func (l Library) HoldUntil(now time.Time) time.Time {
	if l.HoldMinutes <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(l.HoldMinutes) * time.Minute)
}

// Kind returns "folder" or "file" for log output.
func (l Library) Kind() string {
	if l.Folders {
		return "folder"
	}
	return "file"
}

// RelativePath strips the library root from path.
func (l Library) RelativePath(path string) string {
	root := strings.TrimRight(l.Path, "/")
	rel := strings.TrimPrefix(path, root)
	return strings.TrimLeft(rel, "/")
}
