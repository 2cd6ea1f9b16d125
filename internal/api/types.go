package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// LibraryFile describes a library file record in a transport-friendly format.
type LibraryFile struct {
	ID                int64  `json:"id"`
	Path              string `json:"path"`
	RelativePath      string `json:"relativePath"`
	Library           string `json:"library"`
	IsDirectory       bool   `json:"isDirectory"`
	Status            string `json:"status"`
	Fingerprint       string `json:"fingerprint,omitempty"`
	OriginalSize      int64  `json:"originalSize"`
	FinalSize         int64  `json:"finalSize,omitempty"`
	ProcessingOrder   int    `json:"processingOrder"`
	DuplicateOfID     int64  `json:"duplicateOfId,omitempty"`
	DuplicateOfPath   string `json:"duplicateOfPath,omitempty"`
	HoldUntil         string `json:"holdUntil,omitempty"`
	Flow              string `json:"flow,omitempty"`
	RequestID         string `json:"requestId,omitempty"`
	FailureReason     string `json:"failureReason,omitempty"`
	LogPath           string `json:"logPath,omitempty"`
	CreationTime      string `json:"creationTime,omitempty"`
	ProcessingStarted string `json:"processingStarted,omitempty"`
	ProcessingEnded   string `json:"processingEnded,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// Library describes a persisted library and, when the daemon runs it, its
// ingestion state.
type Library struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Priority     int    `json:"priority"`
	Enabled      bool   `json:"enabled"`
	LastScanned  string `json:"lastScanned,omitempty"`
	Files        int    `json:"files"`
	Watching     bool   `json:"watching"`
	ScanComplete bool   `json:"scanComplete"`
	Queued       int    `json:"queued"`
}

// ActiveFile describes one in-flight flow run.
type ActiveFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Library   string `json:"library"`
	Flow      string `json:"flow"`
	RequestID string `json:"requestId"`
	Started   string `json:"started"`
}

// FlowHealth mirrors readiness reporting for flows.
type FlowHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// StatusCount is the number of files in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// WorkflowStatus summarizes scheduler state.
type WorkflowStatus struct {
	Running    bool          `json:"running"`
	Runners    int           `json:"runners"`
	Active     []ActiveFile  `json:"active"`
	FileStats  []StatusCount `json:"fileStats"`
	LastError  string        `json:"lastError,omitempty"`
	LastFile   *LibraryFile  `json:"lastFile,omitempty"`
	FlowHealth []FlowHealth  `json:"flowHealth"`
}

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DatabaseHealth reports record store diagnostics.
type DatabaseHealth struct {
	DBPath           string `json:"dbPath"`
	DatabaseExists   bool   `json:"databaseExists"`
	DatabaseReadable bool   `json:"databaseReadable"`
	SchemaVersion    int    `json:"schemaVersion"`
	Error            string `json:"error,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
	Libraries    []Library      `json:"libraries"`
	Preflight    []CheckResult  `json:"preflight"`
	Database     DatabaseHealth `json:"database"`
}
