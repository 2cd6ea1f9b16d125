package ipc

import "fileflows/internal/api"

// ServiceName is the RPC service the daemon registers.
const ServiceName = "FileFlows"

// LibraryFile mirrors the API file DTO for IPC callers.
type LibraryFile = api.LibraryFile

// Library mirrors the API library DTO for IPC callers.
type Library = api.Library

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon, scheduler and library status.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// FileListRequest filters the file listing.
type FileListRequest struct {
	Library  string   `json:"library"`
	Statuses []string `json:"statuses"`
	Limit    int      `json:"limit"`
}

// FileListResponse contains library files.
type FileListResponse struct {
	Files []LibraryFile `json:"files"`
}

// FileShowRequest fetches a single file by id.
type FileShowRequest struct {
	ID int64 `json:"id"`
}

// FileShowResponse contains a single file.
type FileShowResponse struct {
	File LibraryFile `json:"file"`
}

// IDsRequest carries file ids for the bulk control commands.
type IDsRequest struct {
	IDs []int64 `json:"ids"`
}

// UpdatedResponse reports how many files a command changed.
type UpdatedResponse struct {
	Updated int64 `json:"updated"`
}

// RescanRequest asks libraries to scan now. Empty Libraries means all.
type RescanRequest struct {
	Libraries []string `json:"libraries"`
	Full      bool     `json:"full"`
}

// RescanResponse reports how many running libraries were signalled.
type RescanResponse struct {
	Signalled int `json:"signalled"`
}

// LibraryListRequest lists libraries.
type LibraryListRequest struct{}

// LibraryListResponse contains the libraries.
type LibraryListResponse struct {
	Libraries []Library `json:"libraries"`
}

// ReloadRequest re-reads the daemon configuration file.
type ReloadRequest struct{}

// ReloadResponse reports the reload outcome.
type ReloadResponse struct {
	Reloaded bool   `json:"reloaded"`
	Message  string `json:"message"`
}
