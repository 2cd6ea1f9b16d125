// Package api defines wire-format types and converters for the IPC layer and
// the CLI. It translates store records and daemon status into
// transport-friendly DTOs so clients render without coupling to internal
// types.
//
// # Key Types
//
// LibraryFile: transport representation of a library file record.
//
// Library: persisted library row with file count plus live ingestion state.
//
// WorkflowStatus: scheduler running state, in-flight runs, per-status counts
// and flow health.
//
// DaemonStatus: aggregated runtime information including preflight results
// and database health.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are exposed as their lowercase
// store names. Timestamps use RFC3339 with milliseconds in UTC; zero times
// are omitted.
package api
