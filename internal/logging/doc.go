// Package logging assembles structured slog loggers and formatting helpers used
// across FileFlows services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so ingestion and processing code
// can tag log lines with library names, file record IDs and correlation IDs.
// NewFileLogger opens the per-file processing logs the scheduler hands to
// flows, and TeeLogger mirrors those lines into the daemon log.
package logging
