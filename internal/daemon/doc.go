// Package daemon coordinates the long-running FileFlows process.
//
// It wires configuration, the record store, the ingestion manager and the
// processing scheduler into a single lifecycle with flock-based locking to
// prevent multiple instances. On start it returns files stranded in
// processing by an earlier run to unprocessed, persists the configured
// libraries and launches one watched library per enabled entry.
//
// The daemon also owns the control commands (reprocess, cancel, move to top,
// rescan, reload) that the IPC server exposes. Keep orchestration here:
// discovery lives in ingest and dispatch lives in workflow.
package daemon
