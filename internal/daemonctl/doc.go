// Package daemonctl launches, stops and talks to the fileflows daemon on
// behalf of the CLI.
//
// Controller hides whether a command reaches the daemon over IPC or, when no
// daemon is listening, the record store directly. Offline, cancel only
// reaches claimable files and a full rescan is recorded by clearing the
// library's last-scanned time so the next daemon start scans everything.
package daemonctl
