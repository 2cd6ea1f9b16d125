// Package main hosts the fileflows CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, starts and stops
// it in the background, and issues control commands (file listing, reprocess,
// cancel, reordering, rescans, reloads) over the daemon socket. When no daemon
// is listening the same commands operate on the record store directly so
// files can be inspected and requeued offline.
//
// Keep this package lean: add behavior to the internal packages first and
// surface it here.
package main
