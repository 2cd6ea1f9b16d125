// Package ingest discovers candidate files for each library and turns them
// into library file records.
//
// A WatchedLibrary owns a candidate Queue fed by an fsnotify Watcher (watch
// mode) or by periodic scans, and a drainer goroutine that runs each
// candidate through existence, hidden, filter, containment, identity,
// quiescence and accessibility checks before inserting a record. Manager runs
// one WatchedLibrary per enabled library and reconciles them on reload.
package ingest
