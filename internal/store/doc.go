// Package store persists library files and library scan state in SQLite and
// exposes the guarded status transitions the scheduler and control commands
// rely on.
//
// Every transition is a single conditional UPDATE (or one transaction for
// MoveToTop), so concurrent runners can race on Claim and exactly one wins.
// Timestamps are stored as fixed-width UTC strings, which keeps SQL ordering
// and hold-until comparisons lexical.
//
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package store
