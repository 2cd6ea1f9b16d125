// Package logs reads daemon and per-file processing logs for the CLI.
//
// Last returns the trailing lines of a log with bounded memory, and Follow
// polls for appended lines until its context is cancelled. Both tolerate a
// missing file so a log can be followed before its first write.
package logs
