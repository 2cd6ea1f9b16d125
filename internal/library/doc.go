// Package library models watched libraries and the path rules shared by the
// ingestion pipeline and the processing scheduler.
//
// A Library carries the per-root settings (mode, filters, schedule, hold and
// quiescence windows). Filter implements the acceptance pipeline applied to
// every candidate path, Schedule the weekly quarter-hour activity mask, and
// Entry/Stat the filesystem facts the identity resolver compares against
// stored records.
package library
