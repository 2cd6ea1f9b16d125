// Package workflow schedules library files through their flows.
//
// The Manager runs a fixed number of runners. Each runner queries the store
// for claimable files in claim order, defers files whose library is outside
// its schedule, skips files that vanished from disk, claims the first
// eligible file and hands it to the flow executor with a dedicated per-file
// log. The executor outcome becomes the file's terminal status. Runners wake
// on Trigger or after the poll interval.
package workflow
