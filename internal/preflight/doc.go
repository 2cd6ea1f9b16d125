// Package preflight validates that the state and log directories, the
// library roots and the flow commands are usable before the daemon starts
// processing.
package preflight
