// Package config loads, normalizes, and validates FileFlows configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and converts [[libraries]] and [[flows]]
// entries into the runtime models the daemon consumes. Invalid filters,
// malformed schedule masks and references to unknown flows are rejected at
// load time so the ingestion loops never see them.
package config
