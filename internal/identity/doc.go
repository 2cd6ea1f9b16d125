// Package identity fingerprints file content and classifies discovered paths
// against the record store: known, recreated, duplicate or new.
package identity
