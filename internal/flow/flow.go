package flow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrFlowNotFound reports that a processing definition could not be resolved
// at dispatch time.
var ErrFlowNotFound = errors.New("flow not found")

// Definition describes how a library file is processed.
type Definition struct {
	Name    string
	Command string
	Args    []string
	Timeout time.Duration
}

// Job is the unit handed to an Executor.
type Job struct {
	FileID       int64
	Path         string
	RelativePath string
	Library      string
	IsDirectory  bool
	RequestID    string
}

// Result is the outcome of a flow run.
type Result struct {
	Succeeded     bool
	FailureReason string
	// OutputSize is the size of the processed file when known.
	OutputSize int64
}

// Executor runs a flow definition against a job. Implementations must honour
// ctx cancellation and write their processing log to sink.
type Executor interface {
	Run(ctx context.Context, job Job, def Definition, sink *slog.Logger) (Result, error)
	HealthCheck(ctx context.Context, def Definition) Health
}

// Health summarizes whether a flow can run.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Catalog resolves flow definitions by name.
type Catalog struct {
	mu    sync.RWMutex
	flows map[string]Definition
}

// NewCatalog builds a catalog from defs.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{}
	c.Replace(defs)
	return c
}

// Lookup returns the definition named name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.flows[strings.TrimSpace(name)]
	return def, ok
}

// Replace swaps the catalog contents.
func (c *Catalog) Replace(defs []Definition) {
	flows := make(map[string]Definition, len(defs))
	for _, def := range defs {
		flows[def.Name] = def
	}
	c.mu.Lock()
	c.flows = flows
	c.mu.Unlock()
}

// All returns every definition sorted by name.
func (c *Catalog) All() []Definition {
	c.mu.RLock()
	out := make([]Definition, 0, len(c.flows))
	for _, def := range c.flows {
		out = append(out, def)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
