package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// ProvisionalSuffix marks paths that are still being written by another tool.
	ProvisionalSuffix = "_"
	// MaxHiddenDepth bounds the parent walk performed by Hidden.
	MaxHiddenDepth = 20
)

// Filter applies a library's path rules: exclusion and inclusion patterns,
// the provisional suffix, hidden entries and root containment.
type Filter struct {
	root          string
	include       *regexp.Regexp
	exclude       *regexp.Regexp
	excludeHidden bool
}

// NewFilter compiles the library patterns. Patterns match case-insensitively.
func NewFilter(lib Library) (*Filter, error) {
	f := &Filter{
		root:          filepath.Clean(lib.Path),
		excludeHidden: lib.ExcludeHidden,
	}
	var err error
	if f.include, err = compilePattern(lib.Filter); err != nil {
		return nil, fmt.Errorf("library %q filter: %w", lib.Name, err)
	}
	if f.exclude, err = compilePattern(lib.ExclusionFilter); err != nil {
		return nil, fmt.Errorf("library %q exclusion filter: %w", lib.Name, err)
	}
	return f, nil
}

// CompilePattern validates a filter pattern the same way NewFilter does.
func CompilePattern(pattern string) error {
	_, err := compilePattern(pattern)
	return err
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + pattern)
}

// Match applies the exclusion pattern, then the inclusion pattern. A path
// matching the exclusion pattern is rejected whatever the inclusion pattern
// says; with no inclusion pattern every remaining path matches.
func (f *Filter) Match(path string) bool {
	if f.exclude != nil && f.exclude.MatchString(path) {
		return false
	}
	if f.include != nil {
		return f.include.MatchString(path)
	}
	return true
}

// Accept runs Match and rejects provisional paths.
func (f *Filter) Accept(path string) bool {
	return f.Match(path) && !IsProvisional(path)
}

// IsProvisional reports whether path still carries the provisional marker.
func IsProvisional(path string) bool {
	return strings.HasSuffix(path, ProvisionalSuffix)
}

// ExcludeHidden reports whether hidden entries are filtered.
func (f *Filter) ExcludeHidden() bool {
	return f.excludeHidden
}

// Hidden reports whether path or one of its parents below the library root is
// a dot entry. The walk stops after MaxHiddenDepth parents.
func (f *Filter) Hidden(path string) bool {
	path = filepath.Clean(path)
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	dir := filepath.Dir(path)
	for depth := 0; depth < MaxHiddenDepth; depth++ {
		if dir == f.root || dir == "." || dir == string(filepath.Separator) {
			return false
		}
		if strings.HasPrefix(filepath.Base(dir), ".") {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
	return false
}

// Contains reports whether path lies strictly below the library root.
func (f *Filter) Contains(path string) bool {
	rel, err := filepath.Rel(f.root, filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// TopLevel resolves path to the immediate child of the library root that
// contains it. ok is false for paths outside the root or the root itself.
func (f *Filter) TopLevel(path string) (string, bool) {
	if !f.Contains(path) {
		return "", false
	}
	rel, _ := filepath.Rel(f.root, filepath.Clean(path))
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	return filepath.Join(f.root, first), true
}
