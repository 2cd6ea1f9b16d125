package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fileflows/internal/config"
	"fileflows/internal/library"
	"fileflows/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustSyncLibraries persists libs and returns them with scan state loaded.
func MustSyncLibraries(t testing.TB, st *store.Store, libs ...library.Library) []library.Library {
	t.Helper()

	synced, err := st.SyncLibraries(context.Background(), libs)
	if err != nil {
		t.Fatalf("store.SyncLibraries: %v", err)
	}
	return synced
}

// NewFile inserts an unprocessed file record below lib for tests.
func NewFile(t testing.TB, st *store.Store, lib library.Library, relative string) *store.File {
	t.Helper()

	path := filepath.Join(lib.Path, relative)
	file := &store.File{
		Path:          path,
		RelativePath:  lib.RelativePath(path),
		LibraryName:   lib.Name,
		Status:        store.StatusUnprocessed,
		CreationTime:  time.Now().Add(-time.Hour),
		LastWriteTime: time.Now().Add(-time.Hour),
	}
	if err := st.Insert(context.Background(), file); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return file
}
