package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
	"fileflows/internal/testsupport"
)

func setup(t *testing.T, lib library.Library) (*Resolver, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustSyncLibraries(t, st, lib)
	return NewResolver(st, logging.NewNop()), st
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	c := filepath.Join(dir, "c.bin")
	empty := filepath.Join(dir, "empty.bin")
	testsupport.WriteFileByte(t, a, 4096, 'x')
	testsupport.WriteFileByte(t, b, 4096, 'x')
	testsupport.WriteFileByte(t, c, 4096, 'y')
	if err := writeEmpty(empty); err != nil {
		t.Fatalf("create empty: %v", err)
	}

	ctx := context.Background()
	fa, err := Fingerprint(ctx, a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if len(fa) != 64 {
		t.Fatalf("expected 64 hex characters, got %q", fa)
	}
	fb, _ := Fingerprint(ctx, b)
	fc, _ := Fingerprint(ctx, c)
	if fa != fb || fa == fc {
		t.Fatalf("unexpected fingerprints a=%s b=%s c=%s", fa, fb, fc)
	}
	if fe, err := Fingerprint(ctx, empty); err != nil || fe != "" {
		t.Fatalf("expected empty fingerprint for empty file, got %q (%v)", fe, err)
	}
	if _, err := Fingerprint(ctx, filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClassifyNewAndKnown(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true}
	r, st := setup(t, lib)
	ctx := context.Background()

	path := filepath.Join(root, "a.mp4")
	testsupport.WriteFile(t, path, 128)
	entry, err := library.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	got, err := r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Known || got.DuplicateOf != nil || got.Fingerprint != "" {
		t.Fatalf("unexpected classification for new file without fingerprinting: %+v", got)
	}

	testsupport.NewFile(t, st, lib, "a.mp4")
	got, err = r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.Known {
		t.Fatal("expected recorded path to be known")
	}
}

func TestClassifyDuplicate(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true, UseFingerprinting: true}
	r, st := setup(t, lib)
	ctx := context.Background()

	first := filepath.Join(root, "a.mkv")
	second := filepath.Join(root, "copy", "a.mkv")
	testsupport.WriteFileByte(t, first, 2048, 'm')
	testsupport.WriteFileByte(t, second, 2048, 'm')

	fp, err := Fingerprint(ctx, first)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	original := &store.File{Path: first, RelativePath: "a.mkv", LibraryName: lib.Name, Fingerprint: fp}
	if err := st.Insert(ctx, original); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entry, err := library.Stat(second)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	got, err := r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Known || got.DuplicateOf == nil || got.DuplicateOf.ID != original.ID || got.DuplicateOf.Path != first {
		t.Fatalf("expected duplicate of %d, got %+v", original.ID, got)
	}
	if got.Fingerprint != fp {
		t.Fatalf("expected fingerprint %s, got %s", fp, got.Fingerprint)
	}
}

func TestClassifyEmptyFilesNeverPair(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true, UseFingerprinting: true}
	r, st := setup(t, lib)
	ctx := context.Background()

	if err := st.Insert(ctx, &store.File{Path: filepath.Join(root, "x"), RelativePath: "x", LibraryName: lib.Name}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	empty := filepath.Join(root, "empty.mkv")
	if err := writeEmpty(empty); err != nil {
		t.Fatalf("create empty: %v", err)
	}
	entry, _ := library.Stat(empty)
	got, err := r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.DuplicateOf != nil || got.Fingerprint != "" {
		t.Fatalf("empty file must not be fingerprinted, got %+v", got)
	}
}

func TestClassifyHashFailureProceeds(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true, UseFingerprinting: true}
	r, _ := setup(t, lib)
	r.fingerprint = func(context.Context, string) (string, error) {
		return "", errors.New("read error")
	}
	path := filepath.Join(root, "a.mkv")
	testsupport.WriteFile(t, path, 16)
	entry, _ := library.Stat(path)

	got, err := r.Classify(context.Background(), lib, entry)
	if err != nil {
		t.Fatalf("hash failure must not fail classification: %v", err)
	}
	if got.Known || got.Fingerprint != "" || got.DuplicateOf != nil {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestClassifyRecreatedFileResets(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true, ReprocessRecreatedFiles: true}
	r, st := setup(t, lib)
	ctx := context.Background()

	path := filepath.Join(root, "a.mkv")
	testsupport.WriteFile(t, path, 512)
	file := testsupport.NewFile(t, st, lib, "a.mkv")
	if err := st.Claim(ctx, file.ID, "copy", "req"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := st.Complete(ctx, file.ID, store.StatusProcessingFailed, "boom", 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	entry, _ := library.Stat(path)
	entry.CreationTime = time.Now().Add(time.Minute)
	got, err := r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.Known {
		t.Fatal("recreated file must be reported as known")
	}
	reset, _ := st.GetByID(ctx, file.ID)
	if reset.Status != store.StatusUnprocessed || reset.FailureReason != "" || reset.OriginalSize != 512 {
		t.Fatalf("expected record reset, got %+v", reset)
	}
	if !reset.CreationTime.Equal(entry.CreationTime.UTC()) {
		t.Fatalf("creation time not refreshed: %s vs %s", reset.CreationTime, entry.CreationTime)
	}

	lib.ReprocessRecreatedFiles = false
	entry.CreationTime = time.Now().Add(time.Hour)
	if _, err := st.Reprocess(ctx, file.ID); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if err := st.Claim(ctx, file.ID, "copy", "req"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := r.Classify(ctx, lib, entry); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if still, _ := st.GetByID(ctx, file.ID); still.Status != store.StatusProcessing {
		t.Fatalf("record must be untouched when recreate detection is off, got %s", still.Status)
	}
}

func TestClassifyRecreatedFileWhileProcessing(t *testing.T) {
	root := t.TempDir()
	lib := library.Library{Name: "movies", Path: root, Enabled: true, ReprocessRecreatedFiles: true}
	r, st := setup(t, lib)
	ctx := context.Background()

	path := filepath.Join(root, "a.mkv")
	testsupport.WriteFile(t, path, 512)
	file := testsupport.NewFile(t, st, lib, "a.mkv")
	if err := st.Claim(ctx, file.ID, "copy", "req"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	entry, _ := library.Stat(path)
	entry.CreationTime = time.Now().Add(time.Minute)
	got, err := r.Classify(ctx, lib, entry)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.Known {
		t.Fatal("recreated file must be reported as known")
	}
	current, _ := st.GetByID(ctx, file.ID)
	if current.Status != store.StatusProcessing {
		t.Fatalf("processing record must keep its status, got %s", current.Status)
	}
	if pending, err := st.QueryUnprocessed(ctx, time.Now()); err != nil || len(pending) != 0 {
		t.Fatalf("processing file must not be claimable, got %d (%v)", len(pending), err)
	}
	if err := st.Complete(ctx, file.ID, store.StatusProcessed, "", 256); err != nil {
		t.Fatalf("Complete after recreate: %v", err)
	}
}
