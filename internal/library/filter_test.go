package library_test

import (
	"path/filepath"
	"strings"
	"testing"

	"fileflows/internal/library"
)

func TestFilterExclusionWinsOverInclusion(t *testing.T) {
	f, err := library.NewFilter(library.Library{
		Name:            "movies",
		Path:            "/lib",
		Filter:          `\.mkv$`,
		ExclusionFilter: `sample`,
	})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	cases := map[string]bool{
		"/lib/movie.mkv":        true,
		"/lib/movie.MKV":        true,
		"/lib/movie-sample.mkv": false,
		"/lib/SAMPLE/movie.mkv": false,
		"/lib/movie.mp4":        false,
	}
	for path, want := range cases {
		if got := f.Match(path); got != want {
			t.Fatalf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestFilterDefaultsToAccept(t *testing.T) {
	f, err := library.NewFilter(library.Library{Name: "all", Path: "/lib"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.Accept("/lib/anything.bin") {
		t.Fatal("expected path to be accepted without patterns")
	}
	if f.Accept("/lib/partial.mkv_") {
		t.Fatal("expected provisional path to be rejected")
	}
}

func TestNewFilterRejectsInvalidPattern(t *testing.T) {
	if _, err := library.NewFilter(library.Library{Name: "bad", Path: "/lib", Filter: "("}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if err := library.CompilePattern("[a-"); err == nil {
		t.Fatal("expected CompilePattern error")
	}
}

func TestFilterHiddenStopsAtRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".config", "media")
	f, err := library.NewFilter(library.Library{Name: "hidden", Path: root, ExcludeHidden: true})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.Hidden(filepath.Join(root, "show", "episode.mkv")) {
		t.Fatal("dot directories above the library root must not hide files")
	}
	if !f.Hidden(filepath.Join(root, ".trash", "episode.mkv")) {
		t.Fatal("expected file under hidden directory to be hidden")
	}
	if !f.Hidden(filepath.Join(root, "show", ".episode.mkv")) {
		t.Fatal("expected dot file to be hidden")
	}
}

func TestFilterHiddenDepthCap(t *testing.T) {
	root := "/lib"
	f, err := library.NewFilter(library.Library{Name: "deep", Path: root})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	parts := []string{root, ".hidden"}
	for i := 0; i < library.MaxHiddenDepth+5; i++ {
		parts = append(parts, "d")
	}
	parts = append(parts, "file.mkv")
	deep := filepath.Join(parts...)
	if f.Hidden(deep) {
		t.Fatalf("expected walk to stop before reaching hidden ancestor (%d levels)", strings.Count(deep, "/"))
	}
}

func TestFilterContainsAndTopLevel(t *testing.T) {
	f, err := library.NewFilter(library.Library{Name: "c", Path: "/lib/movies"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.Contains("/lib/movies/a.mkv") {
		t.Fatal("expected file below root to be contained")
	}
	for _, path := range []string{"/lib/movies", "/lib/movies2/a.mkv", "/lib/a.mkv"} {
		if f.Contains(path) {
			t.Fatalf("expected %q to be outside the root", path)
		}
	}
	top, ok := f.TopLevel("/lib/movies/Film (2020)/extras/a.mkv")
	if !ok || top != "/lib/movies/Film (2020)" {
		t.Fatalf("unexpected top level %q (ok=%v)", top, ok)
	}
}
