package flow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestCommandExecutorSuccessStreamsOutput(t *testing.T) {
	media := filepath.Join(t.TempDir(), "a.mkv")
	if err := os.WriteFile(media, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	script := writeScript(t, `echo "processing $1 in $2"; echo "warn $3" >&2`)
	def := Definition{Name: "copy", Command: script, Args: []string{"{file}", "{library}", "{name}"}}
	job := Job{FileID: 7, Path: media, RelativePath: "a.mkv", Library: "movies"}

	sink, buf := bufferLogger()
	result, err := NewCommandExecutor().Run(context.Background(), job, def, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Succeeded || result.OutputSize != 5 {
		t.Fatalf("unexpected result %+v", result)
	}
	out := buf.String()
	if !strings.Contains(out, "processing "+media+" in movies") {
		t.Fatalf("stdout not captured: %s", out)
	}
	if !strings.Contains(out, "warn a.mkv") || !strings.Contains(out, "stream=stderr") {
		t.Fatalf("stderr not captured: %s", out)
	}
}

func TestCommandExecutorLongUnterminatedOutput(t *testing.T) {
	script := writeScript(t, `head -c 3000000 /dev/zero | tr '\0' x; printf '\nprogress 1\rprogress 2\r'; echo done`)
	def := Definition{Name: "noisy", Command: script}
	sink, buf := bufferLogger()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := NewCommandExecutor().Run(context.Background(), Job{Path: "/nowhere"}, def, sink)
		done <- outcome{result, err}
	}()
	select {
	case got := <-done:
		if got.err != nil || !got.result.Succeeded {
			t.Fatalf("unexpected outcome %+v, %v", got.result, got.err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("executor did not return while the flow wrote a long line")
	}
	out := buf.String()
	for _, want := range []string{"msg=\"progress 1\"", "msg=\"progress 2\"", "msg=done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in output", want)
		}
	}
}

func TestScanOutputLines(t *testing.T) {
	advance, token, _ := scanOutputLines([]byte("50%\r51%"), false)
	if advance != 4 || string(token) != "50%" {
		t.Fatalf("carriage return split = %d %q", advance, token)
	}
	if advance, token, _ := scanOutputLines([]byte("partial"), false); advance != 0 || token != nil {
		t.Fatalf("expected more data request, got %d %q", advance, token)
	}
	if advance, token, _ := scanOutputLines([]byte("tail"), true); advance != 4 || string(token) != "tail" {
		t.Fatalf("final token = %d %q", advance, token)
	}
	long := bytes.Repeat([]byte("x"), maxOutputLine+10)
	if advance, token, _ := scanOutputLines(long, false); advance != maxOutputLine || len(token) != maxOutputLine {
		t.Fatalf("long run split = %d, %d bytes", advance, len(token))
	}
}

func TestCommandExecutorNonZeroExit(t *testing.T) {
	script := writeScript(t, "exit 3")
	result, err := NewCommandExecutor().Run(context.Background(), Job{Path: "/nowhere"}, Definition{Name: "fail", Command: script}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded || result.FailureReason != "exit status 3" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCommandExecutorTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5")
	def := Definition{Name: "slow", Command: script, Timeout: 50 * time.Millisecond}
	result, err := NewCommandExecutor().Run(context.Background(), Job{Path: "/nowhere"}, def, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded || !strings.HasPrefix(result.FailureReason, "timed out") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCommandExecutorCancellation(t *testing.T) {
	script := writeScript(t, "exec sleep 5")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := NewCommandExecutor().Run(ctx, Job{Path: "/nowhere"}, Definition{Name: "slow", Command: script}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	def := Definition{Name: "ghost", Command: "fileflows-no-such-binary"}
	exec := NewCommandExecutor()
	if _, err := exec.Run(context.Background(), Job{}, def, nil); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}
	if health := exec.HealthCheck(context.Background(), def); health.Ready {
		t.Fatalf("expected unhealthy flow, got %+v", health)
	}
	if health := exec.HealthCheck(context.Background(), Definition{Name: "sh", Command: "sh"}); !health.Ready {
		t.Fatalf("expected sh to resolve, got %+v", health)
	}
}

func TestExpandArgs(t *testing.T) {
	job := Job{Path: "/lib/movies/Film (2020)/film.mkv", RelativePath: "Film (2020)/film.mkv", Library: "movies"}
	got := expandArgs([]string{"-i", "{file}", "--out=/out/{relative}", "{library}:{name}"}, job)
	want := []string{"-i", "/lib/movies/Film (2020)/film.mkv", "--out=/out/Film (2020)/film.mkv", "movies:film.mkv"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expandArgs = %q, want %q", got, want)
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(Definition{Name: "b"}, Definition{Name: "a"})
	if _, ok := c.Lookup(" a "); !ok {
		t.Fatal("expected lookup to trim whitespace")
	}
	all := c.All()
	if len(all) != 2 || all[0].Name != "a" || all[1].Name != "b" {
		t.Fatalf("unexpected catalog order %+v", all)
	}
	c.Replace([]Definition{{Name: "c"}})
	if _, ok := c.Lookup("a"); ok {
		t.Fatal("replace must drop old definitions")
	}
}
