package installlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_HeaderOrder(t *testing.T) {
	var buf Buffer
	buf.Append("source_build: %d", 100)
	buf.Append("target_build: %d", 200)

	content := Render(Header{
		PackagePath: "/data/update.zip",
		Success:     true,
		TimeTotal:   42,
		RetryCount:  1,
	}, &buf)

	lines := strings.Split(content, "\n")
	want := []string{
		"/data/update.zip",
		"1",
		"time_total: 42",
		"retry: 1",
		"source_build: 100",
		"target_build: 200",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRender_FailureBit(t *testing.T) {
	content := Render(Header{PackagePath: "p", Success: false}, &Buffer{})
	lines := strings.Split(content, "\n")
	if lines[1] != "0" {
		t.Errorf("success bit: got %q, want %q", lines[1], "0")
	}
}

func TestWrite_CreatesFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "last_install")

	if err := Write(path, "content\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(got) != "content\n" {
		t.Errorf("got %q, want %q", got, "content\n")
	}
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_install")

	if err := Write(path, "first"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := Write(path, "second"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}
}
