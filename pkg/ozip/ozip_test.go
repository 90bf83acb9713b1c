package ozip

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTestZip(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "package.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return path
}

func TestOpenFile_FindAndExtractToMemory(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"META-INF/com/android/metadata": "pre-device=sargo\n",
	})

	a, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer a.Close()

	entry, ok := a.Find("META-INF/com/android/metadata")
	if !ok {
		t.Fatal("expected metadata entry to be found")
	}

	data, err := a.ExtractToMemory(entry)
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if string(data) != "pre-device=sargo\n" {
		t.Errorf("got %q", string(data))
	}
}

func TestFind_MissingEntry(t *testing.T) {
	path := writeTestZip(t, map[string]string{"a.txt": "x"})
	a, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer a.Close()

	if _, ok := a.Find("payload.bin"); ok {
		t.Error("expected payload.bin to be absent")
	}
}

func TestExtractToFile_WritesWithMode(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"META-INF/com/google/android/update-binary": "#!/bin/sh\necho hi\n",
	})
	a, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer a.Close()

	entry, ok := a.Find("META-INF/com/google/android/update-binary")
	if !ok {
		t.Fatal("expected update-binary entry")
	}

	dst := filepath.Join(t.TempDir(), "update_binary")
	if err := a.ExtractToFile(entry, dst, 0755); err != nil {
		t.Fatalf("failed to extract to file: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("failed to stat extracted file: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}
