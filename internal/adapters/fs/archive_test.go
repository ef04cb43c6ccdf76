package fs

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestArchiveDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "race")
	if err := os.MkdirAll(filepath.Join(dir, "old"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"2024010101.parquet":     "a",
		"2024010102.parquet":     "bb",
		"old/2023120101.parquet": "ccc",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dst := filepath.Join(root, "race.zip")
	n, err := ArchiveDir(context.Background(), dir, dst)
	if err != nil {
		t.Fatalf("ArchiveDir() error = %v", err)
	}
	if n != len(files) {
		t.Errorf("ArchiveDir() = %d files, want %d", n, len(files))
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		rel := f.Name[len("race/"):]
		if string(body) != files[rel] {
			t.Errorf("%s = %q, want %q", f.Name, body, files[rel])
		}
	}
	sort.Strings(names)
	want := []string{"race/2024010101.parquet", "race/2024010102.parquet", "race/old/2023120101.parquet"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp archive left behind")
	}
}

func TestArchiveDir_MissingDir(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(root, "x.zip")
	if _, err := ArchiveDir(context.Background(), filepath.Join(root, "missing"), dst); err == nil {
		t.Fatal("ArchiveDir() on missing dir should fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("archive created for missing dir")
	}
}
