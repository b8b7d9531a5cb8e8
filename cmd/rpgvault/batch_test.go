package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsPDFFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"book.pdf", "scan.PDF", "notes.txt", "readme"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir.pdf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	got := make(map[string]bool)
	for _, e := range entries {
		got[e.Name()] = isPDFFile(e)
	}

	want := map[string]bool{
		"book.pdf":   true,
		"scan.PDF":   true,
		"notes.txt":  false,
		"readme":     false,
		"subdir.pdf": false,
	}
	for name, wantVal := range want {
		if got[name] != wantVal {
			t.Errorf("isPDFFile(%s) = %v, want %v", name, got[name], wantVal)
		}
	}
}
