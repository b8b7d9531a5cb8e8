package home

import (
	"path/filepath"
	"testing"
)

func TestNewWithExplicitPath(t *testing.T) {
	d, err := New("/tmp/custom-home")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Path() != "/tmp/custom-home" {
		t.Fatalf("expected explicit path to be preserved, got %q", d.Path())
	}
	if d.UploadsPath() != filepath.Join("/tmp/custom-home", UploadsDirName) {
		t.Fatalf("unexpected uploads path: %q", d.UploadsPath())
	}
}

func TestEnsureExists(t *testing.T) {
	tmp := t.TempDir()
	d, err := New(filepath.Join(tmp, "home"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(""); err != nil {
		t.Fatalf("default home dir resolution failed: %v", err)
	}
}

func TestSessionUploadPath(t *testing.T) {
	d, _ := New("/tmp/custom-home")
	got := d.SessionUploadPath("abc123")
	want := filepath.Join("/tmp/custom-home", UploadsDirName, "abc123.pdf")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
