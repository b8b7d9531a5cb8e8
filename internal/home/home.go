// Package home locates the on-disk working directory for uploaded PDFs
// and the default config file. Rendered page images are not kept here.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the ingest home directory.
	DefaultDirName = ".rpgvault"

	// UploadsDirName is the subdirectory holding uploaded document blobs.
	UploadsDirName = "uploads"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the ingest home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path. If path is empty, uses the
// default (~/.rpgvault).
func New(path string) (*Dir, error) {
	if path == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(h, DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string { return d.path }

// UploadsPath returns the path to the uploads directory.
func (d *Dir) UploadsPath() string { return filepath.Join(d.path, UploadsDirName) }

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string { return filepath.Join(d.path, ConfigFileName) }

// SessionUploadPath returns the path for a given session's uploaded blob.
func (d *Dir) SessionUploadPath(sessionID string) string {
	return filepath.Join(d.UploadsPath(), sessionID+".pdf")
}

// EnsureExists creates the home directory and its subdirectories.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.UploadsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return nil
}
