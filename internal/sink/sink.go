// Package sink delivers a serialized calendar or tabular export.
//
// Destinations are standard output, a local file, an SFTP server and a WebDAV
// collection. Every sink releases the resources it opens (files, SSH sessions,
// HTTP uploads) whether or not the write succeeds.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink defines the interface for delivering serialized output
type Sink interface {
	// Name identifies the destination in logs
	Name() string
	// Write delivers data in full, replacing any previous content
	Write(ctx context.Context, data []byte) error
}

// Writer sends output to an io.Writer such as standard output
type Writer struct {
	name string
	w    io.Writer
}

// NewWriter creates a sink writing to w
func NewWriter(name string, w io.Writer) *Writer {
	return &Writer{name: name, w: w}
}

func (s *Writer) Name() string { return s.name }

func (s *Writer) Write(_ context.Context, data []byte) error {
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("writing to %s: %w", s.name, err)
	}
	return nil
}

// File writes output to a local path, replacing it atomically
type File struct {
	path string
}

// NewFile creates a file sink. A leading "~/" expands to the home directory.
func NewFile(path string) (*File, error) {
	p, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &File{path: p}, nil
}

func (f *File) Name() string { return "file:" + f.path }

// Path returns the expanded destination path
func (f *File) Path() string { return f.path }

func (f *File) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", f.path, err)
	}
	// Published calendars are world readable
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}

// expandHome expands a leading "~/" to the user's home directory
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
