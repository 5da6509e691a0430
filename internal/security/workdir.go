// Package security confines the files the CLI reads and writes to the
// working directory using os.Root.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrFileExists   = errors.New("file already exists")
)

// Workdir performs file operations confined to a directory
type Workdir struct {
	root *os.Root
	path string
}

// Open opens dir as a confinement root
func Open(dir string) (*Workdir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open working directory: %w", err)
	}

	return &Workdir{root: root, path: absPath}, nil
}

// Close releases the root handle
func (w *Workdir) Close() error {
	if w.root != nil {
		return w.root.Close()
	}
	return nil
}

// Path returns the absolute path of the working directory
func (w *Workdir) Path() string {
	return w.path
}

// Resolve validates a user-supplied path and returns it relative to the
// working directory, with forward slashes.
func (w *Workdir) Resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			rel, err := filepath.Rel(w.path, filepath.Clean(userPath))
			if err != nil || !filepath.IsLocal(rel) {
				return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
			}
			return filepath.ToSlash(rel), nil
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(filepath.Clean(userPath)), nil
}

// ReadFile reads a file inside the working directory
func (w *Workdir) ReadFile(userPath string) ([]byte, error) {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return w.root.ReadFile(filepath.FromSlash(rel))
}

// WriteFile writes a file inside the working directory, creating parent
// directories. An existing file is only replaced when overwrite is set.
func (w *Workdir) WriteFile(userPath string, data []byte, perm os.FileMode, overwrite bool) error {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	platformPath := filepath.FromSlash(rel)

	if dir := filepath.Dir(platformPath); dir != "." {
		if err := w.root.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := w.root.OpenFile(platformPath, flags, perm)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrFileExists, rel)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Exists reports whether a path inside the working directory exists
func (w *Workdir) Exists(userPath string) bool {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return false
	}
	_, err = w.root.Stat(filepath.FromSlash(rel))
	return err == nil
}
