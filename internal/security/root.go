package security

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
)

var (
	ErrPathEscapes  = errors.New("path escapes data directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// Root provides file operations confined to a directory
type Root struct {
	root *os.Root
	path string
}

// Open opens the directory at path as a Root, creating it with owner-only
// permissions if it does not exist
func Open(path string) (*Root, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	return &Root{root: root, path: absPath}, nil
}

// Close releases the directory handle
func (r *Root) Close() error {
	if r.root != nil {
		return r.root.Close()
	}
	return nil
}

// Path returns the absolute path of the directory
func (r *Root) Path() string {
	return r.path
}

// Clean validates a user-provided relative path and returns it normalized
// with forward slashes
func (r *Root) Clean(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) || strings.HasPrefix(userPath, "/") {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(filepath.Clean(userPath)), nil
}

func (r *Root) local(path string) (string, error) {
	clean, err := r.Clean(filepath.FromSlash(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return filepath.FromSlash(clean), nil
}

// MkdirAll creates a directory and its parents inside the root
func (r *Root) MkdirAll(path string) error {
	local, err := r.local(path)
	if err != nil {
		return err
	}

	var current string
	for _, part := range strings.Split(local, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		err := r.root.Mkdir(current, DirPermSecure)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// CreateFile writes data to a new file. It fails with fs.ErrExist rather
// than overwrite.
func (r *Root) CreateFile(path string, data []byte) error {
	return r.writeFile(path, data, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

// WriteFile writes data to a file, replacing any previous content
func (r *Root) WriteFile(path string, data []byte) error {
	return r.writeFile(path, data, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func (r *Root) writeFile(path string, data []byte, flag int) error {
	local, err := r.local(path)
	if err != nil {
		return err
	}

	f, err := r.root.OpenFile(local, flag, FilePermSecure)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a file inside the root
func (r *Root) ReadFile(path string) ([]byte, error) {
	local, err := r.local(path)
	if err != nil {
		return nil, err
	}

	f, err := r.root.Open(local)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Stat returns file info for a path inside the root
func (r *Root) Stat(path string) (os.FileInfo, error) {
	local, err := r.local(path)
	if err != nil {
		return nil, err
	}
	return r.root.Stat(local)
}

// Remove deletes a file inside the root
func (r *Root) Remove(path string) error {
	local, err := r.local(path)
	if err != nil {
		return err
	}
	return r.root.Remove(local)
}

// ReadDir lists the names of regular files in a directory, sorted. A missing
// directory lists as empty.
func (r *Root) ReadDir(path string) ([]string, error) {
	local, err := r.local(path)
	if err != nil {
		return nil, err
	}

	f, err := r.root.Open(local)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
