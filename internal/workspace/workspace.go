// Package workspace locates the project root a hook invocation belongs to.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound means no enclosing directory carries a .quaestor marker.
var ErrNotFound = errors.New("not inside a quaestor project")

// Marker is the directory that identifies a project root.
const Marker = ".quaestor"

// Find walks up from dir looking for the project root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(filepath.Join(dir, Marker))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// FindFromCwd locates the project root from the working directory.
func FindFromCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return Find(cwd)
}

// Resolve picks the project root for a hook invocation: the host's cwd
// field when it points inside a project, the process cwd otherwise, and
// as a last resort the host cwd itself (a project that has not been
// initialized yet still gets its state directory created there).
func Resolve(hostCWD string) string {
	if hostCWD != "" {
		if root, err := Find(hostCWD); err == nil {
			return root
		}
	}
	if root, err := FindFromCwd(); err == nil {
		return root
	}
	if hostCWD != "" {
		return hostCWD
	}
	cwd, _ := os.Getwd()
	return cwd
}
