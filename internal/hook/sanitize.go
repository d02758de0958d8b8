package hook

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CleanPath validates a file path from a hook payload against the project
// root. Relative paths resolve under root; paths that escape the root via
// traversal, and paths containing NUL bytes, are rejected. Hook payloads
// come from tool calls the assistant composed, so they are treated as
// untrusted input.
func CleanPath(root, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path contains NUL byte")
	}

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes project root", p)
	}
	return abs, nil
}

// FilePath extracts and validates the file_path field common to Edit and
// Write tool inputs. Returns empty with no error when the field is absent.
func (in *Input) FilePath(root string) (string, error) {
	if in.ToolInput == nil {
		return "", nil
	}
	raw, ok := in.ToolInput["file_path"].(string)
	if !ok || raw == "" {
		return "", nil
	}
	return CleanPath(root, raw)
}
