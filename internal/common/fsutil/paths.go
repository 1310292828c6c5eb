// fsutil/paths.go
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// IsAbsPath checks if a path is absolute
func IsAbsPath(path string) bool {
	return filepath.IsAbs(path)
}

// ToAbsPath converts a relative path to an absolute path
func ToAbsPath(path string) (string, error) {
	if IsAbsPath(path) {
		return path, nil
	}
	return filepath.Abs(path)
}

// ExpandTilde expands the tilde in paths to the user's home directory
func ExpandTilde(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		if path == "~" {
			return home, nil
		}

		// Replace just the ~ prefix with home directory
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

// ResolvePath expands a leading tilde and resolves path against base when it is relative.
// An empty path resolves to base itself.
func ResolvePath(base, path string) (string, error) {
	expanded, err := ExpandTilde(path)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return base, nil
	}
	if IsAbsPath(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(base, expanded), nil
}
