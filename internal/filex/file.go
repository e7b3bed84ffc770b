// Package filex holds small filesystem helpers for the CLI tools.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates base/dirName with owner-only permissions and returns it.
func EnsureDir(base, dirName string) (string, error) {
	dir := filepath.Join(base, dirName)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// EnsureConfigDir is EnsureDir under the user's config directory, or under
// the working directory when the platform has none.
func EnsureConfigDir(dirName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		if base, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
	}
	return EnsureDir(base, dirName)
}
