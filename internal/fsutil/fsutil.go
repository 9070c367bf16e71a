// Package fsutil provides file system helpers for output artifacts.
package fsutil

import (
	"fmt"
	"os"
)

// EnsureDir creates the directory (and any parents) if it does not exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// VerifyFile checks that a generated artifact exists and is non-empty,
// returning its size in bytes.
func VerifyFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("verify %s: is a directory", path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("verify %s: file is empty", path)
	}
	return info.Size(), nil
}
