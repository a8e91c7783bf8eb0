// SPDX-License-Identifier: MIT

// Package paths resolves configured file locations against a stable root.
//
// The catalog frequently runs embedded inside a host application whose
// working directory is unrelated to the install location, so relative paths
// must never be resolved against the ambient working directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRoot returns the directory containing the running executable. When
// the executable path cannot be determined (rare; some exotic embedding
// setups), it falls back to the working directory.
func DefaultRoot() string {
	exe, err := os.Executable()
	if err != nil {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return "."
		}
		return wd
	}
	return filepath.Dir(exe)
}

// ResolveDatabasePath turns a configured database path into an absolute one.
// Absolute inputs are cleaned and passed through; relative inputs anchor at
// root, never at the process working directory.
func ResolveDatabasePath(root, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("database path is empty")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if root == "" {
		root = DefaultRoot()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	return filepath.Join(absRoot, p), nil
}
