//go:build integration

package itest

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// repoRoot resolves the module root from this file's location, two levels
// under it, and checks that go.mod is there.
func repoRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("resolve itest source path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		return "", errors.New("no go.mod at " + root)
	}
	return root, nil
}
