package testutil

import (
	"os"
	"path/filepath"
)

// TempDir creates a temporary directory for testing that will be removed on
// test cleanup. It panics if the directory cannot be created.
func TempDir(c Cleanuper) string {
	dir, err := os.MkdirTemp("", "oopis-test")
	if err != nil {
		panic(err)
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
