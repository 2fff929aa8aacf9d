package ux

import (
	"os"
	"path/filepath"
)

// DiscoverFile searches start and its parent directories for the first of
// names that exists. The search stops at the repository root (the first
// directory holding .git) or at the filesystem root.
func DiscoverFile(start string, names ...string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DiscoverWorkflow finds a workflow file starting at the working directory.
func DiscoverWorkflow(names ...string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return DiscoverFile(cwd, names...)
}
