package ux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFile(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "project")
	nested := filepath.Join(project, "sub", "nested")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(project, ".git"), 0755))

	workflow := filepath.Join(project, ".chainrun.yaml")
	require.NoError(t, os.WriteFile(workflow, []byte("version: \"0.5\"\n"), 0644))

	t.Run("found in parent", func(t *testing.T) {
		found, ok := DiscoverFile(nested, ".chainrun.yaml")
		require.True(t, ok)
		assert.Equal(t, workflow, found)
	})

	t.Run("first name wins in the same directory", func(t *testing.T) {
		hcl := filepath.Join(nested, ".chainrun.hcl")
		require.NoError(t, os.WriteFile(hcl, []byte(""), 0644))
		t.Cleanup(func() { os.Remove(hcl) })

		found, ok := DiscoverFile(nested, ".chainrun.hcl", ".chainrun.yaml")
		require.True(t, ok)
		assert.Equal(t, hcl, found)
	})

	t.Run("stops at git root", func(t *testing.T) {
		outside := filepath.Join(root, ".chainrun.other")
		require.NoError(t, os.WriteFile(outside, []byte(""), 0644))

		_, ok := DiscoverFile(nested, ".chainrun.other")
		assert.False(t, ok)
	})

	t.Run("directories are ignored", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(nested, "dir.yaml"), 0755))
		_, ok := DiscoverFile(nested, "dir.yaml")
		assert.False(t, ok)
	})
}
