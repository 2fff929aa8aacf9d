package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadPlanFile(t *testing.T) {
	p := samplePlan(t)
	path := filepath.Join(t.TempDir(), "plan.yaml")

	require.NoError(t, SavePlan(p, path, FormatYAML, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadPlan(path, FormatYAML, nil)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestSaveAndLoadPlanStdio(t *testing.T) {
	p := samplePlan(t)

	var out bytes.Buffer
	require.NoError(t, SavePlan(p, Stdio, FormatJSONPretty, &out))
	assert.Contains(t, out.String(), "\n  \"stages\"")

	loaded, err := LoadPlan("", FormatJSON, &out)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLoadPlanMissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.json"), FormatJSON, nil)
	assert.Error(t, err)
}
