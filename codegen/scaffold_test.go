package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffold(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Scaffold("churn-model", dir))

	for _, rel := range []string{
		"src/app.py",
		"src/health.py",
		"src/prediction.py",
		"src/model_loader.py",
		"src/__init__.py",
		"tests/test_health.py",
		"tests/__init__.py",
		"Dockerfile",
		"requirements.txt",
		"README.md",
	} {
		_, err := os.Stat(filepath.Join(dir, rel))
		assert.NoError(t, err, rel)
	}

	app, err := os.ReadFile(filepath.Join(dir, "src", "app.py"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(app), "churn-model"))
	assert.False(t, strings.Contains(string(app), "{{"))

	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(readme), "# churn-model"))
}

func TestScaffoldOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.py"), []byte("stale"), 0o644))

	require.NoError(t, Scaffold("churn-model", dir))
	app, err := os.ReadFile(filepath.Join(dir, "src", "app.py"))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(app))
}
