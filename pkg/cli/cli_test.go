package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject lays out a project directory with a three-stage pipeline and
// chdirs into it. Returns the database path commands should use.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assets, 0o755))

	writeAsset(t, assets, "base.sql", `-- asset.name = base
-- asset.schema = raw
SELECT * FROM (VALUES (1), (2), (3)) AS t(value)
`)
	writeAsset(t, assets, "double.sql", `-- asset.name = double
-- asset.schema = stage
-- asset.depends = raw.base
SELECT value * 2 AS value FROM raw.base
`)
	writeAsset(t, assets, "filtered.sql", `-- asset.name = filtered
-- asset.schema = mart
-- asset.depends = stage.double
SELECT value FROM stage.double WHERE value > 2
`)

	t.Chdir(dir)
	return filepath.Join(dir, "test.duckdb")
}

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// captureStdout redirects os.Stdout until the returned function is called.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	return func() string {
		os.Stdout = old
		require.NoError(t, w.Close())
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(out)
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	done := captureStdout(t)
	err := rootCmd.Execute()
	return done(), err
}

func TestMaterializeCommand(t *testing.T) {
	dbPath := setupProject(t)

	output, err := runCommand(t, "materialize", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, output, "succeeded")
	assert.Contains(t, output, "mart.filtered")
	assert.FileExists(t, dbPath)
}

func TestMaterializeSelection(t *testing.T) {
	dbPath := setupProject(t)

	output, err := runCommand(t, "materialize", "double", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, output, "stage.double")
	assert.NotContains(t, output, "mart.filtered")
}

func TestMaterializeFailureExitsNonZero(t *testing.T) {
	dbPath := setupProject(t)
	writeAsset(t, "assets", "double.sql", `-- asset.name = double
-- asset.schema = stage
-- asset.depends = raw.base
SELECT value * FROM raw.base
`)

	output, err := runCommand(t, "materialize", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with failures")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "skipped")
}

func TestMaterializeUnknownAsset(t *testing.T) {
	dbPath := setupProject(t)

	_, err := runCommand(t, "materialize", "nope", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown assets: nope")
}

func TestCheckCommand(t *testing.T) {
	dbPath := setupProject(t)

	output, err := runCommand(t, "check", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, output, "OK    Assets parse and file names match")
	assert.Contains(t, output, "OK    Asset bodies are non-empty")
	assert.Contains(t, output, "OK    Target tables are unique")
	assert.Contains(t, output, "OK    All dependencies resolve")
	assert.Contains(t, output, "OK    No dependency cycles")
}

func TestCheckCommandFailure(t *testing.T) {
	dbPath := setupProject(t)
	writeAsset(t, "assets", "foo.sql", `-- asset.name = bar
-- asset.schema = raw
SELECT 1
`)

	output, err := runCommand(t, "check", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, output, "FAIL")
	assert.Contains(t, output, "does not match file name")
}

func TestListCommand(t *testing.T) {
	dbPath := setupProject(t)

	output, err := runCommand(t, "list", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, output, "base")
	assert.Contains(t, output, "stage.double")
	assert.Contains(t, output, "raw.base")
}

func TestDocsCommand(t *testing.T) {
	dbPath := setupProject(t)
	outDir := filepath.Join(t.TempDir(), "site")

	_, err := runCommand(t, "materialize", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.NoError(t, err)

	output, err := runCommand(t, "docs", "--db", dbPath, "--assets-root", "assets", "--log-level", "error", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote docs for 3 assets")
	assert.FileExists(t, filepath.Join(outDir, "index.html"))
	assert.FileExists(t, filepath.Join(outDir, "assets", "double.html"))
}

func TestVersionCommand(t *testing.T) {
	output, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "bdp version")
}

func TestMissingAssetsRoot(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := runCommand(t, "list", "--db", "x.duckdb", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assets directory found")
}

func TestScheduleRequiresCron(t *testing.T) {
	setupProject(t)

	_, err := runCommand(t, "schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron")
}

func TestScheduleRejectsInvalidCron(t *testing.T) {
	dbPath := setupProject(t)

	_, err := runCommand(t, "schedule", "--cron", "not a spec", "--db", dbPath, "--assets-root", "assets", "--log-level", "error")
	require.Error(t, err)
}
