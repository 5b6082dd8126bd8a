package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdp/internal/domain"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.duckdb")
	e, err := Open(path)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, path, e.Path())
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.EnsureSchema(ctx, "raw"))
	require.NoError(t, e.EnsureSchema(ctx, "raw"))
}

func TestCreateOrReplaceTableAs(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	target := domain.TableRef{Schema: "raw", Table: "numbers"}

	require.NoError(t, e.EnsureSchema(ctx, "raw"))

	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target, "SELECT 1 AS value UNION ALL SELECT 2"))

	exists, err := e.TableExists(ctx, "raw", "numbers")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := e.RowCount(ctx, target)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Full refresh replaces contents entirely.
	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target, "SELECT 7 AS value"))
	n, err = e.RowCount(ctx, target)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateOrReplaceTableAsFailureKeepsOldTable(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	target := domain.TableRef{Schema: "raw", Table: "numbers"}

	require.NoError(t, e.EnsureSchema(ctx, "raw"))
	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target, "SELECT 1 AS value"))

	err := e.CreateOrReplaceTableAs(ctx, target, "SELECT * FROM raw.does_not_exist")
	require.Error(t, err)

	// Prior contents are untouched after a failed replace.
	n, err := e.RowCount(ctx, target)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDetachReattaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.duckdb")
	e, err := Open(path)
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	target := domain.TableRef{Schema: "raw", Table: "numbers"}
	require.NoError(t, e.EnsureSchema(ctx, "raw"))
	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target, "SELECT 1 AS value"))

	called := false
	require.NoError(t, e.Detach(func() error {
		called = true
		return nil
	}))
	assert.True(t, called)

	// The handle works again and the data survived the round trip.
	n, err := e.RowCount(ctx, target)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDetachPropagatesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.duckdb")
	e, err := Open(path)
	require.NoError(t, err)
	defer e.Close()

	wantErr := assert.AnError
	err = e.Detach(func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)

	require.NoError(t, e.EnsureSchema(context.Background(), "raw"))
}

func TestDetachInMemoryRunsDirectly(t *testing.T) {
	e := openTestEngine(t)

	called := false
	require.NoError(t, e.Detach(func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestTableExistsMissing(t *testing.T) {
	e := openTestEngine(t)

	exists, err := e.TableExists(context.Background(), "raw", "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTableColumns(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	target := domain.TableRef{Schema: "raw", Table: "people"}

	require.NoError(t, e.EnsureSchema(ctx, "raw"))
	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target, "SELECT 1 AS id, 'ada' AS name, true AS active"))

	cols, err := e.TableColumns(ctx, "raw", "people")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "active"}, cols)

	cols, err = e.TableColumns(ctx, "raw", "missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestSampleRows(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	target := domain.TableRef{Schema: "raw", Table: "numbers"}

	require.NoError(t, e.EnsureSchema(ctx, "raw"))
	require.NoError(t, e.CreateOrReplaceTableAs(ctx, target,
		"SELECT 1 AS value, 'one' AS label UNION ALL SELECT 2, NULL ORDER BY 1"))

	cols, rows, err := e.SampleRows(ctx, target, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "label"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "one"}, rows[0])
	assert.Equal(t, "NULL", rows[1][1])

	_, rows, err = e.SampleRows(ctx, target, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
