package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdp/internal/domain"
	"bdp/internal/engine"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestQueryExecutorMaterializes(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	x := NewQueryExecutor(e)
	assert.Equal(t, domain.KindQuery, x.Kind())

	asset := &domain.Asset{
		Name:    "base_numbers",
		Kind:    domain.KindQuery,
		Target:  domain.TableRef{Schema: "raw", Table: "base_numbers"},
		Payload: "SELECT 1 AS value UNION ALL SELECT 2 UNION ALL SELECT 3",
	}
	require.NoError(t, x.Execute(ctx, asset))

	exists, err := e.TableExists(ctx, "raw", "base_numbers")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := e.RowCount(ctx, asset.Target)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestQueryExecutorReadsUpstreamTable(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	base := &domain.Asset{
		Name:    "base",
		Kind:    domain.KindQuery,
		Target:  domain.TableRef{Schema: "raw", Table: "base"},
		Payload: "SELECT 2 AS value UNION ALL SELECT 4",
	}
	x := NewQueryExecutor(e)
	require.NoError(t, x.Execute(ctx, base))

	double := &domain.Asset{
		Name:    "double",
		Kind:    domain.KindQuery,
		Target:  domain.TableRef{Schema: "marts", Table: "double"},
		Payload: "SELECT value * 2 AS value FROM raw.base",
		DependsOn: []domain.TableRef{
			{Schema: "raw", Table: "base"},
		},
	}
	require.NoError(t, x.Execute(ctx, double))

	n, err := e.RowCount(ctx, double.Target)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestQueryExecutorEmptyPayload(t *testing.T) {
	e := openTestEngine(t)

	x := NewQueryExecutor(e)
	err := x.Execute(context.Background(), &domain.Asset{
		Name:   "empty",
		Kind:   domain.KindQuery,
		Target: domain.TableRef{Schema: "raw", Table: "empty"},
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*domain.ValidationError))
}

func TestQueryExecutorFailureLeavesPriorTable(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	x := NewQueryExecutor(e)
	asset := &domain.Asset{
		Name:    "base",
		Kind:    domain.KindQuery,
		Target:  domain.TableRef{Schema: "raw", Table: "base"},
		Payload: "SELECT 1 AS value",
	}
	require.NoError(t, x.Execute(ctx, asset))

	broken := *asset
	broken.Payload = "SELECT * FROM raw.missing_upstream"
	require.Error(t, x.Execute(ctx, &broken))

	n, err := e.RowCount(ctx, asset.Target)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestExecutorsCoverAllKinds(t *testing.T) {
	e := openTestEngine(t)

	executors := Executors(e)
	require.Contains(t, executors, domain.KindQuery)
	require.Contains(t, executors, domain.KindScript)
	for kind, x := range executors {
		assert.Equal(t, kind, x.Kind())
	}
}
