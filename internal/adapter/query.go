package adapter

import (
	"context"

	"bdp/internal/domain"
	"bdp/internal/engine"
)

// Compile-time check.
var _ domain.Executor = (*QueryExecutor)(nil)

// QueryExecutor materializes declarative SQL assets: the payload is a single
// query whose result set replaces the target table's entire contents.
type QueryExecutor struct {
	engine *engine.Engine
}

// NewQueryExecutor creates a QueryExecutor backed by the given engine.
func NewQueryExecutor(e *engine.Engine) *QueryExecutor {
	return &QueryExecutor{engine: e}
}

// Kind returns the asset kind this executor handles.
func (x *QueryExecutor) Kind() domain.AssetKind {
	return domain.KindQuery
}

// Execute runs the full-refresh materialization. The replace is atomic on
// the engine side: a failing query leaves any prior target table untouched.
func (x *QueryExecutor) Execute(ctx context.Context, asset *domain.Asset) error {
	if asset.Payload == "" {
		return domain.ErrValidation("query asset %s has an empty payload", asset.Name)
	}
	if err := x.engine.EnsureSchema(ctx, asset.Target.Schema); err != nil {
		return err
	}
	return x.engine.CreateOrReplaceTableAs(ctx, asset.Target, asset.Payload)
}
