package domain

import "context"

// Catalog exposes the database's table catalog. Implemented by the DuckDB
// engine; the graph builder uses it to resolve external leaves and the
// materialization checker uses it to verify targets.
type Catalog interface {
	TableExists(ctx context.Context, schema, table string) (bool, error)
	TableColumns(ctx context.Context, schema, table string) ([]string, error)
}

// Executor runs one asset's payload against the database and/or a host
// process. One implementation per asset kind; new kinds plug in as new
// implementations without touching the runner.
type Executor interface {
	Kind() AssetKind
	Execute(ctx context.Context, asset *Asset) error
}

// Checker verifies that an asset's declared target was materialized after
// its adapter reported success.
type Checker interface {
	Check(ctx context.Context, asset *Asset) error
}
