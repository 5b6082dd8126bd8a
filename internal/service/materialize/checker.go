package materialize

import (
	"context"
	"fmt"
	"strings"

	"bdp/internal/domain"
)

// Compile-time check.
var _ domain.Checker = (*TableChecker)(nil)

// TableChecker verifies materialization against the database catalog. It is
// adapter-agnostic: it catches declarative queries that produced nothing as
// well as self-materializing scripts that silently no-oped.
type TableChecker struct {
	catalog domain.Catalog
}

// NewTableChecker creates a TableChecker over the given catalog.
func NewTableChecker(catalog domain.Catalog) *TableChecker {
	return &TableChecker{catalog: catalog}
}

// Check verifies the asset's target table exists, and when the asset
// declares expected columns, that each declared column is present.
// Column comparison is case-insensitive; extra columns are allowed.
func (c *TableChecker) Check(ctx context.Context, asset *domain.Asset) error {
	exists, err := c.catalog.TableExists(ctx, asset.Target.Schema, asset.Target.Table)
	if err != nil {
		return fmt.Errorf("verify %s: %w", asset.Target, err)
	}
	if !exists {
		return domain.ErrNotFound("asset %q reported success but table %s does not exist", asset.Name, asset.Target)
	}

	if len(asset.Columns) == 0 {
		return nil
	}

	cols, err := c.catalog.TableColumns(ctx, asset.Target.Schema, asset.Target.Table)
	if err != nil {
		return fmt.Errorf("verify columns of %s: %w", asset.Target, err)
	}
	have := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		have[strings.ToLower(col)] = struct{}{}
	}
	for _, want := range asset.Columns {
		if _, ok := have[strings.ToLower(want)]; !ok {
			return domain.ErrValidation("table %s is missing declared column %q", asset.Target, want)
		}
	}
	return nil
}
