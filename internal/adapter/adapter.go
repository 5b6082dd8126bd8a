// Package adapter provides one execution adapter per asset kind. Adapters
// implement domain.Executor; the runner dispatches on the asset's kind and
// never interprets payloads itself.
package adapter

import (
	"bdp/internal/domain"
	"bdp/internal/engine"
)

// Executors builds the default adapter set for the given engine.
func Executors(e *engine.Engine) map[domain.AssetKind]domain.Executor {
	return map[domain.AssetKind]domain.Executor{
		domain.KindQuery:  NewQueryExecutor(e),
		domain.KindScript: NewScriptExecutor(e),
	}
}
