package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"bdp/internal/domain"
	"bdp/internal/engine"
)

// Compile-time check.
var _ domain.Executor = (*ScriptExecutor)(nil)

// ScriptExecutor runs self-materializing script assets. It is a pure process
// boundary: the script receives the database location and target via
// environment variables, writes the table itself, and reports completion
// through its exit code. Stdout and stderr pass through as diagnostics.
type ScriptExecutor struct {
	engine *engine.Engine
}

// NewScriptExecutor creates a ScriptExecutor backed by the given engine.
func NewScriptExecutor(e *engine.Engine) *ScriptExecutor {
	return &ScriptExecutor{engine: e}
}

// Kind returns the asset kind this executor handles.
func (x *ScriptExecutor) Kind() domain.AssetKind {
	return domain.KindScript
}

// Execute ensures the target schema exists and invokes the script.
func (x *ScriptExecutor) Execute(ctx context.Context, asset *domain.Asset) error {
	if err := x.engine.EnsureSchema(ctx, asset.Target.Schema); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "bash", asset.Payload)
	cmd.Env = append(os.Environ(),
		"DB_PATH="+x.engine.Path(),
		"SCHEMA="+asset.Target.Schema,
		"TABLE="+asset.Target.Table,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// The script may open the database itself; hand over the file for the
	// duration of the process.
	if err := x.engine.Detach(cmd.Run); err != nil {
		return fmt.Errorf("script %s: %w", asset.Name, err)
	}
	return nil
}
