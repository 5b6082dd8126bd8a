package domain

import (
	"regexp"
	"strings"
)

// AssetKind identifies the execution strategy for an asset.
type AssetKind string

const (
	// KindQuery is a declarative SQL asset: the orchestrator materializes
	// its result set into the target table with a full-refresh replace.
	KindQuery AssetKind = "sql"

	// KindScript is a self-materializing asset: an external executable that
	// writes the target table itself and only signals completion via its
	// exit code.
	KindScript AssetKind = "script"
)

// identifierRE constrains schema, table, and asset names to plain SQL
// identifiers so targets can be interpolated into DDL without quoting.
var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is usable as a schema or table name.
func ValidIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}

// TableRef is a fully qualified table location.
type TableRef struct {
	Schema string
	Table  string
}

func (r TableRef) String() string {
	return r.Schema + "." + r.Table
}

// ParseTableRef parses a "schema.table" reference.
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return TableRef{}, ErrValidation("invalid table reference %q: expected schema.table", s)
	}
	ref := TableRef{Schema: parts[0], Table: parts[1]}
	if !ValidIdentifier(ref.Schema) {
		return TableRef{}, ErrValidation("invalid schema name %q in reference %q", ref.Schema, s)
	}
	if !ValidIdentifier(ref.Table) {
		return TableRef{}, ErrValidation("invalid table name %q in reference %q", ref.Table, s)
	}
	return ref, nil
}

// Asset is the parsed descriptor of one asset file. Immutable after parse;
// descriptors live for exactly one orchestrator run.
type Asset struct {
	// Name is the unique asset identifier and always equals the source
	// file's base name with the extension stripped.
	Name string

	// Target is the table this asset materializes. Globally unique across
	// the asset set.
	Target TableRef

	// Kind selects the execution adapter.
	Kind AssetKind

	// Path is the asset file's absolute location on disk.
	Path string

	// Payload is the executable content: SQL text for query assets, the
	// script path for script assets.
	Payload string

	// DependsOn lists the tables this asset reads. Duplicates are collapsed
	// at parse time; declaration order is irrelevant.
	DependsOn []TableRef

	// Description is optional free-form documentation.
	Description string

	// Columns optionally declares the expected output columns. When set,
	// the materialization check verifies each declared column exists.
	Columns []string
}
