package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"bdp/internal/domain"
)

// commentPrefix maps asset kinds to the comment marker carrying metadata.
var commentPrefix = map[domain.AssetKind]string{
	domain.KindQuery:  "--",
	domain.KindScript: "#",
}

// metadataLineRE matches one "asset.key = value" declaration.
var metadataLineRE = regexp.MustCompile(`^asset\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)

// knownKeys are the accepted metadata keys. multi marks keys that may repeat.
var knownKeys = map[string]struct{ multi bool }{
	"name":        {},
	"schema":      {},
	"table":       {},
	"depends":     {multi: true},
	"description": {},
	"columns":     {},
}

// parseFile reads one asset file and builds its descriptor.
func parseFile(path string) (*domain.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	source := string(data)

	kind := kindForExt[filepath.Ext(path)]
	meta, body, err := parseMetadata(path, kind, source)
	if err != nil {
		return nil, err
	}

	name, err := singleValue(meta, "name", path)
	if err != nil {
		return nil, err
	}
	schema, err := singleValue(meta, "schema", path)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name != base {
		return nil, domain.ErrValidation("asset.name %q does not match file name %q in %s", name, base, path)
	}
	if !domain.ValidIdentifier(name) {
		return nil, domain.ErrValidation("invalid asset name %q in %s", name, path)
	}
	if !domain.ValidIdentifier(schema) {
		return nil, domain.ErrValidation("invalid schema name %q in %s", schema, path)
	}

	table := name
	if vals := meta["table"]; len(vals) == 1 {
		table = vals[0]
		if !domain.ValidIdentifier(table) {
			return nil, domain.ErrValidation("invalid table name %q in %s", table, path)
		}
	}

	depends, err := parseDepends(meta["depends"], path)
	if err != nil {
		return nil, err
	}

	var description string
	if vals := meta["description"]; len(vals) == 1 {
		description = vals[0]
	}

	var columns []string
	if vals := meta["columns"]; len(vals) == 1 {
		for _, c := range strings.Split(vals[0], ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if !domain.ValidIdentifier(c) {
				return nil, domain.ErrValidation("invalid column name %q in %s", c, path)
			}
			columns = append(columns, c)
		}
	}

	if strings.TrimSpace(body) == "" {
		return nil, errEmptyBody(path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve asset path %s: %w", path, err)
	}

	asset := &domain.Asset{
		Name:        name,
		Target:      domain.TableRef{Schema: schema, Table: table},
		Kind:        kind,
		Path:        abs,
		DependsOn:   depends,
		Description: description,
		Columns:     columns,
	}
	switch kind {
	case domain.KindQuery:
		asset.Payload = strings.TrimSpace(body)
	case domain.KindScript:
		asset.Payload = abs
	}
	return asset, nil
}

// parseMetadata extracts the leading comment block's asset.* declarations
// and returns the remaining body. A shebang line is skipped. Comment lines
// without an asset. marker are treated as prose.
func parseMetadata(path string, kind domain.AssetKind, source string) (map[string][]string, string, error) {
	prefix := commentPrefix[kind]
	meta := make(map[string][]string)

	lines := strings.Split(source, "\n")
	bodyStart := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if i == 0 && strings.HasPrefix(stripped, "#!") {
			bodyStart = i + 1
			continue
		}
		if !strings.HasPrefix(stripped, prefix) {
			bodyStart = i
			break
		}
		bodyStart = i + 1

		content := strings.TrimSpace(strings.TrimPrefix(stripped, prefix))
		if !strings.Contains(content, "asset.") {
			continue
		}
		m := metadataLineRE.FindStringSubmatch(content)
		if m == nil {
			return nil, "", domain.ErrValidation("invalid metadata line in %s: %q", path, content)
		}
		key, value := m[1], strings.TrimSpace(m[2])
		spec, ok := knownKeys[key]
		if !ok {
			return nil, "", domain.ErrValidation("unknown metadata key asset.%s in %s", key, path)
		}
		if !spec.multi && len(meta[key]) > 0 {
			return nil, "", domain.ErrValidation("asset.%s declared more than once in %s", key, path)
		}
		if value == "" {
			return nil, "", domain.ErrValidation("asset.%s has no value in %s", key, path)
		}
		meta[key] = append(meta[key], value)
	}

	if len(meta) == 0 {
		return nil, "", domain.ErrValidation("missing asset metadata in %s", path)
	}
	return meta, strings.Join(lines[bodyStart:], "\n"), nil
}

const emptyBodyMessage = "has no content beyond its metadata"

func errEmptyBody(path string) *domain.ValidationError {
	return domain.ErrValidation("asset %s %s", path, emptyBodyMessage)
}

// IsEmptyBody reports whether err is the empty-payload parse failure.
// Check-only mode uses it to attribute the failure to its own rule.
func IsEmptyBody(err error) bool {
	var validationErr *domain.ValidationError
	return errors.As(err, &validationErr) && strings.Contains(validationErr.Message, emptyBodyMessage)
}

// singleValue fetches a required single-valued key.
func singleValue(meta map[string][]string, key, path string) (string, error) {
	vals := meta[key]
	if len(vals) == 0 {
		return "", domain.ErrValidation("missing asset.%s in %s", key, path)
	}
	return vals[0], nil
}

// parseDepends parses all depends declarations into a deduplicated,
// deterministically ordered reference list.
func parseDepends(values []string, path string) ([]domain.TableRef, error) {
	seen := make(map[domain.TableRef]struct{})
	var refs []domain.TableRef
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ref, err := domain.ParseTableRef(part)
			if err != nil {
				return nil, domain.ErrValidation("invalid dependency %q in %s: expected schema.table", part, path)
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs, nil
}
