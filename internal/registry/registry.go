// Package registry discovers asset files under a root directory and parses
// them into descriptors. Any malformed file aborts the whole scan: an
// incomplete descriptor set is unsafe to schedule.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bdp/internal/domain"
)

// kindForExt maps recognized file suffixes to asset kinds. Anything else is
// ignored during the scan.
var kindForExt = map[string]domain.AssetKind{
	".sql": domain.KindQuery,
	".sh":  domain.KindScript,
}

// Set is the complete descriptor set for one run.
type Set struct {
	byName   map[string]*domain.Asset
	byTarget map[domain.TableRef]*domain.Asset
}

// Get returns the asset with the given name.
func (s *Set) Get(name string) (*domain.Asset, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// ByTarget returns the asset producing the given table, if any.
func (s *Set) ByTarget(ref domain.TableRef) (*domain.Asset, bool) {
	a, ok := s.byTarget[ref]
	return a, ok
}

// Names returns all asset names in ascending order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all assets ordered by name.
func (s *Set) List() []*domain.Asset {
	out := make([]*domain.Asset, 0, len(s.byName))
	for _, name := range s.Names() {
		out = append(out, s.byName[name])
	}
	return out
}

// Len returns the number of assets in the set.
func (s *Set) Len() int {
	return len(s.byName)
}

// Subset returns a new Set containing only the named assets. Unknown names
// are ignored; callers validate selection before subsetting.
func (s *Set) Subset(names map[string]struct{}) *Set {
	sub := &Set{
		byName:   make(map[string]*domain.Asset, len(names)),
		byTarget: make(map[domain.TableRef]*domain.Asset, len(names)),
	}
	for name := range names {
		if a, ok := s.byName[name]; ok {
			sub.byName[name] = a
			sub.byTarget[a.Target] = a
		}
	}
	return sub
}

// NewSet builds a Set from already-parsed descriptors, enforcing the same
// uniqueness invariants as Scan.
func NewSet(assets ...*domain.Asset) (*Set, error) {
	set := &Set{
		byName:   make(map[string]*domain.Asset, len(assets)),
		byTarget: make(map[domain.TableRef]*domain.Asset, len(assets)),
	}
	for _, asset := range assets {
		if prev, ok := set.byName[asset.Name]; ok {
			return nil, domain.ErrConflict("duplicate asset name %q: %s and %s", asset.Name, prev.Path, asset.Path)
		}
		if prev, ok := set.byTarget[asset.Target]; ok {
			return nil, domain.ErrConflict("duplicate target table %s: %s and %s", asset.Target, prev.Path, asset.Path)
		}
		set.byName[asset.Name] = asset
		set.byTarget[asset.Target] = asset
	}
	return set, nil
}

// Scan walks root recursively and parses every recognized asset file.
// It fails on the first malformed file, duplicate name, or duplicate target.
func Scan(root string) (*Set, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("assets root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets root: %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := kindForExt[filepath.Ext(name)]; !ok {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)

	set := &Set{
		byName:   make(map[string]*domain.Asset, len(paths)),
		byTarget: make(map[domain.TableRef]*domain.Asset, len(paths)),
	}
	for _, path := range paths {
		asset, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := set.byName[asset.Name]; ok {
			return nil, domain.ErrConflict("duplicate asset name %q: %s and %s", asset.Name, prev.Path, asset.Path)
		}
		if prev, ok := set.byTarget[asset.Target]; ok {
			return nil, domain.ErrConflict("duplicate target table %s: %s and %s", asset.Target, prev.Path, asset.Path)
		}
		set.byName[asset.Name] = asset
		set.byTarget[asset.Target] = asset
	}
	return set, nil
}
