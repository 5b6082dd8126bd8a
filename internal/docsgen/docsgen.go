// Package docsgen renders a static HTML site describing the asset catalog:
// an index page plus one page per asset with its metadata, dependencies, and
// a sample of the materialized table.
package docsgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"bdp/internal/domain"
	"bdp/internal/engine"
	"bdp/internal/registry"
	"bdp/internal/service/materialize"
)

// Generator renders the documentation site. Table statistics come from the
// live database; assets whose table has not been materialized yet render
// without the data section.
type Generator struct {
	engine     *engine.Engine
	sampleRows int
}

// New creates a Generator sampling up to sampleRows rows per asset page.
func New(eng *engine.Engine, sampleRows int) *Generator {
	if sampleRows < 0 {
		sampleRows = 0
	}
	return &Generator{engine: eng, sampleRows: sampleRows}
}

// Generate writes the site into outDir, creating it if needed. Asset pages
// land under outDir/assets/.
func (g *Generator) Generate(ctx context.Context, set *registry.Set, graph *materialize.Graph, outDir string) error {
	if err := os.MkdirAll(filepath.Join(outDir, "assets"), 0o755); err != nil {
		return fmt.Errorf("create docs dir: %w", err)
	}

	assets := set.List()
	if err := g.writePage(filepath.Join(outDir, "index.html"), indexPage(assets)); err != nil {
		return err
	}
	for _, asset := range assets {
		page, err := g.assetPage(ctx, asset, graph)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, "assets", asset.Name+".html")
		if err := g.writePage(path, page); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writePage(path string, page Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write docs page: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func (g *Generator) assetPage(ctx context.Context, asset *domain.Asset, graph *materialize.Graph) (Node, error) {
	var stats Node
	exists, err := g.engine.TableExists(ctx, asset.Target.Schema, asset.Target.Table)
	if err != nil {
		return nil, err
	}
	if exists {
		stats, err = g.tableSection(ctx, asset)
		if err != nil {
			return nil, err
		}
	} else {
		stats = P(Class("muted"), Text("Not materialized yet."))
	}

	return layout(asset.Name,
		A(Href("../index.html"), Text("← all assets")),
		H1(Text(asset.Name)),
		descriptionNode(asset),
		metadataTable(asset),
		relationsSection(asset, graph),
		H2(Text("Data")),
		stats,
	), nil
}

func (g *Generator) tableSection(ctx context.Context, asset *domain.Asset) (Node, error) {
	count, err := g.engine.RowCount(ctx, asset.Target)
	if err != nil {
		return nil, err
	}
	nodes := []Node{P(Textf("%d rows in %s", count, asset.Target))}

	if g.sampleRows > 0 {
		cols, rows, err := g.engine.SampleRows(ctx, asset.Target, g.sampleRows)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			nodes = append(nodes, sampleTable(cols, rows))
		}
	}
	return Group(nodes), nil
}

func descriptionNode(asset *domain.Asset) Node {
	if asset.Description == "" {
		return nil
	}
	return P(Text(asset.Description))
}

func metadataTable(asset *domain.Asset) Node {
	rows := []Node{
		metaRow("Kind", string(asset.Kind)),
		metaRow("Target", asset.Target.String()),
		metaRow("File", asset.Path),
	}
	for _, col := range asset.Columns {
		rows = append(rows, metaRow("Column", col))
	}
	return Table(Class("meta"), TBody(Group(rows)))
}

func metaRow(key, value string) Node {
	return Tr(Th(Text(key)), Td(Text(value)))
}

func relationsSection(asset *domain.Asset, graph *materialize.Graph) Node {
	nodes := []Node{H2(Text("Dependencies"))}
	if len(asset.DependsOn) == 0 {
		nodes = append(nodes, P(Class("muted"), Text("None.")))
	} else {
		items := make([]Node, 0, len(asset.DependsOn))
		for _, ref := range asset.DependsOn {
			items = append(items, dependencyItem(ref, graph))
		}
		nodes = append(nodes, Ul(Group(items)))
	}

	if graph != nil {
		if desc := graph.Descendants(asset.Name); len(desc) > 0 {
			items := make([]Node, 0, len(desc))
			for _, name := range desc {
				items = append(items, Li(A(Href(name+".html"), Text(name))))
			}
			nodes = append(nodes, H2(Text("Downstream")), Ul(Group(items)))
		}
	}
	return Group(nodes)
}

// dependencyItem links to the producing asset's page, or marks the reference
// as an external table when no asset produces it.
func dependencyItem(ref domain.TableRef, graph *materialize.Graph) Node {
	if graph != nil {
		for _, leaf := range graph.ExternalLeaves() {
			if leaf == ref {
				return Li(Text(ref.String() + " (external)"))
			}
		}
	}
	return Li(A(Href(producerPage(ref, graph)), Text(ref.String())))
}

func producerPage(ref domain.TableRef, graph *materialize.Graph) string {
	if graph == nil {
		return "#"
	}
	for _, name := range graph.Order() {
		if graph.Asset(name).Target == ref {
			return name + ".html"
		}
	}
	return "#"
}

func sampleTable(cols []string, rows [][]string) Node {
	head := make([]Node, 0, len(cols))
	for _, col := range cols {
		head = append(head, Th(Text(col)))
	}
	body := make([]Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]Node, 0, len(row))
		for _, cell := range row {
			cells = append(cells, Td(Text(cell)))
		}
		body = append(body, Tr(Group(cells)))
	}
	return Table(THead(Tr(Group(head))), TBody(Group(body)))
}

func indexPage(assets []*domain.Asset) Node {
	rows := make([]Node, 0, len(assets))
	for _, asset := range assets {
		desc := asset.Description
		rows = append(rows, Tr(
			Td(A(Href("assets/"+asset.Name+".html"), Text(asset.Name))),
			Td(Text(asset.Target.String())),
			Td(Text(string(asset.Kind))),
			Td(Text(desc)),
		))
	}
	return layout("Assets",
		H1(Text("Assets")),
		Table(
			THead(Tr(Th(Text("Name")), Th(Text("Target")), Th(Text("Kind")), Th(Text("Description")))),
			TBody(Group(rows)),
		),
	)
}

func layout(title string, body ...Node) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Pipeline Docs")),
			StyleEl(Raw(stylesheet)),
		),
		Body(Main(Group(body))),
	)
}

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 60rem; padding: 0 1rem; color: #1f2328; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #d1d9e0; padding: 0.4rem 0.75rem; text-align: left; }
table.meta th { width: 8rem; }
.muted { color: #59636e; }
a { color: #0969da; }
`
