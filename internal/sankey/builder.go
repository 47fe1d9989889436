// Package sankey turns the four elementary matrices of one query into a
// five-stage flow graph: R feeds stage 0->1, U 1->2, V 2->3 and Y 3->4.
// Nodes are deduplicated per (label, stage) and colored by commodity name;
// links inherit the carrier endpoint's color.
package sankey

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
	"github.com/mexer-app/backend/pkg/logger"
)

// ErrUnknownMatrixName means a fetched cell carried a matrix name outside
// R, U, V, Y. That indicates malformed reference data upstream, never a
// user error, so it is fatal for the request.
var ErrUnknownMatrixName = errors.New("unknown matrix name")

// NumStages is the number of node columns in the flow graph.
const NumStages = 5

type Node struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type Endpoint struct {
	Column int `json:"column"`
	Node   int `json:"node"`
}

type Link struct {
	From  Endpoint `json:"from"`
	To    Endpoint `json:"to"`
	Value float64  `json:"value"`
	Color string   `json:"color"`
}

// Options carries layout hints for the renderer.
type Options struct {
	PlotBackgroundColor        string  `json:"plot_background_color"`
	DefaultLinksOpacity        float64 `json:"default_links_opacity"`
	DefaultGradientLinksOpacity float64 `json:"default_gradient_links_opacity"`
	ShowColumnLines            bool    `json:"show_column_lines"`
	ShowColumnNames            bool    `json:"show_column_names"`
	LinearGradientLinks        bool    `json:"linear_gradient_links"`
}

func defaultOptions() Options {
	return Options{
		PlotBackgroundColor:         "#f4edf7",
		DefaultLinksOpacity:         0.8,
		DefaultGradientLinksOpacity: 0.8,
		ShowColumnLines:             false,
		ShowColumnNames:             false,
		LinearGradientLinks:         false,
	}
}

// Diagram is the JSON-serializable payload handed to the renderer.
type Diagram struct {
	Nodes   [NumStages][]Node `json:"nodes"`
	Links   []Link            `json:"links"`
	Options Options           `json:"options"`
}

type Builder struct {
	stores      storage.Registry
	translators map[string]*translator.Translator
	colors      ColorTable
}

func NewBuilder(stores storage.Registry, translators map[string]*translator.Translator, colors ColorTable) *Builder {
	return &Builder{
		stores:      stores,
		translators: translators,
		colors:      colors,
	}
}

// placement fixes where a matrix's cells land in the graph and which
// endpoint is the energy carrier (the other side is an industry).
type placement struct {
	fromStage   int
	toStage     int
	carrierFrom bool
}

var placements = map[string]placement{
	"R": {fromStage: 0, toStage: 1, carrierFrom: false},
	"U": {fromStage: 1, toStage: 2, carrierFrom: true},
	"V": {fromStage: 2, toStage: 3, carrierFrom: false},
	"Y": {fromStage: 3, toStage: 4, carrierFrom: true},
}

// Build fetches the whole RUVY cell set for the query and assembles the
// flow graph. A query matching zero rows returns (nil, nil): the no-data
// outcome, distinct from an error.
func (b *Builder) Build(ctx context.Context, target query.Target, preds []query.Predicate) (*Diagram, error) {
	store, err := b.stores.Get(target.Store)
	if err != nil {
		return nil, err
	}
	tr, ok := b.translators[target.Store]
	if !ok {
		return nil, fmt.Errorf("no translator for store %q", target.Store)
	}

	// The graph always spans all four matrices; any single-matrix filter
	// the form carried is replaced with full RUVY membership.
	ruvyKeys, err := query.RUVYKeys(ctx, tr)
	if err != nil {
		return nil, err
	}
	graphPreds := make([]query.Predicate, 0, len(preds)+1)
	for _, p := range preds {
		if p.Column() == "matname" {
			continue
		}
		graphPreds = append(graphPreds, p)
	}
	graphPreds = append(graphPreds, query.In{Col: "matname", Values: ruvyKeys})

	tagged, err := store.FetchTaggedTriples(ctx, target.Table, graphPreds)
	if err != nil {
		return nil, err
	}
	if len(tagged) == 0 {
		return nil, nil
	}

	diagram, err := b.assemble(ctx, tr, tagged)
	if err != nil {
		return nil, err
	}

	logger.Debug("Sankey assembled",
		zap.Int("cells", len(tagged)),
		zap.Int("links", len(diagram.Links)),
	)
	return diagram, nil
}

// classified is a deduplicated cell with its placement resolved.
type classified struct {
	place placement
	i, j  int
	value float64
}

// nodeKey identifies a node: the same label in two stages is two nodes,
// the same label twice in one stage is one.
type nodeKey struct {
	label int
	stage int
}

// assemble runs the two-phase build: classify and sort the deduplicated
// cells, assign node indices in first-seen order over that fixed
// ordering, then emit links against the settled index table.
func (b *Builder) assemble(ctx context.Context, tr *translator.Translator, tagged []models.TaggedTriple) (*Diagram, error) {
	// Overlapping source rows (chopped dimensions) legitimately repeat
	// cells; collapse exact duplicates before anything else.
	seen := make(map[models.TaggedTriple]struct{}, len(tagged))
	cells := make([]classified, 0, len(tagged))

	for _, t := range tagged {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		name, err := tr.LabelOf(ctx, models.DimMatname, t.Matname)
		if err != nil {
			return nil, err
		}
		place, ok := placements[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMatrixName, name)
		}
		cells = append(cells, classified{place: place, i: t.I, j: t.J, value: t.X})
	}

	// Fixed iteration order makes node numbering reproducible no matter
	// how the rows came back.
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].place.fromStage != cells[b].place.fromStage {
			return cells[a].place.fromStage < cells[b].place.fromStage
		}
		if cells[a].i != cells[b].i {
			return cells[a].i < cells[b].i
		}
		return cells[a].j < cells[b].j
	})

	diagram := &Diagram{Options: defaultOptions()}
	for stage := range diagram.Nodes {
		diagram.Nodes[stage] = []Node{}
	}
	indices := make(map[nodeKey]int)

	intern := func(label, stage int, carrier bool) (int, error) {
		key := nodeKey{label: label, stage: stage}
		if idx, ok := indices[key]; ok {
			return idx, nil
		}

		name, err := tr.LabelOf(ctx, models.DimIndex, label)
		if err != nil {
			return 0, err
		}

		color := IndustryColor
		if carrier {
			color = DefaultCarrierColor
			if c, ok := b.colors.Lookup(name); ok {
				color = c
			}
		}

		idx := len(diagram.Nodes[stage])
		diagram.Nodes[stage] = append(diagram.Nodes[stage], Node{Label: name, Color: color})
		indices[key] = idx
		return idx, nil
	}

	for _, cell := range cells {
		fromIdx, err := intern(cell.i, cell.place.fromStage, cell.place.carrierFrom)
		if err != nil {
			return nil, err
		}
		toIdx, err := intern(cell.j, cell.place.toStage, !cell.place.carrierFrom)
		if err != nil {
			return nil, err
		}

		// Flows take the carrier's color so a commodity stays visually
		// traceable across stages; uncolored carriers leave the link
		// neutral.
		carrierLabel := cell.j
		if cell.place.carrierFrom {
			carrierLabel = cell.i
		}
		carrierName, err := tr.LabelOf(ctx, models.DimIndex, carrierLabel)
		if err != nil {
			return nil, err
		}
		linkColor := NeutralLinkColor
		if c, ok := b.colors.Lookup(carrierName); ok {
			linkColor = c
		}

		diagram.Links = append(diagram.Links, Link{
			From:  Endpoint{Column: cell.place.fromStage, Node: fromIdx},
			To:    Endpoint{Column: cell.place.toStage, Node: toIdx},
			Value: cell.value,
			Color: linkColor,
		})
	}

	return diagram, nil
}
