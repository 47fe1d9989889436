// Package matrix assembles sparse coordinate-format matrices from the
// (i, j, value) cells a query returns. Matrices are square with dimension
// equal to the full commodity/industry index vocabulary, so axes outside
// the used range stay implicitly zero.
package matrix

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/pkg/logger"
)

// COO is a sparse matrix in coordinate format. Entries are sorted by
// (row, col) and hold at most one value per coordinate.
type COO struct {
	Dim  int       `json:"dim"`
	Rows []int     `json:"rows"`
	Cols []int     `json:"cols"`
	Vals []float64 `json:"vals"`

	// Matnames, when present, carries the origin matrix-name key per
	// entry for combined-RUVY color coding. Same length as Vals.
	Matnames []int `json:"matnames,omitempty"`
}

// NNZ returns the number of stored entries.
func (m *COO) NNZ() int { return len(m.Vals) }

type Assembler struct {
	stores storage.Registry
}

func NewAssembler(stores storage.Registry) *Assembler {
	return &Assembler{stores: stores}
}

// Get fetches and assembles one elementary matrix. A query matching zero
// rows returns (nil, nil): a valid no-data outcome, not an error.
func (a *Assembler) Get(ctx context.Context, target query.Target, preds []query.Predicate) (*COO, error) {
	store, err := a.stores.Get(target.Store)
	if err != nil {
		return nil, err
	}

	triples, err := store.FetchTriples(ctx, target.Table, preds)
	if err != nil {
		return nil, err
	}
	if len(triples) == 0 {
		return nil, nil
	}

	dim, err := store.IndexCount(ctx)
	if err != nil {
		return nil, err
	}

	m := assemble(triples, dim)
	logger.Debug("Matrix assembled",
		zap.Int("dim", dim),
		zap.Int("nnz", m.NNZ()),
	)
	return m, nil
}

// GetRUVY assembles the combined matrix across all four elementary
// matrices, keeping each cell's origin matrix name for coloring.
func (a *Assembler) GetRUVY(ctx context.Context, target query.Target, preds []query.Predicate) (*COO, error) {
	store, err := a.stores.Get(target.Store)
	if err != nil {
		return nil, err
	}

	tagged, err := store.FetchTaggedTriples(ctx, target.Table, preds)
	if err != nil {
		return nil, err
	}
	if len(tagged) == 0 {
		return nil, nil
	}

	dim, err := store.IndexCount(ctx)
	if err != nil {
		return nil, err
	}

	return assembleTagged(tagged, dim), nil
}

// assemble deduplicates exact repeats (overlap through the chopped
// dimensions produces legitimate duplicate rows), sums any remaining
// same-coordinate values, and orders entries by (row, col) so output does
// not depend on retrieval order.
func assemble(triples []models.Triple, dim int) *COO {
	seen := make(map[models.Triple]struct{}, len(triples))
	sums := make(map[[2]int]float64)

	for _, t := range triples {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		sums[[2]int{t.I, t.J}] += t.X
	}

	coords := make([][2]int, 0, len(sums))
	for c := range sums {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(a, b int) bool {
		if coords[a][0] != coords[b][0] {
			return coords[a][0] < coords[b][0]
		}
		return coords[a][1] < coords[b][1]
	})

	m := &COO{
		Dim:  dim,
		Rows: make([]int, 0, len(coords)),
		Cols: make([]int, 0, len(coords)),
		Vals: make([]float64, 0, len(coords)),
	}
	for _, c := range coords {
		m.Rows = append(m.Rows, c[0])
		m.Cols = append(m.Cols, c[1])
		m.Vals = append(m.Vals, sums[c])
	}
	return m
}

// assembleTagged keeps entries distinct per origin matrix so a cell
// present in two matrices renders as two colored entries.
func assembleTagged(triples []models.TaggedTriple, dim int) *COO {
	seen := make(map[models.TaggedTriple]struct{}, len(triples))
	deduped := make([]models.TaggedTriple, 0, len(triples))
	for _, t := range triples {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		deduped = append(deduped, t)
	}

	sort.Slice(deduped, func(a, b int) bool {
		if deduped[a].Matname != deduped[b].Matname {
			return deduped[a].Matname < deduped[b].Matname
		}
		if deduped[a].I != deduped[b].I {
			return deduped[a].I < deduped[b].I
		}
		return deduped[a].J < deduped[b].J
	})

	m := &COO{
		Dim:      dim,
		Rows:     make([]int, 0, len(deduped)),
		Cols:     make([]int, 0, len(deduped)),
		Vals:     make([]float64, 0, len(deduped)),
		Matnames: make([]int, 0, len(deduped)),
	}
	for _, t := range deduped {
		m.Rows = append(m.Rows, t.I)
		m.Cols = append(m.Cols, t.J)
		m.Vals = append(m.Vals, t.X)
		m.Matnames = append(m.Matnames, t.Matname)
	}
	return m
}
