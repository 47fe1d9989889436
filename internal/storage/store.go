package storage

import (
	"context"
	"fmt"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage/models"
)

// Store names for the registry. The sandbox store serves datasets whose
// names carry the configured sandbox prefix.
const (
	DefaultStore = "default"
	SandboxStore = "sandbox"
)

// EfficiencyFact is one raw AggEtaPFU observation; Country and EnergyType
// are still surrogate keys here, translated later by the plot layer.
type EfficiencyFact struct {
	Year       int
	Value      float64
	Country    int
	EnergyType int
}

// Store is the single backing-store contract the core depends on: one
// round-trip per logical fetch, equality/membership/range predicates only.
// Implemented by the sqlite client; tests substitute in-memory fakes.
type Store interface {
	// DimensionRows returns the full label/key table for one dimension.
	DimensionRows(ctx context.Context, dim models.Dimension) ([]models.DimensionEntry, error)

	// PublicDatasetLabels returns the names of datasets flagged public.
	PublicDatasetLabels(ctx context.Context) ([]string, error)

	// IndexCount returns the size of the commodity/industry index
	// vocabulary, which fixes the dimension of assembled matrices.
	IndexCount(ctx context.Context) (int, error)

	// FetchTriples returns the (i, j, value) cells matching the predicates.
	FetchTriples(ctx context.Context, table models.Table, preds []query.Predicate) ([]models.Triple, error)

	// FetchTaggedTriples is FetchTriples plus the origin matrix-name key.
	FetchTaggedTriples(ctx context.Context, table models.Table, preds []query.Predicate) ([]models.TaggedTriple, error)

	// FetchEfficiencies returns AggEtaPFU rows for one metric column.
	FetchEfficiencies(ctx context.Context, metric string, preds []query.Predicate) ([]EfficiencyFact, error)
}

// Registry maps store names to live stores.
type Registry map[string]Store

// Get resolves a store by name, failing with query.ErrUnknownBackend for
// names outside the configured set.
func (r Registry) Get(name string) (Store, error) {
	s, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", query.ErrUnknownBackend, name)
	}
	return s, nil
}

// Has reports whether a store name is configured.
func (r Registry) Has(name string) bool {
	_, ok := r[name]
	return ok
}
