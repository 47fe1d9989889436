// Package plots assembles the XY efficiency-over-time payload from the
// aggregate efficiency table. Rendering is the charting collaborator's
// job; this layer only shapes the series data.
package plots

import (
	"context"
	"fmt"
	"sort"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
)

// validMetrics lists the efficiency/exergy columns a request may plot.
var validMetrics = map[string]bool{
	"EXp":   true,
	"EXf":   true,
	"EXu":   true,
	"etapf": true,
	"etafu": true,
	"etapu": true,
}

// Series is the XY payload: year-ordered points for one metric, carrying
// the grouping labels the renderer splits lines and facets on.
type Series struct {
	Metric string                 `json:"metric"`
	Points []models.EfficiencyRow `json:"points"`
}

type XY struct {
	stores      storage.Registry
	translators map[string]*translator.Translator
}

func NewXY(stores storage.Registry, translators map[string]*translator.Translator) *XY {
	return &XY{stores: stores, translators: translators}
}

// Get fetches the efficiency rows for one metric, translates the grouping
// keys to labels, and returns them year-sorted. Zero matching rows yield
// (nil, nil), the no-data outcome.
func (x *XY) Get(ctx context.Context, metric string, target query.Target, preds []query.Predicate) (*Series, error) {
	if !validMetrics[metric] {
		return nil, fmt.Errorf("%w: unknown efficiency metric %q", query.ErrValidation, metric)
	}

	store, err := x.stores.Get(target.Store)
	if err != nil {
		return nil, err
	}
	tr, ok := x.translators[target.Store]
	if !ok {
		return nil, fmt.Errorf("no translator for store %q", target.Store)
	}

	facts, err := store.FetchEfficiencies(ctx, metric, preds)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}

	points := make([]models.EfficiencyRow, 0, len(facts))
	for _, f := range facts {
		country, err := tr.LabelOf(ctx, models.DimCountry, f.Country)
		if err != nil {
			return nil, err
		}
		energyType, err := tr.LabelOf(ctx, models.DimEnergyType, f.EnergyType)
		if err != nil {
			return nil, err
		}
		points = append(points, models.EfficiencyRow{
			Year:       f.Year,
			Value:      f.Value,
			Country:    country,
			EnergyType: energyType,
		})
	}

	// Year order first so lines draw left to right; grouping columns next
	// for stable output.
	sort.Slice(points, func(a, b int) bool {
		if points[a].Year != points[b].Year {
			return points[a].Year < points[b].Year
		}
		if points[a].Country != points[b].Country {
			return points[a].Country < points[b].Country
		}
		return points[a].EnergyType < points[b].EnergyType
	})

	return &Series{Metric: metric, Points: points}, nil
}
