// Package export renders query results as translated CSV: surrogate keys
// resolved back to labels so the download is readable outside Mexer.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
)

type Exporter struct {
	stores      storage.Registry
	translators map[string]*translator.Translator
}

func NewExporter(stores storage.Registry, translators map[string]*translator.Translator) *Exporter {
	return &Exporter{stores: stores, translators: translators}
}

// CSV writes the matching fact rows as matname,i,j,value with every key
// translated to its label. Zero matching rows return (nil, nil).
func (e *Exporter) CSV(ctx context.Context, target query.Target, preds []query.Predicate) ([]byte, error) {
	store, err := e.stores.Get(target.Store)
	if err != nil {
		return nil, err
	}
	tr, ok := e.translators[target.Store]
	if !ok {
		return nil, fmt.Errorf("no translator for store %q", target.Store)
	}

	rows, err := store.FetchTaggedTriples(ctx, target.Table, preds)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"matname", "i", "j", "value"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range rows {
		matname, err := tr.LabelOf(ctx, models.DimMatname, row.Matname)
		if err != nil {
			return nil, err
		}
		iLabel, err := tr.LabelOf(ctx, models.DimIndex, row.I)
		if err != nil {
			return nil, err
		}
		jLabel, err := tr.LabelOf(ctx, models.DimIndex, row.J)
		if err != nil {
			return nil, err
		}

		record := []string{
			matname,
			iLabel,
			jLabel,
			strconv.FormatFloat(row.X, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
