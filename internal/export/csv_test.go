package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
)

type fakeStore struct {
	tagged []models.TaggedTriple
}

func (f *fakeStore) DimensionRows(context.Context, models.Dimension) ([]models.DimensionEntry, error) {
	return nil, nil
}

func (f *fakeStore) PublicDatasetLabels(context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) IndexCount(context.Context) (int, error) { return 0, nil }

func (f *fakeStore) FetchTriples(context.Context, models.Table, []query.Predicate) ([]models.Triple, error) {
	return nil, nil
}

func (f *fakeStore) FetchTaggedTriples(context.Context, models.Table, []query.Predicate) ([]models.TaggedTriple, error) {
	return f.tagged, nil
}

func (f *fakeStore) FetchEfficiencies(context.Context, string, []query.Predicate) ([]storage.EfficiencyFact, error) {
	return nil, nil
}

type fakeBacking struct{}

func (fakeBacking) DimensionRows(_ context.Context, dim models.Dimension) ([]models.DimensionEntry, error) {
	switch dim {
	case models.DimMatname:
		return []models.DimensionEntry{{Key: 2, Label: "U"}}, nil
	case models.DimIndex:
		return []models.DimensionEntry{
			{Key: 1, Label: "Crude oil"},
			{Key: 5, Label: "Oil refineries"},
		}, nil
	default:
		return nil, nil
	}
}

func (fakeBacking) PublicDatasetLabels(context.Context) ([]string, error) { return nil, nil }

func testExporter(store *fakeStore) *Exporter {
	translators := map[string]*translator.Translator{
		"default": translator.New("default", fakeBacking{}, time.Hour),
	}
	return NewExporter(storage.Registry{"default": store}, translators)
}

func testTarget() query.Target {
	return query.Target{Store: "default", Table: models.TablePSUT}
}

func TestCSVNoData(t *testing.T) {
	e := testExporter(&fakeStore{})

	data, err := e.CSV(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	if data != nil {
		t.Errorf("zero rows must yield nil, got %q", data)
	}
}

func TestCSVTranslatesRows(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 2, I: 1, J: 5, X: 8.25},
		},
	}
	e := testExporter(store)

	data, err := e.CSV(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "matname,i,j,value" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "U,Crude oil,Oil refineries,8.25" {
		t.Errorf("row keys must translate to labels, got %q", lines[1])
	}
}

func TestCSVUnknownKeyFails(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 2, I: 99, J: 5, X: 1.0},
		},
	}
	e := testExporter(store)

	if _, err := e.CSV(context.Background(), testTarget(), nil); err == nil {
		t.Error("untranslatable key must fail the export")
	}
}
