package sankey

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
)

type fakeStore struct {
	tagged    []models.TaggedTriple
	lastPreds []query.Predicate
	err       error
}

func (f *fakeStore) DimensionRows(context.Context, models.Dimension) ([]models.DimensionEntry, error) {
	return nil, nil
}

func (f *fakeStore) PublicDatasetLabels(context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) IndexCount(context.Context) (int, error) { return 0, nil }

func (f *fakeStore) FetchTriples(context.Context, models.Table, []query.Predicate) ([]models.Triple, error) {
	return nil, nil
}

func (f *fakeStore) FetchTaggedTriples(_ context.Context, _ models.Table, preds []query.Predicate) ([]models.TaggedTriple, error) {
	f.lastPreds = preds
	return f.tagged, f.err
}

func (f *fakeStore) FetchEfficiencies(context.Context, string, []query.Predicate) ([]storage.EfficiencyFact, error) {
	return nil, nil
}

type fakeBacking struct{}

func (fakeBacking) DimensionRows(_ context.Context, dim models.Dimension) ([]models.DimensionEntry, error) {
	switch dim {
	case models.DimMatname:
		return []models.DimensionEntry{
			{Key: 1, Label: "R"},
			{Key: 2, Label: "U"},
			{Key: 3, Label: "V"},
			{Key: 4, Label: "Y"},
			{Key: 9, Label: "Z"},
		}, nil
	case models.DimIndex:
		return []models.DimensionEntry{
			{Key: 1, Label: "Resources [of Crude oil]"},
			{Key: 2, Label: "Crude oil"},
			{Key: 5, Label: "Oil refineries"},
		}, nil
	default:
		return nil, nil
	}
}

func (fakeBacking) PublicDatasetLabels(context.Context) ([]string, error) { return nil, nil }

func testBuilder(store *fakeStore) *Builder {
	translators := map[string]*translator.Translator{
		"default": translator.New("default", fakeBacking{}, time.Hour),
	}
	colors := NewColorTable(map[string]string{"crude oil": "black"})
	return NewBuilder(storage.Registry{"default": store}, translators, colors)
}

func testTarget() query.Target {
	return query.Target{Store: "default", Table: models.TablePSUT}
}

func TestBuildNoData(t *testing.T) {
	b := testBuilder(&fakeStore{})

	d, err := b.Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if d != nil {
		t.Errorf("zero cells must yield a nil diagram, got %+v", d)
	}
}

func TestBuildGraph(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 1, I: 1, J: 2, X: 10.0}, // R: resource -> crude oil
			{Matname: 2, I: 2, J: 5, X: 8.0},  // U: crude oil -> refinery
		},
	}
	b := testBuilder(store)

	d, err := b.Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	total := 0
	for _, stage := range d.Nodes {
		total += len(stage)
	}
	if total != 3 {
		t.Fatalf("expected 3 nodes (crude oil shared across the R/U boundary), got %d", total)
	}
	if len(d.Nodes[0]) != 1 || len(d.Nodes[1]) != 1 || len(d.Nodes[2]) != 1 {
		t.Fatalf("expected one node per populated stage, got %v", d.Nodes)
	}
	if len(d.Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(d.Links))
	}

	for _, link := range d.Links {
		if link.From.Column >= link.To.Column {
			t.Errorf("links must flow left to right, got %d -> %d", link.From.Column, link.To.Column)
		}
	}

	// Both links attach to the single crude oil node at stage 1.
	if d.Links[0].To.Node != d.Links[1].From.Node {
		t.Error("R target and U source must be the same node")
	}

	if d.Nodes[0][0].Color != IndustryColor {
		t.Errorf("non-carrier node color = %q, want industry color", d.Nodes[0][0].Color)
	}
	if d.Nodes[1][0].Color != "black" {
		t.Errorf("carrier node should take its configured color, got %q", d.Nodes[1][0].Color)
	}
	if d.Links[0].Color != "black" || d.Links[1].Color != "black" {
		t.Errorf("links must inherit the carrier color, got %q and %q", d.Links[0].Color, d.Links[1].Color)
	}
}

func TestBuildDeterministicAcrossRetrievalOrder(t *testing.T) {
	cells := []models.TaggedTriple{
		{Matname: 1, I: 1, J: 2, X: 10.0},
		{Matname: 2, I: 2, J: 5, X: 8.0},
		{Matname: 3, I: 5, J: 2, X: 3.0},
	}
	reversed := make([]models.TaggedTriple, len(cells))
	for i, c := range cells {
		reversed[len(cells)-1-i] = c
	}

	d1, err := testBuilder(&fakeStore{tagged: cells}).Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	d2, err := testBuilder(&fakeStore{tagged: reversed}).Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !reflect.DeepEqual(d1, d2) {
		t.Error("diagram must not depend on row retrieval order")
	}
}

func TestBuildCollapsesExactRepeats(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 1, I: 1, J: 2, X: 10.0},
			{Matname: 1, I: 1, J: 2, X: 10.0},
		},
	}

	d, err := testBuilder(store).Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(d.Links) != 1 {
		t.Errorf("exact repeats must collapse to one link, got %d", len(d.Links))
	}
}

func TestBuildUnknownMatrixName(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 9, I: 1, J: 2, X: 1.0}, // "Z" is not an elementary matrix
		},
	}

	_, err := testBuilder(store).Build(context.Background(), testTarget(), nil)
	if !errors.Is(err, ErrUnknownMatrixName) {
		t.Errorf("got %v, want ErrUnknownMatrixName", err)
	}
}

func TestBuildForcesFullRUVYFetch(t *testing.T) {
	store := &fakeStore{}
	b := testBuilder(store)

	// The form carried a single-matrix filter; the graph must replace it.
	preds := []query.Predicate{
		query.Eq{Col: "Year", Value: 1971},
		query.Eq{Col: "matname", Value: 2},
	}
	if _, err := b.Build(context.Background(), testTarget(), preds); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var matnamePreds []query.Predicate
	for _, p := range store.lastPreds {
		if p.Column() == "matname" {
			matnamePreds = append(matnamePreds, p)
		}
	}
	if len(matnamePreds) != 1 {
		t.Fatalf("expected exactly one matname predicate, got %d", len(matnamePreds))
	}
	in, ok := matnamePreds[0].(query.In)
	if !ok {
		t.Fatalf("matname predicate must be membership, got %T", matnamePreds[0])
	}
	if len(in.Values) != 4 {
		t.Errorf("membership must span all four matrices, got %v", in.Values)
	}

	if _, ok := findColumn(store.lastPreds, "Year"); !ok {
		t.Error("non-matname predicates must pass through")
	}
}

func findColumn(preds []query.Predicate, col string) (query.Predicate, bool) {
	for _, p := range preds {
		if p.Column() == col {
			return p, true
		}
	}
	return nil, false
}

func TestBuildEmptyStagesSerialize(t *testing.T) {
	store := &fakeStore{
		tagged: []models.TaggedTriple{
			{Matname: 1, I: 1, J: 2, X: 10.0},
		},
	}

	d, err := testBuilder(store).Build(context.Background(), testTarget(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for stage, nodes := range d.Nodes {
		if nodes == nil {
			t.Errorf("stage %d must be an empty slice, not nil", stage)
		}
	}
}
