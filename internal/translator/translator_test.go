package translator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mexer-app/backend/internal/metrics"
	"github.com/mexer-app/backend/internal/storage/models"
)

type fakeBacking struct {
	dims   map[models.Dimension][]models.DimensionEntry
	public []string
	loads  int
	err    error
}

func (f *fakeBacking) DimensionRows(_ context.Context, dim models.Dimension) ([]models.DimensionEntry, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.dims[dim], nil
}

func (f *fakeBacking) PublicDatasetLabels(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.public, nil
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{
		dims: map[models.Dimension][]models.DimensionEntry{
			models.DimCountry: {
				{Key: 1, Label: "Ghana"},
				{Key: 2, Label: "South Africa"},
			},
			models.DimMatname: {
				{Key: 1, Label: "R"},
				{Key: 2, Label: "U"},
				{Key: 3, Label: "V"},
				{Key: 4, Label: "Y"},
			},
		},
		public: []string{"CLPFUv2.0"},
	}
}

func TestKeyOfLabelOfInverse(t *testing.T) {
	ctx := context.Background()
	tr := New("default", newFakeBacking(), time.Hour)

	for _, want := range []struct {
		key   int
		label string
	}{
		{1, "Ghana"},
		{2, "South Africa"},
	} {
		key, err := tr.KeyOf(ctx, models.DimCountry, want.label)
		if err != nil {
			t.Fatalf("KeyOf(%q) failed: %v", want.label, err)
		}
		if key != want.key {
			t.Errorf("KeyOf(%q) = %d, want %d", want.label, key, want.key)
		}

		label, err := tr.LabelOf(ctx, models.DimCountry, want.key)
		if err != nil {
			t.Fatalf("LabelOf(%d) failed: %v", want.key, err)
		}
		if label != want.label {
			t.Errorf("LabelOf(%d) = %q, want %q", want.key, label, want.label)
		}
	}
}

func TestUnrecognizedValues(t *testing.T) {
	ctx := context.Background()
	tr := New("default", newFakeBacking(), time.Hour)

	if _, err := tr.KeyOf(ctx, models.DimCountry, "Atlantis"); !errors.Is(err, ErrUnrecognizedKey) {
		t.Errorf("KeyOf unknown label: got %v, want ErrUnrecognizedKey", err)
	}
	if _, err := tr.LabelOf(ctx, models.DimCountry, 99); !errors.Is(err, ErrUnrecognizedKey) {
		t.Errorf("LabelOf unknown key: got %v, want ErrUnrecognizedKey", err)
	}
	if _, err := tr.Translate(ctx, models.DimCountry, "99"); !errors.Is(err, ErrUnrecognizedKey) {
		t.Errorf("Translate unknown key string: got %v, want ErrUnrecognizedKey", err)
	}
}

func TestTranslateBothDirections(t *testing.T) {
	ctx := context.Background()
	tr := New("default", newFakeBacking(), time.Hour)

	got, err := tr.Translate(ctx, models.DimCountry, "Ghana")
	if err != nil {
		t.Fatalf("Translate(label) failed: %v", err)
	}
	if got != "1" {
		t.Errorf("Translate(Ghana) = %q, want \"1\"", got)
	}

	got, err = tr.Translate(ctx, models.DimCountry, "2")
	if err != nil {
		t.Fatalf("Translate(key) failed: %v", err)
	}
	if got != "South Africa" {
		t.Errorf("Translate(2) = %q, want \"South Africa\"", got)
	}
}

func TestCacheAvoidsRefetch(t *testing.T) {
	ctx := context.Background()
	backing := newFakeBacking()
	tr := New("default", backing, time.Hour)

	for i := 0; i < 5; i++ {
		if _, err := tr.KeyOf(ctx, models.DimCountry, "Ghana"); err != nil {
			t.Fatalf("KeyOf failed: %v", err)
		}
	}

	if backing.loads != 1 {
		t.Errorf("expected 1 backing load within TTL, got %d", backing.loads)
	}
}

func TestCacheExpires(t *testing.T) {
	ctx := context.Background()
	backing := newFakeBacking()
	tr := New("default", backing, time.Nanosecond)

	if _, err := tr.KeyOf(ctx, models.DimCountry, "Ghana"); err != nil {
		t.Fatalf("KeyOf failed: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := tr.KeyOf(ctx, models.DimCountry, "Ghana"); err != nil {
		t.Fatalf("KeyOf failed: %v", err)
	}

	if backing.loads != 2 {
		t.Errorf("expected reload after TTL, got %d loads", backing.loads)
	}
}

func TestTranslateLoadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	backing := newFakeBacking()
	backing.err = errors.New("db gone")
	tr := New("default", backing, time.Hour)

	_, err := tr.Translate(ctx, models.DimCountry, "Ghana")
	if err == nil {
		t.Fatal("expected error when backing load fails")
	}
	if errors.Is(err, ErrUnrecognizedKey) {
		t.Errorf("load failure must not masquerade as an unrecognized value, got %v", err)
	}
	if !errors.Is(err, backing.err) {
		t.Errorf("load failure must wrap the store error, got %v", err)
	}
}

func TestReloadCounter(t *testing.T) {
	ctx := context.Background()
	tr := New("counted", newFakeBacking(), time.Hour)

	counter := metrics.TranslatorReloads.WithLabelValues("counted", string(models.DimCountry))
	before := testutil.ToFloat64(counter)

	for i := 0; i < 3; i++ {
		if _, err := tr.KeyOf(ctx, models.DimCountry, "Ghana"); err != nil {
			t.Fatalf("KeyOf failed: %v", err)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected 1 recorded load within TTL, got %v", got)
	}
}

func TestLoadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	backing := newFakeBacking()
	backing.err = errors.New("db gone")
	tr := New("default", backing, time.Hour)

	if _, err := tr.KeyOf(ctx, models.DimCountry, "Ghana"); err == nil {
		t.Error("expected error when backing load fails")
	}
}

func TestPublicDatasets(t *testing.T) {
	ctx := context.Background()
	tr := New("default", newFakeBacking(), time.Hour)

	labels, err := tr.PublicDatasets(ctx)
	if err != nil {
		t.Fatalf("PublicDatasets failed: %v", err)
	}
	if len(labels) != 1 || labels[0] != "CLPFUv2.0" {
		t.Errorf("unexpected public datasets: %v", labels)
	}
}

func TestKeyOfBool(t *testing.T) {
	if KeyOfBool(true) != 1 || KeyOfBool(false) != 0 {
		t.Error("boolean keys must cast directly to 1/0")
	}
}
