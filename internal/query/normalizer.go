// Package query turns raw form submissions into backend-ready filters.
//
// The flow for every plot request is
//
//	Shape(raw form)      -> flat field map + database target
//	(*Normalizer).Normalize -> predicate list ready for the store
//
// The target is the pair of backing store (default vs. sandbox, decided by
// the dataset name prefix) and fact table (decided by the plot type and
// dataset).
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
)

// ErrValidation marks bad or missing user-submitted field values.
var ErrValidation = errors.New("invalid query")

// ErrUnknownBackend is returned when a request resolves to a store name
// that is not configured.
var ErrUnknownBackend = errors.New("unknown backend store")

// IEADatasetName is the licensed dataset gated by the access policy and
// stored in its own fact table.
const IEADatasetName = "IEAEWEB2022"

// Target identifies which physical store and logical table a request hits.
type Target struct {
	Store string
	Table models.Table
}

// Normalized is the backend-ready form of one submission.
type Normalized struct {
	PlotType   string
	Target     Target
	Predicates []Predicate

	// Fields is the flattened user-facing submission, consumed by the
	// access gate and recorded in the history buffer.
	Fields map[string]string
}

// Submission is the shaped form of one request. Fields flattens the
// values for hashing, history and the access gate; lists keeps the
// original multiplicity so labels containing commas ("Korea, Republic
// of") survive multi-select translation.
type Submission struct {
	Fields map[string]string
	Target Target

	lists map[string][]string
}

// StoreResolver validates resolved store names; satisfied by
// storage.Registry.
type StoreResolver interface {
	Has(name string) bool
}

// Normalizer owns the per-store translators and the sandbox naming rule.
type Normalizer struct {
	stores        StoreResolver
	translators   map[string]*translator.Translator
	sandboxPrefix string
	defaultStore  string
	sandboxStore  string
}

func NewNormalizer(stores StoreResolver, translators map[string]*translator.Translator, sandboxPrefix, defaultStore, sandboxStore string) *Normalizer {
	return &Normalizer{
		stores:        stores,
		translators:   translators,
		sandboxPrefix: sandboxPrefix,
		defaultStore:  defaultStore,
		sandboxStore:  sandboxStore,
	}
}

// Shape flattens a raw multi-valued submission into a field map and
// resolves the database target. Single-item lists collapse to scalars;
// genuinely multi-valued fields are comma-joined in Fields for display
// and hashing, while the original lists are kept for translation.
func (n *Normalizer) Shape(raw map[string][]string) (Submission, error) {
	fields := make(map[string]string, len(raw))
	lists := make(map[string][]string, len(raw))
	for k, vs := range raw {
		switch len(vs) {
		case 0:
			continue
		case 1:
			fields[k] = vs[0]
		default:
			fields[k] = strings.Join(vs, ",")
		}
		lists[k] = vs
	}

	target, err := n.resolveTarget(fields)
	if err != nil {
		return Submission{}, err
	}

	return Submission{Fields: fields, Target: target, lists: lists}, nil
}

func (n *Normalizer) resolveTarget(fields map[string]string) (Target, error) {
	dataset := fields["dataset"]
	if dataset == "" {
		return Target{}, fmt.Errorf("%w: dataset is required", ErrValidation)
	}

	store := n.defaultStore
	if n.sandboxPrefix != "" && strings.HasPrefix(dataset, n.sandboxPrefix) {
		store = n.sandboxStore
	}
	if !n.stores.Has(store) {
		return Target{}, fmt.Errorf("%w: %q for dataset %q", ErrUnknownBackend, store, dataset)
	}

	var table models.Table
	switch {
	case fields["plot_type"] == "xy_plot":
		table = models.TableAggEta
	case dataset == IEADatasetName:
		table = models.TableIEA
	default:
		table = models.TablePSUT
	}

	return Target{Store: store, Table: table}, nil
}

// Normalize translates the shaped submission into the predicate list the
// store understands. Label values are resolved through the target store's
// translator; list values become membership predicates; the year pair
// becomes a closed range.
func (n *Normalizer) Normalize(ctx context.Context, sub Submission) (*Normalized, error) {
	fields, target := sub.Fields, sub.Target
	tr, ok := n.translators[target.Store]
	if !ok {
		return nil, fmt.Errorf("no translator for store %q", target.Store)
	}

	var preds []Predicate
	add := func(p Predicate) { preds = append(preds, p) }

	// Sandbox dataset names carry the prefix only in the UI; the category
	// tables store them bare.
	strip := func(v string) string { return strings.TrimPrefix(v, n.sandboxPrefix) }

	if v := fields["dataset"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimDataset, strip(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "Dataset", Value: key})
	} else {
		return nil, fmt.Errorf("%w: dataset is required", ErrValidation)
	}

	if v := fields["version"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimVersion, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		// A version is in range when it fell inside the row's validity
		// window.
		add(Range{Col: "ValidFromVersion", Low: 0, High: key})
		add(Range{Col: "ValidToVersion", Low: key, High: maxKey})
	}

	if err := n.addLabelField(ctx, tr, sub, "country", models.DimCountry, "Country", &preds); err != nil {
		return nil, err
	}
	if err := n.addLabelField(ctx, tr, sub, "method", models.DimMethod, "Method", &preds); err != nil {
		return nil, err
	}
	if err := n.addLabelField(ctx, tr, sub, "energy_type", models.DimEnergyType, "EnergyType", &preds); err != nil {
		return nil, err
	}

	if v := fields["last_stage"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimLastStage, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "LastStage", Value: key})
	}

	if vs := sub.lists["ieamw"]; len(vs) > 0 {
		// Both options selected at once filter on the dedicated "Both"
		// key, not two separate predicates.
		label := vs[0]
		if len(vs) > 1 {
			label = "Both"
		}
		key, err := tr.KeyOf(ctx, models.DimIEAMW, label)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "IEAMW", Value: key})
	}

	// includes_neu is a checkbox: present and non-empty means true.
	add(Eq{Col: "IncludesNEU", Value: translator.KeyOfBool(fields["includes_neu"] != "")})

	if v := fields["chopped_mat"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimMatname, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "ChoppedMat", Value: key})
	}

	if v := fields["chopped_var"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimIndex, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "ChoppedVar", Value: key})
	}

	if v := fields["product_aggregation"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimAggLevel, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "ProductAggregation", Value: key})
	}

	if v := fields["industry_aggregation"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimAggLevel, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "IndustryAggregation", Value: key})
	}

	if v := fields["grossnet"]; v != "" {
		key, err := tr.KeyOf(ctx, models.DimGrossNet, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		add(Eq{Col: "GrossNet", Value: key})
	}

	if err := addYear(fields, &preds); err != nil {
		return nil, err
	}

	if v := fields["matname"]; v != "" {
		if v == "RUVY" {
			// The whole flow graph: membership over the four elementary
			// matrices.
			keys, err := RUVYKeys(ctx, tr)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			add(In{Col: "matname", Values: keys})
		} else {
			key, err := tr.KeyOf(ctx, models.DimMatname, v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			add(Eq{Col: "matname", Value: key})
		}
	}

	return &Normalized{
		PlotType:   fields["plot_type"],
		Target:     target,
		Predicates: preds,
		Fields:     fields,
	}, nil
}

// maxKey bounds the open side of the version validity window. Surrogate
// keys are small positive integers.
const maxKey = 1<<31 - 1

// addLabelField handles the fields that may hold one label or a list of
// labels. Translation works on the submitted values directly, never a
// re-split of the joined display string, so labels containing commas
// stay intact.
func (n *Normalizer) addLabelField(ctx context.Context, tr *translator.Translator, sub Submission, field string, dim models.Dimension, col string, preds *[]Predicate) error {
	vs := sub.lists[field]
	if len(vs) == 0 {
		return nil
	}

	if len(vs) == 1 {
		key, err := tr.KeyOf(ctx, dim, vs[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		*preds = append(*preds, Eq{Col: col, Value: key})
		return nil
	}

	keys := make([]int, 0, len(vs))
	for _, label := range vs {
		key, err := tr.KeyOf(ctx, dim, label)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		keys = append(keys, key)
	}
	*preds = append(*preds, In{Col: col, Values: keys})
	return nil
}

// addYear emits a closed range when to_year is present, otherwise a
// single-year equality. to_year equal to year is a legal range; to_year
// alone bounds only from above, leaving the lower end open.
func addYear(fields map[string]string, preds *[]Predicate) error {
	yearStr := fields["year"]
	toYearStr := fields["to_year"]

	if yearStr == "" && toYearStr == "" {
		return nil
	}

	if toYearStr != "" {
		toYear, err := strconv.Atoi(toYearStr)
		if err != nil {
			return fmt.Errorf("%w: bad to_year %q", ErrValidation, toYearStr)
		}
		low := 0
		if yearStr != "" {
			year, err := strconv.Atoi(yearStr)
			if err != nil {
				return fmt.Errorf("%w: bad year %q", ErrValidation, yearStr)
			}
			low = year
		}
		*preds = append(*preds, Range{Col: "Year", Low: low, High: toYear})
		return nil
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return fmt.Errorf("%w: bad year %q", ErrValidation, yearStr)
	}
	*preds = append(*preds, Eq{Col: "Year", Value: year})
	return nil
}

// RUVYKeys translates the four elementary matrix names. The Sankey path
// uses it to force a whole-graph fetch regardless of any single matname
// the form carried.
func RUVYKeys(ctx context.Context, tr *translator.Translator) ([]int, error) {
	names := []string{"R", "U", "V", "Y"}
	keys := make([]int, 0, len(names))
	for _, name := range names {
		key, err := tr.KeyOf(ctx, models.DimMatname, name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
