// Package translator resolves between human-readable category labels and
// the integer surrogate keys the fact tables store. Category tables are
// small, rarely-changing reference data, so the full label/key table per
// dimension is cached in memory with a TTL rather than fetched per field
// per request.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/metrics"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/pkg/logger"
)

// ErrUnrecognizedKey is returned when a value matches neither a label nor
// a key for the requested dimension.
var ErrUnrecognizedKey = errors.New("unrecognized key")

// DefaultCacheTTL tolerates rare administrative edits to the reference
// tables without invalidation signaling.
const DefaultCacheTTL = 24 * time.Hour

// Backing is the slice of the storage contract the translator needs.
type Backing interface {
	DimensionRows(ctx context.Context, dim models.Dimension) ([]models.DimensionEntry, error)
	PublicDatasetLabels(ctx context.Context) ([]string, error)
}

// table is one immutable cached snapshot of a dimension. Lookups read a
// fully built table; reloads build a replacement and swap the pointer, so
// readers never observe a partially populated mapping.
type table struct {
	loadedAt time.Time
	byLabel  map[string]int
	byKey    map[int]string
}

type publicSet struct {
	loadedAt time.Time
	labels   []string
}

// Translator caches label/key tables for one backing store. Safe for
// concurrent use.
type Translator struct {
	store Backing
	name  string
	ttl   time.Duration

	mu     sync.RWMutex
	tables map[models.Dimension]*table
	public *publicSet
}

func New(name string, store Backing, ttl time.Duration) *Translator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Translator{
		store:  store,
		name:   name,
		ttl:    ttl,
		tables: make(map[models.Dimension]*table),
	}
}

// KeyOf resolves a label to its surrogate key.
func (t *Translator) KeyOf(ctx context.Context, dim models.Dimension, label string) (int, error) {
	tab, err := t.load(ctx, dim)
	if err != nil {
		return 0, err
	}

	key, ok := tab.byLabel[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q for %s:%s", ErrUnrecognizedKey, label, t.name, dim)
	}
	return key, nil
}

// LabelOf resolves a surrogate key back to its label. KeyOf and LabelOf
// are mutual inverses for every entry of a dimension table.
func (t *Translator) LabelOf(ctx context.Context, dim models.Dimension, key int) (string, error) {
	tab, err := t.load(ctx, dim)
	if err != nil {
		return "", err
	}

	label, ok := tab.byKey[key]
	if !ok {
		return "", fmt.Errorf("%w: %d for %s:%s", ErrUnrecognizedKey, key, t.name, dim)
	}
	return label, nil
}

// Translate resolves a raw form value in either direction: a known label
// yields its key's decimal string, a decimal key yields its label. Form
// submissions arrive as strings, so callers need not know which shape
// they hold. A table load failure propagates; only genuinely unknown
// values fall through to the inverse direction.
func (t *Translator) Translate(ctx context.Context, dim models.Dimension, value string) (string, error) {
	key, err := t.KeyOf(ctx, dim, value)
	if err == nil {
		return strconv.Itoa(key), nil
	}
	if !errors.Is(err, ErrUnrecognizedKey) {
		return "", err
	}

	if key, convErr := strconv.Atoi(value); convErr == nil {
		label, err := t.LabelOf(ctx, dim, key)
		if err == nil {
			return label, nil
		}
		if !errors.Is(err, ErrUnrecognizedKey) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %q for %s:%s", ErrUnrecognizedKey, value, t.name, dim)
}

// AllLabels returns every known label for a dimension, for UI population.
func (t *Translator) AllLabels(ctx context.Context, dim models.Dimension) ([]string, error) {
	tab, err := t.load(ctx, dim)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(tab.byLabel))
	for label := range tab.byLabel {
		labels = append(labels, label)
	}
	return labels, nil
}

// PublicDatasets returns the dataset names flagged public, cached under
// the same TTL as the dimension tables.
func (t *Translator) PublicDatasets(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	cached := t.public
	t.mu.RUnlock()

	if cached != nil && time.Since(cached.loadedAt) <= t.ttl {
		return cached.labels, nil
	}

	labels, err := t.store.PublicDatasetLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load public datasets: %w", err)
	}

	t.mu.Lock()
	t.public = &publicSet{loadedAt: time.Now(), labels: labels}
	t.mu.Unlock()

	return labels, nil
}

// KeyOfBool is the IncludesNEU path: boolean dimensions translate by
// direct int-cast, not through the label cache.
func KeyOfBool(v bool) int {
	if v {
		return 1
	}
	return 0
}

// load returns the cached table for a dimension, reloading it when absent
// or past its TTL. A failed reload propagates; there is no stale-data
// fallback.
func (t *Translator) load(ctx context.Context, dim models.Dimension) (*table, error) {
	t.mu.RLock()
	tab := t.tables[dim]
	t.mu.RUnlock()

	if tab != nil && time.Since(tab.loadedAt) <= t.ttl {
		return tab, nil
	}

	logger.Info("Loading dimension table",
		zap.String("store", t.name),
		zap.String("dimension", string(dim)),
	)

	entries, err := t.store.DimensionRows(ctx, dim)
	if err != nil {
		return nil, fmt.Errorf("failed to load dimension %s:%s: %w", t.name, dim, err)
	}
	metrics.TranslatorReloads.WithLabelValues(t.name, string(dim)).Inc()

	fresh := &table{
		loadedAt: time.Now(),
		byLabel:  make(map[string]int, len(entries)),
		byKey:    make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		fresh.byLabel[e.Label] = e.Key
		fresh.byKey[e.Key] = e.Label
	}

	t.mu.Lock()
	t.tables[dim] = fresh
	t.mu.Unlock()

	return fresh, nil
}
