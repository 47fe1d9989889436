package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/pkg/logger"
)

type Client struct {
	db   *sql.DB
	name string
}

var _ storage.Store = (*Client)(nil)

func NewClient(name, dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite store initialized", zap.String("store", name), zap.String("path", dbPath))

	return &Client{db: db, name: name}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// InitSchema creates the category and fact tables. The reference data is
// loaded by an external pipeline; the application only reads it.
func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Dataset (
		DatasetID INTEGER PRIMARY KEY,
		Dataset TEXT NOT NULL,
		FullName TEXT,
		Description TEXT,
		Public INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS Version (
		VersionID INTEGER PRIMARY KEY,
		Version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS Country (
		CountryID INTEGER PRIMARY KEY,
		Country TEXT NOT NULL,
		FullName TEXT NOT NULL,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS Method (
		MethodID INTEGER PRIMARY KEY,
		Method TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS EnergyType (
		EnergyTypeID INTEGER PRIMARY KEY,
		EnergyType TEXT NOT NULL,
		FullName TEXT NOT NULL,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS ECCStage (
		ECCStageID INTEGER PRIMARY KEY,
		ECCStage TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS IEAMW (
		IEAMWID INTEGER PRIMARY KEY,
		IEAMW TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS AggLevel (
		AggLevelID INTEGER PRIMARY KEY,
		AggLevel TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS GrossNet (
		GrossNetID INTEGER PRIMARY KEY,
		GrossNet TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS matname (
		matnameID INTEGER PRIMARY KEY,
		matname TEXT NOT NULL,
		FullName TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS "Index" (
		IndexID INTEGER PRIMARY KEY,
		"Index" TEXT NOT NULL,
		"Order" INTEGER
	);

	CREATE TABLE IF NOT EXISTS PSUT (
		Dataset INTEGER NOT NULL,
		ValidFromVersion INTEGER NOT NULL,
		ValidToVersion INTEGER NOT NULL,
		Country INTEGER NOT NULL,
		Method INTEGER NOT NULL,
		EnergyType INTEGER NOT NULL,
		LastStage INTEGER NOT NULL,
		IEAMW INTEGER NOT NULL,
		IncludesNEU INTEGER NOT NULL,
		Year INTEGER NOT NULL,
		ChoppedMat INTEGER NOT NULL,
		ChoppedVar INTEGER NOT NULL,
		ProductAggregation INTEGER NOT NULL,
		IndustryAggregation INTEGER NOT NULL,
		matname INTEGER NOT NULL,
		i INTEGER NOT NULL,
		j INTEGER NOT NULL,
		value REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_psut_meta ON PSUT(Dataset, Country, Year);
	CREATE INDEX IF NOT EXISTS idx_psut_matname ON PSUT(matname);

	CREATE TABLE IF NOT EXISTS IEAData (
		Dataset INTEGER NOT NULL,
		ValidFromVersion INTEGER NOT NULL,
		ValidToVersion INTEGER NOT NULL,
		Country INTEGER NOT NULL,
		Method INTEGER NOT NULL,
		EnergyType INTEGER NOT NULL,
		LastStage INTEGER NOT NULL,
		IEAMW INTEGER NOT NULL,
		IncludesNEU INTEGER NOT NULL,
		Year INTEGER NOT NULL,
		ChoppedMat INTEGER NOT NULL,
		ChoppedVar INTEGER NOT NULL,
		ProductAggregation INTEGER NOT NULL,
		IndustryAggregation INTEGER NOT NULL,
		matname INTEGER NOT NULL,
		i INTEGER NOT NULL,
		j INTEGER NOT NULL,
		value REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_iea_meta ON IEAData(Dataset, Country, Year);

	CREATE TABLE IF NOT EXISTS AggEtaPFU (
		Dataset INTEGER NOT NULL,
		ValidFromVersion INTEGER NOT NULL,
		ValidToVersion INTEGER NOT NULL,
		Country INTEGER NOT NULL,
		Method INTEGER NOT NULL,
		EnergyType INTEGER NOT NULL,
		LastStage INTEGER NOT NULL,
		IEAMW INTEGER NOT NULL,
		IncludesNEU INTEGER NOT NULL,
		Year INTEGER NOT NULL,
		ChoppedMat INTEGER NOT NULL,
		ChoppedVar INTEGER NOT NULL,
		ProductAggregation INTEGER NOT NULL,
		IndustryAggregation INTEGER NOT NULL,
		GrossNet INTEGER NOT NULL,
		EXp REAL NOT NULL,
		EXf REAL NOT NULL,
		EXu REAL NOT NULL,
		etapf REAL NOT NULL,
		etafu REAL NOT NULL,
		etapu REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_aggeta_meta ON AggEtaPFU(Dataset, Country, Year);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized", zap.String("store", c.name))
	return nil
}

// dimensionTables maps each dimension to its category table, key column
// and label column.
var dimensionTables = map[models.Dimension][3]string{
	models.DimDataset:    {"Dataset", "DatasetID", "Dataset"},
	models.DimVersion:    {"Version", "VersionID", "Version"},
	models.DimCountry:    {"Country", "CountryID", "FullName"},
	models.DimMethod:     {"Method", "MethodID", "Method"},
	models.DimEnergyType: {"EnergyType", "EnergyTypeID", "FullName"},
	models.DimLastStage:  {"ECCStage", "ECCStageID", "ECCStage"},
	models.DimIEAMW:      {"IEAMW", "IEAMWID", "IEAMW"},
	models.DimMatname:    {"matname", "matnameID", "matname"},
	models.DimAggLevel:   {"AggLevel", "AggLevelID", "AggLevel"},
	models.DimGrossNet:   {"GrossNet", "GrossNetID", "GrossNet"},
	models.DimIndex:      {`"Index"`, "IndexID", `"Index"`},
}

func (c *Client) DimensionRows(ctx context.Context, dim models.Dimension) ([]models.DimensionEntry, error) {
	mapping, ok := dimensionTables[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension: %s", dim)
	}
	table, idCol, labelCol := mapping[0], mapping[1], mapping[2]

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, %s FROM %s", idCol, labelCol, table))
	if err != nil {
		return nil, fmt.Errorf("failed to load dimension %s: %w", dim, err)
	}
	defer rows.Close()

	var entries []models.DimensionEntry
	for rows.Next() {
		var e models.DimensionEntry
		if err := rows.Scan(&e.Key, &e.Label); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (c *Client) PublicDatasetLabels(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT Dataset FROM Dataset WHERE Public = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to load public datasets: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

func (c *Client) IndexCount(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "Index"`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count index vocabulary: %w", err)
	}
	return count, nil
}

func (c *Client) FetchTriples(ctx context.Context, table models.Table, preds []query.Predicate) ([]models.Triple, error) {
	where, args, err := buildWhere(preds)
	if err != nil {
		return nil, err
	}

	tableName, err := factTable(table)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT i, j, value FROM %s%s", tableName, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch triples: %w", err)
	}
	defer rows.Close()

	var triples []models.Triple
	for rows.Next() {
		var t models.Triple
		if err := rows.Scan(&t.I, &t.J, &t.X); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		triples = append(triples, t)
	}

	return triples, rows.Err()
}

func (c *Client) FetchTaggedTriples(ctx context.Context, table models.Table, preds []query.Predicate) ([]models.TaggedTriple, error) {
	where, args, err := buildWhere(preds)
	if err != nil {
		return nil, err
	}

	tableName, err := factTable(table)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT matname, i, j, value FROM %s%s", tableName, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tagged triples: %w", err)
	}
	defer rows.Close()

	var triples []models.TaggedTriple
	for rows.Next() {
		var t models.TaggedTriple
		if err := rows.Scan(&t.Matname, &t.I, &t.J, &t.X); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		triples = append(triples, t)
	}

	return triples, rows.Err()
}

func (c *Client) FetchEfficiencies(ctx context.Context, metric string, preds []query.Predicate) ([]storage.EfficiencyFact, error) {
	if !metricColumns[metric] {
		return nil, fmt.Errorf("unknown efficiency metric: %q", metric)
	}

	where, args, err := buildWhere(preds)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT Year, %s, Country, EnergyType FROM AggEtaPFU%s", metric, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch efficiencies: %w", err)
	}
	defer rows.Close()

	var facts []storage.EfficiencyFact
	for rows.Next() {
		var f storage.EfficiencyFact
		if err := rows.Scan(&f.Year, &f.Value, &f.Country, &f.EnergyType); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		facts = append(facts, f)
	}

	return facts, rows.Err()
}

func factTable(table models.Table) (string, error) {
	switch table {
	case models.TablePSUT:
		return "PSUT", nil
	case models.TableIEA:
		return "IEAData", nil
	case models.TableAggEta:
		return "AggEtaPFU", nil
	default:
		return "", fmt.Errorf("unknown fact table: %s", table)
	}
}

// filterColumns whitelists the columns predicates may reference; queries
// never interpolate caller-provided column names directly.
var filterColumns = map[string]bool{
	"Dataset":             true,
	"ValidFromVersion":    true,
	"ValidToVersion":      true,
	"Country":             true,
	"Method":              true,
	"EnergyType":          true,
	"LastStage":           true,
	"IEAMW":               true,
	"IncludesNEU":         true,
	"Year":                true,
	"ChoppedMat":          true,
	"ChoppedVar":          true,
	"ProductAggregation":  true,
	"IndustryAggregation": true,
	"GrossNet":            true,
	"matname":             true,
}

var metricColumns = map[string]bool{
	"EXp":   true,
	"EXf":   true,
	"EXu":   true,
	"etapf": true,
	"etafu": true,
	"etapu": true,
}

// buildWhere lowers the predicate union into a WHERE clause with
// positional arguments. An empty predicate list yields no clause.
func buildWhere(preds []query.Predicate) (string, []interface{}, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []interface{}

	for _, p := range preds {
		if !filterColumns[p.Column()] {
			return "", nil, fmt.Errorf("unknown filter column: %q", p.Column())
		}

		switch pred := p.(type) {
		case query.Eq:
			clauses = append(clauses, pred.Col+" = ?")
			args = append(args, pred.Value)
		case query.In:
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
			clauses = append(clauses, pred.Col+" IN ("+placeholders+")")
			for _, v := range pred.Values {
				args = append(args, v)
			}
		case query.Range:
			clauses = append(clauses, pred.Col+" BETWEEN ? AND ?")
			args = append(args, pred.Low, pred.High)
		default:
			return "", nil, fmt.Errorf("unsupported predicate type %T", p)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
