package models

// Dimension names one of the enumerated category tables that map small
// integer surrogate keys to human-readable labels.
type Dimension string

const (
	DimDataset    Dimension = "Dataset"
	DimVersion    Dimension = "Version"
	DimCountry    Dimension = "Country"
	DimMethod     Dimension = "Method"
	DimEnergyType Dimension = "EnergyType"
	DimLastStage  Dimension = "LastStage"
	DimIEAMW      Dimension = "IEAMW"
	DimMatname    Dimension = "Matname"
	DimAggLevel   Dimension = "AggLevel"
	DimGrossNet   Dimension = "GrossNet"
	DimIndex      Dimension = "Index"
)

// AllDimensions lists every label-translated dimension, for cache warm-up
// and the meta endpoint.
var AllDimensions = []Dimension{
	DimDataset,
	DimVersion,
	DimCountry,
	DimMethod,
	DimEnergyType,
	DimLastStage,
	DimIEAMW,
	DimMatname,
	DimAggLevel,
	DimGrossNet,
	DimIndex,
}

// DimensionEntry is one row of a category table. Keys are unique within a
// dimension and stable for the lifetime of a store snapshot.
type DimensionEntry struct {
	Key   int
	Label string
}

// Table names a logical fact table within a backing store.
type Table string

const (
	// TablePSUT holds the elementary-matrix cells (R, U, V, Y).
	TablePSUT Table = "PSUT"
	// TableIEA holds the same shape of rows for the licensed IEA dataset.
	TableIEA Table = "IEAData"
	// TableAggEta holds the aggregate efficiency/exergy metrics per year.
	TableAggEta Table = "AggEtaPFU"
)

// Triple is one non-zero cell of an elementary matrix: row index, column
// index and magnitude. Indices come from the shared commodity/industry
// Index vocabulary.
type Triple struct {
	I int
	J int
	X float64
}

// TaggedTriple additionally carries the surrogate key of the matrix the
// cell came from. The tag is used only for stage assignment and coloring,
// never combined numerically.
type TaggedTriple struct {
	Matname int
	I       int
	J       int
	X       float64
}

// EfficiencyRow is one AggEtaPFU observation used by XY plots: a year and
// one metric value, with the grouping columns already translated to labels.
type EfficiencyRow struct {
	Year       int
	Value      float64
	Country    string
	EnergyType string
}

// Requester carries the authorization facts the access gate needs. It is
// filled by the web layer from whatever session mechanism fronts the API.
type Requester struct {
	Authenticated bool
	Claims        map[string]bool
}

// HasClaim reports whether the requester holds the named claim.
func (r Requester) HasClaim(name string) bool {
	return r.Claims[name]
}
