// Package transformer implements the retail-behavior cleaning pipeline: a
// fixed, ordered list of steps that turn a raw text table into a typed,
// de-duplicated dataset with two derived feature columns.
//
// Every step is total. Malformed values degrade to missing or pass through
// unchanged, and a step whose column is absent does nothing, so the pipeline
// never fails on data-quality problems.
package transformer

import (
	"time"

	"shopetl/internal/dataset"
)

// Column vocabulary of the retail-behavior table.
const (
	ColCustomerID        = "customer_id"
	ColPurchaseAmount    = "purchase_amount_usd"
	ColReviewRating      = "review_rating"
	ColAge               = "age"
	ColPreviousPurchases = "previous_purchases"
	ColGender            = "gender"
	ColFrequency         = "frequency_of_purchases"

	ColAgeGroup  = "age_group"
	ColHighValue = "high_value_purchase"

	// colPurchaseAmountLegacy is what some exports normalize "Purchase Amount (USD)" to.
	colPurchaseAmountLegacy = "purchase_amount__usd_"
)

var (
	// BoolColumns hold yes/no style flags.
	BoolColumns = []string{"subscription_status", "discount_applied", "promo_code_used"}

	// IntColumns are coerced to nullable integers.
	IntColumns = []string{ColCustomerID, ColAge, ColPreviousPurchases}

	// CategoryColumns become closed-label categoricals.
	CategoryColumns = []string{
		ColGender, "category", "location", "size", "color", "season",
		"shipping_type", "payment_method", ColFrequency,
	}

	// AgeGroupLabels are the ordered age_group levels.
	AgeGroupLabels = []string{"<18", "18-25", "26-35", "36-50", "51-65", "65+"}
)

// Report summarizes what a run changed.
type Report struct {
	RowsIn  int
	RowsOut int

	// DuplicateNames lists normalized headers that collided with an earlier
	// column; only the first column answers to that name.
	DuplicateNames []string

	// CoercedMissing counts non-missing inputs per column that failed numeric parsing.
	CoercedMissing map[string]int
	// Imputed counts filled values per column.
	Imputed map[string]int

	DuplicatesDropped int

	Capped  int
	CapLow  float64
	CapHigh float64

	HighValueThreshold float64
	HighValueRows      int
}

// Observer is told how long each step took.
type Observer func(step string, elapsed time.Duration)

type step struct {
	name string
	fn   func(d *dataset.Dataset, r *Report)
}

// steps run in this order; later steps rely on the earlier ones.
var steps = []step{
	{name: "normalize_names", fn: normalizeNames},
	{name: "trim_text", fn: trimText},
	{name: "standardize_booleans", fn: standardizeBooleans},
	{name: "coerce_numeric", fn: coerceNumeric},
	{name: "impute_missing", fn: imputeMissing},
	{name: "drop_duplicates", fn: dropDuplicates},
	{name: "cap_outliers", fn: capOutliers},
	{name: "standardize_categories", fn: standardizeCategories},
	{name: "type_categories", fn: typeCategories},
	{name: "derive_age_group", fn: deriveAgeGroup},
	{name: "derive_high_value", fn: deriveHighValue},
	{name: "finalize", fn: finalize},
}

// StepNames lists the pipeline steps in execution order.
func StepNames() []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.name
	}
	return out
}

// Clean returns a cleaned copy of in. in is not modified.
func Clean(in *dataset.Dataset) *dataset.Dataset {
	out, _ := Run(in, nil)
	return out
}

// Run is Clean plus a Report. obs may be nil.
func Run(in *dataset.Dataset, obs Observer) (*dataset.Dataset, Report) {
	d := in.Clone()
	r := Report{
		RowsIn:         in.Len(),
		CoercedMissing: map[string]int{},
		Imputed:        map[string]int{},
	}

	for _, s := range steps {
		start := time.Now()
		s.fn(d, &r)
		if obs != nil {
			obs(s.name, time.Since(start))
		}
	}

	r.RowsOut = d.Len()
	return d, r
}
