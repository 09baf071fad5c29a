package transformer

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"shopetl/internal/dataset"
	"shopetl/internal/stats"
	"shopetl/internal/transformer/builtin"
)

// normalizeNames rewrites every header to snake_case. Headers that end up
// sharing a name are listed in the report; lookups resolve to the first.
func normalizeNames(d *dataset.Dataset, r *Report) {
	names := d.Names()
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		names[i] = builtin.NormalizeColumnName(n)
		if seen[names[i]] {
			r.DuplicateNames = append(r.DuplicateNames, names[i])
		}
		seen[names[i]] = true
	}
	// names comes from d.Names(), so the count always matches.
	_ = d.SetNames(names)
}

// trimText stringifies and trims every value of every text column.
func trimText(d *dataset.Dataset, _ *Report) {
	for _, c := range d.Columns() {
		if c.Kind != dataset.KindText {
			continue
		}
		for i, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			c.Values[i] = dataset.Text(strings.TrimSpace(v.String()))
		}
	}
}

// standardizeBooleans maps yes/no/true/false to booleans. Values that do not
// map are kept as they were, in which case the column stays Text.
func standardizeBooleans(d *dataset.Dataset, _ *Report) {
	for _, name := range BoolColumns {
		c, ok := d.Column(name)
		if !ok {
			continue
		}
		allMapped := true
		for i, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			if _, isBool := v.BoolValue(); isBool {
				continue
			}
			s, isText := v.Str()
			if !isText {
				allMapped = false
				continue
			}
			b, mapped := builtin.ParseBoolWord(s)
			if !mapped {
				allMapped = false
				continue
			}
			c.Values[i] = dataset.Bool(b)
		}
		if allMapped {
			c.Kind = dataset.KindBool
		} else {
			c.Kind = dataset.KindText
		}
	}
}

func coerceNumeric(d *dataset.Dataset, r *Report) {
	if !d.Has(ColPurchaseAmount) && d.Has(colPurchaseAmountLegacy) {
		d.Rename(colPurchaseAmountLegacy, ColPurchaseAmount)
	}

	if c, ok := d.Column(ColPurchaseAmount); ok {
		r.CoercedMissing[c.Name] += coerceFloat(c, builtin.KeepNumeric)
	}
	if c, ok := d.Column(ColReviewRating); ok {
		r.CoercedMissing[c.Name] += coerceFloat(c, nil)
	}
	for _, name := range IntColumns {
		if c, ok := d.Column(name); ok {
			r.CoercedMissing[c.Name] += coerceInt(c)
		}
	}
}

// coerceFloat parses every value as a float after an optional scrub of its
// text form. It returns how many non-missing values became missing.
func coerceFloat(c *dataset.Column, scrub func(string) string) int {
	lost := 0
	for i, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		s := v.String()
		if scrub != nil {
			s = scrub(s)
		}
		f, ok := parseNumber(s)
		if !ok {
			c.Values[i] = dataset.Missing()
			lost++
			continue
		}
		c.Values[i] = dataset.Float(f)
	}
	c.Kind = dataset.KindFloat
	return lost
}

// coerceInt parses every value as a number and truncates it to a nullable int64.
func coerceInt(c *dataset.Column) int {
	lost := 0
	for i, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		if n, isInt := v.Int64(); isInt {
			c.Values[i] = dataset.Int(n)
			continue
		}
		f, ok := parseNumber(v.String())
		if ok {
			f = math.Trunc(f)
			ok = f >= math.MinInt64 && f < math.MaxInt64
		}
		if !ok {
			c.Values[i] = dataset.Missing()
			lost++
			continue
		}
		c.Values[i] = dataset.Int(int64(f))
	}
	c.Kind = dataset.KindInt
	return lost
}

// parseNumber accepts plain decimal or exponent notation. Hex floats,
// digit separators and non-finite results are rejected.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_pP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// imputeMissing fills numeric columns with their median and every other
// column with its mode. Columns without any usable value are left alone.
func imputeMissing(d *dataset.Dataset, r *Report) {
	for _, c := range d.Columns() {
		if c.Kind.IsNumeric() {
			if n := imputeMedian(c); n > 0 {
				r.Imputed[c.Name] += n
			}
			continue
		}
		if n := imputeMode(c); n > 0 {
			r.Imputed[c.Name] += n
		}
	}
}

func imputeMedian(c *dataset.Column) int {
	xs := floats(c)
	if len(xs) == len(c.Values) {
		return 0
	}
	m, ok := stats.Median(xs)
	if !ok {
		return 0
	}
	fill := dataset.Float(m)
	if c.Kind == dataset.KindInt {
		fill = dataset.Int(int64(math.Round(m)))
	}
	n := 0
	for i, v := range c.Values {
		if v.IsMissing() {
			c.Values[i] = fill
			n++
		}
	}
	return n
}

// imputeMode treats the literal text "nan" as missing, which is how a
// stringified missing value looks in exports of this table.
func imputeMode(c *dataset.Column) int {
	keys := make([]string, 0, len(c.Values))
	byKey := make(map[string]dataset.Value)
	holes := 0
	for _, v := range c.Values {
		if isHole(v) {
			holes++
			continue
		}
		k := modeKey(v)
		if _, seen := byKey[k]; !seen {
			byKey[k] = v
		}
		keys = append(keys, k)
	}
	if holes == 0 {
		return 0
	}
	k, ok := stats.Mode(keys)
	if !ok {
		return 0
	}
	fill := byKey[k]
	for i, v := range c.Values {
		if isHole(v) {
			c.Values[i] = fill
		}
	}
	return holes
}

func isHole(v dataset.Value) bool {
	if v.IsMissing() {
		return true
	}
	s, ok := v.Str()
	return ok && s == "nan"
}

// modeKey orders booleans False < True and keeps kinds apart.
func modeKey(v dataset.Value) string {
	if _, ok := v.BoolValue(); ok {
		return "\x00" + v.String()
	}
	return v.String()
}

// dropDuplicates keeps the first occurrence of every exact row. Rows are
// bucketed by fingerprint and compared value by value within a bucket.
func dropDuplicates(d *dataset.Dataset, r *Report) {
	buckets := make(map[string][]int, d.Len())
	keep := make([]int, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		sum := builtin.HashRow(row)
		if containsRow(d, buckets[sum], row) {
			continue
		}
		buckets[sum] = append(buckets[sum], i)
		keep = append(keep, i)
	}
	r.DuplicatesDropped = d.Len() - len(keep)
	if r.DuplicatesDropped > 0 {
		d.Keep(keep)
	}
}

func containsRow(d *dataset.Dataset, candidates []int, row []dataset.Value) bool {
	for _, j := range candidates {
		if rowsEqual(d.Row(j), row) {
			return true
		}
	}
	return false
}

func rowsEqual(a, b []dataset.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// capOutliers clamps purchase amounts into their [p1, p99] range.
func capOutliers(d *dataset.Dataset, r *Report) {
	c, ok := d.Column(ColPurchaseAmount)
	if !ok {
		return
	}
	q, ok := stats.Quantiles(floats(c), 0.01, 0.99)
	if !ok {
		return
	}
	lo, hi := q[0], q[1]
	r.CapLow, r.CapHigh = lo, hi
	for i, v := range c.Values {
		f, ok := v.Float64()
		if !ok {
			continue
		}
		if cf := stats.Clamp(f, lo, hi); cf != f {
			c.Values[i] = dataset.Float(cf)
			r.Capped++
		}
	}
}

func standardizeCategories(d *dataset.Dataset, _ *Report) {
	if c, ok := d.Column(ColGender); ok {
		mapText(c, builtin.CanonicalGender)
	}
	if c, ok := d.Column(ColFrequency); ok {
		mapText(c, builtin.CanonicalFrequency)
	}
}

func mapText(c *dataset.Column, fn func(string) (string, bool)) {
	for i, v := range c.Values {
		s, ok := v.Str()
		if !ok {
			continue
		}
		if m, mapped := fn(s); mapped {
			c.Values[i] = dataset.Text(m)
		}
	}
}

// typeCategories closes the label set of every categorical column over its
// current distinct values, sorted.
func typeCategories(d *dataset.Dataset, _ *Report) {
	for _, name := range CategoryColumns {
		c, ok := d.Column(name)
		if !ok {
			continue
		}
		set := map[string]struct{}{}
		for i, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			s := v.String()
			c.Values[i] = dataset.Text(s)
			set[s] = struct{}{}
		}
		levels := make([]string, 0, len(set))
		for s := range set {
			levels = append(levels, s)
		}
		sort.Strings(levels)

		c.Kind = dataset.KindCategory
		c.Levels = levels
		c.Ordered = false
	}
}

// ageBinEdges are right-closed bin edges; the first bin also includes 0.
var ageBinEdges = []float64{0, 17, 25, 35, 50, 65, 120}

// AgeGroup buckets an age into one of AgeGroupLabels.
func AgeGroup(age float64) (string, bool) {
	if math.IsNaN(age) || age < ageBinEdges[0] || age > ageBinEdges[len(ageBinEdges)-1] {
		return "", false
	}
	for i := 1; i < len(ageBinEdges); i++ {
		if age <= ageBinEdges[i] {
			return AgeGroupLabels[i-1], true
		}
	}
	return "", false
}

func deriveAgeGroup(d *dataset.Dataset, _ *Report) {
	age, ok := d.Column(ColAge)
	if !ok {
		return
	}
	vals := make([]dataset.Value, len(age.Values))
	for i, v := range age.Values {
		f, ok := v.Float64()
		if !ok {
			continue
		}
		if label, ok := AgeGroup(f); ok {
			vals[i] = dataset.Text(label)
		}
	}
	col := dataset.NewColumn(ColAgeGroup, dataset.KindCategory, vals)
	col.Levels = append([]string(nil), AgeGroupLabels...)
	col.Ordered = true
	// vals has one entry per row, so SetColumn cannot fail on length.
	_ = d.SetColumn(col)
}

// deriveHighValue flags purchases at or above the 90th percentile.
func deriveHighValue(d *dataset.Dataset, r *Report) {
	c, ok := d.Column(ColPurchaseAmount)
	if !ok {
		return
	}
	threshold, have := stats.Quantile(floats(c), 0.90)
	r.HighValueThreshold = threshold

	vals := make([]dataset.Value, len(c.Values))
	for i, v := range c.Values {
		f, ok := v.Float64()
		hv := have && ok && f >= threshold
		if hv {
			r.HighValueRows++
		}
		vals[i] = dataset.Bool(hv)
	}
	// vals has one entry per row, so SetColumn cannot fail on length.
	_ = d.SetColumn(dataset.NewColumn(ColHighValue, dataset.KindBool, vals))
}

func finalize(d *dataset.Dataset, _ *Report) {
	d.ResetIndex()
}

// floats returns the non-missing numeric values of c.
func floats(c *dataset.Column) []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}
