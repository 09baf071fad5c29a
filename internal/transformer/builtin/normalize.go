package builtin

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower lower-cases s with Unicode-aware rules.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeColumnName turns a raw header into a snake_case column name:
// trim, lower-case, spaces to underscores, "(usd)" to "usd", then drop any
// remaining parentheses. Applying it twice yields the same result.
func NormalizeColumnName(s string) string {
	s = strings.TrimSpace(s)
	s = Lower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "(usd)", "usd")
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return s
}

var boolWords = map[string]bool{
	"yes":   true,
	"no":    false,
	"true":  true,
	"false": false,
}

// ParseBoolWord maps yes/no/true/false in any case to a boolean.
func ParseBoolWord(s string) (bool, bool) {
	b, ok := boolWords[Lower(s)]
	return b, ok
}

var genders = map[string]string{
	"male":   "Male",
	"m":      "Male",
	"female": "Female",
	"f":      "Female",
}

// CanonicalGender maps male/m/female/f in any case to Male or Female.
func CanonicalGender(s string) (string, bool) {
	g, ok := genders[Lower(s)]
	return g, ok
}

var frequencies = map[string]string{
	"weekly":      "Weekly",
	"week":        "Weekly",
	"fortnightly": "Bi-Weekly",
	"bi-weekly":   "Bi-Weekly",
	"biweekly":    "Bi-Weekly",
	"monthly":     "Monthly",
	"annually":    "Annually",
	"annual":      "Annually",
	"quarterly":   "Quarterly",
}

// CanonicalFrequency maps purchase-frequency synonyms to one of Weekly,
// Bi-Weekly, Monthly, Quarterly or Annually. Input is trimmed and
// lower-cased before lookup.
func CanonicalFrequency(s string) (string, bool) {
	f, ok := frequencies[Lower(strings.TrimSpace(s))]
	return f, ok
}

// KeepNumeric drops every rune except ASCII digits, '.' and '-'.
func KeepNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
