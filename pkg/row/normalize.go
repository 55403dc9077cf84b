package row

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// zipPattern matches a normalized postal code: three digits, an optional
// dash, four digits.
var zipPattern = regexp.MustCompile(`^\d{3}-?\d{4}$`)

var nonDigits = regexp.MustCompile(`\D`)

// dashVariants maps the dash lookalikes that appear in Japanese postal
// input to an ASCII hyphen before width folding.
var dashVariants = strings.NewReplacer("－", "-", "ー", "-", "―", "-", "‐", "-")

// NormalizePostalCode folds full-width characters to their narrow forms,
// unifies dash variants, and reformats a bare 7-digit code as ddd-dddd.
// Input that does not reduce to seven digits is returned cleaned but
// otherwise untouched so validation can flag it.
func NormalizePostalCode(value string) string {
	cleaned := width.Narrow.String(dashVariants.Replace(strings.TrimSpace(value)))
	digits := nonDigits.ReplaceAllString(cleaned, "")
	if len(digits) == 7 {
		return digits[:3] + "-" + digits[3:]
	}
	return cleaned
}

// NormalizeAddress trims surrounding whitespace and maps runes to their
// canonical width: full-width ASCII becomes narrow, half-width katakana
// becomes full-width. Kanji are unaffected.
func NormalizeAddress(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return width.Fold.String(trimmed)
}

// ValidPostalCode reports whether a normalized postal code has the
// expected ddd-dddd shape.
func ValidPostalCode(value string) bool {
	return zipPattern.MatchString(value)
}
