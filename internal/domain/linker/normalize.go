package linker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/biter777/countries"
)

// Normalize lowercases, folds punctuation to single spaces and trims.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	var out strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if r == '\'' || r == '’' {
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(out.String(), " ")
}

// bigrams is the Sorensen-Dice metric over character pairs, the scoring
// used by the string-similarity package the shape catalogs were tuned with.
var bigrams = &metrics.SorensenDice{CaseSensitive: true, NgramSize: 2}

// Similarity returns the Sorensen-Dice coefficient over character bigrams
// of the two names with whitespace removed. Identical inputs score 1.
func Similarity(a, b string) float64 {
	a = strings.ReplaceAll(a, " ", "")
	b = strings.ReplaceAll(b, " ", "")
	if a == b {
		return 1
	}
	if utf8.RuneCountInString(a) < 2 || utf8.RuneCountInString(b) < 2 {
		return 0
	}
	return strutil.Similarity(a, b, bigrams)
}

// countryCode resolves a name to its ISO 3166 numeric code, or zero when the
// name is not a recognised country spelling.
func countryCode(name string) countries.CountryCode {
	code := countries.ByName(name)
	if code == countries.Unknown {
		return 0
	}
	return code
}
