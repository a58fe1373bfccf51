package textnorm

import (
	"regexp"
	"strings"
)

// NotAvailable is the sentinel used for identifiers that could not be found.
const NotAvailable = "N/A"

// ChainMarker is the conjunction separating successive narration chains
// inside one isnad.
const ChainMarker = "ح وَحَدَّثَنَا"

// chainOpeners are tried in order against the compact form of a text node.
var chainOpeners = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)حدثنا`),
	regexp.MustCompile(`(\d+)وبه`),
	regexp.MustCompile(`(\d+)أخبرنا`),
	regexp.MustCompile(`(\d+)اخبرنا`),
}

// CountMarker counts non-overlapping occurrences of phrase in text after both
// have been compacted, so spacing and vocalization never block a match.
func CountMarker(text, phrase string) int {
	p := Compact(phrase)
	if p == "" {
		return 0
	}
	return strings.Count(Compact(text), p)
}

// ExtractHadithNumber returns the digit run that directly precedes one of the
// chain-opening words, or NotAvailable.
func ExtractHadithNumber(text string) string {
	compact := Compact(text)
	for _, re := range chainOpeners {
		if m := re.FindStringSubmatch(compact); m != nil {
			return m[1]
		}
	}
	return NotAvailable
}
