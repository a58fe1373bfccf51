// Package textnorm provides Arabic-aware text cleanup used before any page
// text is stored, compared or hashed.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Options toggles the individual normalization steps.
type Options struct {
	StripDiacritics  bool
	NormalizeHamza   bool
	NormalizeLamAlef bool
	StripPunctuation bool
	StripDigits      bool
	CollapseSpace    bool
}

// DefaultOptions enables every step except digit removal.
func DefaultOptions() Options {
	return Options{
		StripDiacritics:  true,
		NormalizeHamza:   true,
		NormalizeLamAlef: true,
		StripPunctuation: true,
		CollapseSpace:    true,
	}
}

// diacritics covers harakat, tatweel, superscript alef and the Quranic
// annotation marks.
var diacritics = runes.Predicate(func(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x065F:
		return true
	case r >= 0x06D6 && r <= 0x06ED:
		return true
	case r == 0x0640, r == 0x0670:
		return true
	}
	return false
})

var digits = runes.Predicate(func(r rune) bool {
	return (r >= '0' && r <= '9') ||
		(r >= 0x0660 && r <= 0x0669) ||
		(r >= 0x06F0 && r <= 0x06F9)
})

var spaces = runes.Predicate(unicode.IsSpace)

var lamAlef = strings.NewReplacer(
	"\uFEFB", "لا", "\uFEFC", "لا",
	"\uFEF7", "لا", "\uFEF8", "لا",
	"\uFEF9", "لا", "\uFEFA", "لا",
	"\uFEF5", "لا", "\uFEF6", "لا",
	"لأ", "لا", "لإ", "لا", "لآ", "لا",
)

var punctuation = regexp.MustCompile(`[\x{0021}-\x{002F}\x{003A}-\x{0040}\x{005B}-\x{0060}\x{007B}-\x{007E}\x{2000}-\x{206F}\x{060C}\x{061B}\x{061F}\x{066A}-\x{066D}\x{06D4}]+`)

func hamzaBase(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ة':
		return 'ه'
	case 'ى', 'ئ':
		return 'ي'
	case 'ؤ':
		return 'و'
	}
	return r
}

// arabicDigit maps Arabic-Indic and extended Arabic-Indic digits to ASCII.
func arabicDigit(r rune) rune {
	switch {
	case r >= 0x0660 && r <= 0x0669:
		return '0' + (r - 0x0660)
	case r >= 0x06F0 && r <= 0x06F9:
		return '0' + (r - 0x06F0)
	}
	return r
}

// Normalize applies the enabled steps of opts to text. Whitespace-only input
// yields the empty string.
func Normalize(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if opts.StripDiacritics {
		text = apply(runes.Remove(diacritics), text)
	}
	if opts.NormalizeLamAlef {
		text = lamAlef.Replace(text)
	}
	if opts.NormalizeHamza {
		text = apply(runes.Map(hamzaBase), text)
	}
	if opts.StripPunctuation {
		text = punctuation.ReplaceAllString(text, " ")
	}
	if opts.StripDigits {
		text = apply(runes.Remove(digits), text)
	}
	if opts.CollapseSpace {
		text = CollapseSpace(text)
	}
	return text
}

// CollapseSpace replaces every whitespace run with a single space and trims
// both ends.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Compact removes diacritics and every whitespace rune, and maps Arabic-Indic
// digits to ASCII. It is the comparison form used for marker detection.
func Compact(text string) string {
	t := transform.Chain(
		runes.Remove(diacritics),
		runes.Remove(spaces),
		runes.Map(arabicDigit),
	)
	return apply(t, text)
}

func apply(t transform.Transformer, s string) string {
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
