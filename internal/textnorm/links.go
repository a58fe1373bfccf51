package textnorm

import (
	"regexp"
	"strings"
)

// linkArtifacts are the site's internal API fragments that leak into page
// text through hidden attribution spans.
var linkArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`nindex\.php\?page=tafseer&surano=[0-9٠-٩۰-۹]+&ayano=[0-9٠-٩۰-۹]+`),
	regexp.MustCompile(`nindex\.php\?page=showalam&ids=[0-9٠-٩۰-۹]+`),
	regexp.MustCompile(`nindex\.php\?page=hadith&LINKID=[0-9٠-٩۰-۹]+`),
	regexp.MustCompile(`nindex\.php\?page=treesubj&link=[0-9٠-٩۰-۹_]+`),
}

// StripLinkArtifacts removes every link fragment and collapses whitespace.
// Removal repeats until no fragment is left, since deleting one fragment
// can join the halves of another.
func StripLinkArtifacts(text string) string {
	for {
		prev := text
		for _, re := range linkArtifacts {
			text = re.ReplaceAllString(text, "")
		}
		if text == prev {
			break
		}
	}
	return CollapseSpace(text)
}

// HasLinkArtifact reports whether text still carries an API fragment.
func HasLinkArtifact(text string) bool {
	for _, re := range linkArtifacts {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// CleanText trims text and strips link artifacts. It is the form every
// display string takes before it is stored.
func CleanText(text string) string {
	return StripLinkArtifacts(strings.TrimSpace(text))
}
