package hadith

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
)

// Citations holds the verses and subjects referenced anywhere in a page
// container.
type Citations struct {
	Verses   []*QuranCitation
	Subjects []*SubjectRef
}

// ExtractCitations classifies every element below container. Nodes whose
// nested reference is missing are logged and skipped.
func ExtractCitations(container *html.Node, apiBase string, logger *slog.Logger) *Citations {
	out := &Citations{}
	if container == nil {
		return out
	}

	dom.Walk(container, func(n *html.Node) {
		switch {
		case dom.HasClass(n, ClassQuran):
			verse, err := ClassifyQuran(n, apiBase)
			if err != nil {
				logger.Warn("skipping quran node", "error", err)
				return
			}
			out.Verses = append(out.Verses, verse)

		case dom.HasClass(n, ClassSubject):
			subj, err := ClassifySubject(n, apiBase)
			if err != nil {
				logger.Warn("skipping subject node", "error", err)
				return
			}
			out.Subjects = append(out.Subjects, subj)
		}
	})
	return out
}
