package hadith

import (
	"strconv"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
)

// Render serializes a segmented page as a div.hadith-page wrapping copies of
// its zones, with the chain buckets nested in the isnad wrapper.
func Render(p *Page, chains []*Chain, page int, vocalized bool) (string, error) {
	root := dom.NewDiv("hadith-page",
		"data-islmwy-page", strconv.Itoa(page),
		"data-hadith-id", p.HadithNumber,
		"data-h_wa_haddathana", strconv.Itoa(p.ChainCount),
		"data-is_thaskeel", strconv.FormatBool(vocalized),
	)

	root.AppendChild(dom.Clone(p.Intro.Root))

	isnad := dom.NewDiv(ZoneIsnad.Class())
	for _, c := range chains {
		bucket := dom.Clone(c.Root)
		dom.SetAttr(bucket, "data-islmwy_page", strconv.Itoa(page))
		isnad.AppendChild(bucket)
	}
	root.AppendChild(isnad)

	root.AppendChild(dom.Clone(p.Matn.Root))
	if !p.Remainder.Empty() {
		root.AppendChild(dom.Clone(p.Remainder.Root))
	}

	return dom.Render(root)
}
