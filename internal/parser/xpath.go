package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

const tocXPath = `//ol[@id='topPath']/li`

// TOCEntry is one breadcrumb level.
type TOCEntry struct {
	Href string
	Text string
}

// TOCPath is the breadcrumb above a page: site root, book, kitab, section,
// sub-section, part and, always last, the chapter.
type TOCPath struct {
	Main       TOCEntry
	Book       TOCEntry
	BookName   TOCEntry
	Section    TOCEntry
	SubSection TOCEntry
	PartI      TOCEntry
	Chapter    TOCEntry
}

// readTOCPath reads the breadcrumb list with XPath. The last item is always
// the chapter whatever its depth; items past the sixth level are ignored.
func readTOCPath(root *html.Node) (TOCPath, error) {
	var toc TOCPath

	items, err := htmlquery.QueryAll(root, tocXPath)
	if err != nil {
		return toc, fmt.Errorf("query %s: %w", tocXPath, err)
	}

	slots := []*TOCEntry{&toc.Main, &toc.Book, &toc.BookName, &toc.Section, &toc.SubSection, &toc.PartI}
	for i, li := range items {
		var slot *TOCEntry
		switch {
		case i == len(items)-1:
			slot = &toc.Chapter
		case i < len(slots):
			slot = slots[i]
		default:
			continue
		}

		if a := htmlquery.FindOne(li, "./a"); a != nil {
			slot.Href = htmlquery.SelectAttr(a, "href")
			slot.Text = strings.TrimSpace(htmlquery.InnerText(a))
		} else {
			slot.Text = strings.TrimSpace(htmlquery.InnerText(li))
		}
	}
	return toc, nil
}

// Row flattens the path for the toc-path table.
func (p TOCPath) Row(page int) map[string]string {
	return map[string]string{
		"islmwy_page":            fmt.Sprintf("%d", page),
		"anchor_main_data_href":  p.Main.Href,
		"anchor_main_data_text":  p.Main.Text,
		"book_url":               p.Book.Href,
		"book":                   p.Book.Text,
		"hadith_book_name_url":   p.BookName.Href,
		"hadith_book_name":       p.BookName.Text,
		"hadith_section_url":     p.Section.Href,
		"hadith_section":         p.Section.Text,
		"hadith_sub_section_url": p.SubSection.Href,
		"hadith_sub_section":     p.SubSection.Text,
		"hadith_part_I_url":      p.PartI.Href,
		"hadith_part_I":          p.PartI.Text,
		"hadith_chapter_url":     p.Chapter.Href,
		"hadith_chapter":         p.Chapter.Text,
	}
}
