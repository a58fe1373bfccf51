package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageNavigation holds the page switcher links.
type PageNavigation struct {
	PrevPage       string
	BookPageNumber string
	NextPage       string
}

// PageVolume holds the selected volume and the list of volumes.
type PageVolume struct {
	Volume  string
	Volumes []string
}

const pageLabel = "صفحة"

func readNavigation(doc *goquery.Document) PageNavigation {
	var nav PageNavigation

	span := doc.Find("span.page").First()
	if span.Length() == 0 {
		return nav
	}

	nav.PrevPage = attrOr(span.Find("a.topprevbutton").First(), "href", "")
	nav.NextPage = attrOr(span.Find("a.topnextbutton").First(), "href", "")

	span.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), pageLabel) {
			return true
		}
		nav.BookPageNumber = text(s.Find("a.dropdown-toggle").First())
		return false
	})
	return nav
}

func readVolume(doc *goquery.Document) PageVolume {
	var vol PageVolume

	span := doc.Find("span.part.partdropmenu").First()
	if span.Length() == 0 {
		return vol
	}

	vol.Volume = text(span.Find("a.dropdown-toggle").First())
	span.Find("ul.dropdown-menu li a.dropdown-item").Each(func(_ int, a *goquery.Selection) {
		vol.Volumes = append(vol.Volumes, text(a))
	})
	return vol
}

func readAuthor(doc *goquery.Document) string {
	h4 := doc.Find("h4.txt-secondary").First()
	if h4.Length() == 0 {
		return "N/A"
	}
	return h4.Text()
}

// Row flattens the navigation for the page-navigation table.
func (n PageNavigation) Row(page int) map[string]string {
	return map[string]string{
		"islmwy_page":      fmt.Sprintf("%d", page),
		"prev_page":        n.PrevPage,
		"book_page_number": n.BookPageNumber,
		"next_page":        n.NextPage,
	}
}

// Row flattens the volume for the page-volume table.
func (v PageVolume) Row(page int) map[string]string {
	return map[string]string{
		"islmwy_page":      fmt.Sprintf("%d", page),
		"book_page_volume": v.Volume,
		"page_volumes":     strings.Join(v.Volumes, "|"),
	}
}
