// Package parser reads the page-level metadata around a hadith container:
// breadcrumb path, page navigation, volume, author and the chapter tree.
package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// ContainerSelector matches the content container of a library page; the
// container id tells the plain and the vocalized variant apart.
const ContainerSelector = "div.bookcontent-dic"

// PageInfo is the metadata of one library page.
type PageInfo struct {
	Page       int
	TOC        TOCPath
	Navigation PageNavigation
	Volume     PageVolume
	Author     string
	Tree       []TreeRow
}

// Reader extracts PageInfo from parsed pages.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a metadata reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{
		logger: logger.With("component", "page_reader"),
	}
}

// Read collects every metadata block of doc. Missing blocks leave their
// fields empty.
func (r *Reader) Read(doc *goquery.Document, page int) *PageInfo {
	info := &PageInfo{
		Page:       page,
		Navigation: readNavigation(doc),
		Volume:     readVolume(doc),
		Author:     readAuthor(doc),
		Tree:       readChapterTree(doc, page),
	}

	if root := doc.Get(0); root != nil {
		toc, err := readTOCPath(root)
		if err != nil {
			r.logger.Warn("toc path unreadable", "page", page, "error", err)
		}
		info.TOC = toc
	}

	r.logger.Debug("page info read",
		"page", page,
		"book", info.TOC.Book.Text,
		"chapter", info.TOC.Chapter.Text,
		"tree_rows", len(info.Tree),
	)
	return info
}

// FindContainer returns the content container with the given id.
func FindContainer(doc *goquery.Document, id string) (*html.Node, error) {
	selector := ContainerSelector + "#" + id
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, &types.ParseError{Selector: selector, Err: types.ErrContainerNotFound}
	}
	return sel.Get(0), nil
}

func attrOr(sel *goquery.Selection, attr, defaultVal string) string {
	if v, ok := sel.Attr(attr); ok {
		return v
	}
	return defaultVal
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
