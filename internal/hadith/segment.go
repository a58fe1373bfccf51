// Package hadith splits a hadith page into its zones, the isnad into
// narration chains, and chains into narrator links.
package hadith

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// ZoneKind names a region of a hadith page.
type ZoneKind int

const (
	ZoneIntro ZoneKind = iota
	ZoneIsnad
	ZoneMatn
	ZoneRemainder
)

func (k ZoneKind) String() string {
	switch k {
	case ZoneIntro:
		return "intro"
	case ZoneIsnad:
		return "isnad"
	case ZoneMatn:
		return "matn"
	case ZoneRemainder:
		return "remainder"
	default:
		return "unknown"
	}
}

// Class is the class attribute of the zone's wrapper div.
func (k ZoneKind) Class() string {
	switch k {
	case ZoneIntro:
		return "page-intro"
	case ZoneIsnad:
		return "hadith-isnad"
	case ZoneMatn:
		return "hadith-matn"
	default:
		return "page-remainder"
	}
}

// Zone owns copies of the page nodes routed to it, as children of a detached
// wrapper div.
type Zone struct {
	Kind ZoneKind
	Root *html.Node
}

func newZone(kind ZoneKind) *Zone {
	return &Zone{Kind: kind, Root: dom.NewDiv(kind.Class())}
}

func (z *Zone) add(n *html.Node) {
	z.Root.AppendChild(dom.Clone(n))
}

// Nodes returns the zone's nodes in document order.
func (z *Zone) Nodes() []*html.Node {
	return dom.Children(z.Root)
}

// Empty reports whether no node was routed to the zone.
func (z *Zone) Empty() bool {
	return z.Root.FirstChild == nil
}

// Text returns the zone text with link artifacts stripped.
func (z *Zone) Text() string {
	return textnorm.StripLinkArtifacts(dom.Text(z.Root))
}

// State is the segmenter state. Values above InChain all mean PastChain.
type State int

const (
	BeforeChain State = 0
	InChain     State = 1
	PastChain   State = 2
)

// Page is a segmented hadith page.
type Page struct {
	// HadithNumber is the number found before the first chain-opening word,
	// or textnorm.NotAvailable.
	HadithNumber string
	// Markers counts the chain-opening numbers seen on the page.
	Markers    int
	ChainCount int
	Intro      *Zone
	Isnad      *Zone
	Matn       *Zone
	Remainder  *Zone
}

// HasHadith reports whether a chain-opening number was found.
func (p *Page) HasHadith() bool {
	return p.HadithNumber != textnorm.NotAvailable
}

// Segment routes the direct children of container to the page zones and
// counts the chains of the isnad.
//
// Text nodes are checked for a chain-opening number. The first one moves the
// walk from BeforeChain to InChain and fixes the hadith number; any later
// one moves it past the chain, after which every node, the marker text
// included, lands in Remainder. While InChain, elements carrying the hadith
// class go to Matn and everything else to Isnad. Whitespace-only text and
// comments are dropped.
func Segment(container *html.Node, marker string) (*Page, error) {
	if container == nil {
		return nil, &types.ParseError{Selector: "div.bookcontent-dic", Err: types.ErrContainerNotFound}
	}

	page := &Page{
		HadithNumber: textnorm.NotAvailable,
		Intro:        newZone(ZoneIntro),
		Isnad:        newZone(ZoneIsnad),
		Matn:         newZone(ZoneMatn),
		Remainder:    newZone(ZoneRemainder),
	}

	state := BeforeChain
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text := strings.TrimSpace(c.Data)
			if text == "" {
				continue
			}
			if num := textnorm.ExtractHadithNumber(text); num != textnorm.NotAvailable {
				if state == BeforeChain {
					page.HadithNumber = num
				}
				page.Markers++
				state++
			}
			switch state {
			case BeforeChain:
				page.Intro.add(c)
			case InChain:
				page.Isnad.add(c)
			default:
				page.Remainder.add(c)
			}

		case html.ElementNode:
			switch {
			case state == BeforeChain:
				page.Intro.add(c)
			case state == InChain && dom.HasClass(c, ClassHadith):
				page.Matn.add(c)
			case state == InChain:
				page.Isnad.add(c)
			default:
				page.Remainder.add(c)
			}
		}
	}

	page.ChainCount = textnorm.CountMarker(page.Isnad.Text(), marker)
	return page, nil
}
