package hadith

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
)

// Chain is one narration chain of an isnad.
type Chain struct {
	Ordinal  int
	HadithID string
	Root     *html.Node
}

// Nodes returns the chain's nodes in document order.
func (c *Chain) Nodes() []*html.Node {
	return dom.Children(c.Root)
}

// Empty reports whether the chain bucket received no node.
func (c *Chain) Empty() bool {
	return c.Root.FirstChild == nil
}

// SplitChains distributes the isnad nodes over chainCount+1 buckets numbered
// from 1. A text node holding the marker stays in the chain it closes and
// the following nodes go to the next bucket. Once the last bucket is
// reached it keeps everything that follows.
func SplitChains(isnad *Zone, chainCount int, hadithID, marker string) []*Chain {
	if chainCount < 0 {
		chainCount = 0
	}

	chains := make([]*Chain, chainCount+1)
	for i := range chains {
		ordinal := i + 1
		chains[i] = &Chain{
			Ordinal:  ordinal,
			HadithID: hadithID,
			Root: dom.NewDiv("narrators-chain",
				"data-id", strconv.Itoa(ordinal),
				"data-hadith_id", hadithID,
			),
		}
	}

	idx := 0
	for _, n := range isnad.Nodes() {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			chains[idx].Root.AppendChild(dom.Clone(n))
			if textnorm.CountMarker(n.Data, marker) > 0 && idx < len(chains)-1 {
				idx++
			}
		case html.ElementNode:
			chains[idx].Root.AppendChild(dom.Clone(n))
		}
	}
	return chains
}
