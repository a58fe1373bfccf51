package hadith

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
)

// NarratorSink receives every narrator link as soon as it is found.
// Implementations must merge repeated links idempotently.
type NarratorSink interface {
	UpsertNarrator(link *NarratorLink) error
}

// Extractor turns chains into narrator links.
type Extractor struct {
	apiBase string
	base    string
	padding int
	sink    NarratorSink
	logger  *slog.Logger
}

// NewExtractor creates an Extractor. base prefixes chain ids and padding is
// the width of the hadith number in them; sink may be nil.
func NewExtractor(apiBase, base string, padding int, sink NarratorSink, logger *slog.Logger) *Extractor {
	return &Extractor{
		apiBase: apiBase,
		base:    base,
		padding: padding,
		sink:    sink,
		logger:  logger.With("component", "narrator_extractor"),
	}
}

// Extract walks the chain's children in order and returns its narrator links
// numbered from 1. Each link is passed to the sink before the walk moves on;
// a sink failure stops the walk and is returned with the links found so far.
func (e *Extractor) Extract(chain *Chain) ([]*NarratorLink, error) {
	chainID := ""
	if n, err := textnorm.ParseNumber(chain.HadithID); err == nil {
		chainID, _ = textnorm.ChainID(e.base, n, chain.Ordinal, e.padding)
	}

	var (
		parts []string
		links []*NarratorLink
		order int
	)

	for c := chain.Root.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if t := textnorm.CollapseSpace(c.Data); t != "" {
				parts = append(parts, t)
			}

		case html.ElementNode:
			if t := textnorm.CleanText(dom.Text(c)); t != "" {
				parts = append(parts, t)
			}

			link, err := ClassifyNarrator(c, e.apiBase)
			if err != nil {
				e.logger.Warn("skipping narrator node", "chain", chain.Ordinal, "hadith", chain.HadithID, "error", err)
				continue
			}
			if link == nil {
				continue
			}

			order++
			link.ChainOrdinal = chain.Ordinal
			link.SequenceOrder = order
			link.ChainID = chainID
			link.TextBefore = textnorm.CleanText(dom.SiblingText(c.PrevSibling))
			link.TextAfter = textnorm.CleanText(dom.SiblingText(c.NextSibling))
			links = append(links, link)

			if e.sink != nil {
				if err := e.sink.UpsertNarrator(link); err != nil {
					return links, fmt.Errorf("upsert narrator %s: %w", link.ExternalID, err)
				}
			}
		}
	}

	joined := strings.Join(parts, " ")
	for _, l := range links {
		l.Context = joined
	}

	e.logger.Debug("chain extracted", "chain", chain.Ordinal, "hadith", chain.HadithID, "narrators", len(links))
	return links, nil
}
