package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/hadith"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/observability"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/parser"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/storage"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

const (
	siteSource     = "https://www.islamweb.net/"
	siteCopyRights = "جميع الحقوق محفوظة © 2025 - 1998 لشبكة إسلام ويب"
)

// Resolver turns a tree subject URL into the subject text.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// PageResult summarizes what one page contributed.
type PageResult struct {
	Page       int
	HadithKeys []string
	Chains     int
	Narrators  int
	Verses     int
	Subjects   int
}

// HasHadith reports whether any container of the page held a hadith.
func (r *PageResult) HasHadith() bool {
	return len(r.HadithKeys) > 0
}

// variant is one content container of a page and the outputs fed from it.
type variant struct {
	containerID string
	vocalized   bool
	required    bool
	suffix      string

	stores    *storage.Stores
	extractor *hadith.Extractor
	chains    *storage.Table
	footer    *storage.Table
}

// baseTables receive the page metadata rows.
type baseTables struct {
	tree       *storage.Table
	toc        *storage.Table
	volume     *storage.Table
	navigation *storage.Table
	scraping   *storage.Table
	book       *storage.Table
}

// Processor runs the extraction pipeline over fetched pages and writes every
// output of a page: metadata tables, merge store records, chain links and
// the structured page html.
type Processor struct {
	site     config.SiteConfig
	scraper  config.ScraperConfig
	outDir   string
	reader   *parser.Reader
	resolver Resolver
	metrics  *observability.Metrics

	variants []*variant
	tables   baseTables

	logger *slog.Logger
}

// NewProcessor creates a Processor writing under cfg.Storage.OutputDir.
// resolver may be nil, in which case subject citations are skipped; metrics
// may be nil.
func NewProcessor(cfg *config.Config, resolver Resolver, metrics *observability.Metrics, logger *slog.Logger) *Processor {
	dir := cfg.Storage.OutputDir
	base := cfg.Scraper.BaseName
	apiBase := cfg.Site.APIBase()
	table := func(parts ...string) *storage.Table {
		return storage.NewTable(filepath.Join(append([]string{dir}, parts...)...), logger)
	}

	newVariant := func(containerID string, vocalized bool) *variant {
		suffix := ""
		if vocalized {
			suffix = storage.VocalizedSuffix
		}
		stores := storage.OpenStores(dir, base, vocalized, logger)
		return &variant{
			containerID: containerID,
			vocalized:   vocalized,
			required:    !vocalized,
			suffix:      suffix,
			stores:      stores,
			extractor:   hadith.NewExtractor(apiBase, base, cfg.Scraper.HadithPadding, stores.Narrators, logger),
			chains:      table("csv", "narrators-chain"+suffix+".csv"),
			footer:      table("db", "chapter_footer"+suffix+".csv"),
		}
	}

	p := &Processor{
		site:     cfg.Site,
		scraper:  cfg.Scraper,
		outDir:   dir,
		reader:   parser.NewReader(logger),
		resolver: resolver,
		metrics:  metrics,
		variants: []*variant{newVariant(cfg.Scraper.ContainerID, false)},
		tables: baseTables{
			tree:       table("csv", "chapter-tree.csv"),
			toc:        table("csv", "toc-path-header.csv"),
			volume:     table("csv", "page-volume.csv"),
			navigation: table("csv", "page-navigation.csv"),
			scraping:   table("db", "Scraping.csv"),
			book:       table("db", "Book.csv"),
		},
		logger: logger.With("component", "processor"),
	}
	if cfg.Scraper.VocalizedContainerID != "" {
		p.variants = append(p.variants, newVariant(cfg.Scraper.VocalizedContainerID, true))
	}
	return p
}

// Stores returns the merge stores of every container variant keyed by
// collection name.
func (p *Processor) Stores() map[string]*storage.MergeStore {
	out := make(map[string]*storage.MergeStore)
	for _, v := range p.variants {
		for name, s := range v.stores.Named() {
			out[name] = s
		}
	}
	return out
}

// ProcessHTML parses body and processes it as page.
func (p *Processor) ProcessHTML(ctx context.Context, page int, body []byte) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.PageError{Page: page, Err: &types.ParseError{Err: err}}
	}
	return p.ProcessPage(ctx, page, doc)
}

// ProcessPage runs the pipeline over doc. A missing primary container fails
// the page before anything is written; a missing vocalized container is
// skipped.
func (p *Processor) ProcessPage(ctx context.Context, page int, doc *goquery.Document) (*PageResult, error) {
	containers := make([]*html.Node, len(p.variants))
	for i, v := range p.variants {
		c, err := parser.FindContainer(doc, v.containerID)
		if err != nil {
			if v.required {
				return nil, &types.PageError{Page: page, Err: err}
			}
			p.logger.Debug("container absent", "page", page, "container", v.containerID)
			continue
		}
		containers[i] = c
	}

	info := p.reader.Read(doc, page)
	if err := p.writeBaseInfo(info); err != nil {
		return nil, &types.PageError{Page: page, Err: err}
	}

	res := &PageResult{Page: page}
	for i, v := range p.variants {
		if containers[i] == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.processContainer(ctx, v, containers[i], info, res); err != nil {
			return res, &types.PageError{Page: page, Err: err}
		}
	}

	p.logger.Info("page processed",
		"page", page,
		"hadith", res.HadithKeys,
		"chains", res.Chains,
		"narrators", res.Narrators,
		"verses", res.Verses,
		"subjects", res.Subjects,
	)
	return res, nil
}

func (p *Processor) processContainer(ctx context.Context, v *variant, container *html.Node, info *parser.PageInfo, res *PageResult) error {
	seg, err := hadith.Segment(container, p.scraper.Marker)
	if err != nil {
		return err
	}

	var hadithKey string
	if seg.HasHadith() {
		hadithKey, err = textnorm.HadithID(p.scraper.BaseName, seg.HadithNumber, p.scraper.HadithPadding)
		if err != nil {
			return fmt.Errorf("hadith key: %w", err)
		}
		res.HadithKeys = append(res.HadithKeys, hadithKey)
	}

	var (
		chains      []*hadith.Chain
		chainIDs    []string
		narratorIDs []string
	)
	if seg.HasHadith() {
		chains = hadith.SplitChains(seg.Isnad, seg.ChainCount, seg.HadithNumber, p.scraper.Marker)
		var rows []map[string]string
		for _, c := range chains {
			links, err := v.extractor.Extract(c)
			if err != nil {
				return err
			}
			for _, l := range links {
				rows = append(rows, chainRow(l, seg.ChainCount, info.Page))
				if l.ExternalID != textnorm.NotAvailable {
					narratorIDs = append(narratorIDs, l.ExternalID)
				}
				if l.ChainID != "" {
					chainIDs = append(chainIDs, l.ChainID)
				}
			}
			res.Narrators += len(links)
		}
		res.Chains += len(chains)
		if err := v.chains.Append(rows...); err != nil {
			return err
		}
		p.metrics.AddChains(len(chains))
		p.metrics.AddNarrators(len(rows))
	}

	cites := hadith.ExtractCitations(container, p.site.APIBase(), p.logger)
	ayatIDs, err := p.storeVerses(v, cites.Verses, hadithKey)
	if err != nil {
		return err
	}
	res.Verses += len(ayatIDs)
	p.metrics.AddCitations("quran", len(ayatIDs))

	treeIDs, mainIDs, err := p.storeSubjects(ctx, v, cites.Subjects, hadithKey)
	if err != nil {
		return err
	}
	res.Subjects += len(mainIDs)
	p.metrics.AddCitations("subject", len(mainIDs))

	chapterID := ""
	if info.TOC.Chapter.Text != "" {
		chapterID, err = v.stores.UpsertChapter(storage.Chapter{
			BookPage:    info.Page,
			BookID:      textnorm.BookID(p.scraper.BookID),
			BookName:    info.TOC.BookName.Text,
			Section:     info.TOC.Section.Text,
			SubSection:  info.TOC.SubSection.Text,
			PartI:       info.TOC.PartI.Text,
			Title:       info.TOC.Chapter.Text,
			Text:        textnorm.CleanText(seg.Intro.Text()),
			HadithKey:   hadithKey,
			AyatIDs:     ayatIDs,
			NarratorIDs: narratorIDs,
		})
		if err != nil {
			return err
		}
	}

	if hadithKey != "" {
		err = v.stores.UpsertHadith(storage.Record{
			storage.IDField:   hadithKey,
			"hadith_number":   seg.HadithNumber,
			"islmwy_page":     fmt.Sprintf("%04d", info.Page),
			"book_id":         textnorm.BookID(p.scraper.BookID),
			"chapter":         info.TOC.Chapter.Text,
			"chapter_id":      chapterID,
			"h_wa_haddathana": seg.ChainCount,
			"is_thaskeel":     v.vocalized,
			"introduction":    textnorm.CleanText(seg.Intro.Text()),
			"isnad":           textnorm.CleanText(seg.Isnad.Text()),
			"matn":            textnorm.CleanText(seg.Matn.Text()),
			"narrator_ids":    narratorIDs,
			"ayat_ids":        ayatIDs,
			"tree_subj_ids":   treeIDs,
			"main_subj_ids":   mainIDs,
			"chain_ids":       chainIDs,
		})
		if err != nil {
			return err
		}
	}

	if !seg.Remainder.Empty() {
		if err := p.writeFooter(v, seg.Remainder, info); err != nil {
			return err
		}
	}

	rendered, err := hadith.Render(seg, chains, info.Page, v.vocalized)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	path := filepath.Join(p.outDir, "html", fmt.Sprintf("%s%s-%04d.html", p.scraper.BaseName, v.suffix, info.Page))
	return writeFileAtomic(path, []byte(rendered))
}

func (p *Processor) storeVerses(v *variant, verses []*hadith.QuranCitation, hadithKey string) ([]string, error) {
	ids := make([]string, 0, len(verses))
	for _, q := range verses {
		id, err := v.stores.UpsertAyah(q, hadithKey)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// storeSubjects resolves the tree subjects of every main subject and records
// both. Tree subjects that fail to resolve are dropped.
func (p *Processor) storeSubjects(ctx context.Context, v *variant, refs []*hadith.SubjectRef, hadithKey string) (treeIDs, mainIDs []string, err error) {
	if p.resolver == nil {
		if len(refs) > 0 {
			p.logger.Debug("no subject resolver, subjects skipped", "count", len(refs))
		}
		return nil, nil, nil
	}

	for _, ref := range refs {
		if ref.Title == "" {
			continue
		}
		mainID := storage.MainSubjectID(ref.Title)

		var (
			trees []storage.TreeSubject
			ids   []string
		)
		for i, u := range ref.TreeURLs {
			text, err := p.resolver.Resolve(ctx, u)
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				p.logger.Warn("tree subject unresolved", "url", u, "error", err)
				continue
			}
			ts := storage.TreeSubject{ID: ref.TreeIDs[i], Text: text, URL: u}
			id, err := v.stores.UpsertTreeSubject(ts, mainID, hadithKey)
			if err != nil {
				return nil, nil, err
			}
			trees = append(trees, ts)
			ids = append(ids, id)
		}

		id, err := v.stores.UpsertMainSubject(ref, trees, ids, hadithKey)
		if err != nil {
			return nil, nil, err
		}
		treeIDs = append(treeIDs, ids...)
		mainIDs = append(mainIDs, id)
	}
	return treeIDs, mainIDs, nil
}

func (p *Processor) writeFooter(v *variant, remainder *hadith.Zone, info *parser.PageInfo) error {
	tags, err := dom.Render(remainder.Root)
	if err != nil {
		return fmt.Errorf("render remainder: %w", err)
	}

	hasHadith := false
	for _, n := range remainder.Nodes() {
		if dom.HasClass(n, hadith.ClassHadith) {
			hasHadith = true
			break
		}
	}

	return v.footer.Append(map[string]string{
		"islmwy_page":  fmt.Sprintf("%04d", info.Page),
		"is_remaining": strconv.FormatBool(hasHadith),
		"chapter":      info.TOC.Chapter.Text,
		"introduction": textnorm.CleanText(remainder.Text()),
		"div_tags":     tags,
	})
}

func (p *Processor) writeBaseInfo(info *parser.PageInfo) error {
	tree := make([]map[string]string, 0, len(info.Tree))
	for _, r := range info.Tree {
		tree = append(tree, r.Row())
	}

	current := p.site.PageURL(p.scraper.BookID, info.Page)
	scraping := map[string]string{
		storage.IDField:      textnorm.PageID(p.scraper.BookID, info.Page),
		"book_page":          info.Navigation.BookPageNumber,
		"page_volume":        info.Volume.Volume,
		"book_hadith_number": "",
		"book_id":            textnorm.BookID(p.scraper.BookID),
		"book_name":          info.TOC.BookName.Text,
		"section":            info.TOC.Section.Text,
		"sub_section":        info.TOC.SubSection.Text,
		"part_I":             info.TOC.PartI.Text,
		"chapter":            info.TOC.Chapter.Text,
		"prev_page":          p.site.Absolute(info.Navigation.PrevPage, current),
		"next_page":          p.site.Absolute(info.Navigation.NextPage, current),
		"curr_page":          current,
	}
	book := map[string]string{
		storage.IDField:   textnorm.BookID(p.scraper.BookID),
		"islmwy_page":     fmt.Sprintf("%04d", info.Page),
		"source":          siteSource,
		"copy_rights":     siteCopyRights,
		"website_book_id": strconv.Itoa(p.scraper.BookID),
		"name":            info.TOC.Book.Text,
		"book_id":         strconv.Itoa(p.scraper.BookID),
		"url":             p.site.Absolute(info.TOC.Book.Href, ""),
		"author":          info.Author,
	}

	writes := []struct {
		t    *storage.Table
		rows []map[string]string
	}{
		{p.tables.tree, tree},
		{p.tables.toc, []map[string]string{info.TOC.Row(info.Page)}},
		{p.tables.volume, []map[string]string{info.Volume.Row(info.Page)}},
		{p.tables.navigation, []map[string]string{info.Navigation.Row(info.Page)}},
		{p.tables.scraping, []map[string]string{scraping}},
		{p.tables.book, []map[string]string{book}},
	}
	for _, w := range writes {
		if err := w.t.Append(w.rows...); err != nil {
			return err
		}
	}
	return nil
}

func chainRow(l *hadith.NarratorLink, chainCount, page int) map[string]string {
	return map[string]string{
		storage.IDField:   l.ChainID,
		"islmwy_page":     fmt.Sprintf("%04d", page),
		"h_wa_haddathana": strconv.Itoa(chainCount),
		"h_wa_chain":      strconv.Itoa(l.ChainOrdinal),
		"order":           strconv.Itoa(l.SequenceOrder),
		"aliase":          l.DisplayName,
		"narrators_id":    l.ExternalID,
		"before":          l.TextBefore,
		"after":           l.TextAfter,
		"context":         l.Context,
	}
}

// writeFileAtomic writes to a temp file, then renames over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "html", Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &types.StorageError{Backend: "html", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &types.StorageError{Backend: "html", Path: path, Err: err}
	}
	return nil
}
