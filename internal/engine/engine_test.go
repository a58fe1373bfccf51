package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/storage"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testPage = `<html><body>
<ol id="topPath">
  <li><a href="/ar/">الرئيسية</a></li>
  <li><a href="/ar/library/index.php?bk_no=1681">صحيح البخاري</a></li>
  <li><a href="/ar/library/content/1681/1/">كتاب بدء الوحي</a></li>
  <li><a href="/ar/library/content/1681/2/">باب كيف كان بدء الوحي</a></li>
</ol>
<h4 class="txt-secondary">محمد بن إسماعيل البخاري</h4>
<div class="bookcontent-dic" id="pagebody">باب بدء الوحي<br>` +
	`1 حَدَّثَنَا <span class="names">الْحُمَيْدِيُّ<span class="namesatt">nindex.php?page=showalam&amp;ids=12070</span></span>` +
	` قَالَ حَدَّثَنَا <span class="names">سُفْيَانُ<span class="namesatt">nindex.php?page=showalam&amp;ids=16008</span></span>` +
	` ح وَحَدَّثَنَا <span class="names">مُسَدَّدٌ<span class="namesatt">nindex.php?page=showalam&amp;ids=17277</span></span>` +
	` عَنْ يَحْيَى` +
	`<span class="hadith">إِنَّمَا الْأَعْمَالُ بِالنِّيَّاتِ <a><span class="quran">وَمَا أُمِرُوا<span class="quranatt">nindex.php?page=tafseer&amp;surano=98&amp;ayano=5</span></span></a></span>` +
	`</div>
</body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.OutputDir = t.TempDir()
	cfg.Fetcher.Type = "http"
	cfg.Fetcher.MaxRetries = 1
	cfg.Fetcher.RetryDelay = 0
	cfg.Delay.Enabled = false
	cfg.Scraper.StartPage = 1
	cfg.Scraper.EndPage = 2
	return cfg
}

// pageFetcher serves testPage for the pages it knows and a permanent error
// for the others.
type pageFetcher struct {
	pages map[int]string
	calls atomic.Int32
}

func (f *pageFetcher) Fetch(_ context.Context, req *types.Request) (*types.Response, error) {
	f.calls.Add(1)
	body, ok := f.pages[req.Page]
	if !ok {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: 404, Err: errors.New("not found")}
	}
	return types.NewBrowserResponse(req, []byte(body), req.URLString(), []string{"<p>modal</p>"}, 0), nil
}

func (f *pageFetcher) Close() error { return nil }
func (f *pageFetcher) Type() string { return "fake" }

// --- Processor ---

func TestProcessHTMLWritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	proc := NewProcessor(cfg, nil, nil, testLogger)

	res, err := proc.ProcessHTML(context.Background(), 1, []byte(testPage))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}

	if len(res.HadithKeys) != 1 || res.HadithKeys[0] != "bukhari-00001" {
		t.Errorf("HadithKeys = %v", res.HadithKeys)
	}
	if res.Chains != 2 {
		t.Errorf("Chains = %d, want 2", res.Chains)
	}
	if res.Narrators != 3 {
		t.Errorf("Narrators = %d, want 3", res.Narrators)
	}
	if res.Verses != 1 {
		t.Errorf("Verses = %d, want 1", res.Verses)
	}

	stores := proc.Stores()
	rec, ok, err := stores[storage.StoreNarrators].Get("12070")
	if err != nil || !ok {
		t.Fatalf("narrator 12070 not stored: ok=%v err=%v", ok, err)
	}
	if got := rec.String("name"); got != "الْحُمَيْدِيُّ" {
		t.Errorf("narrator name = %q", got)
	}

	hadith, ok, err := stores[storage.StoreHadith].Get("bukhari-00001")
	if err != nil || !ok {
		t.Fatalf("hadith not stored: ok=%v err=%v", ok, err)
	}
	if got := hadith.Strings("chain_ids"); len(got) != 2 {
		t.Errorf("chain_ids = %v, want 2 ids", got)
	}
	if !strings.Contains(hadith.String("matn"), "إِنَّمَا") {
		t.Errorf("matn = %q", hadith.String("matn"))
	}

	chapters, err := stores[storage.StoreChapters].All()
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 1 || chapters[0].String("chapter") != "باب كيف كان بدء الوحي" {
		t.Errorf("chapters = %v", chapters)
	}

	for _, p := range []string{
		filepath.Join(cfg.Storage.OutputDir, "html", "bukhari-0001.html"),
		filepath.Join(cfg.Storage.OutputDir, "csv", "narrators-chain.csv"),
		filepath.Join(cfg.Storage.OutputDir, "db", "Scraping.csv"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
}

func TestProcessHTMLHadithPadding(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.HadithPadding = 6
	proc := NewProcessor(cfg, nil, nil, testLogger)

	res, err := proc.ProcessHTML(context.Background(), 1, []byte(testPage))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	if len(res.HadithKeys) != 1 || res.HadithKeys[0] != "bukhari-000001" {
		t.Fatalf("HadithKeys = %v", res.HadithKeys)
	}

	rec, ok, err := proc.Stores()[storage.StoreHadith].Get("bukhari-000001")
	if err != nil || !ok {
		t.Fatalf("hadith not stored: ok=%v err=%v", ok, err)
	}
	ids := rec.Strings("chain_ids")
	if len(ids) != 2 {
		t.Fatalf("chain_ids = %v, want 2 ids", ids)
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, "bukhari-000001-") {
			t.Errorf("chain id %q does not extend hadith key bukhari-000001", id)
		}
	}
}

func TestProcessHTMLIdempotent(t *testing.T) {
	cfg := testConfig(t)
	proc := NewProcessor(cfg, nil, nil, testLogger)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := proc.ProcessHTML(ctx, 1, []byte(testPage)); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	narrators, err := proc.Stores()[storage.StoreNarrators].All()
	if err != nil {
		t.Fatal(err)
	}
	if len(narrators) != 3 {
		t.Fatalf("narrators = %d, want 3", len(narrators))
	}
	for _, n := range narrators {
		if got := n.Strings("aliases"); len(got) != 1 {
			t.Errorf("narrator %s aliases = %v, want one", n.ID(), got)
		}
	}

	_, rows, err := storage.NewTable(filepath.Join(cfg.Storage.OutputDir, "csv", "narrators-chain.csv"), testLogger).Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("chain rows = %d, want 3", len(rows))
	}
}

func TestProcessHTMLMissingContainer(t *testing.T) {
	proc := NewProcessor(testConfig(t), nil, nil, testLogger)

	_, err := proc.ProcessHTML(context.Background(), 3, []byte(`<html><body><p>maintenance</p></body></html>`))
	if !errors.Is(err, types.ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}
	var pe *types.PageError
	if !errors.As(err, &pe) || pe.Page != 3 {
		t.Errorf("expected PageError for page 3, got %v", err)
	}
}

// --- Scraper ---

func TestScraperRunContinuesAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	f := &pageFetcher{pages: map[int]string{1: testPage}}
	s := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)

	if err := s.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.GetState() != StateStopped {
		t.Errorf("state = %s, want stopped", s.GetState())
	}

	stats := s.Stats()
	if got := stats.PagesProcessed.Load(); got != 1 {
		t.Errorf("processed = %d, want 1", got)
	}
	if got := stats.PagesFailed.Load(); got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}

	progress, err := NewCheckpointManager(cfg.Storage.OutputDir).Load()
	if err != nil || progress == nil {
		t.Fatalf("checkpoint: %v %v", progress, err)
	}
	if progress.LastPage != 2 {
		t.Errorf("LastPage = %d, want 2", progress.LastPage)
	}
	if len(progress.FailedPages) != 1 || progress.FailedPages[0] != 2 {
		t.Errorf("FailedPages = %v, want [2]", progress.FailedPages)
	}

	if !storage.NewArchive(cfg.Storage.OutputDir, cfg.Scraper.BaseName, testLogger).Saved(1) {
		t.Error("page 1 should be archived")
	}
}

func TestScraperSkipsSavedPages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.EndPage = 1
	f := &pageFetcher{pages: map[int]string{1: testPage}}

	for i := 0; i < 2; i++ {
		s := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)
		if err := s.Run(context.Background(), false); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if i == 1 && s.Stats().PagesSkipped.Load() != 1 {
			t.Errorf("second run should skip the saved page")
		}
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestScraperResume(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.SkipSaved = false
	f := &pageFetcher{pages: map[int]string{1: testPage, 2: testPage}}

	first := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)
	if err := first.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	calls := f.calls.Load()

	second := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)
	if err := second.Run(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if f.calls.Load() != calls {
		t.Errorf("resumed run fetched again: %d calls, want %d", f.calls.Load(), calls)
	}
}

func TestScraperCancelled(t *testing.T) {
	cfg := testConfig(t)
	f := &pageFetcher{pages: map[int]string{1: testPage}}
	s := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, false); !errors.Is(err, types.ErrScrapeStopped) {
		t.Errorf("expected ErrScrapeStopped, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Error("no page should be fetched after cancellation")
	}
}

func TestScraperRunTwice(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.EndPage = 1
	f := &pageFetcher{pages: map[int]string{1: testPage}}
	s := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)

	if err := s.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), false); err == nil {
		t.Error("a stopped scraper should not start again")
	}
}

func TestReprocessFromArchive(t *testing.T) {
	cfg := testConfig(t)
	f := &pageFetcher{pages: map[int]string{1: testPage}}
	if err := NewScraper(cfg, f, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger).Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	s := NewScraper(cfg, nil, NewProcessor(cfg, nil, nil, testLogger), nil, nil, testLogger)
	if err := s.Reprocess(context.Background()); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if got := s.Stats().PagesProcessed.Load(); got != 1 {
		t.Errorf("processed = %d, want 1", got)
	}
	if got := s.Stats().PagesSkipped.Load(); got != 1 {
		t.Errorf("skipped = %d, want 1 (page 2 never archived)", got)
	}
}

// --- Checkpoint ---

func TestProgressFailThenDone(t *testing.T) {
	p := &Progress{}
	p.fail(4)
	p.fail(2)
	p.fail(4)
	if len(p.FailedPages) != 2 || p.FailedPages[0] != 2 || p.FailedPages[1] != 4 {
		t.Fatalf("FailedPages = %v, want [2 4]", p.FailedPages)
	}
	p.done(2)
	if len(p.FailedPages) != 1 || p.FailedPages[0] != 4 {
		t.Errorf("FailedPages = %v, want [4]", p.FailedPages)
	}
	if p.LastPage != 4 {
		t.Errorf("LastPage = %d, want 4", p.LastPage)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	cm := NewCheckpointManager(t.TempDir())
	if cm.HasCheckpoint() {
		t.Fatal("fresh dir should have no checkpoint")
	}
	if p, err := cm.Load(); err != nil || p != nil {
		t.Fatalf("Load without file = %v, %v", p, err)
	}

	if err := cm.Save(&Progress{BookID: 1681, LastPage: 9, FailedPages: []int{3}}); err != nil {
		t.Fatal(err)
	}
	p, err := cm.Load()
	if err != nil {
		t.Fatal(err)
	}
	if p.BookID != 1681 || p.LastPage != 9 || len(p.FailedPages) != 1 {
		t.Errorf("loaded %+v", p)
	}

	if err := cm.Clean(); err != nil {
		t.Fatal(err)
	}
	if cm.HasCheckpoint() {
		t.Error("checkpoint should be removed")
	}
}
