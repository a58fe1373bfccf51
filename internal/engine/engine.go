// Package engine drives the page loop: fetch a library page, archive it,
// run the extraction pipeline over it and record progress, one page at a
// time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/fetcher"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/observability"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/storage"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// State represents the scraper's current lifecycle state.
type State int32

const (
	StateIdle     State = 0
	StateRunning  State = 1
	StateStopping State = 2
	StateStopped  State = 3
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks scrape statistics.
type Stats struct {
	PagesFetched    atomic.Int64
	PagesSkipped    atomic.Int64
	PagesFailed     atomic.Int64
	PagesProcessed  atomic.Int64
	HadithFound     atomic.Int64
	Chains          atomic.Int64
	Narrators       atomic.Int64
	Verses          atomic.Int64
	Subjects        atomic.Int64
	BytesDownloaded atomic.Int64
	StartTime       time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"pages_fetched":    s.PagesFetched.Load(),
		"pages_skipped":    s.PagesSkipped.Load(),
		"pages_failed":     s.PagesFailed.Load(),
		"pages_processed":  s.PagesProcessed.Load(),
		"hadith_found":     s.HadithFound.Load(),
		"chains":           s.Chains.Load(),
		"narrators":        s.Narrators.Load(),
		"verses":           s.Verses.Load(),
		"subjects":         s.Subjects.Load(),
		"bytes_downloaded": s.BytesDownloaded.Load(),
		"elapsed":          time.Since(s.StartTime).String(),
	}
}

func (s *Stats) add(res *PageResult) {
	s.PagesProcessed.Add(1)
	s.HadithFound.Add(int64(len(res.HadithKeys)))
	s.Chains.Add(int64(res.Chains))
	s.Narrators.Add(int64(res.Narrators))
	s.Verses.Add(int64(res.Verses))
	s.Subjects.Add(int64(res.Subjects))
}

// Pauser waits between two page fetches.
type Pauser interface {
	Sleep(ctx context.Context) error
}

// Scraper walks the configured page range in order. A page that fails is
// logged and skipped; only cancellation ends the run early.
type Scraper struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	processor  *Processor
	archive    *storage.Archive
	pauser     Pauser
	checkpoint *CheckpointManager
	metrics    *observability.Metrics
	logger     *slog.Logger

	state  atomic.Int32
	stats  *Stats
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewScraper creates a Scraper. f may be nil for offline reprocessing;
// pauser and metrics may be nil.
func NewScraper(cfg *config.Config, f fetcher.Fetcher, proc *Processor, pauser Pauser, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	return &Scraper{
		cfg:        cfg,
		fetcher:    f,
		processor:  proc,
		archive:    storage.NewArchive(cfg.Storage.OutputDir, cfg.Scraper.BaseName, logger),
		pauser:     pauser,
		checkpoint: NewCheckpointManager(cfg.Storage.OutputDir),
		metrics:    metrics,
		logger:     logger.With("component", "scraper"),
		stats:      &Stats{},
	}
}

// Stats returns the current scrape statistics.
func (s *Scraper) Stats() *Stats {
	return s.stats
}

// GetState returns the current scraper state.
func (s *Scraper) GetState() State {
	return State(s.state.Load())
}

// Stop asks a running scraper to finish after the current page step.
func (s *Scraper) Stop() {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	s.logger.Info("scraper stopping...")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *Scraper) begin(ctx context.Context) (context.Context, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("scraper is in state %s, cannot start", s.GetState())
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.stats.StartTime = time.Now()
	return ctx, nil
}

func (s *Scraper) end() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.state.Store(int32(StateStopped))
	s.logger.Info("scraper stopped", "stats", s.stats.Snapshot())
}

// Run fetches and processes every page of the configured range. With resume
// set, pages up to the last checkpointed one are not visited again.
func (s *Scraper) Run(ctx context.Context, resume bool) error {
	if s.fetcher == nil {
		return errors.New("scraper has no fetcher")
	}
	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()

	progress := &Progress{BookID: s.cfg.Scraper.BookID}
	start := s.cfg.Scraper.StartPage
	if resume {
		saved, err := s.checkpoint.Load()
		if err != nil {
			return err
		}
		if saved != nil && saved.BookID == s.cfg.Scraper.BookID && saved.LastPage >= start {
			progress = saved
			start = saved.LastPage + 1
			s.logger.Info("resuming from checkpoint", "last_page", saved.LastPage, "failed", len(saved.FailedPages))
		}
	}

	s.logger.Info("scrape starting",
		"book", s.cfg.Scraper.BookID,
		"from", start,
		"to", s.cfg.Scraper.EndPage,
		"fetcher", s.fetcher.Type(),
	)

	for page := start; page <= s.cfg.Scraper.EndPage; page++ {
		if ctx.Err() != nil {
			return types.ErrScrapeStopped
		}

		fetched, err := s.scrapePage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return types.ErrScrapeStopped
			}
			progress.fail(page)
			s.logger.Error("page failed", "page", page, "error", err)
		} else {
			progress.done(page)
		}

		progress.Stats = snapshotStats(s.stats)
		if err := s.checkpoint.Save(progress); err != nil {
			s.logger.Error("checkpoint save failed", "error", err)
		}

		if fetched && page < s.cfg.Scraper.EndPage && s.pauser != nil {
			if err := s.pauser.Sleep(ctx); err != nil {
				return types.ErrScrapeStopped
			}
		}
	}
	return nil
}

// scrapePage handles one page and reports whether it hit the network.
func (s *Scraper) scrapePage(ctx context.Context, page int) (bool, error) {
	start := time.Now()

	if s.cfg.Scraper.SkipSaved && s.archive.Saved(page) {
		s.stats.PagesSkipped.Add(1)
		s.metrics.ObservePage(observability.StatusSkipped, 0)
		s.logger.Info("page already saved, skipping", "page", page)
		return false, nil
	}

	req, err := types.NewPageRequest(s.cfg.Site.PageURL(s.cfg.Scraper.BookID, page), page, s.cfg.Scraper.ModalClasses)
	if err != nil {
		return false, err
	}

	resp, err := fetcher.Retry(ctx, s.fetcher, req, s.cfg.Fetcher.MaxRetries, s.cfg.Fetcher.RetryDelay, s.logger)
	if err != nil {
		s.stats.PagesFailed.Add(1)
		s.metrics.FetchFailed()
		s.metrics.ObservePage(observability.StatusFailed, time.Since(start))
		return true, err
	}
	if !resp.IsSuccess() {
		s.stats.PagesFailed.Add(1)
		s.metrics.ObservePage(observability.StatusFailed, time.Since(start))
		return true, &types.FetchError{URL: req.URLString(), StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}
	s.stats.PagesFetched.Add(1)
	s.stats.BytesDownloaded.Add(int64(len(resp.Body)))
	s.logger.Debug("page fetched",
		"page", page,
		"url", resp.FinalURL,
		"size", len(resp.Body),
		"modals", len(resp.Modals),
		"fetch_duration", resp.FetchDuration,
	)

	if _, err := s.archive.Save(page, &storage.ArchivedPage{HTML: string(resp.Body), Modals: resp.Modals}); err != nil {
		s.logger.Warn("page not archived", "page", page, "error", err)
	}

	return true, s.process(ctx, page, resp.Body, start)
}

// Reprocess runs the pipeline over the archived copies of the configured
// range without fetching. Pages missing from the archive are skipped.
func (s *Scraper) Reprocess(ctx context.Context) error {
	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()

	for page := s.cfg.Scraper.StartPage; page <= s.cfg.Scraper.EndPage; page++ {
		if ctx.Err() != nil {
			return types.ErrScrapeStopped
		}

		start := time.Now()
		ap, err := s.archive.Load(page)
		if err != nil {
			s.stats.PagesSkipped.Add(1)
			s.metrics.ObservePage(observability.StatusSkipped, 0)
			s.logger.Debug("page not archived", "page", page, "error", err)
			continue
		}
		if err := s.process(ctx, page, []byte(ap.HTML), start); err != nil {
			if ctx.Err() != nil {
				return types.ErrScrapeStopped
			}
			s.logger.Error("page failed", "page", page, "error", err)
		}
	}
	return nil
}

func (s *Scraper) process(ctx context.Context, page int, body []byte, start time.Time) error {
	res, err := s.processor.ProcessHTML(ctx, page, body)
	if err != nil {
		s.stats.PagesFailed.Add(1)
		s.metrics.ObservePage(observability.StatusFailed, time.Since(start))
		return err
	}

	s.stats.add(res)
	status := observability.StatusProcessed
	if !res.HasHadith() {
		status = observability.StatusNoHadith
	}
	s.metrics.ObservePage(status, time.Since(start))
	return nil
}
