package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CheckpointManager saves and loads scrape progress so an interrupted run
// can resume after the last page it finished.
type CheckpointManager struct {
	checkpointDir string
}

// Progress is the serializable scrape state.
type Progress struct {
	Timestamp   time.Time       `json:"timestamp"`
	BookID      int             `json:"book_id"`
	LastPage    int             `json:"last_page"`
	FailedPages []int           `json:"failed_pages,omitempty"`
	Stats       checkpointStats `json:"stats"`
}

type checkpointStats struct {
	PagesFetched    int64 `json:"pages_fetched"`
	PagesSkipped    int64 `json:"pages_skipped"`
	PagesFailed     int64 `json:"pages_failed"`
	PagesProcessed  int64 `json:"pages_processed"`
	HadithFound     int64 `json:"hadith_found"`
	Narrators       int64 `json:"narrators"`
	BytesDownloaded int64 `json:"bytes_downloaded"`
}

func snapshotStats(s *Stats) checkpointStats {
	return checkpointStats{
		PagesFetched:    s.PagesFetched.Load(),
		PagesSkipped:    s.PagesSkipped.Load(),
		PagesFailed:     s.PagesFailed.Load(),
		PagesProcessed:  s.PagesProcessed.Load(),
		HadithFound:     s.HadithFound.Load(),
		Narrators:       s.Narrators.Load(),
		BytesDownloaded: s.BytesDownloaded.Load(),
	}
}

// done marks page finished and drops it from the failed list.
func (p *Progress) done(page int) {
	if page > p.LastPage {
		p.LastPage = page
	}
	out := p.FailedPages[:0]
	for _, f := range p.FailedPages {
		if f != page {
			out = append(out, f)
		}
	}
	p.FailedPages = out
}

// fail marks page visited but failed.
func (p *Progress) fail(page int) {
	if page > p.LastPage {
		p.LastPage = page
	}
	i := sort.SearchInts(p.FailedPages, page)
	if i < len(p.FailedPages) && p.FailedPages[i] == page {
		return
	}
	p.FailedPages = append(p.FailedPages, 0)
	copy(p.FailedPages[i+1:], p.FailedPages[i:])
	p.FailedPages[i] = page
}

// NewCheckpointManager creates a CheckpointManager storing its file under
// outputDir.
func NewCheckpointManager(outputDir string) *CheckpointManager {
	return &CheckpointManager{
		checkpointDir: filepath.Join(outputDir, ".isnad_checkpoints"),
	}
}

func (cm *CheckpointManager) path() string {
	return filepath.Join(cm.checkpointDir, "checkpoint.json")
}

// Save writes the progress to disk.
func (cm *CheckpointManager) Save(p *Progress) error {
	if err := os.MkdirAll(cm.checkpointDir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	p.Timestamp = time.Now()

	// Write to temp file, then rename (atomic write)
	tmpPath := filepath.Join(cm.checkpointDir, "checkpoint.tmp")

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		f.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpPath, cm.path()); err != nil {
		return fmt.Errorf("rename checkpoint file: %w", err)
	}
	return nil
}

// Load reads the saved progress. It returns nil, nil when there is none.
func (cm *CheckpointManager) Load() (*Progress, error) {
	f, err := os.Open(cm.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var p Progress
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &p, nil
}

// HasCheckpoint returns true if a checkpoint file exists.
func (cm *CheckpointManager) HasCheckpoint() bool {
	_, err := os.Stat(cm.path())
	return err == nil
}

// Clean removes the checkpoint file.
func (cm *CheckpointManager) Clean() error {
	if err := os.Remove(cm.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
