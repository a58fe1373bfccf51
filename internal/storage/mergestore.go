package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

const mergeBackend = "merge_store"

// MergeStore is a keyed record set backed by one JSON file holding a list of
// records. Every call reads the whole file and every write rewrites it, so a
// store must have a single writer: concurrent processes lose updates.
type MergeStore struct {
	path   string
	logger *slog.Logger
}

// NewMergeStore returns a store over path. The file is created on the first
// upsert.
func NewMergeStore(path string, logger *slog.Logger) *MergeStore {
	return &MergeStore{
		path:   path,
		logger: logger.With("component", "merge_store", "store", filepath.Base(path)),
	}
}

// Path returns the backing file path.
func (s *MergeStore) Path() string { return s.path }

// snapshot keeps file order so rewrites do not reshuffle records.
type snapshot struct {
	order   []string
	records map[string]Record
}

func (snap *snapshot) list() []Record {
	out := make([]Record, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.records[id])
	}
	return out
}

// load reads the backing file. A missing or blank file is an empty store with
// exists=false. Content that is not a list of identified records is
// ErrStoreCorrupt.
func (s *MergeStore) load() (*snapshot, bool, error) {
	snap := &snapshot{records: make(map[string]Record)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snap, false, nil
		}
		return nil, false, &types.StorageError{Backend: mergeBackend, Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, false, nil
	}

	var list []Record
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, true, &types.StorageError{
			Backend: mergeBackend,
			Path:    s.path,
			Err:     fmt.Errorf("%w: %v", types.ErrStoreCorrupt, err),
		}
	}

	for i, rec := range list {
		id := rec.ID()
		if id == "" {
			return nil, true, &types.StorageError{
				Backend: mergeBackend,
				Path:    s.path,
				Err:     fmt.Errorf("%w: entry %d has no %s", types.ErrStoreCorrupt, i, IDField),
			}
		}
		if _, dup := snap.records[id]; !dup {
			snap.order = append(snap.order, id)
		}
		snap.records[id] = rec
	}
	return snap, true, nil
}

// Load returns every record keyed by id and whether the file exists yet.
func (s *MergeStore) Load() (map[string]Record, bool, error) {
	snap, exists, err := s.load()
	if err != nil {
		return nil, exists, err
	}
	return snap.records, exists, nil
}

// All returns the records in file order.
func (s *MergeStore) All() ([]Record, error) {
	snap, _, err := s.load()
	if err != nil {
		return nil, err
	}
	return snap.list(), nil
}

// Get returns the record with the given id.
func (s *MergeStore) Get(id string) (Record, bool, error) {
	snap, _, err := s.load()
	if err != nil {
		return nil, false, err
	}
	rec, ok := snap.records[id]
	return rec, ok, nil
}

// Upsert shallow-merges rec into the stored entry with the same id, or
// appends it, then rewrites the file. List fields are replaced, not merged;
// callers union them beforehand.
func (s *MergeStore) Upsert(rec Record) error {
	id := rec.ID()
	if id == "" {
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: types.ErrMissingRecordID}
	}

	snap, _, err := s.load()
	if err != nil {
		return err
	}

	if existing, ok := snap.records[id]; ok {
		for k, v := range rec {
			existing[k] = v
		}
	} else {
		merged := make(Record, len(rec))
		for k, v := range rec {
			merged[k] = v
		}
		snap.records[id] = merged
		snap.order = append(snap.order, id)
	}

	if err := s.write(snap.list()); err != nil {
		return err
	}
	s.logger.Debug("record upserted", "id", id, "records", len(snap.order))
	return nil
}

// write replaces the backing file through a temp file and rename.
func (s *MergeStore) write(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: fmt.Errorf("create store dir: %w", err)}
	}

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: fmt.Errorf("create temp file: %w", err)}
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: fmt.Errorf("encode records: %w", err)}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return &types.StorageError{Backend: mergeBackend, Path: s.path, Err: fmt.Errorf("rename store file: %w", err)}
	}
	return nil
}
