package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

const tableBackend = "csv_table"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file that accumulates rows across runs. Appending unions
// the columns of the file and the new rows and drops rows equal on every
// column, so re-processing a page leaves the table unchanged.
type Table struct {
	path   string
	logger *slog.Logger
}

// NewTable returns a table over path.
func NewTable(path string, logger *slog.Logger) *Table {
	return &Table{
		path:   path,
		logger: logger.With("component", "csv_table", "table", filepath.Base(path)),
	}
}

// Path returns the table file path.
func (t *Table) Path() string { return t.path }

// Read returns the header and rows stored in the table. A missing file has
// no header and no rows.
func (t *Table) Read() ([]string, []map[string]string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, &types.StorageError{Backend: tableBackend, Path: t.path, Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, nil, &types.StorageError{Backend: tableBackend, Path: t.path, Err: fmt.Errorf("read csv: %w", err)}
	}

	header := lines[0]
	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(line) {
				row[col] = line[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// Append merges rows into the table and rewrites it.
func (t *Table) Append(rows ...map[string]string) error {
	if len(rows) == 0 {
		return nil
	}

	header, existing, err := t.Read()
	if err != nil {
		return err
	}

	header = mergeColumns(header, rows)

	seen := make(map[string]struct{}, len(existing)+len(rows))
	out := make([][]string, 0, len(existing)+len(rows)+1)
	out = append(out, header)
	dropped := 0
	for _, row := range append(existing, rows...) {
		line := make([]string, len(header))
		for i, col := range header {
			line[i] = row[col]
		}
		key := strings.Join(line, "\x1f")
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}

	if err := t.write(out); err != nil {
		return err
	}
	t.logger.Debug("table updated", "rows", len(out)-1, "duplicates_dropped", dropped)
	return nil
}

// mergeColumns keeps existing column order and appends new columns sorted.
func mergeColumns(header []string, rows []map[string]string) []string {
	known := make(map[string]struct{}, len(header))
	for _, col := range header {
		known[col] = struct{}{}
	}

	var added []string
	for _, row := range rows {
		for col := range row {
			if _, ok := known[col]; ok {
				continue
			}
			known[col] = struct{}{}
			added = append(added, col)
		}
	}
	sort.Strings(added)
	return append(append([]string(nil), header...), added...)
}

func (t *Table) write(lines [][]string) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return &types.StorageError{Backend: tableBackend, Path: t.path, Err: fmt.Errorf("create table dir: %w", err)}
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(lines); err != nil {
		return &types.StorageError{Backend: tableBackend, Path: t.path, Err: fmt.Errorf("write csv: %w", err)}
	}

	tmpPath := t.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return &types.StorageError{Backend: tableBackend, Path: t.path, Err: err}
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return &types.StorageError{Backend: tableBackend, Path: t.path, Err: fmt.Errorf("rename table file: %w", err)}
	}
	return nil
}
