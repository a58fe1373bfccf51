// Package storage persists scraped records: the keyed merge stores that
// accumulate narrators and citations across pages, deduplicated CSV tables,
// the raw page archive and the MongoDB export backend.
package storage

import (
	"context"
	"fmt"
	"sort"
)

// IDField is the key every stored record is identified by.
const IDField = "_id"

// Record is one stored document.
type Record map[string]any

// ID returns the record identifier, or "" when it is missing or not a string.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Strings returns field as a string list. Stored lists decode as []any, so
// both shapes are accepted; anything else yields nil.
func (r Record) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else if e != nil {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	default:
		return nil
	}
}

// String returns field as a string, or "" when absent.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// union merges the values into base, dropping empties and duplicates. The
// result is sorted so repeated merges of the same sets serialize identically.
func union(base []string, values ...string) []string {
	seen := make(map[string]struct{}, len(base)+len(values))
	out := make([]string, 0, len(base)+len(values))
	for _, list := range [][]string{base, values} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Storage is the interface for export backends.
type Storage interface {
	// Store upserts a batch of records into the named collection.
	Store(ctx context.Context, collection string, records []Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
