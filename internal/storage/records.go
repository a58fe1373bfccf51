package storage

import (
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/hadith"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
)

// Merge store names. Each is also the MongoDB collection it exports to.
const (
	StoreNarrators    = "narrators"
	StoreAyat         = "ayat"
	StoreTreeSubjects = "tree_subj"
	StoreMainSubjects = "main_subject"
	StoreChapters     = "chapters"
	StoreHadith       = "hadith"
)

// StoreNames lists every merge store in export order.
var StoreNames = []string{
	StoreNarrators,
	StoreAyat,
	StoreTreeSubjects,
	StoreMainSubjects,
	StoreChapters,
	StoreHadith,
}

// VocalizedSuffix marks the stores fed from the vocalized container.
const VocalizedSuffix = "_thaskeel"

// StorePath returns the backing file of a named store under dir.
func StorePath(dir, name string) string {
	return filepath.Join(dir, "db", name+".json")
}

// Stores bundles the merge stores of one container variant.
type Stores struct {
	base   string
	suffix string
	logger *slog.Logger

	Narrators    *NarratorStore
	Ayat         *MergeStore
	TreeSubjects *MergeStore
	MainSubjects *MergeStore
	Chapters     *MergeStore
	Hadith       *MergeStore
}

// OpenStores opens the stores under dir. base prefixes readable ids and
// hadith keys; vocalized selects the "_thaskeel" files.
func OpenStores(dir, base string, vocalized bool, logger *slog.Logger) *Stores {
	suffix := ""
	if vocalized {
		suffix = VocalizedSuffix
	}
	open := func(name string) *MergeStore {
		return NewMergeStore(StorePath(dir, name+suffix), logger)
	}
	return &Stores{
		base:         base,
		suffix:       suffix,
		logger:       logger.With("component", "record_stores", "variant", suffix),
		Narrators:    &NarratorStore{MergeStore: open(StoreNarrators)},
		Ayat:         open(StoreAyat),
		TreeSubjects: open(StoreTreeSubjects),
		MainSubjects: open(StoreMainSubjects),
		Chapters:     open(StoreChapters),
		Hadith:       open(StoreHadith),
	}
}

// Named returns the stores keyed by collection name.
func (s *Stores) Named() map[string]*MergeStore {
	return map[string]*MergeStore{
		StoreNarrators + s.suffix:    s.Narrators.MergeStore,
		StoreAyat + s.suffix:         s.Ayat,
		StoreTreeSubjects + s.suffix: s.TreeSubjects,
		StoreMainSubjects + s.suffix: s.MainSubjects,
		StoreChapters + s.suffix:     s.Chapters,
		StoreHadith + s.suffix:       s.Hadith,
	}
}

// NarratorStore keeps one record per narrator id. Aliases and the words seen
// around the name only grow across upserts; the name is fixed once set.
type NarratorStore struct {
	*MergeStore
}

// UpsertNarrator merges link into the narrator record. Links without a
// narrator id are ignored.
func (s *NarratorStore) UpsertNarrator(link *hadith.NarratorLink) error {
	if link.ExternalID == "" || link.ExternalID == textnorm.NotAvailable {
		s.logger.Debug("narrator without id ignored", "name", link.DisplayName)
		return nil
	}

	existing, _, err := s.Get(link.ExternalID)
	if err != nil {
		return err
	}

	name := existing.String("name")
	if name == "" {
		name = link.DisplayName
	}

	return s.Upsert(Record{
		IDField:               link.ExternalID,
		"name":                name,
		"api":                 link.APIFragment,
		"api_type":            "html",
		"url":                 link.APIURL,
		"aliases":             union(existing.Strings("aliases"), link.DisplayName),
		"before_keyword_list": union(existing.Strings("before_keyword_list"), link.TextBefore),
		"after_keyword_list":  union(existing.Strings("after_keyword_list"), link.TextAfter),
	})
}

// UpsertAyah records a quoted verse and the hadith quoting it. It returns
// the verse record id.
func (s *Stores) UpsertAyah(q *hadith.QuranCitation, hadithKey string) (string, error) {
	ref := q.Reference()
	id, normalID := textnorm.TextID(s.base, ref+"-"+q.Verse)

	existing, _, err := s.Ayat.Get(id)
	if err != nil {
		return "", err
	}

	err = s.Ayat.Upsert(Record{
		IDField:      id,
		"normal_id":  normalID,
		"Quran":      ref,
		"verse":      q.Verse,
		"surano":     q.Surah,
		"ayano":      q.Ayah,
		"api":        q.APIFragment,
		"url":        q.APIURL,
		"hadith_ids": union(existing.Strings("hadith_ids"), hadithKey),
	})
	return id, err
}

// TreeSubject is one resolved tree subject.
type TreeSubject struct {
	ID   string
	Text string
	URL  string
}

// UpsertTreeSubject records a resolved tree subject under the main subject
// mainID. It returns the tree subject record id.
func (s *Stores) UpsertTreeSubject(ts TreeSubject, mainID, hadithKey string) (string, error) {
	id, normalID := textnorm.TextID(s.base, ts.Text)

	existing, _, err := s.TreeSubjects.Get(id)
	if err != nil {
		return "", err
	}

	err = s.TreeSubjects.Upsert(Record{
		IDField:         id,
		"normal_id":     normalID,
		"id":            ts.ID,
		"tree_subj":     ts.Text,
		"main_subj_ids": union(existing.Strings("main_subj_ids"), mainID),
		"hadith_ids":    union(existing.Strings("hadith_ids"), hadithKey),
		"url":           ts.URL,
	})
	return id, err
}

// MainSubjectID returns the record id of a main subject title.
func MainSubjectID(title string) string {
	return textnorm.Hash(title)
}

// UpsertMainSubject records a main subject with the tree subjects resolved
// for it. It returns the main subject record id.
func (s *Stores) UpsertMainSubject(ref *hadith.SubjectRef, trees []TreeSubject, treeIDs []string, hadithKey string) (string, error) {
	id, normalID := textnorm.TextID(s.base, ref.Title)

	existing, _, err := s.MainSubjects.Get(id)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(trees))
	for _, t := range trees {
		texts = append(texts, t.Text)
	}

	err = s.MainSubjects.Upsert(Record{
		IDField:         id,
		"normal_id":     normalID,
		"main_subj":     ref.Title,
		"tree_subj_ids": union(existing.Strings("tree_subj_ids"), treeIDs...),
		"tree_subjs":    union(existing.Strings("tree_subjs"), texts...),
		"hadith_ids":    union(existing.Strings("hadith_ids"), hadithKey),
		"url":           ref.MainURL,
	})
	return id, err
}

// Chapter is the breadcrumb position of a page and what it links to.
type Chapter struct {
	BookPage    int
	BookID      string
	BookName    string
	Section     string
	SubSection  string
	PartI       string
	Title       string
	Text        string
	HadithKey   string
	AyatIDs     []string
	NarratorIDs []string
}

// UpsertChapter records a chapter keyed by the hash of its title. It returns
// the chapter record id.
func (s *Stores) UpsertChapter(ch Chapter) (string, error) {
	id, normalID := textnorm.TextID(s.base, ch.Title)

	existing, _, err := s.Chapters.Get(id)
	if err != nil {
		return "", err
	}

	bookPage, err := textnorm.NumberID(s.base, ch.BookPage, textnorm.HadithPadding)
	if err != nil {
		return "", err
	}

	rec := Record{
		IDField:        id,
		"normal_id":    normalID,
		"book_page":    bookPage,
		"book_id":      ch.BookID,
		"book_name":    ch.BookName,
		"section":      ch.Section,
		"sub_section":  ch.SubSection,
		"part_I":       ch.PartI,
		"chapter":      ch.Title,
		"hadith_ids":   union(existing.Strings("hadith_ids"), ch.HadithKey),
		"ayat_ids":     union(existing.Strings("ayat_ids"), ch.AyatIDs...),
		"narrator_ids": union(existing.Strings("narrator_ids"), ch.NarratorIDs...),
	}
	// The intro text only belongs to the page that opens the chapter.
	if ch.Text != "" || existing.String("text") == "" {
		rec["text"] = ch.Text
	}

	return id, s.Chapters.Upsert(rec)
}

// UpsertHadith records a hadith keyed by its "{base}-%05d" key. rec must
// carry the key in IDField; link lists are unioned with the stored ones.
func (s *Stores) UpsertHadith(rec Record) error {
	existing, _, err := s.Hadith.Get(rec.ID())
	if err != nil {
		return err
	}
	for _, field := range []string{"narrator_ids", "ayat_ids", "tree_subj_ids", "main_subj_ids", "chain_ids"} {
		rec[field] = union(existing.Strings(field), rec.Strings(field)...)
	}
	return s.Hadith.Upsert(rec)
}
