package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/hadith"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMergeStoreZeroByteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrators.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	records, exists, err := NewMergeStore(path, testLogger).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("zero-byte store reported as existing")
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
}

func TestMergeStoreMissingFile(t *testing.T) {
	s := NewMergeStore(filepath.Join(t.TempDir(), "db", "ayat.json"), testLogger)

	_, exists, err := s.Load()
	if err != nil || exists {
		t.Fatalf("Load = exists %v, err %v", exists, err)
	}
	if _, ok, err := s.Get("x"); ok || err != nil {
		t.Errorf("Get on missing store = %v, %v", ok, err)
	}
}

func TestMergeStoreCorrupt(t *testing.T) {
	cases := map[string]string{
		"garbage":    "not json at all",
		"object":     `{"_id": "a"}`,
		"missing id": `[{"name": "x"}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			s := NewMergeStore(path, testLogger)

			if _, _, err := s.Load(); !errors.Is(err, types.ErrStoreCorrupt) {
				t.Errorf("Load err = %v, want ErrStoreCorrupt", err)
			}
			if err := s.Upsert(Record{IDField: "a"}); !errors.Is(err, types.ErrStoreCorrupt) {
				t.Errorf("Upsert err = %v, want ErrStoreCorrupt", err)
			}

			// The corrupt file must not have been replaced.
			data, _ := os.ReadFile(path)
			if string(data) != content {
				t.Errorf("corrupt store was overwritten: %q", data)
			}
		})
	}
}

func TestMergeStoreUpsertShallowMerge(t *testing.T) {
	s := NewMergeStore(filepath.Join(t.TempDir(), "chapters.json"), testLogger)

	if err := s.Upsert(Record{IDField: "c1", "title": "first", "tags": []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(Record{IDField: "c2", "title": "second"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(Record{IDField: "c1", "tags": []string{"b"}}); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := s.Get("c1")
	if err != nil || !ok {
		t.Fatalf("Get c1 = %v, %v", ok, err)
	}
	if rec.String("title") != "first" {
		t.Errorf("title = %q, kept fields must survive a merge", rec.String("title"))
	}
	if got := rec.Strings("tags"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("tags = %v, list fields are replaced", got)
	}

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID() != "c1" || all[1].ID() != "c2" {
		t.Errorf("order = %v", all)
	}

	_, exists, _ := s.Load()
	if !exists {
		t.Error("store not reported as existing after upsert")
	}
}

func TestMergeStoreRejectsMissingID(t *testing.T) {
	s := NewMergeStore(filepath.Join(t.TempDir(), "s.json"), testLogger)
	if err := s.Upsert(Record{"name": "x"}); !errors.Is(err, types.ErrMissingRecordID) {
		t.Errorf("err = %v, want ErrMissingRecordID", err)
	}
}

func TestMergeStoreKeepsArabicUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	s := NewMergeStore(path, testLogger)
	if err := s.Upsert(Record{IDField: "1", "name": "مالك <بن> أنس"}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "مالك <بن> أنس") {
		t.Errorf("file content escaped: %s", data)
	}
}

func newNarratorStore(t *testing.T) *NarratorStore {
	t.Helper()
	return OpenStores(t.TempDir(), "bukhari", false, testLogger).Narrators
}

func TestNarratorAliasUnion(t *testing.T) {
	s := newNarratorStore(t)

	link := func(name, before string) *hadith.NarratorLink {
		return &hadith.NarratorLink{
			DisplayName: name,
			ExternalID:  "12070",
			APIFragment: "nindex.php?page=showalam&ids=12070",
			APIURL:      "https://www.islamweb.net/ar/library/nindex.php?page=showalam&ids=12070",
			TextBefore:  before,
		}
	}

	if err := s.UpsertNarrator(link("A", "حدثنا")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertNarrator(link("B", "عن")); err != nil {
		t.Fatal(err)
	}

	rec, _, err := s.Get("12070")
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Strings("aliases"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("aliases = %v, want [A B]", got)
	}
	if got := rec.Strings("before_keyword_list"); len(got) != 2 {
		t.Errorf("before keywords = %v", got)
	}
	if rec.String("name") != "A" {
		t.Errorf("name = %q, first name must be kept", rec.String("name"))
	}
	if rec.String("api_type") != "html" {
		t.Errorf("api_type = %q", rec.String("api_type"))
	}
}

func TestNarratorAliasIdempotent(t *testing.T) {
	s := newNarratorStore(t)
	link := &hadith.NarratorLink{DisplayName: "A", ExternalID: "7", TextAfter: "قال"}

	for i := 0; i < 2; i++ {
		if err := s.UpsertNarrator(link); err != nil {
			t.Fatal(err)
		}
	}

	rec, _, _ := s.Get("7")
	if got := rec.Strings("aliases"); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("aliases = %v, want [A]", got)
	}
	if got := rec.Strings("after_keyword_list"); !reflect.DeepEqual(got, []string{"قال"}) {
		t.Errorf("after keywords = %v", got)
	}
	if got := rec.Strings("before_keyword_list"); len(got) != 0 {
		t.Errorf("empty before text stored: %v", got)
	}
}

func TestNarratorWithoutIDIgnored(t *testing.T) {
	s := newNarratorStore(t)
	if err := s.UpsertNarrator(&hadith.NarratorLink{DisplayName: "x", ExternalID: "N/A"}); err != nil {
		t.Fatal(err)
	}
	all, _ := s.All()
	if len(all) != 0 {
		t.Errorf("records = %v, want none", all)
	}
}

func TestUpsertAyahAccumulatesHadith(t *testing.T) {
	stores := OpenStores(t.TempDir(), "bukhari", true, testLogger)
	q := &hadith.QuranCitation{Verse: "إنما الأعمال", Surah: "2", Ayah: "255", APIFragment: "x"}

	id1, err := stores.UpsertAyah(q, "bukhari-00001")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := stores.UpsertAyah(q, "bukhari-00002")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %s %s", id1, id2)
	}

	rec, _, _ := stores.Ayat.Get(id1)
	if got := rec.Strings("hadith_ids"); !reflect.DeepEqual(got, []string{"bukhari-00001", "bukhari-00002"}) {
		t.Errorf("hadith_ids = %v", got)
	}
	if rec.String("Quran") != "Quran 2:255" {
		t.Errorf("Quran = %q", rec.String("Quran"))
	}
	if !strings.HasSuffix(stores.Ayat.Path(), "ayat_thaskeel.json") {
		t.Errorf("vocalized path = %s", stores.Ayat.Path())
	}
}

func TestUpsertSubjects(t *testing.T) {
	stores := OpenStores(t.TempDir(), "bukhari", false, testLogger)
	ref := &hadith.SubjectRef{Title: "الإيمان", MainURL: "https://x/main"}
	mainID := MainSubjectID(ref.Title)

	tree := TreeSubject{ID: "12", Text: "أمور الإيمان", URL: "https://x/12"}
	treeID, err := stores.UpsertTreeSubject(tree, mainID, "bukhari-00009")
	if err != nil {
		t.Fatal(err)
	}

	gotMain, err := stores.UpsertMainSubject(ref, []TreeSubject{tree}, []string{treeID}, "bukhari-00009")
	if err != nil {
		t.Fatal(err)
	}
	if gotMain != mainID {
		t.Errorf("main id = %s, want %s", gotMain, mainID)
	}

	treeRec, _, _ := stores.TreeSubjects.Get(treeID)
	if got := treeRec.Strings("main_subj_ids"); !reflect.DeepEqual(got, []string{mainID}) {
		t.Errorf("main_subj_ids = %v", got)
	}
	mainRec, _, _ := stores.MainSubjects.Get(mainID)
	if got := mainRec.Strings("tree_subjs"); !reflect.DeepEqual(got, []string{"أمور الإيمان"}) {
		t.Errorf("tree_subjs = %v", got)
	}
}

func TestUpsertChapterKeepsIntroText(t *testing.T) {
	stores := OpenStores(t.TempDir(), "bukhari", false, testLogger)
	ch := Chapter{BookPage: 3, BookID: "1", Title: "باب", Text: "مقدمة", HadithKey: "bukhari-00001"}

	id, err := stores.UpsertChapter(ch)
	if err != nil {
		t.Fatal(err)
	}

	ch.Text = ""
	ch.HadithKey = "bukhari-00002"
	ch.NarratorIDs = []string{"12070"}
	if _, err := stores.UpsertChapter(ch); err != nil {
		t.Fatal(err)
	}

	rec, _, _ := stores.Chapters.Get(id)
	if rec.String("text") != "مقدمة" {
		t.Errorf("text = %q", rec.String("text"))
	}
	if got := rec.Strings("hadith_ids"); len(got) != 2 {
		t.Errorf("hadith_ids = %v", got)
	}
	if rec.String("book_page") != "bukhari-00003" {
		t.Errorf("book_page = %q", rec.String("book_page"))
	}
}

func TestUpsertHadithUnionsLinks(t *testing.T) {
	stores := OpenStores(t.TempDir(), "bukhari", false, testLogger)

	if err := stores.UpsertHadith(Record{IDField: "bukhari-00001", "narrator_ids": []string{"1"}}); err != nil {
		t.Fatal(err)
	}
	if err := stores.UpsertHadith(Record{IDField: "bukhari-00001", "narrator_ids": []string{"2", "1"}}); err != nil {
		t.Fatal(err)
	}
	rec, _, _ := stores.Hadith.Get("bukhari-00001")
	if got := rec.Strings("narrator_ids"); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("narrator_ids = %v", got)
	}
}

func TestTableAppendDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csv", "toc.csv")
	table := NewTable(path, testLogger)

	if err := table.Append(map[string]string{"a": "1", "b": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := table.Append(
		map[string]string{"a": "1", "b": "x"},
		map[string]string{"a": "2", "c": "new"},
	); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "\xEF\xBB\xBF") {
		t.Error("table written without BOM")
	}

	header, rows, err := table.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(header, []string{"a", "b", "c"}) {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want 2", rows)
	}
	if rows[1]["c"] != "new" || rows[0]["c"] != "" {
		t.Errorf("rows = %v", rows)
	}
}

func TestArchiveSaveLoad(t *testing.T) {
	a := NewArchive(t.TempDir(), "bukhari", testLogger)
	page := &ArchivedPage{
		HTML:   "<html><head><title>t</title></head><body><script>x()</script><p>نص   الحديث</p></body></html>",
		Modals: []string{"<div>one\ntwo</div>", "<div>three</div>"},
	}

	if a.Saved(7) {
		t.Fatal("empty archive reports page saved")
	}
	saved, err := a.Save(7, page)
	if err != nil || !saved {
		t.Fatalf("Save = %v, %v", saved, err)
	}
	if !a.Saved(7) {
		t.Error("page not reported saved")
	}
	if saved, _ := a.Save(7, page); saved {
		t.Error("second Save rewrote an archived page")
	}

	got, err := a.Load(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.HTML != page.HTML {
		t.Errorf("html = %q", got.HTML)
	}
	if !reflect.DeepEqual(got.Modals, page.Modals) {
		t.Errorf("modals = %q", got.Modals)
	}
}

func TestCleanHTML(t *testing.T) {
	out := CleanHTML("<html><head><style>b{}</style></head><body><script>alert(1)</script><p>a    b</p></body></html>")
	if strings.Contains(out, "alert") || strings.Contains(out, "<head>") || strings.Contains(out, "b{}") {
		t.Errorf("clean html kept removed elements: %s", out)
	}
	if !strings.Contains(out, "<p>a b</p>") {
		t.Errorf("whitespace not collapsed: %s", out)
	}
}

type memStorage struct {
	got map[string][]Record
}

func (m *memStorage) Store(_ context.Context, collection string, records []Record) error {
	m.got[collection] = append(m.got[collection], records...)
	return nil
}
func (m *memStorage) Close() error { return nil }
func (m *memStorage) Name() string { return "memory" }

func TestExport(t *testing.T) {
	stores := OpenStores(t.TempDir(), "bukhari", false, testLogger)
	if err := stores.Narrators.UpsertNarrator(&hadith.NarratorLink{DisplayName: "A", ExternalID: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := stores.UpsertHadith(Record{IDField: "bukhari-00001"}); err != nil {
		t.Fatal(err)
	}

	dst := &memStorage{got: make(map[string][]Record)}
	n, err := Export(context.Background(), dst, stores.Named(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("exported %d records, want 2", n)
	}
	if len(dst.got[StoreNarrators]) != 1 || len(dst.got[StoreHadith]) != 1 {
		t.Errorf("exported = %v", dst.got)
	}
}
