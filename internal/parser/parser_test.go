package parser

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testPage = `<html><body>
<ol id="topPath">
  <li><a href="/ar/">الرئيسية</a></li>
  <li><a href="/library/">الكتب</a></li>
  <li><a href="/library/book/1">صحيح البخاري</a></li>
  <li><a href="/library/section/2">كتاب الإيمان</a></li>
  <li><a href="/library/chapter/9">باب الإيمان</a></li>
</ol>
<span class="page">
  <a class="topprevbutton" href="/library/page/11">السابق</a>
  <span>صفحة <a class="dropdown-toggle">12</a></span>
  <a class="topnextbutton" href="/library/page/13">التالي</a>
</span>
<span class="part partdropmenu">
  <a class="dropdown-toggle">1</a>
  <ul class="dropdown-menu">
    <li><a class="dropdown-item">1</a></li>
    <li><a class="dropdown-item">2</a></li>
  </ul>
</span>
<h4 class="txt-secondary">محمد بن إسماعيل البخاري</h4>
<ul class="tree">
  <li class="first-level">
    <input type="checkbox" id="c1">
    <label class="tree_label" data-id="10" data-bookid="1" data-level="1">كتاب الإيمان</label>
    <ul id="childrens10">
      <li class="booknode" data-id="20" data-href="/part/20">
        <label class="tree_label" data-id="20">باب قول النبي</label>
        <ul id="childrens20">
          <li style="padding: 0px;"><span class="tree_label"><a href="/ch/30" id="30">باب أمور الإيمان</a></span></li>
        </ul>
      </li>
    </ul>
  </li>
</ul>
<input type="hidden" id="main-hidden" value="v" name="n">
<div class="bookcontent-dic" id="pagebody"><p>نص</p></div>
</body></html>`

func parseDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestReadTOCPath(t *testing.T) {
	info := NewReader(testLogger).Read(parseDoc(t, testPage), 12)

	if info.TOC.Book.Text != "الكتب" {
		t.Errorf("book = %q", info.TOC.Book.Text)
	}
	if info.TOC.BookName.Text != "صحيح البخاري" {
		t.Errorf("book name = %q", info.TOC.BookName.Text)
	}
	if info.TOC.Chapter.Text != "باب الإيمان" || info.TOC.Chapter.Href != "/library/chapter/9" {
		t.Errorf("chapter = %+v", info.TOC.Chapter)
	}
	// The fifth item is the last one, so it fills the chapter, not the sub-section.
	if info.TOC.SubSection.Text != "" {
		t.Errorf("sub section = %q, want empty", info.TOC.SubSection.Text)
	}

	row := info.TOC.Row(12)
	if row["islmwy_page"] != "12" || row["hadith_section"] != "كتاب الإيمان" {
		t.Errorf("row = %v", row)
	}
}

func TestReadNavigationAndVolume(t *testing.T) {
	info := NewReader(testLogger).Read(parseDoc(t, testPage), 12)

	nav := info.Navigation
	if nav.PrevPage != "/library/page/11" || nav.NextPage != "/library/page/13" {
		t.Errorf("nav = %+v", nav)
	}
	if nav.BookPageNumber != "12" {
		t.Errorf("book page number = %q", nav.BookPageNumber)
	}

	if info.Volume.Volume != "1" {
		t.Errorf("volume = %q", info.Volume.Volume)
	}
	if len(info.Volume.Volumes) != 2 {
		t.Errorf("volumes = %v", info.Volume.Volumes)
	}
	if got := info.Volume.Row(12)["page_volumes"]; got != "1|2" {
		t.Errorf("page_volumes = %q", got)
	}
}

func TestReadAuthor(t *testing.T) {
	info := NewReader(testLogger).Read(parseDoc(t, testPage), 1)
	if info.Author != "محمد بن إسماعيل البخاري" {
		t.Errorf("author = %q", info.Author)
	}

	empty := NewReader(testLogger).Read(parseDoc(t, "<html><body></body></html>"), 1)
	if empty.Author != "N/A" {
		t.Errorf("missing author = %q, want N/A", empty.Author)
	}
	if empty.Navigation.PrevPage != "" || len(empty.Tree) != 0 {
		t.Errorf("empty page produced metadata: %+v", empty)
	}
}

func TestReadChapterTree(t *testing.T) {
	info := NewReader(testLogger).Read(parseDoc(t, testPage), 12)

	levels := make([]string, 0, len(info.Tree))
	for _, r := range info.Tree {
		levels = append(levels, r.Level)
	}
	want := []string{LevelMain, LevelFirst, LevelChild, LevelGrandChild}
	if strings.Join(levels, ",") != strings.Join(want, ",") {
		t.Fatalf("levels = %v, want %v", levels, want)
	}

	main := info.Tree[0].Row()
	if main["hidden_input_main_data_id"] != "main-hidden" || main["tree_level"] != LevelMain {
		t.Errorf("main row = %v", main)
	}

	first := info.Tree[1].Fields
	if first["book_id"] != "1" || first["hadith_chapter"] != "كتاب الإيمان" {
		t.Errorf("first row = %v", first)
	}

	grand := info.Tree[3].Fields
	if grand["hadith_chapter_id"] != "30" || grand["hadith_chapter"] != "باب أمور الإيمان" {
		t.Errorf("grand child row = %v", grand)
	}
	// Ancestor fields are carried down.
	if grand["label_children_data_chapter"] != "باب قول النبي" || grand["book_id"] != "1" {
		t.Errorf("grand child lost ancestor fields: %v", grand)
	}
	if info.Tree[1].Fields["label_children_data_chapter"] != "" {
		t.Error("child fields leaked into the parent row")
	}
}

func TestFindContainer(t *testing.T) {
	doc := parseDoc(t, testPage)

	n, err := FindContainer(doc, "pagebody")
	if err != nil {
		t.Fatalf("FindContainer: %v", err)
	}
	if n.Data != "div" {
		t.Errorf("container = %q", n.Data)
	}

	_, err = FindContainer(doc, "pagebody_thaskeel")
	if !errors.Is(err, types.ErrContainerNotFound) {
		t.Errorf("err = %v, want ErrContainerNotFound", err)
	}
}
