package parser

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Tree levels, from the root list down to single chapters.
const (
	LevelMain       = "main"
	LevelFirst      = "first"
	LevelChild      = "child"
	LevelGrandChild = "grand_child"
)

// TreeRow is one node of the chapter tree flattened with the fields of its
// ancestors, so each row can be written to a table on its own.
type TreeRow struct {
	Level  string
	Fields map[string]string
}

func (r TreeRow) derive(level string) TreeRow {
	fields := make(map[string]string, len(r.Fields)+16)
	for k, v := range r.Fields {
		fields[k] = v
	}
	return TreeRow{Level: level, Fields: fields}
}

func (r TreeRow) copyAttrs(sel *goquery.Selection, prefix string, attrs ...string) {
	for _, a := range attrs {
		r.Fields[prefix+a] = attrOr(sel, a, "")
	}
}

// Row returns the fields with the level attached.
func (r TreeRow) Row() map[string]string {
	out := make(map[string]string, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["tree_level"] = r.Level
	return out
}

func hiddenSibling(sel *goquery.Selection) *goquery.Selection {
	return sel.NextAllFiltered(`input[type="hidden"]`).First()
}

func readChapterTree(doc *goquery.Document, page int) []TreeRow {
	var rows []TreeRow

	doc.Find("ul.tree").Each(func(_ int, ulMain *goquery.Selection) {
		hidden := hiddenSibling(ulMain)
		main := TreeRow{Level: LevelMain, Fields: map[string]string{
			"islmwy_page":                  strconv.Itoa(page),
			"hidden_input_main_data_id":    attrOr(hidden, "id", ""),
			"hidden_input_main_data_value": attrOr(hidden, "value", ""),
			"hidden_input_main_data_name":  attrOr(hidden, "name", ""),
		}}
		rows = append(rows, main)

		ulMain.Find("li.first-level").Each(func(_ int, liFirst *goquery.Selection) {
			first := main.derive(LevelFirst)
			label := liFirst.Find("label.tree_label").First()
			hidden := hiddenSibling(liFirst)

			first.Fields["input_first_level_data_id"] = attrOr(liFirst.Find(`input[type="checkbox"]`).First(), "id", "")
			first.Fields["hidden_input_first_level_data_id"] = attrOr(hidden, "id", "")
			first.Fields["hidden_input_first_level_data_value"] = attrOr(hidden, "value", "")
			first.Fields["hadith_book_name_level"] = attrOr(label, "data-level", "")
			first.Fields["hadith_book_name_id"] = attrOr(label, "data-id", "")
			first.Fields["hadith_book_name_href"] = attrOr(label, "data-href", "")
			first.Fields["hadith_book_name_idfrom"] = attrOr(label, "data-idfrom", "")
			first.Fields["hadith_book_name_idto"] = attrOr(label, "data-idto", "")
			first.Fields["hadith_book_name_node"] = attrOr(label, "data-node", "")
			first.Fields["book_id"] = attrOr(label, "data-bookid", "")
			first.Fields["hadith_book_name_for"] = attrOr(label, "for", "")
			first.Fields["hadith_chapter"] = text(label)
			rows = append(rows, first)

			liFirst.Find("ul[id*=childrens]").Each(func(_ int, ulChildren *goquery.Selection) {
				ulChildren.Find("li.booknode").Each(func(_ int, liChild *goquery.Selection) {
					rows = append(rows, readChild(first, liChild)...)
				})
			})
		})
	})
	return rows
}

func readChild(parent TreeRow, li *goquery.Selection) []TreeRow {
	child := parent.derive(LevelChild)
	label := li.Find("label.tree_label").First()
	hidden := hiddenSibling(li)

	child.copyAttrs(li, "li_children_data_", "data-level", "data-id", "data-idfrom", "data-idto", "data-node", "data-bookid", "for")
	child.Fields["hadith_book_name_part_url"] = attrOr(li, "data-href", "")
	child.Fields["li_children_data_tag_id"] = attrOr(li, "id", "")
	child.Fields["input_children_data_id"] = attrOr(li.Find(`input[type="checkbox"]`).First(), "id", "")
	child.Fields["hidden_input_children_data_id"] = attrOr(hidden, "id", "")
	child.Fields["hidden_input_children_data_value"] = attrOr(hidden, "value", "")
	child.Fields["label_children_data_chapter"] = text(label)
	child.copyAttrs(label, "label_children_data_", "data-level", "data-id", "data-href", "data-idfrom", "data-idto", "data-node", "data-bookid", "for")
	child.Fields["label_children_data_tag_id"] = attrOr(label, "id", "")

	rows := []TreeRow{child}

	ulGrand := li.Find("ul[id*=childrens]").First()
	ulGrand.Find(`li[style="padding: 0px;"]`).Each(func(_ int, liGrand *goquery.Selection) {
		hidden := hiddenSibling(liGrand)
		liGrand.Find("span.tree_label").Each(func(_ int, span *goquery.Selection) {
			grand := child.derive(LevelGrandChild)
			a := span.Find("a").First()
			grand.Fields["hidden_input_grand_children_data_id"] = attrOr(hidden, "id", "")
			grand.Fields["hidden_input_grand_children_data_value"] = attrOr(hidden, "value", "")
			grand.Fields["hadith_chapter_href"] = attrOr(a, "href", "")
			grand.Fields["hadith_chapter_id"] = attrOr(a, "id", "")
			grand.Fields["hadith_chapter"] = text(a)
			rows = append(rows, grand)
		})
	})
	return rows
}
