package hadith

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/dom"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// Marker classes used by the site's content markup.
const (
	ClassNarrator     = "names"
	ClassNarratorAttr = "namesatt"
	ClassQuran        = "quran"
	ClassQuranAttr    = "quranatt"
	ClassSubject      = "mainsubj"
	ClassSubjectAttr  = "mainsubjatt"
	ClassHadith       = "hadith"
)

// NarratorLink is one narrator reference found inside a chain.
type NarratorLink struct {
	DisplayName   string
	ExternalID    string
	APIFragment   string
	APIURL        string
	TextBefore    string
	TextAfter     string
	ChainOrdinal  int
	SequenceOrder int

	// ChainID is the composite "{base}-{hadith}-{chain}" key, empty when the
	// page has no hadith number.
	ChainID string

	// Context is the plain text of the whole chain the link was found in.
	Context string
}

// QuranCitation is a verse quoted in the page.
type QuranCitation struct {
	Verse       string
	Surah       string
	Ayah        string
	APIFragment string
	APIURL      string
}

// Reference returns the "Quran {surah}:{ayah}" label.
func (q *QuranCitation) Reference() string {
	return fmt.Sprintf("Quran %s:%s", q.Surah, q.Ayah)
}

// SubjectRef is a main subject with the tree subjects it links to. Tree
// subject texts are not part of the page and must be fetched from TreeURLs.
type SubjectRef struct {
	Title       string
	APIFragment string
	MainURL     string
	TreeIDs     []string
	TreeURLs    []string
}

// ClassifyNarrator returns the narrator link carried by n. It returns nil, nil
// when n is not a narrator node or names nobody, and an error wrapping
// types.ErrMissingAttribution when n is one but lacks its nested API node.
// n itself is left untouched.
func ClassifyNarrator(n *html.Node, apiBase string) (*NarratorLink, error) {
	if !dom.HasClass(n, ClassNarrator) {
		return nil, nil
	}

	fragment, text, ok := splitAttribution(n, ClassNarratorAttr)
	if !ok {
		return nil, &types.ParseError{Selector: "span." + ClassNarratorAttr, Err: types.ErrMissingAttribution}
	}

	name := textnorm.CleanText(text)
	if name == "" {
		return nil, nil
	}

	id := ParseQueryParams(fragment)["ids"]
	if id == "" {
		id = textnorm.NotAvailable
	}

	return &NarratorLink{
		DisplayName: name,
		ExternalID:  id,
		APIFragment: fragment,
		APIURL:      apiBase + fragment,
	}, nil
}

// ClassifyQuran returns the verse carried by a quran node. The reference
// node may sit inside the verse span or next to it inside the wrapping anchor.
func ClassifyQuran(n *html.Node, apiBase string) (*QuranCitation, error) {
	if !dom.HasClass(n, ClassQuran) {
		return nil, nil
	}

	fragment, text, ok := splitAttribution(n, ClassQuranAttr)
	if !ok {
		if p := n.Parent; p != nil && p.DataAtom == atom.A {
			if att := dom.FindByClass(p, ClassQuranAttr); att != nil {
				fragment, text, ok = strings.TrimSpace(dom.Text(att)), dom.Text(n), true
			}
		}
	}
	if !ok {
		return nil, &types.ParseError{Selector: "span." + ClassQuranAttr, Err: types.ErrMissingAttribution}
	}

	params := ParseQueryParams(fragment)
	return &QuranCitation{
		Verse:       textnorm.CleanText(text),
		Surah:       params["surano"],
		Ayah:        params["ayano"],
		APIFragment: fragment,
		APIURL:      apiBase + fragment,
	}, nil
}

// ClassifySubject returns the subject reference carried by a main subject
// node, with one tree-subject URL per underscore-joined id of its link
// parameter.
func ClassifySubject(n *html.Node, apiBase string) (*SubjectRef, error) {
	if !dom.HasClass(n, ClassSubject) {
		return nil, nil
	}

	fragment, text, ok := splitAttribution(n, ClassSubjectAttr)
	if !ok {
		return nil, &types.ParseError{Selector: "span." + ClassSubjectAttr, Err: types.ErrMissingAttribution}
	}

	ref := &SubjectRef{
		Title:       textnorm.CleanText(text),
		APIFragment: fragment,
		MainURL:     apiBase + fragment,
	}
	for _, id := range strings.Split(ParseQueryParams(fragment)["link"], "_") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		ref.TreeIDs = append(ref.TreeIDs, id)
		ref.TreeURLs = append(ref.TreeURLs, TreeSubjectURL(apiBase, id))
	}
	return ref, nil
}

// TreeSubjectURL builds the API URL of one tree subject.
func TreeSubjectURL(apiBase, id string) string {
	return apiBase + "nindex.php?page=treesubj&link=" + id
}

// splitAttribution copies n, detaches the nested node carrying attrClass
// from the copy and returns the nested text and the remaining text.
func splitAttribution(n *html.Node, attrClass string) (fragment, text string, ok bool) {
	c := dom.Clone(n)
	att := dom.FindByClass(c, attrClass)
	if att == nil {
		return "", "", false
	}
	fragment = strings.TrimSpace(dom.Text(att))
	dom.Remove(att)
	return fragment, dom.Text(c), true
}
