package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

const archiveBackend = "raw_archive"

// modalSeparator joins modal bodies in the modal file.
const modalSeparator = "\n<!-- modal -->\n"

// Archive keeps the fetched pages on disk so they can be re-processed
// without fetching again:
//
//	raw/html/{base}-{page}.html              page as fetched
//	raw/html_clean/{base}-clean-{page}.html  head, script and style removed
//	raw/modal/{base}-modal-{page}.html       captured modal bodies
//	raw/modal_clean/{base}-modal-clean-{page}.html  modal text
type Archive struct {
	dir    string
	base   string
	logger *slog.Logger
}

// NewArchive creates an archive rooted at dir.
func NewArchive(dir, base string, logger *slog.Logger) *Archive {
	return &Archive{
		dir:    dir,
		base:   base,
		logger: logger.With("component", "raw_archive"),
	}
}

// ArchivedPage is the content saved for one page.
type ArchivedPage struct {
	HTML   string
	Modals []string
}

func (a *Archive) paths(page int) (rawHTML, cleanHTML, modal, modalClean string) {
	p := fmt.Sprintf("%04d", page)
	rawHTML = filepath.Join(a.dir, "raw", "html", a.base+"-"+p+".html")
	cleanHTML = filepath.Join(a.dir, "raw", "html_clean", a.base+"-clean-"+p+".html")
	modal = filepath.Join(a.dir, "raw", "modal", a.base+"-modal-"+p+".html")
	modalClean = filepath.Join(a.dir, "raw", "modal_clean", a.base+"-modal-clean-"+p+".html")
	return
}

// Saved reports whether all four files of page exist.
func (a *Archive) Saved(page int) bool {
	rawHTML, cleanHTML, modal, modalClean := a.paths(page)
	for _, p := range []string{rawHTML, cleanHTML, modal, modalClean} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Save writes every file of page, overwriting a partial earlier save. It
// does nothing and returns false when the page is already fully saved.
func (a *Archive) Save(page int, ap *ArchivedPage) (bool, error) {
	if a.Saved(page) {
		a.logger.Debug("page already archived", "page", page)
		return false, nil
	}

	rawHTML, cleanHTML, modal, modalClean := a.paths(page)

	modalTexts := make([]string, 0, len(ap.Modals))
	for _, m := range ap.Modals {
		modalTexts = append(modalTexts, ExtractText(m))
	}

	files := []struct {
		path    string
		content string
	}{
		{modal, strings.Join(ap.Modals, modalSeparator)},
		{modalClean, strings.Join(modalTexts, "\n")},
		{rawHTML, ap.HTML},
		{cleanHTML, CleanHTML(ap.HTML)},
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return false, &types.StorageError{Backend: archiveBackend, Path: f.path, Err: err}
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return false, &types.StorageError{Backend: archiveBackend, Path: f.path, Err: err}
		}
	}

	a.logger.Info("page archived", "page", page, "bytes", len(ap.HTML), "modals", len(ap.Modals))
	return true, nil
}

// Load reads the raw page and modal bodies of page.
func (a *Archive) Load(page int) (*ArchivedPage, error) {
	rawHTML, _, modal, _ := a.paths(page)

	body, err := os.ReadFile(rawHTML)
	if err != nil {
		return nil, &types.StorageError{Backend: archiveBackend, Path: rawHTML, Err: err}
	}
	ap := &ArchivedPage{HTML: string(body)}

	modals, err := os.ReadFile(modal)
	switch {
	case err == nil:
		if len(modals) > 0 {
			ap.Modals = strings.Split(string(modals), modalSeparator)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, &types.StorageError{Backend: archiveBackend, Path: modal, Err: err}
	}
	return ap, nil
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// CleanHTML drops head, script and style elements and collapses runs of
// whitespace. Unparseable input is returned collapsed but otherwise intact.
func CleanHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(multiSpace.ReplaceAllString(raw, " "))
	}
	doc.Find("head, script, style").Remove()

	out, err := doc.Html()
	if err != nil {
		out = raw
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(out, " "))
}

// ExtractText returns the text content of an HTML fragment.
func ExtractText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(doc.Text(), " "))
}
