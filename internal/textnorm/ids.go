package textnorm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// Padding widths of the composite identifiers.
const (
	PagePadding   = 4
	HadithPadding = 5
	ChainPadding  = 2
	normalIDLimit = 100
)

// NumberID formats "{base}-{number}" with number zero-padded to width.
func NumberID(base string, number, width int) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: empty base", types.ErrInvalidID)
	}
	if number < 0 {
		return "", fmt.Errorf("%w: negative number %d", types.ErrInvalidID, number)
	}
	return fmt.Sprintf("%s-%0*d", base, width, number), nil
}

// HadithID formats the identifier of a hadith number parsed from page text.
func HadithID(base, number string, width int) (string, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return "", err
	}
	return NumberID(base, n, width)
}

// ChainID formats "{base}-{hadith}-{chain:02d}" with hadith zero-padded to
// width, so the id always starts with the hadith key built with that width.
func ChainID(base string, hadith, chain, width int) (string, error) {
	id, err := NumberID(base, hadith, width)
	if err != nil {
		return "", err
	}
	if chain < 0 {
		return "", fmt.Errorf("%w: negative chain %d", types.ErrInvalidID, chain)
	}
	return fmt.Sprintf("%s-%0*d", id, ChainPadding, chain), nil
}

// PageID formats the scraping record key "%04d-%04d".
func PageID(book, page int) string {
	return fmt.Sprintf("%0*d-%0*d", PagePadding, book, PagePadding, page)
}

// BookID formats the site book key.
func BookID(book int) string {
	return fmt.Sprintf("islamweb-%0*d", PagePadding, book)
}

// ParseNumber parses a decimal identifier, rejecting the NotAvailable sentinel.
func ParseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NotAvailable {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, s)
	}
	return n, nil
}

// Hash returns the hex md5 digest used as content key for citations.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TextID returns the content hash of text and a readable id built from base
// and the normalized text, cut to a fixed number of runes.
func TextID(base, text string) (hash, normalID string) {
	normal := base + "-" + Normalize(text, DefaultOptions())
	if utf8.RuneCountInString(normal) > normalIDLimit {
		normal = string([]rune(normal)[:normalIDLimit])
	}
	return Hash(text), normal
}
