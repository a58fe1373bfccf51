package hadith

import (
	"net/url"
	"strings"
)

// ParseQueryParams reads the query part of an API fragment such as
// "nindex.php?page=showalam&amp;ids=12070". It returns an empty map when the
// fragment has no '?' and keeps the first non-empty value of each key.
// Malformed pairs are skipped.
func ParseQueryParams(fragment string) map[string]string {
	params := map[string]string{}

	fragment = strings.ReplaceAll(strings.TrimSpace(fragment), "&amp;", "&")
	_, query, ok := strings.Cut(fragment, "?")
	if !ok {
		return params
	}

	for _, pair := range strings.Split(query, "&") {
		key, val, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}
		v, err := url.QueryUnescape(val)
		if err != nil || v == "" {
			continue
		}
		if _, seen := params[k]; !seen {
			params[k] = v
		}
	}
	return params
}
