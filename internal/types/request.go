package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one page or API resource to fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Page is the site page number this request belongs to, 0 for API calls.
	Page int

	// Timeout overrides the global request timeout for this request.
	Timeout time.Duration

	// ModalClasses lists the class names of modal triggers the browser
	// fetcher should open and capture.
	ModalClasses []string
}

// NewRequest creates a GET request for rawURL, which must be absolute.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:     u,
		Method:  http.MethodGet,
		Headers: make(http.Header),
	}, nil
}

// NewPageRequest creates a request for a numbered content page.
func NewPageRequest(rawURL string, page int, modalClasses []string) (*Request, error) {
	req, err := NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Page = page
	req.ModalClasses = append([]string(nil), modalClasses...)
	return req, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
