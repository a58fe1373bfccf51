package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/textnorm"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// SubjectResolver fetches a tree subject page and returns its cleaned text.
type SubjectResolver struct {
	fetcher  Fetcher
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewSubjectResolver creates a resolver that issues requests through f.
func NewSubjectResolver(f Fetcher, attempts int, backoff time.Duration, logger *slog.Logger) *SubjectResolver {
	return &SubjectResolver{
		fetcher:  f,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.With("component", "subject_resolver"),
	}
}

// Resolve returns the text of the subject page at rawURL. An empty page
// yields types.ErrEmptyResponse.
func (r *SubjectResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return "", err
	}

	resp, err := Retry(ctx, r.fetcher, req, r.attempts, r.backoff, r.logger)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	doc, err := resp.Document()
	if err != nil {
		return "", &types.ParseError{URL: rawURL, Err: err}
	}

	text := textnorm.CleanText(doc.Text())
	if text == "" {
		return "", &types.FetchError{URL: rawURL, Err: types.ErrEmptyResponse}
	}

	r.logger.Debug("subject resolved", "url", rawURL, "length", len(text))
	return text, nil
}
