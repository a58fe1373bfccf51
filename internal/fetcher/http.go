package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// HTTPFetcher implements Fetcher using net/http. Requests are paced by a
// token bucket shared by every caller of the fetcher.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}

	limit := rate.Inf
	if cfg.Fetcher.RateLimit > 0 {
		limit = rate.Limit(cfg.Fetcher.RateLimit)
	}
	burst := cfg.Fetcher.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Fetcher.Timeout,
		},
		cfg:        &cfg.Fetcher,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.Fetcher.UserAgents,
	}, nil
}

// Fetch executes one HTTP GET. Network failures, 429 and 5xx come back as
// retryable *types.FetchError; see Retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := f.newRequest(ctx, req)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	if fe := statusError(req.URLString(), httpResp); fe != nil {
		return nil, fe
	}

	body, err := f.readBody(httpResp)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: !errors.Is(err, errUnknownEncoding)}
	}

	resp := types.NewResponse(req, httpResp, body, duration)
	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"page", req.Page,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)
	return resp, nil
}

// newRequest builds the GET with the headers an Arabic-locale browser sends,
// then the request's own headers on top.
func (f *HTTPFetcher) newRequest(ctx context.Context, req *types.Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URLString(), nil)
	if err != nil {
		return nil, err
	}
	h := httpReq.Header
	h.Set("User-Agent", f.nextUserAgent())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "ar,en-US;q=0.8,en;q=0.6")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		for _, v := range values {
			h.Set(key, v)
		}
	}
	return httpReq, nil
}

// statusError maps throttling and server failures to retryable errors.
// Other statuses are left to the caller.
func statusError(rawURL string, resp *http.Response) *types.FetchError {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := parseRetryAfter(resp.Header.Get("Retry-After"))
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("rate limited, retry after %s: %s", wait, strings.TrimSpace(string(snippet))),
			Retryable:  true,
			RetryAfter: wait,
		}
	case resp.StatusCode >= 500:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server error: %s", strings.TrimSpace(string(snippet))),
			Retryable:  true,
		}
	}
	return nil
}

// readBody reads at most MaxBodySize bytes of the decoded body.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	r, err := decompressReader(resp, resp.Body)
	if err != nil {
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	if f.cfg.MaxBodySize > 0 {
		r = io.LimitReader(r, f.cfg.MaxBodySize)
	}
	return io.ReadAll(r)
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "isnad/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

var errUnknownEncoding = errors.New("unsupported content encoding")

// decompressReader wraps a reader with the decoder named by
// Content-Encoding: gzip, deflate or br.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return reader, nil
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEncoding, enc)
	}
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}
