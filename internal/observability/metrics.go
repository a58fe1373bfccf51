// Package observability exposes scrape progress as Prometheus metrics.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "isnad"

// Page outcomes recorded by ObservePage.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusNoHadith  = "no_hadith"
	StatusFailed    = "failed"
)

// Metrics holds the collectors of one scrape run. Each instance has its own
// registry so several runs can coexist in one process. Recording on a nil
// *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	pages         *prometheus.CounterVec
	pageDuration  prometheus.Histogram
	fetchFailures prometheus.Counter
	chains        prometheus.Counter
	narrators     prometheus.Counter
	citations     *prometheus.CounterVec

	logger *slog.Logger
	server *http.Server
}

// NewMetrics creates and registers the collectors.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Library pages handled, by outcome.",
		}, []string{"status"}),
		pageDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent fetching and processing one page.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Page fetches that failed after all attempts.",
		}),
		chains: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_total",
			Help:      "Isnad chains split from hadith pages.",
		}),
		narrators: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrator_links_total",
			Help:      "Narrator links extracted from chains.",
		}),
		citations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_total",
			Help:      "Quran and subject citations extracted, by kind.",
		}, []string{"kind"}),
		logger: logger.With("component", "metrics"),
	}
}

// ObservePage records the outcome and duration of one page.
func (m *Metrics) ObservePage(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(status).Inc()
	if d > 0 {
		m.pageDuration.Observe(d.Seconds())
	}
}

// FetchFailed counts a page whose fetch exhausted its attempts.
func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

// AddChains counts split chains.
func (m *Metrics) AddChains(n int) {
	if m == nil {
		return
	}
	m.chains.Add(float64(n))
}

// AddNarrators counts extracted narrator links.
func (m *Metrics) AddNarrators(n int) {
	if m == nil {
		return
	}
	m.narrators.Add(float64(n))
}

// AddCitations counts citations of the given kind ("quran" or "subject").
func (m *Metrics) AddCitations(kind string, n int) {
	if m == nil {
		return
	}
	m.citations.WithLabelValues(kind).Add(float64(n))
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves the metrics on path plus a /health probe.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
