package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ObservePage(StatusProcessed, 2*time.Second)
	m.ObservePage(StatusSkipped, 0)
	m.AddChains(3)
	m.AddNarrators(7)
	m.AddCitations("quran", 2)
	m.FetchFailed()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		`isnad_pages_total{status="processed"} 1`,
		`isnad_pages_total{status="skipped"} 1`,
		`isnad_chains_total 3`,
		`isnad_narrator_links_total 7`,
		`isnad_citations_total{kind="quran"} 2`,
		`isnad_fetch_failures_total 1`,
		`isnad_page_duration_seconds_count 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsIndependentRegistries(t *testing.T) {
	a := NewMetrics(testLogger)
	b := NewMetrics(testLogger)
	a.AddChains(1)
	b.AddChains(1)
}
