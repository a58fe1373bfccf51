package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/engine"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/fetcher"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/observability"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	outputDir   string
	bookID      int
	baseName    string
	startPage   int
	endPage     int
	fetcherType string
	headless    bool
	resume      bool
	noDelay     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "isnad",
		Short: "isnad: hadith library scraper",
		Long: `isnad scrapes the hadith books of the islamweb library page by page.

Each page is split into introduction, isnad and matn; the isnad is split into
narration chains and every narrator, Quran verse, subject and chapter it
references is merged into keyed stores under the output directory.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory")
	rootCmd.PersistentFlags().IntVarP(&bookID, "book", "b", 0, "site book id")
	rootCmd.PersistentFlags().StringVar(&baseName, "base", "", "base name used in record ids (e.g. bukhari)")
	rootCmd.PersistentFlags().IntVar(&startPage, "start", 0, "first page")
	rootCmd.PersistentFlags().IntVar(&endPage, "end", 0, "last page")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and process a range of book pages",
		RunE:  runScrape,
	}

	cmd.Flags().StringVarP(&fetcherType, "fetcher", "f", "", "page fetcher: browser or http")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue after the last checkpointed page")
	cmd.Flags().BoolVar(&noDelay, "no-delay", false, "do not pause between pages")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	metrics := startMetrics(cfg, logger)
	defer stopMetrics(metrics)

	pages, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer pages.Close()

	resolver, closeResolver, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer closeResolver()

	proc := engine.NewProcessor(cfg, resolver, metrics, logger)
	s := engine.NewScraper(cfg, pages, proc, fetcher.NewGaussianDelay(cfg.Delay), metrics, logger)

	ctx, stop := signalContext(logger, s.Stop)
	defer stop()

	start := time.Now()
	err = s.Run(ctx, resume)
	printSummary("Scrape", time.Since(start), s.Stats(), cfg.Storage.OutputDir)
	if errors.Is(err, types.ErrScrapeStopped) {
		logger.Warn("scrape interrupted, rerun with --resume to continue")
		return nil
	}
	return err
}

// processCmd creates the "process" subcommand.
func processCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Re-run extraction over archived pages without fetching them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var resolver engine.Resolver
			if resolve {
				r, closeResolver, err := newResolver(cfg, logger)
				if err != nil {
					return err
				}
				defer closeResolver()
				resolver = r
			}

			proc := engine.NewProcessor(cfg, resolver, nil, logger)
			s := engine.NewScraper(cfg, nil, proc, nil, nil, logger)

			ctx, stop := signalContext(logger, s.Stop)
			defer stop()

			start := time.Now()
			err = s.Reprocess(ctx)
			printSummary("Processing", time.Since(start), s.Stats(), cfg.Storage.OutputDir)
			if errors.Is(err, types.ErrScrapeStopped) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve-subjects", false, "fetch tree subject texts over HTTP")
	return cmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("isnad %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cmd, cfg)
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// loadConfig loads, overrides and validates the configuration and builds the
// logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(lc.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies the flags the user actually set.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Storage.OutputDir = outputDir
	}
	if flags.Changed("book") {
		cfg.Scraper.BookID = bookID
	}
	if flags.Changed("base") {
		cfg.Scraper.BaseName = baseName
	}
	if flags.Changed("start") {
		cfg.Scraper.StartPage = startPage
		if !flags.Changed("end") && cfg.Scraper.EndPage < startPage {
			cfg.Scraper.EndPage = startPage
		}
	}
	if flags.Changed("end") {
		cfg.Scraper.EndPage = endPage
	}
	if flags.Changed("fetcher") {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if flags.Changed("headless") {
		cfg.Fetcher.Headless = headless
	}
	if flags.Changed("no-delay") && noDelay {
		cfg.Delay.Enabled = false
	}
}

// newResolver builds the subject resolver on its own HTTP fetcher, since
// subject pages never need a browser.
func newResolver(cfg *config.Config, logger *slog.Logger) (*fetcher.SubjectResolver, func(), error) {
	hf, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create subject fetcher: %w", err)
	}
	r := fetcher.NewSubjectResolver(hf, cfg.Fetcher.MaxRetries, cfg.Fetcher.RetryDelay, logger)
	return r, func() { hf.Close() }, nil
}

func startMetrics(cfg *config.Config, logger *slog.Logger) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	metrics := observability.NewMetrics(logger)
	if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
		logger.Warn("failed to start metrics server", "error", err)
	}
	return metrics
}

func stopMetrics(m *observability.Metrics) {
	if m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(ctx)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, calling
// onSignal first.
func signalContext(logger *slog.Logger, onSignal func()) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			onSignal()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func printSummary(what string, elapsed time.Duration, stats *engine.Stats, out string) {
	fmt.Printf("\n%s complete in %s\n", what, elapsed.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d processed, %d skipped, %d failed\n",
		stats.PagesProcessed.Load(), stats.PagesSkipped.Load(), stats.PagesFailed.Load())
	fmt.Printf("   Hadith:    %d found, %d chains, %d narrator links\n",
		stats.HadithFound.Load(), stats.Chains.Load(), stats.Narrators.Load())
	fmt.Printf("   Citations: %d verses, %d subjects\n", stats.Verses.Load(), stats.Subjects.Load())
	fmt.Printf("   Output:    %s\n", out)
}
