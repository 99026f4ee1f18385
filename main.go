package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"directory-scraper/config"
	"directory-scraper/models"
	"directory-scraper/scraper/browser"
	"directory-scraper/scraper/catalog"
	"directory-scraper/scraper/directory"
	"directory-scraper/scraper/gbp"
	"directory-scraper/services"
	"directory-scraper/storage"
	"directory-scraper/utils"
)

// staticFetchTimeout bounds one page fetch when BROWSER=static.
const staticFetchTimeout = 30 * time.Second

// Command-line overrides. Empty values leave the environment setting alone.
var (
	envFile         string
	seedURLs        []string
	selectorVersion string
	joinKey         string
	browserKind     string
	debug           bool
)

var rootCmd = &cobra.Command{
	Use:   "directory-scraper",
	Short: "Scrape a business directory and enrich it with Google Business Profile data",
	Long: `directory-scraper walks the paginated search results of a business directory,
extracts every listing into a CSV file, then looks each business up on Google
and writes an augmented CSV with profile fields, reviews, ratings and images.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect listings, then enrich them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), true, func(ctx context.Context, a *app) {
			if err := a.pipeline.Run(ctx); err == nil {
				a.report(ctx)
			}
		})
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Walk the seeds and write the listings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), true, func(ctx context.Context, a *app) {
			if _, err := a.pipeline.Collect(ctx); err != nil {
				a.logger.Error("Collect aborted: %v", err)
			}
		})
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich the listings file with GBP data, resuming where a previous run stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), true, func(ctx context.Context, a *app) {
			if _, err := a.pipeline.Enrich(ctx); err != nil {
				a.logger.Error("Enrich aborted: %v", err)
			}
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a summary of the enriched data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), false, func(ctx context.Context, a *app) {
			a.report(ctx)
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env", "", "env file to load (default .env)")
	pf.StringSliceVar(&seedURLs, "seed", nil, "directory search URL to crawl (repeatable)")
	pf.StringVar(&selectorVersion, "selectors", "", fmt.Sprintf("selector catalog version %v", catalog.Versions()))
	pf.StringVar(&joinKey, "join-key", "", "enriched row identity: url or name_address")
	pf.StringVar(&browserKind, "browser", "", "page backend: chrome or static")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, collectCmd, enrichCmd, reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	pipeline *services.Pipeline
	mirror   *storage.PostgresWriter
	enriched *storage.CSVStore
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if envFile == "" {
		cfg = config.Load()
	} else {
		cfg = config.LoadFile(envFile)
	}
	if len(seedURLs) > 0 {
		cfg.SeedURLs = seedURLs
	}
	if selectorVersion != "" {
		cfg.SelectorVersion = selectorVersion
	}
	if joinKey != "" {
		cfg.JoinKey = joinKey
	}
	if browserKind != "" {
		cfg.Browser = browserKind
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

// withPipeline builds the application, hands it to fn and releases the
// browser and database afterwards. Only configuration and startup failures
// are returned; fn logs its own errors.
func withPipeline(ctx context.Context, needBrowser bool, fn func(context.Context, *app)) error {
	logger := utils.NewLogger()
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return err
	}
	logger.EnableDebug(cfg.Debug)

	logger.Info("=== Directory Scraper starting ===")
	logger.Info("Config — seeds: %d | selectors: %s | join key: %s | persist: %s | browser: %s",
		len(cfg.SeedURLs), cfg.SelectorVersion, cfg.JoinKey, cfg.PersistMode, cfg.Browser)

	cat, err := catalog.Lookup(cfg.SelectorVersion)
	if err != nil {
		logger.Error("%v", err)
		return err
	}

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		enriched: storage.NewEnrichedStore(cfg.EnrichedCSV, logger),
	}

	if cfg.PostgresEnabled {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN(), retry, logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			return err
		}
		defer pg.Close()
		a.mirror = pg
	}

	comps := services.Components{
		Listings: storage.NewListingStore(cfg.ListingsCSV, logger),
		Enriched: a.enriched,
	}
	if a.mirror != nil {
		comps.Mirror = a.mirror
	}

	if needBrowser {
		session, release, err := openSession(ctx, cfg, retry, logger)
		if err != nil {
			logger.Error("Failed to start browser: %v", err)
			return err
		}
		defer release()

		session = browser.Throttle(session, utils.NewLimiter(cfg.MinRequestInterval))

		walker := directory.NewWalker(session, cat, logger)
		walker.SeedSettle = cfg.SeedSettle
		walker.PageSettle = cfg.PageSettle
		walker.MaxPages = cfg.MaxPages

		extractor := directory.NewExtractor(session, cat, cfg.ElementTimeout, logger)
		extractor.PageSettle = cfg.PageSettle

		enricher := gbp.NewEnricher(session, cat, cfg.ElementTimeout, logger)
		enricher.SearchURL = cfg.SearchURL
		enricher.SearchSettle = cfg.SearchSettle
		enricher.ClickSettle = cfg.ClickSettle

		comps.Walker, comps.Extractor, comps.Enricher = walker, extractor, enricher
	}

	a.pipeline, err = services.NewPipeline(cfg, comps, logger)
	if err != nil {
		logger.Error("%v", err)
		return err
	}

	fn(ctx, a)
	return nil
}

// openSession starts the configured page backend. The release func is safe to
// call once on every exit path.
func openSession(ctx context.Context, cfg *config.Config, retry *utils.RetryConfig, logger *utils.Logger) (browser.Session, func(), error) {
	if cfg.Browser == config.BrowserStatic {
		logger.Info("[browser] Using static HTTP fetcher (no JavaScript)")
		return browser.NewStaticSession(browser.NewCollyFetcher("", staticFetchTimeout)), func() {}, nil
	}

	var (
		session *browser.ChromeSession
		release func()
	)
	err := retry.Do(ctx, "chrome launch", func() error {
		var err error
		session, release, err = browser.NewChromeSession(browser.ChromeOptions{
			Headless:  cfg.Headless,
			ChromeBin: cfg.ChromeBin,
			Logger:    logger,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return session, release, nil
}

// report prints the summary, preferring the database copy when one is
// configured and falling back to the enriched CSV.
func (a *app) report(ctx context.Context) {
	var records []*models.EnrichedListing
	if a.mirror != nil {
		var err error
		records, err = a.mirror.FetchEnriched(ctx)
		if err != nil {
			a.logger.Error("Failed to fetch enrichments from DB for report: %v", err)
			records = nil
		}
	}
	if records == nil {
		records = services.LoadEnriched(a.enriched)
	}

	svc := services.NewReportService(a.logger)
	svc.Print(svc.Generate(records))

	fmt.Printf("  Done. Listings → %s | Enriched → %s\n\n", a.cfg.ListingsCSV, a.cfg.EnrichedCSV)
}
