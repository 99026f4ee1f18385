package services

import (
	"context"
	"fmt"
	"time"

	"directory-scraper/config"
	"directory-scraper/models"
	"directory-scraper/storage"
	"directory-scraper/utils"
)

// LinkWalker collects listing URLs for one seed.
type LinkWalker interface {
	Walk(ctx context.Context, seedURL string) ([]string, error)
}

// ListingExtractor reads one listing page.
type ListingExtractor interface {
	Extract(ctx context.Context, url string) (*models.Listing, error)
}

// ProfileEnricher looks up the GBP data for a business.
type ProfileEnricher interface {
	Enrich(ctx context.Context, title, address string) *models.GBPRecord
}

// Components are the collaborators a Pipeline drives. Mirror is optional.
type Components struct {
	Walker    LinkWalker
	Extractor ListingExtractor
	Enricher  ProfileEnricher
	Listings  storage.RecordStore
	Enriched  storage.RecordStore
	Mirror    storage.Mirror
}

// Pipeline runs the two phases strictly in sequence: collect listings from the
// directory, then enrich every stored listing with its GBP data. It shares one
// browser session between phases and never runs steps concurrently.
type Pipeline struct {
	Components

	seeds        []string
	persistMode  string
	joinKey      models.JoinKey
	listingDelay time.Duration
	enrichDelay  time.Duration

	cleaner *Cleaner
	logger  *utils.Logger
}

// NewPipeline wires c with the run settings from cfg.
func NewPipeline(cfg *config.Config, c Components, logger *utils.Logger) (*Pipeline, error) {
	key, err := models.ParseJoinKey(cfg.JoinKey)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if c.Listings == nil || c.Enriched == nil {
		return nil, fmt.Errorf("pipeline: listing and enriched stores are required")
	}
	return &Pipeline{
		Components:   c,
		seeds:        cfg.SeedURLs,
		persistMode:  cfg.PersistMode,
		joinKey:      key,
		listingDelay: cfg.ListingDelay,
		enrichDelay:  cfg.EnrichDelay,
		cleaner:      NewCleaner(logger),
		logger:       logger,
	}, nil
}

// CollectStats summarises a collect pass.
type CollectStats struct {
	Seeds     int
	Links     int
	Extracted int
	Failed    int
	Saved     int
}

// EnrichStats summarises an enrich pass.
type EnrichStats struct {
	Listings int
	Skipped  int
	Enriched int
	Matched  int
	Saved    int
}

// Collect walks every seed, extracts each new listing and appends it to the
// listings store. Only ctx cancellation stops the pass early.
func (p *Pipeline) Collect(ctx context.Context) (*CollectStats, error) {
	stats := &CollectStats{}
	seen := utils.NewURLSet()
	var buffered []*models.Listing

	for i, seed := range p.seeds {
		p.logger.Info("[pipeline] Seed %d/%d: %s", i+1, len(p.seeds), seed)
		stats.Seeds++

		links, err := p.Walker.Walk(ctx, seed)
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err != nil {
			p.logger.Error("[pipeline] Seed %s failed: %v", seed, err)
		}
		links = p.cleaner.UniqueURLs(links, seen)
		stats.Links += len(links)

		for j, url := range links {
			p.logger.Info("[pipeline] Scraping listing %d/%d: %s", j+1, len(links), url)

			listing, err := p.Extractor.Extract(ctx, url)
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if err != nil {
				p.logger.Error("[pipeline] Error scraping %s: %v", url, err)
				stats.Failed++
			} else {
				stats.Extracted++
				listing = p.cleaner.Clean(listing)
				if p.persistMode == config.PersistBuffered {
					buffered = append(buffered, listing)
				} else if p.saveListing(ctx, listing) {
					stats.Saved++
				}
			}

			if err := utils.Sleep(ctx, p.listingDelay); err != nil {
				return stats, err
			}
		}
	}

	for _, l := range buffered {
		if p.saveListing(ctx, l) {
			stats.Saved++
		}
	}

	p.logger.Info("[pipeline] Collect complete — %d seeds, %d links, %d extracted, %d failed, %d saved",
		stats.Seeds, stats.Links, stats.Extracted, stats.Failed, stats.Saved)
	return stats, nil
}

func (p *Pipeline) saveListing(ctx context.Context, l *models.Listing) bool {
	if err := p.Listings.Append(l.Row()); err != nil {
		p.logger.Error("[pipeline] Failed to save %s: %v", l.URL, err)
		return false
	}
	if p.Mirror != nil {
		if err := p.Mirror.UpsertListing(ctx, l); err != nil {
			p.logger.Warn("[pipeline] Mirror write failed for %s: %v", l.URL, err)
		}
	}
	return true
}

// Enrich reads the listings store back and appends one enriched row per
// listing. Listings whose join key is already in the enriched store are
// skipped, so an interrupted pass can be resumed.
func (p *Pipeline) Enrich(ctx context.Context) (*EnrichStats, error) {
	stats := &EnrichStats{}
	rows := p.Listings.ReadAll()
	stats.Listings = len(rows)

	done := utils.NewURLSet()
	for _, r := range p.Enriched.ReadAll() {
		if key := p.joinKey.Of(r); key != "" {
			done.Add(key)
		}
	}
	if done.Size() > 0 {
		p.logger.Info("[pipeline] Resuming — %d listings already enriched", done.Size())
	}

	for i, row := range rows {
		key := p.joinKey.Of(row)
		if key != "" && done.Contains(key) {
			stats.Skipped++
			continue
		}

		title, address := row["title"], row["full_address"]
		p.logger.Info("[pipeline] Enriching %d/%d: %s", i+1, len(rows), title)

		rec := p.Enricher.Enrich(ctx, title, address)
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Enriched++
		if rec.Matched() {
			stats.Matched++
		}

		if err := p.Enriched.Append(models.Merge(row, rec)); err != nil {
			p.logger.Error("[pipeline] Failed to save enrichment for %s: %v", title, err)
		} else {
			stats.Saved++
			if key != "" {
				done.Add(key)
			}
		}
		if p.Mirror != nil {
			e := &models.EnrichedListing{Listing: models.ListingFromRow(row), GBP: rec}
			if err := p.Mirror.UpsertEnrichment(ctx, key, e); err != nil {
				p.logger.Warn("[pipeline] Mirror write failed for %s: %v", title, err)
			}
		}

		if err := utils.Sleep(ctx, p.enrichDelay); err != nil {
			return stats, err
		}
	}

	p.logger.Info("[pipeline] Enrich complete — %d listings, %d skipped, %d enriched, %d matched, %d saved",
		stats.Listings, stats.Skipped, stats.Enriched, stats.Matched, stats.Saved)
	return stats, nil
}

// Run is Collect followed by Enrich. A phase error is logged here and
// returned; the caller releases the browser.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Collect(ctx); err != nil {
		p.logger.Error("[pipeline] Collect aborted: %v", err)
		return err
	}
	if _, err := p.Enrich(ctx); err != nil {
		p.logger.Error("[pipeline] Enrich aborted: %v", err)
		return err
	}
	return nil
}

// LoadEnriched reads an enriched store back into records.
func LoadEnriched(store storage.RecordStore) []*models.EnrichedListing {
	rows := store.ReadAll()
	out := make([]*models.EnrichedListing, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.EnrichedFromRow(r))
	}
	return out
}
