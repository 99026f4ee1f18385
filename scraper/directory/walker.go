package directory

import (
	"context"
	"fmt"
	"time"

	"directory-scraper/scraper/browser"
	"directory-scraper/scraper/catalog"
	"directory-scraper/utils"
)

// Walker collects listing links across the paginated search results of one seed.
type Walker struct {
	session browser.Session
	cat     *catalog.Catalog
	logger  *utils.Logger

	SeedSettle time.Duration
	PageSettle time.Duration
	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int
}

// NewWalker creates a Walker over session using the catalog's locators.
func NewWalker(session browser.Session, cat *catalog.Catalog, logger *utils.Logger) *Walker {
	return &Walker{session: session, cat: cat, logger: logger}
}

// Walk loads seedURL and follows the next-page control until it disappears,
// returning every listing link in page-then-position order. Only a failure to
// load the seed itself is an error.
func (w *Walker) Walk(ctx context.Context, seedURL string) ([]string, error) {
	if err := w.session.Navigate(ctx, seedURL); err != nil {
		return nil, fmt.Errorf("directory: load seed: %w", err)
	}
	if err := utils.Sleep(ctx, w.SeedSettle); err != nil {
		return nil, err
	}

	var all []string
	for page := 1; ; page++ {
		w.logger.Info("[directory] Scraping page %d...", page)

		links, err := w.pageLinks(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, links...)
		w.logger.Info("[directory] Found %d URLs on page %d", len(links), page)

		if w.MaxPages > 0 && page >= w.MaxPages {
			w.logger.Warn("[directory] Page limit %d reached, stopping", w.MaxPages)
			break
		}

		advanced, err := w.nextPage(ctx)
		if err != nil {
			return all, err
		}
		if !advanced {
			w.logger.Info("[directory] Reached last page")
			break
		}
	}

	return all, nil
}

// pageLinks returns the listing hrefs on the current page. A page where the
// links never appear yields none. Only ctx cancellation is returned.
func (w *Walker) pageLinks(ctx context.Context) ([]string, error) {
	if err := w.session.WaitFor(ctx, w.cat.ListingLinks, w.cat.Timeouts.List); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if browser.IsNotFound(err) {
			w.logger.Warn("[directory] Timeout waiting for listing elements")
		} else {
			w.logger.Error("[directory] Error getting listing URLs: %v", err)
		}
		return nil, nil
	}

	els, err := w.session.Find(ctx, w.cat.ListingLinks)
	if err != nil {
		w.logger.Error("[directory] Error getting listing URLs: %v", err)
		return nil, ctx.Err()
	}

	urls := make([]string, 0, len(els))
	for _, el := range els {
		href, err := browser.ElementAttr(ctx, el, "href")
		if err != nil {
			continue
		}
		urls = append(urls, href)
	}
	return urls, nil
}

// nextPage clicks the next-page control. It reports false when the control is
// absent or the click fails; that is the walk's only stop condition.
func (w *Walker) nextPage(ctx context.Context) (bool, error) {
	if err := w.session.WaitFor(ctx, w.cat.NextPage, w.cat.Timeouts.NextPage); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if !browser.IsNotFound(err) {
			w.logger.Error("[directory] Error finding next page: %v", err)
		}
		return false, nil
	}

	els, err := w.session.Find(ctx, w.cat.NextPage)
	if err != nil || len(els) == 0 {
		return false, ctx.Err()
	}
	if err := els[0].Click(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		w.logger.Error("[directory] Error clicking next page: %v", err)
		return false, nil
	}

	if err := utils.Sleep(ctx, w.PageSettle); err != nil {
		return false, err
	}
	return true, nil
}
