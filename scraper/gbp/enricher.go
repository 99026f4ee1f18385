// Package gbp looks a business up on a search engine and reads its Google
// Business Profile panel: contact fields, reviews, ratings and gallery images.
package gbp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"directory-scraper/models"
	"directory-scraper/scraper/browser"
	"directory-scraper/scraper/catalog"
	"directory-scraper/utils"
)

const (
	// DefaultSearchURL is the search home the query is submitted from.
	DefaultSearchURL = "https://www.google.com"
	// MapsURLPrefix is prepended to a client id to build the canonical maps link.
	MapsURLPrefix = "https://maps.google.com/?cid="

	queryInput = "q"
)

// Enricher reads GBP data for one business at a time. It shares the
// orchestrator's browser session and must not be used concurrently.
type Enricher struct {
	session browser.Session
	acc     *browser.Accessor
	loc     catalog.GBP
	logger  *utils.Logger

	SearchURL    string
	SearchSettle time.Duration
	ClickSettle  time.Duration
}

// NewEnricher creates an Enricher. elementTimeout overrides the catalog's
// element wait when positive.
func NewEnricher(session browser.Session, cat *catalog.Catalog, elementTimeout time.Duration, logger *utils.Logger) *Enricher {
	if elementTimeout <= 0 {
		elementTimeout = cat.Timeouts.Element
	}
	return &Enricher{
		session:   session,
		acc:       browser.NewAccessor(session, elementTimeout),
		loc:       cat.GBP,
		logger:    logger,
		SearchURL: DefaultSearchURL,
	}
}

// Enrich searches for "{title} {address}" and reads whatever the results panel
// offers. A failed search yields an empty record. After that each step fails
// on its own: a step that cannot complete leaves its fields empty and the next
// step still runs. The result is never nil.
func (e *Enricher) Enrich(ctx context.Context, title, address string) *models.GBPRecord {
	rec := &models.GBPRecord{}
	query := strings.TrimSpace(title + " " + address)

	// the page still holds the previous business after a failed search
	if err := e.search(ctx, query); err != nil {
		e.logger.Warn("[gbp] Search failed for %q: %v", query, err)
		return rec
	}

	e.readPanel(ctx, rec)

	rec.CID = parseCID(e.text(ctx, e.loc.ProfileLink, "href"), e.loc.CIDParam)
	if rec.CID != "" {
		rec.MapsURL = MapsURLPrefix + rec.CID
	}

	if !e.openReviews(ctx) {
		e.logger.Debug("[gbp] No reviews control for %q", query)
		return rec
	}

	texts := e.reviewTexts(ctx)
	ratings := e.ratings(ctx)
	rec.Reviews = pairReviews(texts, ratings)

	images, err := e.gallery(ctx)
	if err != nil {
		e.logger.Debug("[gbp] Gallery unavailable for %q: %v", query, err)
	} else {
		rec.EmbeddedImages = images
	}

	e.logger.Info("[gbp] %q: %d reviews, cid=%q", query, len(rec.Reviews), rec.CID)
	return rec
}

func (e *Enricher) search(ctx context.Context, query string) error {
	home := e.SearchURL
	if home == "" {
		home = DefaultSearchURL
	}
	if err := e.session.Navigate(ctx, home); err != nil {
		return err
	}
	if err := e.session.Submit(ctx, queryInput, query); err != nil {
		return err
	}
	return utils.Sleep(ctx, e.SearchSettle)
}

func (e *Enricher) readPanel(ctx context.Context, rec *models.GBPRecord) {
	rec.Title = e.text(ctx, e.loc.Title, "")
	rec.Address = e.text(ctx, e.loc.Address, "")
	rec.Phone = e.text(ctx, e.loc.Phone, "")
	rec.Website = e.text(ctx, e.loc.Website, "href")
	rec.Image = e.text(ctx, e.loc.Image, "src")
	rec.MapImage = e.text(ctx, e.loc.MapImage, "src")
	rec.OutsideImage = e.text(ctx, e.loc.OutsideImage, "src")
}

// text reads locator as text, or as attr when attr is set. Empty locators and
// lookup failures yield "".
func (e *Enricher) text(ctx context.Context, locator, attr string) string {
	if locator == "" {
		return ""
	}
	var (
		v   string
		err error
	)
	if attr == "" {
		v, err = e.acc.Text(ctx, locator)
	} else {
		v, err = e.acc.Attr(ctx, locator, attr)
	}
	if err != nil && !browser.IsNotFound(err) {
		e.logger.Debug("[gbp] read %s: %v", locator, err)
	}
	return browser.OrEmpty(v, err)
}

// openReviews clicks the reviews control. It reports false when the control
// is missing or cannot be clicked.
func (e *Enricher) openReviews(ctx context.Context) bool {
	if e.loc.ReviewsButton == "" {
		return false
	}
	btn, err := e.acc.First(ctx, e.loc.ReviewsButton)
	if err != nil {
		return false
	}
	if err := btn.Click(ctx); err != nil {
		e.logger.Debug("[gbp] click reviews: %v", err)
		return false
	}
	return utils.Sleep(ctx, e.ClickSettle) == nil
}

func (e *Enricher) reviewTexts(ctx context.Context) []string {
	els := e.findUpTo(ctx, e.loc.ReviewText, models.MaxReviews)

	texts := make([]string, 0, len(els))
	for _, el := range els {
		if e.loc.ReviewMore != "" {
			if more, err := el.Find(ctx, e.loc.ReviewMore); err == nil && len(more) > 0 {
				if err := more[0].Click(ctx); err == nil {
					_ = utils.Sleep(ctx, e.ClickSettle)
				}
			}
		}
		texts = append(texts, browser.OrEmpty(browser.ElementText(ctx, el)))
	}
	return texts
}

func (e *Enricher) ratings(ctx context.Context) []string {
	attr := e.loc.RatingAttr
	if attr == "" {
		attr = "aria-label"
	}
	els := e.findUpTo(ctx, e.loc.Rating, models.MaxReviews)

	out := make([]string, 0, len(els))
	for _, el := range els {
		label := browser.OrEmpty(browser.ElementAttr(ctx, el, attr))
		out = append(out, ratingFromLabel(label, e.loc.RatingMarker))
	}
	return out
}

// findUpTo waits for locator and returns at most n matches. Any failure
// yields none.
func (e *Enricher) findUpTo(ctx context.Context, locator string, n int) []browser.Element {
	if locator == "" {
		return nil
	}
	if err := e.session.WaitFor(ctx, locator, e.acc.Timeout); err != nil {
		return nil
	}
	els, err := e.session.Find(ctx, locator)
	if err != nil {
		e.logger.Debug("[gbp] find %s: %v", locator, err)
		return nil
	}
	if len(els) > n {
		els = els[:n]
	}
	return els
}

var errNoGallery = errors.New("gallery locators not configured")

// gallery opens the image modal from the primary image and then steps through
// the next two thumbnails. Running out of thumbnails ends the walk early; any
// other failure discards every slot.
func (e *Enricher) gallery(ctx context.Context) ([models.EmbeddedImageSlots]string, error) {
	var images [models.EmbeddedImageSlots]string
	if e.loc.Image == "" || e.loc.GalleryEnlarged == "" {
		return images, errNoGallery
	}

	primary, err := e.acc.First(ctx, e.loc.Image)
	if err != nil {
		return images, fmt.Errorf("primary image: %w", err)
	}
	if images[0], err = e.clickAndRead(ctx, primary); err != nil {
		return [models.EmbeddedImageSlots]string{}, err
	}

	if e.loc.GalleryThumbnail == "" {
		return images, nil
	}
	for i := 1; i < models.EmbeddedImageSlots; i++ {
		// the modal re-renders after every click, so look the thumbnails up again
		thumbs, err := e.session.Find(ctx, e.loc.GalleryThumbnail)
		if err != nil {
			return [models.EmbeddedImageSlots]string{}, fmt.Errorf("thumbnails: %w", err)
		}
		if len(thumbs) <= i {
			break
		}
		if images[i], err = e.clickAndRead(ctx, thumbs[i]); err != nil {
			return [models.EmbeddedImageSlots]string{}, fmt.Errorf("thumbnail %d: %w", i, err)
		}
	}
	return images, nil
}

func (e *Enricher) clickAndRead(ctx context.Context, el browser.Element) (string, error) {
	if err := el.Click(ctx); err != nil {
		return "", err
	}
	if err := utils.Sleep(ctx, e.ClickSettle); err != nil {
		return "", err
	}
	return e.acc.Src(ctx, e.loc.GalleryEnlarged)
}

// pairReviews lines texts and ratings up by position. Either list may be
// shorter; missing entries are left empty.
func pairReviews(texts, ratings []string) []models.Review {
	n := len(texts)
	if len(ratings) > n {
		n = len(ratings)
	}
	if n > models.MaxReviews {
		n = models.MaxReviews
	}
	out := make([]models.Review, n)
	for i := range out {
		if i < len(texts) {
			out[i].Text = texts[i]
		}
		if i < len(ratings) {
			out[i].Rating = ratings[i]
		}
	}
	return out
}

// parseCID returns the digits following param in link, up to the next '&'.
// Anything that is not a plain run of digits yields "".
func parseCID(link, param string) string {
	if link == "" || param == "" {
		return ""
	}
	i := strings.Index(link, param)
	if i < 0 {
		return ""
	}
	cid := link[i+len(param):]
	if j := strings.IndexByte(cid, '&'); j >= 0 {
		cid = cid[:j]
	}
	if cid == "" {
		return ""
	}
	for _, r := range cid {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return cid
}

// ratingFromLabel returns the token after marker, with trailing punctuation
// removed: "Rated 4.0 out of 5," gives "4.0". The token is not checked to be
// a number.
func ratingFromLabel(label, marker string) string {
	if marker == "" {
		marker = "Rated"
	}
	fields := strings.Fields(label)
	for i, f := range fields {
		if f == marker && i+1 < len(fields) {
			return strings.TrimRight(fields[i+1], ",;")
		}
	}
	return ""
}
