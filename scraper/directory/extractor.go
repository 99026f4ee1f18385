package directory

import (
	"context"
	"fmt"
	"time"

	"directory-scraper/models"
	"directory-scraper/scraper/browser"
	"directory-scraper/scraper/catalog"
	"directory-scraper/utils"
)

// Extractor reads one listing page into a models.Listing.
type Extractor struct {
	session browser.Session
	acc     *browser.Accessor
	cat     *catalog.Catalog
	logger  *utils.Logger

	PageSettle time.Duration
}

// NewExtractor creates an Extractor. elementTimeout overrides the catalog's
// element wait when positive.
func NewExtractor(session browser.Session, cat *catalog.Catalog, elementTimeout time.Duration, logger *utils.Logger) *Extractor {
	if elementTimeout <= 0 {
		elementTimeout = cat.Timeouts.Element
	}
	return &Extractor{
		session: session,
		acc:     browser.NewAccessor(session, elementTimeout),
		cat:     cat,
		logger:  logger,
	}
}

// Extract loads url and reads every catalog field. Only a navigation failure
// is an error; a field that cannot be read is left empty.
func (e *Extractor) Extract(ctx context.Context, url string) (*models.Listing, error) {
	if err := e.session.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("directory: extract %s: %w", url, err)
	}
	if err := utils.Sleep(ctx, e.PageSettle); err != nil {
		return nil, err
	}

	l := &models.Listing{URL: url}
	for _, f := range e.cat.Detail {
		var (
			v   string
			err error
		)
		switch f.Kind {
		case catalog.KindHref:
			v, err = e.acc.Href(ctx, f.Locator)
		default:
			v, err = e.acc.Text(ctx, f.Locator)
		}
		if err != nil && !browser.IsNotFound(err) {
			e.logger.Debug("[directory] %s: field %s: %v", url, f.Name, err)
		}
		l.Set(f.Name, browser.OrEmpty(v, err))
	}
	l.DeriveFullAddress()

	if e.cat.HasLabeledFields() {
		l.ExtraFields = e.extraFields(ctx)
	}
	return l, nil
}

// extraFields collects labelled rows whose label is not a standard field.
// The first occurrence of a label wins.
func (e *Extractor) extraFields(ctx context.Context) map[string]string {
	rows, err := e.session.Find(ctx, e.cat.Labeled.Row)
	if err != nil {
		e.logger.Debug("[directory] labelled fields: %v", err)
		return nil
	}

	extra := make(map[string]string)
	for _, row := range rows {
		label := e.child(ctx, row, e.cat.Labeled.Label)
		if label == "" || e.cat.IsStandardLabel(label) {
			continue
		}
		if _, dup := extra[label]; dup {
			continue
		}
		extra[label] = e.child(ctx, row, e.cat.Labeled.Value)
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func (e *Extractor) child(ctx context.Context, el browser.Element, locator string) string {
	els, err := el.Find(ctx, locator)
	if err != nil || len(els) == 0 {
		return ""
	}
	return browser.OrEmpty(browser.ElementText(ctx, els[0]))
}
