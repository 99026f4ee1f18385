package directory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-scraper/scraper/browser"
	"directory-scraper/scraper/catalog"
	"directory-scraper/utils"
)

const seed = "https://dir.example/directory-search?q=ct"

// resultsPage renders one search-results page with the given listing slugs and
// an optional next-page link.
func resultsPage(slugs []string, next string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class='view-content'>")
	for _, s := range slugs {
		fmt.Fprintf(&b, "<div><span class='field-content'><a href='/directory/%s'>%s</a></span></div>", s, s)
	}
	b.WriteString("</div>")
	if next != "" {
		fmt.Fprintf(&b, "<nav><a title='Go to next page' href='%s'>›</a></nav>", next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Lookup("v2")
	require.NoError(t, err)
	return c
}

func TestWalkTwoPages(t *testing.T) {
	pages := browser.MapFetcher{
		seed:             resultsPage([]string{"a", "b", "c"}, "?q=ct&page=1"),
		seed + "&page=1": resultsPage([]string{"d", "e"}, ""),
	}
	s := browser.NewStaticSession(pages)
	w := NewWalker(s, testCatalog(t), utils.NewDiscardLogger())

	urls, err := w.Walk(context.Background(), seed)
	require.NoError(t, err)

	want := []string{
		"https://dir.example/directory/a",
		"https://dir.example/directory/b",
		"https://dir.example/directory/c",
		"https://dir.example/directory/d",
		"https://dir.example/directory/e",
	}
	assert.Equal(t, want, urls)
}

func TestWalkVisitsEveryPageOnce(t *testing.T) {
	const n = 4
	pages := browser.MapFetcher{}
	var want []string
	for i := 0; i < n; i++ {
		url := seed
		if i > 0 {
			url = fmt.Sprintf("%s&page=%d", seed, i)
		}
		next := ""
		if i < n-1 {
			next = fmt.Sprintf("?q=ct&page=%d", i+1)
		}
		slugs := []string{fmt.Sprintf("p%d-1", i), fmt.Sprintf("p%d-2", i)}
		for _, s := range slugs {
			want = append(want, "https://dir.example/directory/"+s)
		}
		pages[url] = resultsPage(slugs, next)
	}

	counting := &countingFetcher{pages: pages, hits: map[string]int{}}
	w := NewWalker(browser.NewStaticSession(counting), testCatalog(t), utils.NewDiscardLogger())

	urls, err := w.Walk(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, want, urls)
	assert.Len(t, counting.hits, n)
	for url, hits := range counting.hits {
		assert.Equal(t, 1, hits, "page %s loaded more than once", url)
	}
}

func TestWalkEmptyPageYieldsNoLinks(t *testing.T) {
	pages := browser.MapFetcher{
		seed:             resultsPage(nil, "?q=ct&page=1"),
		seed + "&page=1": resultsPage([]string{"z"}, ""),
	}
	w := NewWalker(browser.NewStaticSession(pages), testCatalog(t), utils.NewDiscardLogger())

	urls, err := w.Walk(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://dir.example/directory/z"}, urls)
}

func TestWalkMaxPages(t *testing.T) {
	// the next control always points back at the seed
	pages := browser.MapFetcher{seed: resultsPage([]string{"loop"}, seed)}
	w := NewWalker(browser.NewStaticSession(pages), testCatalog(t), utils.NewDiscardLogger())
	w.MaxPages = 3

	urls, err := w.Walk(context.Background(), seed)
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestWalkSeedFailure(t *testing.T) {
	w := NewWalker(browser.NewStaticSession(browser.MapFetcher{}), testCatalog(t), utils.NewDiscardLogger())
	_, err := w.Walk(context.Background(), seed)
	assert.Error(t, err)
}

const detailPage = `<html><body>
<h1 class="page-header">Acme Restoration</h1>
<div class="field field--name-field-ams-phone field--label-inline"><div class="field__label">Phone</div><div class="field__item">(555) 010-0100</div></div>
<div class="field field--name-field-ams-email field--label-inline"><div class="field__label">Email</div><div class="field__item">info@acme.example</div></div>
<div class="field field--name-field-certs field--label-inline"><div class="field__label">Certifications</div><div class="field__item">IICRC</div></div>
<div class="field field--name-field-years field--label-inline"><div class="field__label">Years in Business</div><div class="field__item">12</div></div>
<div class="field field--name-field-other field--label-inline"><div class="field__label">phone</div><div class="field__item">lowercase label is not standard</div></div>
<div class="field field--name-field-dup field--label-inline"><div class="field__label">Phone</div><div class="field__item">555-9999</div></div>
<p class="address">
  <span class="organization">Acme Restoration LLC</span>
  <span class="address-line1">1 Main St</span>
  <span class="locality">Springfield</span>
  <span class="administrative-area">IL</span>
  <span class="postal-code">62701</span>
  <span class="country">US</span>
</p>
<div class="field--name-field-ams-website-url"><div><a href="https://acme.example">acme.example</a></div></div>
</body></html>`

func TestExtract(t *testing.T) {
	const url = "https://dir.example/directory/acme"
	s := browser.NewStaticSession(browser.MapFetcher{url: detailPage})
	e := NewExtractor(s, testCatalog(t), 0, utils.NewDiscardLogger())

	l, err := e.Extract(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, url, l.URL)
	assert.Equal(t, "Acme Restoration", l.Title)
	assert.Equal(t, "Phone(555) 010-0100", l.Phone)
	assert.Equal(t, "Acme Restoration LLC", l.Organization)
	assert.Equal(t, "", l.AddressLine2)
	assert.Equal(t, "", l.About)
	assert.Equal(t, "https://acme.example", l.Website)
	assert.Equal(t, "1 Main St Springfield IL 62701 US", l.FullAddress)

	assert.Equal(t, map[string]string{
		"Certifications":    "IICRC",
		"Years in Business": "12",
		"phone":             "lowercase label is not standard",
	}, l.ExtraFields)
	assert.NotContains(t, l.ExtraFields, "Phone")
	assert.NotContains(t, l.ExtraFields, "Email")
}

func TestExtractV1HasNoExtraFields(t *testing.T) {
	const url = "https://dir.example/directory/acme"
	c, err := catalog.Lookup("v1")
	require.NoError(t, err)
	e := NewExtractor(browser.NewStaticSession(browser.MapFetcher{url: detailPage}), c, 0, utils.NewDiscardLogger())

	l, err := e.Extract(context.Background(), url)
	require.NoError(t, err)
	assert.Nil(t, l.ExtraFields)
	assert.Equal(t, "Acme Restoration", l.Title)
}

func TestExtractEmptyPage(t *testing.T) {
	const url = "https://dir.example/directory/blank"
	e := NewExtractor(browser.NewStaticSession(browser.MapFetcher{url: "<html><body></body></html>"}), testCatalog(t), 0, utils.NewDiscardLogger())

	l, err := e.Extract(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, url, l.URL)
	assert.Equal(t, "", l.Title)
	assert.Equal(t, "", l.FullAddress)
	assert.Nil(t, l.ExtraFields)
}

func TestExtractNavigationFailure(t *testing.T) {
	e := NewExtractor(browser.NewStaticSession(browser.MapFetcher{}), testCatalog(t), 0, utils.NewDiscardLogger())
	l, err := e.Extract(context.Background(), "https://dir.example/missing")
	assert.Error(t, err)
	assert.Nil(t, l)
}

type countingFetcher struct {
	pages browser.MapFetcher
	hits  map[string]int
}

func (c *countingFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	c.hits[url]++
	return c.pages.Fetch(ctx, url)
}
