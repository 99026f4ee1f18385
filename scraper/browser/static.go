package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"
)

// Fetcher retrieves a page body. finalURL is the address after redirects and
// is used to resolve relative links.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, finalURL string, err error)
}

// StaticSession is a Session without a JavaScript engine: pages are fetched
// and queried as parsed HTML. Clicking an anchor follows its href; any other
// click is a no-op.
type StaticSession struct {
	fetcher Fetcher
	doc     *html.Node
	base    *url.URL
}

// NewStaticSession returns a session that loads pages through f.
func NewStaticSession(f Fetcher) *StaticSession {
	return &StaticSession{fetcher: f}
}

func (s *StaticSession) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, finalURL, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("static: navigate %s: %w", rawURL, err)
	}
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("static: parse %s: %w", rawURL, err)
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		return fmt.Errorf("static: parse url %s: %w", finalURL, err)
	}
	s.doc, s.base = doc, base
	return nil
}

// CurrentURL returns the address of the loaded page.
func (s *StaticSession) CurrentURL() string {
	if s.base == nil {
		return ""
	}
	return s.base.String()
}

// WaitFor checks once; a static page never changes while waiting.
func (s *StaticSession) WaitFor(ctx context.Context, locator string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	els, err := s.Find(ctx, locator)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *StaticSession) Find(_ context.Context, locator string) ([]Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	return s.query(s.doc, locator)
}

func (s *StaticSession) query(top *html.Node, locator string) ([]Element, error) {
	nodes, err := htmlquery.QueryAll(top, locator)
	if err != nil {
		return nil, fmt.Errorf("static: bad locator %q: %w", locator, err)
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &staticElement{s: s, node: n, base: s.base})
	}
	return els, nil
}

// Submit fills the named input and loads its form's GET target.
func (s *StaticSession) Submit(ctx context.Context, inputName, query string) error {
	lit := xpathLiteral(inputName)
	els, err := s.Find(ctx, fmt.Sprintf(`//input[@name=%s] | //textarea[@name=%s]`, lit, lit))
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return fmt.Errorf("static: submit %q: %w", inputName, ErrNotFound)
	}
	input := els[0].(*staticElement).node

	target := *s.base
	if form := ancestor(input, "form"); form != nil {
		if action := htmlquery.SelectAttr(form, "action"); action != "" {
			u, err := s.base.Parse(action)
			if err != nil {
				return fmt.Errorf("static: form action %q: %w", action, err)
			}
			target = *u
		}
	}
	q := url.Values{}
	q.Set(inputName, query)
	target.RawQuery = q.Encode()
	target.Fragment = ""

	return s.Navigate(ctx, target.String())
}

type staticElement struct {
	s    *StaticSession
	node *html.Node
	base *url.URL
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	return htmlquery.InnerText(e.node), nil
}

func (e *staticElement) Attribute(_ context.Context, name string) (string, error) {
	v := htmlquery.SelectAttr(e.node, name)
	if v == "" || (name != "href" && name != "src") || e.base == nil {
		return v, nil
	}
	u, err := e.base.Parse(strings.TrimSpace(v))
	if err != nil {
		return v, nil
	}
	return u.String(), nil
}

func (e *staticElement) Click(ctx context.Context) error {
	a := ancestor(e.node, "a")
	if a == nil {
		return nil
	}
	href := strings.TrimSpace(htmlquery.SelectAttr(a, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return nil
	}
	target := href
	if e.base != nil {
		u, err := e.base.Parse(href)
		if err != nil {
			return fmt.Errorf("static: click href %q: %w", href, err)
		}
		target = u.String()
	}
	return e.s.Navigate(ctx, target)
}

func (e *staticElement) Find(_ context.Context, locator string) ([]Element, error) {
	return e.s.query(e.node, locator)
}

// ancestor returns the nearest node (n included) with the given tag.
func ancestor(n *html.Node, tag string) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}

// CollyFetcher fetches pages over plain HTTP with a colly collector.
type CollyFetcher struct {
	c     *colly.Collector
	body  []byte
	final string
}

// NewCollyFetcher returns a fetcher sending userAgent, giving up after timeout.
func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	f := &CollyFetcher{c: c}
	c.OnResponse(func(r *colly.Response) {
		f.body = r.Body
		f.final = r.Request.URL.String()
	})
	return f
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	f.body, f.final = nil, ""
	if err := f.c.Visit(rawURL); err != nil {
		return nil, "", err
	}
	return f.body, f.final, nil
}

// MapFetcher serves pages from memory, keyed by exact URL.
type MapFetcher map[string]string

func (m MapFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	body, ok := m[rawURL]
	if !ok {
		return nil, "", fmt.Errorf("no page for %s", rawURL)
	}
	return []byte(body), rawURL, nil
}
