package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Accessor reads single values from the page, waiting up to Timeout for the
// locator to match. Failures come back as errors; callers pick the
// empty-string policy with OrEmpty.
type Accessor struct {
	Session Session
	Timeout time.Duration
}

// NewAccessor returns an Accessor over s.
func NewAccessor(s Session, timeout time.Duration) *Accessor {
	return &Accessor{Session: s, Timeout: timeout}
}

// First waits for locator and returns the first matching element.
func (a *Accessor) First(ctx context.Context, locator string) (Element, error) {
	if err := a.Session.WaitFor(ctx, locator, a.Timeout); err != nil {
		return nil, err
	}
	els, err := a.Session.Find(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

// Text returns the trimmed text of the first element matching locator.
func (a *Accessor) Text(ctx context.Context, locator string) (string, error) {
	el, err := a.First(ctx, locator)
	if err != nil {
		return "", err
	}
	txt, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("browser: read text of %q: %w", locator, err)
	}
	return strings.TrimSpace(txt), nil
}

// Href returns the resolved link target of the first element matching locator.
func (a *Accessor) Href(ctx context.Context, locator string) (string, error) {
	return a.Attr(ctx, locator, "href")
}

// Src returns the resolved image source of the first element matching locator.
func (a *Accessor) Src(ctx context.Context, locator string) (string, error) {
	return a.Attr(ctx, locator, "src")
}

// Attr returns an attribute of the first element matching locator.
// A missing or empty attribute is ErrNotFound.
func (a *Accessor) Attr(ctx context.Context, locator, name string) (string, error) {
	el, err := a.First(ctx, locator)
	if err != nil {
		return "", err
	}
	return ElementAttr(ctx, el, name)
}

// ElementText returns the trimmed text of el.
func ElementText(ctx context.Context, el Element) (string, error) {
	txt, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

// ElementAttr returns a trimmed attribute of el, ErrNotFound when empty.
func ElementAttr(ctx context.Context, el Element, name string) (string, error) {
	v, err := el.Attribute(ctx, name)
	if err != nil {
		return "", fmt.Errorf("browser: read %s: %w", name, err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}
