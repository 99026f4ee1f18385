// Package browser is the page-automation layer the scrapers run against.
// Locators are XPath expressions throughout.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no element matched a locator within the wait
// budget, or that a requested attribute was absent.
var ErrNotFound = errors.New("browser: element not found")

// Session is a single stateful page. It is not safe for concurrent use.
type Session interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until at least one element matches locator, or returns
	// ErrNotFound once timeout elapses.
	WaitFor(ctx context.Context, locator string, timeout time.Duration) error
	// Find returns every element currently matching locator. No match is
	// not an error.
	Find(ctx context.Context, locator string) ([]Element, error)
	// Submit types query into the input named inputName and submits its form.
	Submit(ctx context.Context, inputName, query string) error
}

// Element is a handle to one node of the current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute. href and src are resolved to
	// absolute URLs. Absent attributes yield "".
	Attribute(ctx context.Context, name string) (string, error)
	// Click dispatches a scripted click on the element.
	Click(ctx context.Context) error
	// Find evaluates a locator relative to the element (e.g. "./div[1]").
	Find(ctx context.Context, locator string) ([]Element, error)
}

// OrEmpty applies the empty-on-failure policy to an accessor result.
func OrEmpty(v string, err error) string {
	if err != nil {
		return ""
	}
	return v
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
