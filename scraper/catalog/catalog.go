// Package catalog holds the XPath locators for the directory site and the
// Google results panel. Selectors are grouped into versions because the
// markup drifts; pick one with Lookup.
package catalog

import (
	"fmt"
	"sort"
	"time"
)

// FieldKind says which property of a matched element a detail field reads.
type FieldKind int

const (
	KindText FieldKind = iota
	KindHref
)

// Field maps one listing column to its locator.
type Field struct {
	Name    string
	Locator string
	Kind    FieldKind
}

// LabeledField describes the generic label/value rows on a listing page.
// Label and Value are relative to Row.
type LabeledField struct {
	Row   string
	Label string
	Value string
}

// GBP holds the Google results-panel locators. Empty locators are skipped.
type GBP struct {
	Title        string
	Address      string
	Phone        string
	Website      string
	Image        string
	MapImage     string
	OutsideImage string

	ProfileLink string
	CIDParam    string

	ReviewsButton string
	ReviewText    string
	ReviewMore    string // relative to a review element

	Rating       string
	RatingAttr   string
	RatingMarker string

	GalleryEnlarged  string
	GalleryThumbnail string
}

// Timeouts are the wait budgets tuned alongside each selector set.
type Timeouts struct {
	Element  time.Duration
	List     time.Duration
	NextPage time.Duration
}

// Catalog is one complete selector configuration.
type Catalog struct {
	Version      string
	ListingLinks string
	NextPage     string
	Detail       []Field
	Labeled      LabeledField

	// StandardLabels are page labels already covered by a dedicated column.
	StandardLabels map[string]bool

	GBP      GBP
	Timeouts Timeouts
}

// IsStandardLabel reports whether label names a dedicated column.
// The match is exact and case-sensitive.
func (c *Catalog) IsStandardLabel(label string) bool {
	return c.StandardLabels[label]
}

// HasLabeledFields reports whether this version scans for extra fields.
func (c *Catalog) HasLabeledFields() bool {
	return c.Labeled.Row != ""
}

var registry = map[string]func() *Catalog{
	"v1": v1,
	"v2": v2,
}

// Lookup returns a fresh copy of the named catalog version.
func Lookup(version string) (*Catalog, error) {
	build, ok := registry[version]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown selector version %q (have %v)", version, Versions())
	}
	return build(), nil
}

// Versions lists the registered catalog versions.
func Versions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
