package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"directory-scraper/models"
	"directory-scraper/utils"
)

var (
	// ratingRegexp captures a numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\b`)
)

// multiLineColumns keep their line breaks; every other detail field is
// collapsed onto one line.
var multiLineColumns = map[string]bool{
	"about":       true,
	"contact":     true,
	"description": true,
}

// Cleaner normalises scraped listings before they are persisted.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// UniqueURLs drops empty and already-seen URLs, in order. seen carries
// membership across calls so one set can cover every seed.
func (c *Cleaner) UniqueURLs(urls []string, seen *utils.URLSet) []string {
	result := make([]string, 0, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if !seen.Add(url) {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}
		result = append(result, url)
	}

	if dropped := len(urls) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] %d → %d listing URLs (dropped %d duplicates)", len(urls), len(result), dropped)
	}
	return result
}

// Clean normalises whitespace in l and recomputes its full address. The
// listing is modified in place and returned.
func (c *Cleaner) Clean(l *models.Listing) *models.Listing {
	for _, col := range models.ListingColumns {
		if col == models.ColExtraFields || col == "full_address" {
			continue
		}
		v := l.Get(col)
		if multiLineColumns[col] {
			l.Set(col, normaliseBlock(v))
		} else {
			l.Set(col, normaliseText(v))
		}
	}
	l.DeriveFullAddress()

	for k, v := range l.ExtraFields {
		l.ExtraFields[k] = normaliseText(v)
	}
	return l
}

// parseRating extracts a 0.0–5.0 numeric rating from a raw string.
func parseRating(raw string) float64 {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	if val < 0 || val > 5 {
		return 0
	}
	return val
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// normaliseBlock collapses whitespace within each line and drops blank lines.
func normaliseBlock(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = normaliseText(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
