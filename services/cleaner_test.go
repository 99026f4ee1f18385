package services

import (
	"testing"

	"directory-scraper/models"
	"directory-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func TestCleanerParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"4.0", 4.0},
		{"5.0", 5.0},
		{"3.5 out of 5", 3.5},
		{"", 0},
		{"New", 0},
		{"6.0", 0},
	}

	for _, tt := range tests {
		got := parseRating(tt.raw)
		if got != tt.want {
			t.Errorf("parseRating(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerUniqueURLs(t *testing.T) {
	c := NewCleaner(newTestLogger())
	seen := utils.NewURLSet()

	first := c.UniqueURLs([]string{"https://d/a", " https://d/b ", "", "https://d/a"}, seen)
	if len(first) != 2 || first[0] != "https://d/a" || first[1] != "https://d/b" {
		t.Errorf("first seed: got %v", first)
	}

	// URLs from an earlier seed are not collected again
	second := c.UniqueURLs([]string{"https://d/b", "https://d/c"}, seen)
	if len(second) != 1 || second[0] != "https://d/c" {
		t.Errorf("second seed: got %v", second)
	}
	if seen.Size() != 3 {
		t.Errorf("seen size: got %d, want 3", seen.Size())
	}
}

func TestCleanerClean(t *testing.T) {
	c := NewCleaner(newTestLogger())
	l := &models.Listing{
		URL:          " https://d/a ",
		Title:        "  Acme\n  Restoration ",
		Phone:        "Phone\n(555) 010-0100",
		AddressLine1: " 1  Main St ",
		Locality:     "Springfield",
		Country:      "US",
		About:        "  First line  \n\n   second   line ",
		ExtraFields:  map[string]string{"Hours": " 9 to\n5 "},
	}

	got := c.Clean(l)

	if got.URL != "https://d/a" {
		t.Errorf("URL: got %q", got.URL)
	}
	if got.Title != "Acme Restoration" {
		t.Errorf("Title: got %q", got.Title)
	}
	if got.Phone != "Phone (555) 010-0100" {
		t.Errorf("Phone: got %q", got.Phone)
	}
	if got.About != "First line\nsecond line" {
		t.Errorf("About: got %q", got.About)
	}
	if got.FullAddress != "1 Main St Springfield US" {
		t.Errorf("FullAddress: got %q", got.FullAddress)
	}
	if got.ExtraFields["Hours"] != "9 to 5" {
		t.Errorf("extra field: got %q", got.ExtraFields["Hours"])
	}
}
