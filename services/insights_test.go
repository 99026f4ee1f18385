package services

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"directory-scraper/models"
)

func enriched(title, area, cid string, ratings ...string) *models.EnrichedListing {
	e := &models.EnrichedListing{
		Listing: &models.Listing{Title: title, AdministrativeArea: area},
		GBP:     &models.GBPRecord{CID: cid},
	}
	if cid != "" {
		e.GBP.Title = title
	}
	for _, r := range ratings {
		e.GBP.Reviews = append(e.GBP.Reviews, models.Review{Text: "ok", Rating: r})
	}
	return e
}

func sampleEnriched() []*models.EnrichedListing {
	list := []*models.EnrichedListing{
		enriched("Acme", "CT", "1", "5.0", "4.0"),
		enriched("Best Dry", "CT", "2", "4.0"),
		enriched("Coastal", "ME", "3", "3.0", "n/a"),
		enriched("Dryline", "NH", ""),
		enriched("Everdry", "", "5", "5.0"),
	}
	list[3].Listing.ExtraFields = map[string]string{"Certifications": "IICRC"}
	list[4].Listing.ExtraFields = map[string]string{"Certifications": "IICRC", "Years in Business": "12"}
	return list
}

func TestReportCounts(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleEnriched())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.MatchedProfiles != 4 {
		t.Errorf("MatchedProfiles: got %d, want 4", r.MatchedProfiles)
	}
	if r.WithReviews != 4 {
		t.Errorf("WithReviews: got %d, want 4", r.WithReviews)
	}
	if r.WithCID != 4 {
		t.Errorf("WithCID: got %d, want 4", r.WithCID)
	}
	if r.WithExtraFields != 2 {
		t.Errorf("WithExtraFields: got %d, want 2", r.WithExtraFields)
	}
	if r.ExtraFieldsByLabel["Certifications"] != 2 || r.ExtraFieldsByLabel["Years in Business"] != 1 {
		t.Errorf("ExtraFieldsByLabel: got %v", r.ExtraFieldsByLabel)
	}
}

func TestReportRatings(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleEnriched())

	// per listing means: 4.5, 4.0, 3.0, 5.0
	if r.AverageRating != 4.13 {
		t.Errorf("AverageRating: got %.2f, want 4.13", r.AverageRating)
	}
	if len(r.TopRated) != 4 {
		t.Fatalf("TopRated len: got %d, want 4", len(r.TopRated))
	}
	if r.TopRated[0].Title != "Everdry" || r.TopRated[0].Rating != 5.0 {
		t.Errorf("TopRated[0]: got %+v", r.TopRated[0])
	}
	if r.TopRated[1].Rating != 4.5 {
		t.Errorf("TopRated[1].Rating: got %.2f, want 4.5", r.TopRated[1].Rating)
	}
}

func TestReportAreaGrouping(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleEnriched())
	if r.ListingsByArea["CT"] != 2 {
		t.Errorf("CT count: got %d, want 2", r.ListingsByArea["CT"])
	}
	if _, ok := r.ListingsByArea[""]; ok {
		t.Error("empty area should not be counted")
	}
}

func TestReportEmptyInput(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 || r.AverageRating != 0 || len(r.TopRated) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestReportPrint(t *testing.T) {
	var buf bytes.Buffer
	svc := NewReportService(newTestLogger()).WithOutput(&buf)
	svc.Print(svc.Generate(sampleEnriched()))

	out := buf.String()
	for _, want := range []string{"DIRECTORY ENRICHMENT REPORT", "Everdry", "CT", "4.13", "Years in Business"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}

	if strings.Index(out, "Certifications") > strings.Index(out, "Years in Business") {
		t.Error("extra field labels should print in sorted order")
	}

	buf.Reset()
	svc.Print(svc.Generate(nil))
	if !strings.Contains(buf.String(), "No rated listings found") {
		t.Error("empty report should say no rated listings")
	}
	if strings.Contains(buf.String(), "Extra Directory Fields") {
		t.Error("empty report should omit the extra fields section")
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"Acme", 10, "Acme"},
		{"Société Générale", 16, "Société Générale"},
		{"Société Générale", 10, "Société..."},
		{strings.Repeat("é", 40), 10, strings.Repeat("é", 7) + "..."},
		{"abcdefghijkl", 10, "abcdefg..."},
	}
	for _, c := range cases {
		got := truncate(c.in, c.max)
		if got != c.want {
			t.Errorf("truncate(%q, %d): got %q, want %q", c.in, c.max, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", c.in, c.max)
		}
		if n := utf8.RuneCountInString(got); n > c.max {
			t.Errorf("truncate(%q, %d): %d runes", c.in, c.max, n)
		}
	}
}
