package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"directory-scraper/models"
	"directory-scraper/utils"
)

type ReportService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger, out: os.Stdout}
}

// WithOutput redirects Print.
func (s *ReportService) WithOutput(w io.Writer) *ReportService {
	s.out = w
	return s
}

func (s *ReportService) Generate(listings []*models.EnrichedListing) *models.EnrichmentReport {
	report := &models.EnrichmentReport{
		ListingsByArea:     make(map[string]int),
		ExtraFieldsByLabel: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var rated []*models.RatedListing
	var total float64

	for _, e := range listings {
		if e.GBP.Matched() {
			report.MatchedProfiles++
		}
		if len(e.GBP.Reviews) > 0 {
			report.WithReviews++
		}
		if e.GBP.CID != "" {
			report.WithCID++
		}
		if len(e.Listing.ExtraFields) > 0 {
			report.WithExtraFields++
			for _, label := range e.Listing.ExtraFieldLabels() {
				report.ExtraFieldsByLabel[label]++
			}
		}
		if area := strings.TrimSpace(e.Listing.AdministrativeArea); area != "" {
			report.ListingsByArea[area]++
		}

		if avg, ok := meanRating(e.GBP.Reviews); ok {
			rated = append(rated, &models.RatedListing{
				Title:  e.Listing.Title,
				Area:   e.Listing.AdministrativeArea,
				Rating: avg,
			})
			total += avg
		}
	}

	if len(rated) > 0 {
		report.AverageRating = round2(total / float64(len(rated)))
	}

	// Top 5 by rating
	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].Rating > rated[j].Rating
	})
	if len(rated) > 5 {
		report.TopRated = rated[:5]
	} else {
		report.TopRated = rated
	}

	return report
}

// meanRating averages the parseable ratings of reviews.
func meanRating(reviews []models.Review) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range reviews {
		if v := parseRating(r.Rating); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return round2(sum / float64(n)), true
}

func (s *ReportService) Print(r *models.EnrichmentReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 DIRECTORY ENRICHMENT REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings enriched      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Matched GBP profiles   : \033[1m%d\033[0m\n", r.MatchedProfiles)
	fmt.Fprintf(w, "  With reviews           : \033[1m%d\033[0m\n", r.WithReviews)
	fmt.Fprintf(w, "  With maps link (CID)   : \033[1m%d\033[0m\n", r.WithCID)
	fmt.Fprintf(w, "  With extra fields      : \033[1m%d\033[0m\n", r.WithExtraFields)
	fmt.Fprintln(w)

	// Ratings
	fmt.Fprintf(w, "\033[1;33m  Review Ratings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageRating > 0 {
		fmt.Fprintf(w, "  Average rating : \033[1;32m%.2f ★\033[0m\n", r.AverageRating)
	} else {
		fmt.Fprintf(w, "  No rating data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top 5 Highest Rated Businesses\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			title := truncate(l.Title, 38)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m\n",
				i+1, title, l.Rating)
		}
	}
	fmt.Fprintln(w)

	// Listings by area
	fmt.Fprintf(w, "\033[1;33m  Listings by State / Province\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByArea) == 0 {
		fmt.Fprintf(w, "  No area data\n")
	} else {
		type areaCount struct {
			area  string
			count int
		}
		var areas []areaCount
		for a, cnt := range r.ListingsByArea {
			areas = append(areas, areaCount{a, cnt})
		}
		sort.Slice(areas, func(i, j int) bool {
			if areas[i].count != areas[j].count {
				return areas[i].count > areas[j].count
			}
			return areas[i].area < areas[j].area
		})
		for _, ac := range areas {
			bar := strings.Repeat("█", ac.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(ac.area, 28), bar, ac.count)
		}
	}

	if len(r.ExtraFieldsByLabel) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "\033[1;33m  Extra Directory Fields\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		labels := make([]string, 0, len(r.ExtraFieldsByLabel))
		for l := range r.ExtraFieldsByLabel {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(w, "  %-30s %d\n", truncate(l, 28), r.ExtraFieldsByLabel[l])
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
