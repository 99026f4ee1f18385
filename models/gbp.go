package models

import "strconv"

const (
	// MaxReviews is the number of review/rating slots in an enriched row.
	MaxReviews = 5
	// EmbeddedImageSlots is the number of gallery image slots in an enriched row.
	EmbeddedImageSlots = 3
)

// Review pairs a review text with the rating read from its accessibility label.
// Rating is kept verbatim, it is not validated as a number.
type Review struct {
	Text   string
	Rating string
}

// GBPRecord is the Google Business Profile data found for one listing.
type GBPRecord struct {
	Title        string
	Address      string
	Phone        string
	Website      string
	Image        string
	MapImage     string
	OutsideImage string
	CID          string
	MapsURL      string

	Reviews        []Review
	EmbeddedImages [EmbeddedImageSlots]string
}

// Matched reports whether the search produced a results panel.
func (g *GBPRecord) Matched() bool {
	return g.Title != "" || g.Address != "" || g.Phone != ""
}

// Row flattens the record. Review, rating and image slots are always present.
func (g *GBPRecord) Row() Row {
	row := Row{
		"gbp_title":         g.Title,
		"gbp_address":       g.Address,
		"gbp_phone":         g.Phone,
		"gbp_website":       g.Website,
		"gbp_image":         g.Image,
		"gbp_map_image":     g.MapImage,
		"gbp_outside_image": g.OutsideImage,
		"gbp_cid":           g.CID,
		"gbp_maps_url":      g.MapsURL,
	}
	for i := 0; i < MaxReviews; i++ {
		var r Review
		if i < len(g.Reviews) {
			r = g.Reviews[i]
		}
		row[ReviewColumn(i+1)] = r.Text
		row[RatingColumn(i+1)] = r.Rating
	}
	for i, src := range g.EmbeddedImages {
		row[EmbeddedImageColumn(i+1)] = src
	}
	return row
}

// GBPFromRow rebuilds a GBP record from an enriched row.
func GBPFromRow(row Row) *GBPRecord {
	g := &GBPRecord{
		Title:        row["gbp_title"],
		Address:      row["gbp_address"],
		Phone:        row["gbp_phone"],
		Website:      row["gbp_website"],
		Image:        row["gbp_image"],
		MapImage:     row["gbp_map_image"],
		OutsideImage: row["gbp_outside_image"],
		CID:          row["gbp_cid"],
		MapsURL:      row["gbp_maps_url"],
	}
	for i := 1; i <= MaxReviews; i++ {
		text, rating := row[ReviewColumn(i)], row[RatingColumn(i)]
		if text == "" && rating == "" {
			continue
		}
		g.Reviews = append(g.Reviews, Review{Text: text, Rating: rating})
	}
	for i := range g.EmbeddedImages {
		g.EmbeddedImages[i] = row[EmbeddedImageColumn(i+1)]
	}
	return g
}

// EnrichedListing is a listing merged with its GBP data.
type EnrichedListing struct {
	Listing *Listing
	GBP     *GBPRecord
}

// Merge builds the enriched row as the union of the listing row and the GBP row.
// The listing row is copied, never modified.
func Merge(listing Row, gbp *GBPRecord) Row {
	out := make(Row, len(EnrichedColumns))
	for k, v := range listing {
		out[k] = v
	}
	for k, v := range gbp.Row() {
		out[k] = v
	}
	return out
}

// EnrichedFromRow splits an enriched row back into its parts.
func EnrichedFromRow(row Row) *EnrichedListing {
	return &EnrichedListing{Listing: ListingFromRow(row), GBP: GBPFromRow(row)}
}

func ReviewColumn(n int) string        { return "review_" + strconv.Itoa(n) }
func RatingColumn(n int) string        { return "rating_" + strconv.Itoa(n) }
func EmbeddedImageColumn(n int) string { return "embedded_image_" + strconv.Itoa(n) }
