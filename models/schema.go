package models

// ColExtraFields is the column holding the JSON-encoded extra field map.
const ColExtraFields = "extra_fields"

// ListingColumns is the fixed column order of the listings file.
var ListingColumns = []string{
	"url", "title", "phone", "email", "organization",
	"address_line1", "address_line2", "locality",
	"administrative_area", "postal_code", "country",
	"full_address", "about", "contact", "description", "website",
	ColExtraFields,
}

// GBPColumns are the columns the enrichment pass adds.
var GBPColumns = gbpColumns()

// EnrichedColumns is the fixed column order of the augmented file.
var EnrichedColumns = append(append([]string{}, ListingColumns...), GBPColumns...)

func gbpColumns() []string {
	cols := []string{
		"gbp_title", "gbp_address", "gbp_phone", "gbp_website",
		"gbp_image", "gbp_map_image", "gbp_outside_image",
		"gbp_cid", "gbp_maps_url",
	}
	for i := 1; i <= MaxReviews; i++ {
		cols = append(cols, ReviewColumn(i))
	}
	for i := 1; i <= MaxReviews; i++ {
		cols = append(cols, RatingColumn(i))
	}
	for i := 1; i <= EmbeddedImageSlots; i++ {
		cols = append(cols, EmbeddedImageColumn(i))
	}
	return cols
}

// EnrichmentReport holds the summary computed over the enriched dataset.
type EnrichmentReport struct {
	TotalListings   int
	MatchedProfiles int
	WithReviews     int
	WithCID         int
	WithExtraFields int
	AverageRating   float64
	TopRated        []*RatedListing
	ListingsByArea  map[string]int

	// ExtraFieldsByLabel counts the listings carrying each extra field label.
	ExtraFieldsByLabel map[string]int
}

// RatedListing is a listing with the mean of its parsed GBP ratings.
type RatedListing struct {
	Title  string
	Area   string
	Rating float64
}
