package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-scraper/models"
)

func sampleListing(url string) *models.Listing {
	l := &models.Listing{
		URL:          url,
		Title:        "Acme Restoration",
		Phone:        "Phone (555) 010-0100",
		AddressLine1: "1 Main St",
		Locality:     "Springfield",
		Country:      "US",
		Website:      "https://acme.example",
		About:        "Water, fire and mold, since 1990.\nFamily owned.",
		ExtraFields:  map[string]string{"Certifications": "IICRC", "Years": "12"},
	}
	l.DeriveFullAddress()
	return l
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "listings.csv")
	s := NewListingStore(path, nil)

	require.NoError(t, s.AppendListing(sampleListing("https://dir.example/a")))
	require.NoError(t, s.AppendListing(sampleListing("https://dir.example/b")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), strings.Join(models.ListingColumns, ",")))

	rows := s.ReadAll()
	require.Len(t, rows, 2)
	assert.Equal(t, "https://dir.example/a", rows[0]["url"])
	assert.Equal(t, "https://dir.example/b", rows[1]["url"])
}

func TestAppendToEmptyFileWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s := NewListingStore(path, nil)
	require.NoError(t, s.Append(models.Row{"url": "https://dir.example/a"}))

	rows := s.ReadAll()
	require.Len(t, rows, 1)
	assert.Equal(t, "https://dir.example/a", rows[0]["url"])
	assert.Equal(t, "", rows[0]["title"])
}

func TestAppendDropsUnknownColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	s := NewListingStore(path, nil)
	require.NoError(t, s.Append(models.Row{"url": "u", "not_a_column": "x"}))

	rows := s.ReadAll()
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0], "not_a_column")
	assert.Len(t, rows[0], len(models.ListingColumns))
}

func TestReadListingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	s := NewListingStore(path, nil)
	in := sampleListing("https://dir.example/a")
	require.NoError(t, s.AppendListing(in))

	out := s.ReadListings()
	require.Len(t, out, 1)
	assert.Equal(t, in, out[0])
}

func TestReadAllMissingOrMalformed(t *testing.T) {
	dir := t.TempDir()

	missing := NewListingStore(filepath.Join(dir, "nope.csv"), nil).ReadAll()
	assert.NotNil(t, missing)
	assert.Empty(t, missing)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("url,title\n\"unterminated,x\n"), 0644))
	assert.Empty(t, NewListingStore(bad, nil).ReadAll())

	ragged := filepath.Join(dir, "ragged.csv")
	require.NoError(t, os.WriteFile(ragged, []byte("url,title\na,b,c\n"), 0644))
	assert.Empty(t, NewListingStore(ragged, nil).ReadAll())
}

func TestReadAllSkipsDamagedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	data := "url,title\n" +
		"https://dir.example/a,Acme\n" +
		"https://dir.example/x,Broken,extra\n" +
		"https://dir.example/b,Best Dry\n" +
		"\"https://dir.example/c,Coa"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows := NewListingStore(path, nil).ReadAll()
	require.Len(t, rows, 2)
	assert.Equal(t, "https://dir.example/a", rows[0]["url"])
	assert.Equal(t, "Best Dry", rows[1]["title"])
}

func TestAppendEnrichedPadsSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	s := NewEnrichedStore(path, nil)

	listing := sampleListing("https://dir.example/a").Row()
	gbp := &models.GBPRecord{
		Title:   "Acme Restoration",
		CID:     "42",
		MapsURL: "https://maps.google.com/?cid=42",
		Reviews: []models.Review{{Text: "Great", Rating: "5.0"}},
	}
	require.NoError(t, s.AppendEnriched(listing, gbp))

	rows := s.ReadAll()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Len(t, row, len(models.EnrichedColumns))
	assert.Equal(t, "Acme Restoration", row["title"])
	assert.Equal(t, "42", row["gbp_cid"])
	assert.Equal(t, "Great", row["review_1"])
	assert.Equal(t, "5.0", row["rating_1"])
	assert.Equal(t, "", row["review_5"])
	assert.Equal(t, "", row["embedded_image_3"])

	back := models.EnrichedFromRow(row)
	assert.Equal(t, map[string]string{"Certifications": "IICRC", "Years": "12"}, back.Listing.ExtraFields)
	assert.Equal(t, gbp.Reviews, back.GBP.Reviews)
}

func TestUpsertSQL(t *testing.T) {
	got := upsertSQL("listings", "url", []string{"url", "title", "run_id"}, "updated_at")
	assert.Equal(t,
		"INSERT INTO listings (url, title, run_id) VALUES ($1, $2, $3) ON CONFLICT (url) DO UPDATE SET "+
			"title = EXCLUDED.title, run_id = EXCLUDED.run_id, updated_at = NOW()",
		got)
}

func TestMigrationAndFetchSQL(t *testing.T) {
	m := migrationSQL()
	assert.Contains(t, m, "CREATE TABLE IF NOT EXISTS listings")
	assert.Contains(t, m, "url TEXT UNIQUE NOT NULL")
	assert.Contains(t, m, "extra_fields JSONB")
	assert.Contains(t, m, "join_key    TEXT UNIQUE NOT NULL")
	for _, c := range gbpFieldColumns {
		assert.Contains(t, m, c+" TEXT NOT NULL DEFAULT ''")
	}

	f := fetchEnrichedSQL()
	assert.Contains(t, f, "LEFT JOIN listings l ON l.url = g.listing_url")
	// every gbp column, reviews, images, plus listing_url in the COALESCE and the join
	assert.Equal(t, len(gbpFieldColumns)+4, strings.Count(f, " g."))
}

func TestDecodeEnriched(t *testing.T) {
	listing := make([]string, len(listingFieldColumns))
	listing[0] = "https://dir.example/a"
	listing[1] = "Acme"
	gbp := make([]string, len(gbpFieldColumns))
	gbp[0] = "Acme Restoration"

	e, err := decodeEnriched(listing, []byte(`{}`), gbp,
		[]byte(`[{"text":"Great","rating":"5.0"}]`),
		[]byte(`["a.jpg","b.jpg"]`))
	require.NoError(t, err)

	assert.Equal(t, "https://dir.example/a", e.Listing.URL)
	assert.Equal(t, "Acme", e.Listing.Title)
	assert.Nil(t, e.Listing.ExtraFields)
	assert.Equal(t, "Acme Restoration", e.GBP.Title)
	assert.Equal(t, []models.Review{{Text: "Great", Rating: "5.0"}}, e.GBP.Reviews)
	assert.Equal(t, [3]string{"a.jpg", "b.jpg", ""}, e.GBP.EmbeddedImages)

	_, err = decodeEnriched(listing, []byte(`not json`), gbp, []byte(`[]`), []byte(`[]`))
	assert.Error(t, err)
}
