package models

import "testing"

func TestGBPRowSlotsArePadded(t *testing.T) {
	for n := 0; n <= MaxReviews; n++ {
		g := &GBPRecord{}
		for i := 0; i < n; i++ {
			g.Reviews = append(g.Reviews, Review{Text: "great", Rating: "5.0"})
		}
		row := g.Row()

		for i := 1; i <= MaxReviews; i++ {
			text, ok := row[ReviewColumn(i)]
			if !ok {
				t.Fatalf("%d reviews: missing %s", n, ReviewColumn(i))
			}
			if _, ok := row[RatingColumn(i)]; !ok {
				t.Fatalf("%d reviews: missing %s", n, RatingColumn(i))
			}
			if i <= n && text != "great" {
				t.Errorf("%d reviews: %s = %q", n, ReviewColumn(i), text)
			}
			if i > n && text != "" {
				t.Errorf("%d reviews: %s should be empty, got %q", n, ReviewColumn(i), text)
			}
		}
		for i := 1; i <= EmbeddedImageSlots; i++ {
			if _, ok := row[EmbeddedImageColumn(i)]; !ok {
				t.Fatalf("missing %s", EmbeddedImageColumn(i))
			}
		}
		if _, ok := row[EmbeddedImageColumn(EmbeddedImageSlots+1)]; ok {
			t.Errorf("unexpected extra image slot")
		}
	}
}

func TestMergeDoesNotModifyListingRow(t *testing.T) {
	listing := Row{"url": "https://example.org/a", "title": "Acme"}
	g := &GBPRecord{Title: "Acme Restoration LLC", Reviews: []Review{{Text: "ok", Rating: "4.0"}}}

	merged := Merge(listing, g)

	if merged["title"] != "Acme" || merged["gbp_title"] != "Acme Restoration LLC" {
		t.Errorf("merge: got %v", merged)
	}
	if merged["rating_1"] != "4.0" || merged["review_5"] != "" {
		t.Errorf("review slots: got %q / %q", merged["rating_1"], merged["review_5"])
	}
	if _, ok := listing["gbp_title"]; ok {
		t.Error("listing row was modified")
	}
}

func TestEnrichedColumnsOrder(t *testing.T) {
	if len(EnrichedColumns) != len(ListingColumns)+len(GBPColumns) {
		t.Fatalf("EnrichedColumns width: got %d", len(EnrichedColumns))
	}
	if EnrichedColumns[0] != "url" || EnrichedColumns[len(ListingColumns)] != "gbp_title" {
		t.Errorf("unexpected column order: %v", EnrichedColumns)
	}
	if EnrichedColumns[len(EnrichedColumns)-1] != "embedded_image_3" {
		t.Errorf("last column: got %q", EnrichedColumns[len(EnrichedColumns)-1])
	}
}

func TestGBPFromRow(t *testing.T) {
	g := &GBPRecord{
		Title:          "Acme",
		CID:            "123",
		Reviews:        []Review{{Text: "a", Rating: "5.0"}, {Text: "b", Rating: ""}},
		EmbeddedImages: [EmbeddedImageSlots]string{"x", "y", ""},
	}
	back := GBPFromRow(g.Row())
	if back.Title != "Acme" || back.CID != "123" {
		t.Errorf("fields: got %+v", back)
	}
	if len(back.Reviews) != 2 || back.Reviews[1].Text != "b" {
		t.Errorf("reviews: got %+v", back.Reviews)
	}
	if back.EmbeddedImages[1] != "y" {
		t.Errorf("images: got %v", back.EmbeddedImages)
	}
}
