package catalog

import "time"

const (
	listingLinks = "//span[@class='field-content']/a"
	nextPage     = "//a[@title='Go to next page']"
)

func detailFields() []Field {
	return []Field{
		{Name: "title", Locator: "//h1[@class='page-header']"},
		{Name: "phone", Locator: "//div[contains(@class,'field--name-field-ams-phone')]"},
		{Name: "email", Locator: "//div[contains(@class,'field--name-field-ams-email')]"},
		{Name: "organization", Locator: "//span[contains(@class,'organization')]"},
		{Name: "address_line1", Locator: "//span[contains(@class,'address-line1')]"},
		{Name: "address_line2", Locator: "//span[contains(@class,'address-line2')]"},
		{Name: "locality", Locator: "//span[contains(@class,'locality')]"},
		{Name: "administrative_area", Locator: "//span[contains(@class,'administrative-area')]"},
		{Name: "postal_code", Locator: "//span[contains(@class,'postal-code')]"},
		{Name: "country", Locator: "//span[contains(@class,'country')]"},
		{Name: "about", Locator: "//div[contains(@class,'field--name-field-ams-ind-company-desc')]"},
		{Name: "contact", Locator: "//div[contains(@class,'field--name-field-ams-master-contact')]"},
		{Name: "description", Locator: "//div[contains(@class, 'field--name-field-ams-description-plain')]"},
		{Name: "website", Locator: "//div[contains(@class, 'field--name-field-ams-website-url')]/div/a", Kind: KindHref},
	}
}

// v1 is the first selector set: detail fields and the basic results panel.
func v1() *Catalog {
	return &Catalog{
		Version:        "v1",
		ListingLinks:   listingLinks,
		NextPage:       nextPage,
		Detail:         detailFields(),
		StandardLabels: map[string]bool{},
		GBP: GBP{
			Title:         "//div[@id='rhs']//div[@data-attrid='title'] | //h2[@data-attrid='title']",
			Address:       "//div[@id='rhs']//span[@class='LrzXr']",
			Phone:         "//div[@id='rhs']//span[contains(@aria-label, 'Call phone number')]",
			Website:       "//div[@id='rhs']//a[@class='n1obkb mI8Pwc']",
			Image:         "//div[@id='rhs']//g-img[@class='ZGomKf']/img",
			ReviewsButton: "//span[text()='Reviews']",
			ReviewText:    "//div[@class='OA1nbd']",
		},
		Timeouts: Timeouts{
			Element:  5 * time.Second,
			List:     10 * time.Second,
			NextPage: 10 * time.Second,
		},
	}
}

// v2 is the later, fuller selector set.
func v2() *Catalog {
	c := v1()
	c.Version = "v2"
	c.Labeled = LabeledField{
		Row:   "//div[contains(@class,'field--label-inline')]",
		Label: "./div[1]",
		Value: "./div[2]",
	}
	c.StandardLabels = map[string]bool{
		"Phone":               true,
		"Email":               true,
		"Organization":        true,
		"Address":             true,
		"Website":             true,
		"Website URL":         true,
		"About":               true,
		"Company Description": true,
		"Contact":             true,
		"Master Contact":      true,
		"Description":         true,
	}
	c.GBP.MapImage = "//div[@id='rhs']//a[contains(@href,'/maps/')]//img"
	c.GBP.OutsideImage = "//div[@id='rhs']//div[@data-attrid='kc:/location/location:outside_photo']//img"
	c.GBP.ProfileLink = "//div[@id='rhs']//a[contains(@href,'ludocid=')]"
	c.GBP.CIDParam = "ludocid="
	c.GBP.ReviewMore = ".//a[text()='More']"
	c.GBP.Rating = "//span[contains(@aria-label,'Rated')]"
	c.GBP.RatingAttr = "aria-label"
	c.GBP.RatingMarker = "Rated"
	c.GBP.GalleryEnlarged = "//div[@role='dialog']//img[contains(@class,'enlarged')]"
	c.GBP.GalleryThumbnail = "//div[@role='dialog']//g-img[contains(@class,'thumb')]"
	c.Timeouts.Element = 2 * time.Second
	return c
}
