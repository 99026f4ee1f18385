package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Row is one record in tabular form, keyed by column name.
type Row map[string]string

// Listing holds the detail fields scraped from a single directory listing page.
// URL is the identity key.
type Listing struct {
	URL                string
	Title              string
	Phone              string
	Email              string
	Organization       string
	AddressLine1       string
	AddressLine2       string
	Locality           string
	AdministrativeArea string
	PostalCode         string
	Country            string
	FullAddress        string
	About              string
	Contact            string
	Description        string
	Website            string

	// ExtraFields holds site-specific labelled fields outside the standard set.
	ExtraFields map[string]string
}

// ComposeAddress joins the non-empty parts with single spaces.
func ComposeAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// DeriveFullAddress recomputes FullAddress from the address components.
func (l *Listing) DeriveFullAddress() {
	l.FullAddress = ComposeAddress(
		l.AddressLine1,
		l.AddressLine2,
		l.Locality,
		l.AdministrativeArea,
		l.PostalCode,
		l.Country,
	)
}

// Set assigns a detail field by its column name. Unknown names return false.
func (l *Listing) Set(column, value string) bool {
	if p := l.field(column); p != nil {
		*p = value
		return true
	}
	return false
}

// Get returns a detail field by its column name.
func (l *Listing) Get(column string) string {
	if p := l.field(column); p != nil {
		return *p
	}
	return ""
}

func (l *Listing) field(column string) *string {
	switch column {
	case "url":
		return &l.URL
	case "title":
		return &l.Title
	case "phone":
		return &l.Phone
	case "email":
		return &l.Email
	case "organization":
		return &l.Organization
	case "address_line1":
		return &l.AddressLine1
	case "address_line2":
		return &l.AddressLine2
	case "locality":
		return &l.Locality
	case "administrative_area":
		return &l.AdministrativeArea
	case "postal_code":
		return &l.PostalCode
	case "country":
		return &l.Country
	case "full_address":
		return &l.FullAddress
	case "about":
		return &l.About
	case "contact":
		return &l.Contact
	case "description":
		return &l.Description
	case "website":
		return &l.Website
	}
	return nil
}

// Row converts the listing into its tabular form.
func (l *Listing) Row() Row {
	row := make(Row, len(ListingColumns))
	for _, col := range ListingColumns {
		if col == ColExtraFields {
			row[col] = EncodeExtraFields(l.ExtraFields)
			continue
		}
		row[col] = l.Get(col)
	}
	return row
}

// ListingFromRow rebuilds a listing from a persisted row.
func ListingFromRow(row Row) *Listing {
	l := &Listing{}
	for col, val := range row {
		if col == ColExtraFields {
			continue
		}
		l.Set(col, val)
	}
	l.ExtraFields = DecodeExtraFields(row[ColExtraFields])
	return l
}

// EncodeExtraFields serialises the extra field map as a JSON object.
// encoding/json sorts map keys, so the output is stable.
func EncodeExtraFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeExtraFields parses a persisted extra_fields value. A value that is not a
// JSON object is kept verbatim under the "_raw" key.
func DecodeExtraFields(s string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return map[string]string{RawExtraKey: s}
	}
	return fields
}

// RawExtraKey holds extra_fields values that could not be decoded.
const RawExtraKey = "_raw"

// ExtraFieldLabels returns the extra field labels in sorted order.
func (l *Listing) ExtraFieldLabels() []string {
	labels := make([]string, 0, len(l.ExtraFields))
	for k := range l.ExtraFields {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// JoinKey selects how an enriched record is matched back to its listing.
type JoinKey string

const (
	JoinByURL         JoinKey = "url"
	JoinByNameAddress JoinKey = "name_address"
)

// ParseJoinKey validates a join key name.
func ParseJoinKey(s string) (JoinKey, error) {
	switch JoinKey(strings.ToLower(strings.TrimSpace(s))) {
	case JoinByURL, "":
		return JoinByURL, nil
	case JoinByNameAddress:
		return JoinByNameAddress, nil
	}
	return "", fmt.Errorf("unknown join key %q (want %q or %q)", s, JoinByURL, JoinByNameAddress)
}

// Of returns the key for a row under this join strategy.
func (k JoinKey) Of(row Row) string {
	if k == JoinByNameAddress {
		return collapse(row["title"]) + "|" + collapse(row["full_address"])
	}
	return strings.TrimSpace(row["url"])
}

func collapse(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
