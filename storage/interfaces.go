package storage

import (
	"context"

	"directory-scraper/models"
)

// RecordStore is a flat, append-only table of rows.
type RecordStore interface {
	Append(row models.Row) error
	ReadAll() []models.Row
}

// Mirror is a secondary copy of the scraped data, kept in sync one record at a
// time alongside the CSV files.
type Mirror interface {
	UpsertListing(ctx context.Context, l *models.Listing) error
	UpsertEnrichment(ctx context.Context, joinKey string, e *models.EnrichedListing) error
	Close() error
}
