package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"directory-scraper/models"
	"directory-scraper/utils"
)

// listingFieldColumns are the plain text columns of the listings table.
var listingFieldColumns = []string{
	"url", "title", "phone", "email", "organization",
	"address_line1", "address_line2", "locality",
	"administrative_area", "postal_code", "country",
	"full_address", "about", "contact", "description", "website",
}

// gbpFieldColumns are the plain text columns of the gbp_enrichments table.
var gbpFieldColumns = []string{
	"gbp_title", "gbp_address", "gbp_phone", "gbp_website",
	"gbp_image", "gbp_map_image", "gbp_outside_image",
	"gbp_cid", "gbp_maps_url",
}

type reviewJSON struct {
	Text   string `json:"text"`
	Rating string `json:"rating"`
}

// PostgresWriter mirrors listings and enrichments into PostgreSQL. Each
// process run is tagged with its own run id.
type PostgresWriter struct {
	db     *sql.DB
	runID  uuid.UUID
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, runID: uuid.New(), logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	logger.Info("[postgres] Connected — run id %s", pw.runID)
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, migrationSQL())
	return err
}

func migrationSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS listings (\n\tid SERIAL PRIMARY KEY,\n")
	for _, c := range listingFieldColumns {
		if c == "url" {
			b.WriteString("\turl TEXT UNIQUE NOT NULL,\n")
			continue
		}
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", c)
	}
	b.WriteString(`	extra_fields JSONB       NOT NULL DEFAULT '{}',
	run_id       UUID,
	scraped_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS gbp_enrichments (
	id SERIAL PRIMARY KEY,
	join_key    TEXT UNIQUE NOT NULL,
	listing_url TEXT NOT NULL DEFAULT '',
`)
	for _, c := range gbpFieldColumns {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", c)
	}
	b.WriteString(`	reviews         JSONB       NOT NULL DEFAULT '[]',
	embedded_images JSONB       NOT NULL DEFAULT '[]',
	run_id          UUID,
	enriched_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_listings_area      ON listings(administrative_area);
CREATE INDEX IF NOT EXISTS idx_gbp_listing_url    ON gbp_enrichments(listing_url);
CREATE INDEX IF NOT EXISTS idx_gbp_cid            ON gbp_enrichments(gbp_cid);
`)
	return b.String()
}

// upsertSQL builds an INSERT ... ON CONFLICT statement that overwrites every
// non-key column. touch names a timestamp column to bump on update.
func upsertSQL(table, key string, cols []string, touch string) string {
	placeholders := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != key {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	if touch != "" {
		sets = append(sets, touch+" = NOW()")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), key, strings.Join(sets, ", "))
}

// UpsertListing inserts or refreshes one listing, keyed by URL.
func (pw *PostgresWriter) UpsertListing(ctx context.Context, l *models.Listing) error {
	extra, err := json.Marshal(nonNilMap(l.ExtraFields))
	if err != nil {
		return fmt.Errorf("postgres: encode extra fields: %w", err)
	}

	cols := append(append([]string{}, listingFieldColumns...), "extra_fields", "run_id")
	args := make([]interface{}, 0, len(cols))
	for _, c := range listingFieldColumns {
		args = append(args, l.Get(c))
	}
	args = append(args, string(extra), pw.runID.String())

	if _, err := pw.db.ExecContext(ctx, upsertSQL("listings", "url", cols, "updated_at"), args...); err != nil {
		return fmt.Errorf("postgres: upsert listing %s: %w", l.URL, err)
	}
	return nil
}

// UpsertEnrichment inserts or refreshes the GBP data for one listing, keyed
// by joinKey. The listing itself is upserted first.
func (pw *PostgresWriter) UpsertEnrichment(ctx context.Context, joinKey string, e *models.EnrichedListing) error {
	if err := pw.UpsertListing(ctx, e.Listing); err != nil {
		return err
	}

	reviews := make([]reviewJSON, 0, len(e.GBP.Reviews))
	for _, r := range e.GBP.Reviews {
		reviews = append(reviews, reviewJSON{Text: r.Text, Rating: r.Rating})
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("postgres: encode reviews: %w", err)
	}
	imagesJSON, err := json.Marshal(e.GBP.EmbeddedImages[:])
	if err != nil {
		return fmt.Errorf("postgres: encode images: %w", err)
	}

	gbpRow := e.GBP.Row()
	cols := []string{"join_key", "listing_url"}
	cols = append(cols, gbpFieldColumns...)
	cols = append(cols, "reviews", "embedded_images", "run_id")

	args := []interface{}{joinKey, e.Listing.URL}
	for _, c := range gbpFieldColumns {
		args = append(args, gbpRow[c])
	}
	args = append(args, string(reviewsJSON), string(imagesJSON), pw.runID.String())

	if _, err := pw.db.ExecContext(ctx, upsertSQL("gbp_enrichments", "join_key", cols, "enriched_at"), args...); err != nil {
		return fmt.Errorf("postgres: upsert enrichment %q: %w", joinKey, err)
	}
	return nil
}

// FetchEnriched retrieves every stored enrichment joined with its listing,
// in insertion order. Used by the report.
func (pw *PostgresWriter) FetchEnriched(ctx context.Context) ([]*models.EnrichedListing, error) {
	rows, err := pw.db.QueryContext(ctx, fetchEnrichedSQL())
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch enriched: %w", err)
	}
	defer rows.Close()

	var out []*models.EnrichedListing
	for rows.Next() {
		listing := make([]string, len(listingFieldColumns))
		gbp := make([]string, len(gbpFieldColumns))
		var extra, reviews, images []byte

		dest := make([]interface{}, 0, len(listing)+len(gbp)+3)
		for i := range listing {
			dest = append(dest, &listing[i])
		}
		dest = append(dest, &extra)
		for i := range gbp {
			dest = append(dest, &gbp[i])
		}
		dest = append(dest, &reviews, &images)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		e, err := decodeEnriched(listing, extra, gbp, reviews, images)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func fetchEnrichedSQL() string {
	sel := make([]string, 0, len(listingFieldColumns)+len(gbpFieldColumns)+3)
	for _, c := range listingFieldColumns {
		if c == "url" {
			sel = append(sel, "COALESCE(l.url, g.listing_url)")
			continue
		}
		sel = append(sel, fmt.Sprintf("COALESCE(l.%s, '')", c))
	}
	sel = append(sel, "COALESCE(l.extra_fields, '{}'::jsonb)")
	for _, c := range gbpFieldColumns {
		sel = append(sel, "g."+c)
	}
	sel = append(sel, "g.reviews", "g.embedded_images")

	return fmt.Sprintf(`SELECT %s
FROM gbp_enrichments g
LEFT JOIN listings l ON l.url = g.listing_url
ORDER BY g.id`, strings.Join(sel, ", "))
}

func decodeEnriched(listing []string, extra []byte, gbp []string, reviews, images []byte) (*models.EnrichedListing, error) {
	l := &models.Listing{}
	for i, c := range listingFieldColumns {
		l.Set(c, listing[i])
	}
	if err := json.Unmarshal(extra, &l.ExtraFields); err != nil {
		return nil, fmt.Errorf("postgres: decode extra fields for %s: %w", l.URL, err)
	}
	if len(l.ExtraFields) == 0 {
		l.ExtraFields = nil
	}

	row := make(models.Row, len(gbpFieldColumns))
	for i, c := range gbpFieldColumns {
		row[c] = gbp[i]
	}
	g := models.GBPFromRow(row)

	var rs []reviewJSON
	if err := json.Unmarshal(reviews, &rs); err != nil {
		return nil, fmt.Errorf("postgres: decode reviews for %s: %w", l.URL, err)
	}
	for _, r := range rs {
		g.Reviews = append(g.Reviews, models.Review{Text: r.Text, Rating: r.Rating})
	}

	var imgs []string
	if err := json.Unmarshal(images, &imgs); err != nil {
		return nil, fmt.Errorf("postgres: decode images for %s: %w", l.URL, err)
	}
	copy(g.EmbeddedImages[:], imgs)

	return &models.EnrichedListing{Listing: l, GBP: g}, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
