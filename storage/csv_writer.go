package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"directory-scraper/models"
	"directory-scraper/utils"
)

// CSVStore is an append-only CSV file with a fixed column order. Every Append
// opens, writes one row and closes the file, so a crash leaves a readable
// partial file behind. It assumes a single writer process.
type CSVStore struct {
	Path    string
	Columns []string

	logger *utils.Logger
}

// NewCSVStore returns a store for path using columns as the header.
func NewCSVStore(path string, columns []string, logger *utils.Logger) *CSVStore {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &CSVStore{Path: path, Columns: columns, logger: logger}
}

// NewListingStore returns a store laid out with the listing columns.
func NewListingStore(path string, logger *utils.Logger) *CSVStore {
	return NewCSVStore(path, models.ListingColumns, logger)
}

// NewEnrichedStore returns a store laid out with the enriched columns.
func NewEnrichedStore(path string, logger *utils.Logger) *CSVStore {
	return NewCSVStore(path, models.EnrichedColumns, logger)
}

// Append writes row as one CSV line. The header is written first when the
// file is missing or empty. Keys outside Columns are dropped.
func (s *CSVStore) Append(row models.Row) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", s.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csv: stat %q: %w", s.Path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(s.Columns); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}

	record := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		record[i] = row[col]
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", s.Path, err)
	}
	return f.Close()
}

// AppendListing writes one listing row.
func (s *CSVStore) AppendListing(l *models.Listing) error {
	return s.Append(l.Row())
}

// AppendEnriched writes the union of a listing row and its GBP record.
func (s *CSVStore) AppendEnriched(listing models.Row, gbp *models.GBPRecord) error {
	return s.Append(models.Merge(listing, gbp))
}

// ReadAll returns every row keyed by the file's own header. Rows whose width
// differs from the header are skipped, and a torn tail ends the read with the
// rows before it. A missing file or unreadable header yields an empty slice.
func (s *CSVStore) ReadAll() []models.Row {
	rows, err := s.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("[csv] %s does not exist yet", s.Path)
		} else {
			s.logger.Error("[csv] Failed to read %s: %v", s.Path, err)
		}
		return []models.Row{}
	}
	return rows
}

// ReadListings reads the file as listings.
func (s *CSVStore) ReadListings() []*models.Listing {
	rows := s.ReadAll()
	out := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ListingFromRow(r))
	}
	return out
}

func (s *CSVStore) read() ([]models.Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return []models.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	rows := []models.Row{}
	for n := 1; ; n++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a crash mid-append can leave a torn last line; keep what came before
			s.logger.Warn("[csv] %s: stopped at row %d: %v", s.Path, n, err)
			break
		}
		if len(record) != len(header) {
			s.logger.Warn("[csv] %s: skipping row %d with %d fields, want %d", s.Path, n, len(record), len(header))
			continue
		}
		row := make(models.Row, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
