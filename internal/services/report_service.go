package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/models"
)

// csvHeader is the fixed first row of dashboard exports. Spreadsheet imports
// on the operator side key on these exact column names.
var csvHeader = []string{"Email", "Created At"}

// ReportService serves the admin dashboard: listing collected addresses and
// exporting them as a spreadsheet-compatible document.
type ReportService struct {
	db *gorm.DB
}

// NewReportService constructs the reporting service.
func NewReportService(db *gorm.DB) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{db: db}, nil
}

// List returns every collected record, newest first.
func (s *ReportService) List(ctx context.Context) ([]models.EmailRecord, error) {
	var records []models.EmailRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("report service: list records: %w", err)
	}
	return records, nil
}

// WriteCSV streams all records to w as two-column CSV with a fixed header
// row and returns the number of data rows written.
func (s *ReportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("report service: write header: %w", err)
	}

	for _, record := range records {
		row := []string{record.Email, record.CreatedAt.Format("2006-01-02")}
		if err := writer.Write(row); err != nil {
			return 0, fmt.Errorf("report service: write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("report service: flush: %w", err)
	}

	return len(records), nil
}
