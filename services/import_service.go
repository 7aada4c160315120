package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/kurniadi/uw-tracker-backend/models"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

// ImportService turns spreadsheet and JSON exports into bulk-ingest batches.
// Parsing is lenient about column order and casing; the ingest pipeline does
// the real validation row by row.
type ImportService struct {
	records *RecordService
}

// NewImportService creates the import service on top of the ingest pipeline.
func NewImportService(records *RecordService) *ImportService {
	return &ImportService{records: records}
}

// ImportFile reads a local .xlsx or .json export and feeds it through the bulk
// ingest pipeline.
func (s *ImportService) ImportFile(ctx context.Context, path string) (*models.BulkUploadResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, shared.NewValidationError("import", fmt.Sprintf("cannot open import file: %v", err))
	}
	defer file.Close()

	return s.Import(ctx, file, filepath.Ext(path))
}

// Import parses a stream in the given format (".xlsx" or ".json") and ingests
// the parsed rows.
func (s *ImportService) Import(ctx context.Context, reader io.Reader, format string) (*models.BulkUploadResponse, error) {
	var rows []models.BulkRecordInput
	var err error

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "xlsx":
		rows, err = ParseXLSX(reader)
	case "json":
		rows, err = ParseJSON(reader)
	default:
		return nil, shared.NewValidationError("import", fmt.Sprintf("unsupported import format %q", format))
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(rows),
	}).Info("Parsed import file")

	return s.records.BulkUpsert(ctx, rows)
}

// ParseJSON decodes a JSON array of flat rows.
func ParseJSON(reader io.Reader) ([]models.BulkRecordInput, error) {
	var rows []models.BulkRecordInput
	if err := json.NewDecoder(reader).Decode(&rows); err != nil {
		return nil, shared.NewValidationError("import", fmt.Sprintf("malformed JSON import: %v", err))
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of a spreadsheet export. The first row is
// the header; columns are matched by name so exports survive reordering.
func ParseXLSX(reader io.Reader) ([]models.BulkRecordInput, error) {
	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, shared.NewValidationError("import", fmt.Sprintf("malformed spreadsheet: %v", err))
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.NewValidationError("import", "spreadsheet has no sheets")
	}

	cells, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, shared.NewValidationError("import", fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err))
	}
	if len(cells) < 2 {
		return nil, shared.NewValidationError("import", "spreadsheet has no data rows")
	}

	columns := mapColumns(cells[0])
	if _, exists := columns["code"]; !exists {
		return nil, shared.NewValidationError("import", "spreadsheet is missing a Code column")
	}

	rows := make([]models.BulkRecordInput, 0, len(cells)-1)
	for _, cell := range cells[1:] {
		row := parseSheetRow(cell, columns)
		if row == nil {
			continue
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// mapColumns maps a normalized header name to its column index.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for index, name := range header {
		normalized := strings.ToLower(strings.Join(strings.Fields(name), " "))
		columns[normalized] = index
	}
	return columns
}

func parseSheetRow(cells []string, columns map[string]int) *models.BulkRecordInput {
	at := func(name string) string {
		index, exists := columns[name]
		if !exists || index >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[index])
	}

	code := at("code")
	if code == "" {
		return nil
	}

	row := &models.BulkRecordInput{
		Code:        code,
		CompanyName: at("company name"),
		IPOPrice:    parseSheetFloat(at("ipo price")),
		ReturnD1:    parseSheetReturn(at("return d1")),
		ReturnD2:    parseSheetReturn(at("return d2")),
		ReturnD3:    parseSheetReturn(at("return d3")),
		ReturnD4:    parseSheetReturn(at("return d4")),
		ReturnD5:    parseSheetReturn(at("return d5")),
		ReturnD6:    parseSheetReturn(at("return d6")),
		ReturnD7:    parseSheetReturn(at("return d7")),
	}

	if uw := at("uw"); uw != "" {
		row.UW = models.UnderwriterList{uw}
	}
	row.ListingBoard = parseSheetBoard(at("listing board"))
	if date := at("listing date"); date != "" {
		if parsed, err := models.ParseFlexTime(date); err == nil {
			row.ListingDate = parsed
		}
	}
	if note := at("record"); note != "" {
		row.Record = &note
	}
	return row
}

// parseSheetBoard maps loose board spellings onto the known boards, defaulting
// to the development board the way historical exports did.
func parseSheetBoard(value string) models.ListingBoard {
	switch strings.ToLower(value) {
	case "utama", "main":
		return models.BoardUtama
	case "akselerasi", "acceleration":
		return models.BoardAkselerasi
	default:
		return models.BoardPengembangan
	}
}

func parseSheetFloat(value string) float64 {
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, ",", "")
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// parseSheetReturn parses a return cell, tolerating a trailing percent sign.
// Empty cells stay nil rather than becoming a zero return.
func parseSheetReturn(value string) *float64 {
	if value == "" || value == "-" {
		return nil
	}
	value = strings.TrimSuffix(strings.TrimSpace(value), "%")
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
