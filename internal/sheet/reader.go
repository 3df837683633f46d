// Package sheet turns uploaded spreadsheets into normalized row specs.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrNoRows is returned when a sheet has a header but no usable rows
var ErrNoRows = errors.New("spreadsheet contains no rows with a title")

var validate = validator.New()

// ReadFile opens path and parses it according to its extension
func ReadFile(path string) ([]models.RowSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input file not found: %w", err)
	}
	defer f.Close()

	return Parse(filepath.Base(path), f)
}

// Parse reads a spreadsheet stream. The name is only used to choose the format.
func Parse(name string, r io.Reader) ([]models.RowSpec, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q, use .csv or .xlsx", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func rowsFromRecords(records [][]string) ([]models.RowSpec, error) {
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	log := logger.For("sheet")
	columns := mapHeader(records[0])

	var rows []models.RowSpec
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}

		row := buildRow(columns, record)
		if err := validate.Struct(row); err != nil {
			// Line numbers are 1-based and count the header
			log.Warn().Int("line", i+2).Msg("Skipping row without a title")
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func buildRow(columns map[field]int, record []string) models.RowSpec {
	get := func(f field) string {
		idx, ok := columns[f]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	return models.RowSpec{
		Title:        get(fieldTitle),
		Headings:     SplitList(get(fieldHeadings)),
		Keywords:     get(fieldKeywords),
		Reference:    get(fieldReference),
		EEATNotes:    get(fieldEEAT),
		ScheduleDate: get(fieldDate),
		ScheduleTime: get(fieldTime),
		Images:       SplitList(get(fieldImages)),
	}
}

// SplitList splits a cell on '|' or newlines, trimming and dropping empties
func SplitList(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == '|' || r == '\n' || r == '\r'
	})

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
