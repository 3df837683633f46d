package sheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSVHeaderVariants(t *testing.T) {
	input := "Topic,H Tags (Actual Headings),KEYWORDS,Ref,E-E-A-T,Publish Date,Publish Time,Ignored,Image URLs\n" +
		"Best Hiking Boots,\"Intro | Fit\nCare\",\"boots, hiking\",notes here,Expert guide,15/03/2025,14:30,x,https://a/img.png\n"

	rows, err := Parse("input.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Title != "Best Hiking Boots" {
		t.Errorf("title = %q", row.Title)
	}
	if want := []string{"Intro", "Fit", "Care"}; strings.Join(row.Headings, ",") != strings.Join(want, ",") {
		t.Errorf("headings = %v, want %v", row.Headings, want)
	}
	if row.Keywords != "boots, hiking" || row.Reference != "notes here" || row.EEATNotes != "Expert guide" {
		t.Errorf("unexpected fields: %+v", row)
	}
	if row.ScheduleDate != "15/03/2025" || row.ScheduleTime != "14:30" {
		t.Errorf("schedule = %q %q", row.ScheduleDate, row.ScheduleTime)
	}
	if len(row.Images) != 1 || row.Images[0] != "https://a/img.png" {
		t.Errorf("images = %v", row.Images)
	}
}

func TestParseCSVSkipsRowsWithoutTitle(t *testing.T) {
	input := "title,keywords\nFirst,a\n,orphan\n\nSecond,b\n"

	rows, err := Parse("input.CSV", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 || rows[0].Title != "First" || rows[1].Title != "Second" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseEmptyAndUnsupported(t *testing.T) {
	if _, err := Parse("input.csv", strings.NewReader("title,keywords\n")); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
	if _, err := Parse("input.xls", strings.NewReader("")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells := map[string]string{
		"A1": "Title", "B1": "Headings", "C1": "Keywords",
		"A2": "Sourdough Basics", "B2": "Starter\nFlour", "C2": "bread",
		"A3": "Cast Iron Care", "C3": "skillet",
	}
	for cell, value := range cells {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	rows, err := Parse("upload.xlsx", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[0].Headings) != 2 || rows[0].Headings[1] != "Flour" {
		t.Errorf("headings = %v", rows[0].Headings)
	}
	if rows[1].Title != "Cast Iron Care" || len(rows[1].Headings) != 0 {
		t.Errorf("second row = %+v", rows[1])
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a|b", []string{"a", "b"}},
		{" a \n\n b | ", []string{"a", "b"}},
		{"one\r\ntwo", []string{"one", "two"}},
	}
	for _, tt := range tests {
		got := SplitList(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
