package sheet

import "strings"

type field int

const (
	fieldTitle field = iota
	fieldHeadings
	fieldKeywords
	fieldReference
	fieldEEAT
	fieldDate
	fieldTime
	fieldImages
)

// headerAliases maps normalized header names to canonical fields
var headerAliases = map[string]field{
	"title": fieldTitle,
	"topic": fieldTitle,

	"h tags":                   fieldHeadings,
	"htags":                    fieldHeadings,
	"headings":                 fieldHeadings,
	"h tags (actual headings)": fieldHeadings,

	"keywords": fieldKeywords,
	"keyword":  fieldKeywords,

	"reference":  fieldReference,
	"references": fieldReference,
	"ref":        fieldReference,

	"eeat":       fieldEEAT,
	"e-e-a-t":    fieldEEAT,
	"expertise":  fieldEEAT,
	"eeat notes": fieldEEAT,

	"date":         fieldDate,
	"publish_date": fieldDate,
	"publish date": fieldDate,

	"time":         fieldTime,
	"publish_time": fieldTime,
	"publish time": fieldTime,

	"images":     fieldImages,
	"image":      fieldImages,
	"image urls": fieldImages,
}

// normalizeHeader lower-cases and collapses inner whitespace
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// mapHeader returns the column index of each recognized field. The first
// matching column wins; unknown columns are ignored.
func mapHeader(header []string) map[field]int {
	columns := make(map[field]int)
	for i, h := range header {
		f, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := columns[f]; !seen {
			columns[f] = i
		}
	}
	return columns
}
