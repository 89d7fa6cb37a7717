package models

import "strings"

// ExportFormat enumerates supported listing export formats.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ParseExportFormat resolves a format name, defaulting to CSV when blank.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return ExportCSV, true
	case ExportCSV, ExportPDF:
		return f, true
	default:
		return "", false
	}
}
