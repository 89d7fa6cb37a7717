// Package export renders tabular listings to CSV and PDF.
package export

// Column describes one exported field. Weight sizes the PDF column relative
// to its siblings; zero counts as one.
type Column struct {
	Key    string
	Header string
	Weight float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Headers returns the column headers in order.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		headers[i] = c.Header
	}
	return headers
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		record[i] = row[c.Key]
	}
	return record
}
