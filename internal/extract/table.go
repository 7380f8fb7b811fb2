package extract

import (
	"fmt"

	"github.com/nao1215/packmap/internal/model"
)

// Cell is one table cell.
type Cell struct {
	// Text is the whitespace-normalised text content of the cell.
	Text string

	// Header is true for <th> cells.
	Header bool
}

// Row is one table row.
type Row []Cell

// IsHeader reports whether every cell of the row is a header cell.
// An empty row is not a header row.
func (r Row) IsHeader() bool {
	if len(r) == 0 {
		return false
	}
	for _, c := range r {
		if !c.Header {
			return false
		}
	}
	return true
}

// Texts returns the text of every cell.
func (r Row) Texts() []string {
	texts := make([]string, len(r))
	for i, c := range r {
		texts[i] = c.Text
	}
	return texts
}

// Extract converts table rows into records.
//
// A header row replaces the current header vector; tables that repeat their
// header keep working because the last header row wins. A data row is zipped
// against the current header by position: header positions beyond the row's
// cell count get an empty value and cells beyond the header length are
// dropped. Rows without cells are skipped. A table with a header but no data
// rows yields ErrNoRows.
func Extract(rows []Row) ([]model.RawRecord, error) {
	if len(rows) == 0 {
		return nil, ErrNoTable
	}

	var header []string
	records := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if row.IsHeader() {
			header = row.Texts()
			continue
		}
		if header == nil {
			return nil, fmt.Errorf("%w: row %d", ErrNoHeader, i)
		}

		record := make(model.RawRecord, len(header))
		for j, name := range header {
			if j < len(row) {
				record[name] = row[j].Text
			} else if _, ok := record[name]; !ok {
				record[name] = ""
			}
		}
		records = append(records, record)
	}

	if header == nil {
		return nil, ErrNoTable
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}
