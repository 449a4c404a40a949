package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column aliases, in the order they are tried. The retailer export has
// renamed most of these over time.
var (
	NameColumns      = []string{"Name", "Product Name"}
	SetNameColumns   = []string{"Set", "Set Name"}
	SetCodeColumns   = []string{"Set Code"}
	QuantityColumns  = []string{"Quantity", "Add to Quantity"}
	ProductIDColumns = []string{"Product ID", "TCGplayer Id"}
	RarityColumns    = []string{"Rarity"}
	NumberColumns    = []string{"Number", "Card Number"}
	FoilColumns      = []string{"Foil", "Printing"}
)

// Row is one input record keyed by lowercased column name.
type Row map[string]string

// NewRow builds a Row from column/value pairs.
func NewRow(fields map[string]string) Row {
	row := make(Row, len(fields))
	for k, v := range fields {
		row[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return row
}

// Get returns the first non-empty value among the given column aliases.
func (r Row) Get(columns ...string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(r[strings.ToLower(col)]); v != "" {
			return v
		}
	}
	return ""
}

// Name returns the card name column.
func (r Row) Name() string { return r.Get(NameColumns...) }

// SetName returns the set display name column.
func (r Row) SetName() string { return r.Get(SetNameColumns...) }

// SetCode returns the set code column, which newer exports omit.
func (r Row) SetCode() string { return r.Get(SetCodeColumns...) }

// ProductID returns the retailer product id.
func (r Row) ProductID() string { return r.Get(ProductIDColumns...) }

// ReadCSV reads a header row followed by records. Rows may be shorter or
// longer than the header; missing cells read as empty and extra cells are
// dropped. Empty input yields no rows.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		if isBlank(record) {
			continue
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" || i >= len(record) {
				continue
			}
			if _, seen := row[col]; !seen {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
