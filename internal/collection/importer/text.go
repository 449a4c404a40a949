package importer

import (
	"strconv"

	"github.com/ramonehamilton/MTG-Collection/internal/decklist"
)

// EntryRows turns plain-text list entries into pipeline rows.
func EntryRows(entries []decklist.Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, NewRow(map[string]string{
			"Name":     e.Name,
			"Quantity": strconv.Itoa(e.Quantity),
		}))
	}
	return rows
}
