// Package decklist reads and writes the plain-text "Complete Card List"
// deck format.
package decklist

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// StillNeededHeader opens the missing-cards section of an export. Parsing
// stops there.
const StillNeededHeader = "**The Following Cards Are Still Needed**"

var (
	// "4 Lightning Bolt", "4x Lightning Bolt" or "4X Lightning Bolt"
	cardLine = regexp.MustCompile(`^(\d+)[xX]?\s+(\S.*)$`)

	// "**Burn Complete Card List | Standard**"
	headerLine = regexp.MustCompile(`^\*\*(.*) Complete Card List \| ([^*]+)\*\*$`)
)

// Entry is one captured card line.
type Entry struct {
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// Header is the deck name and format from an export's first line.
type Header struct {
	Name   string        `json:"name"`
	Format models.Format `json:"format"`
}

// Parse captures card lines in order until the still-needed section.
// Lines that are not "<count> <name>" with a positive count are skipped.
func Parse(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, StillNeededHeader) {
			break
		}

		matches := cardLine.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		quantity, err := strconv.Atoi(matches[1])
		if err != nil || quantity <= 0 {
			continue
		}

		name := strings.TrimSpace(matches[2])
		if name == "" {
			continue
		}

		entries = append(entries, Entry{Quantity: quantity, Name: name})
	}

	return entries
}

// ParseHeader reads the deck name and format from an export header line.
// An unknown format leaves Format empty.
func ParseHeader(line string) (Header, bool) {
	matches := headerLine.FindStringSubmatch(strings.TrimSpace(line))
	if matches == nil {
		return Header{}, false
	}

	header := Header{Name: strings.TrimSpace(matches[1])}
	if format, err := models.ParseFormat(matches[2]); err == nil {
		header.Format = format
	}
	return header, true
}

// Read splits r into lines, returning the header if the first non-blank
// line is one, and the captured entries.
func Read(r io.Reader) (*Header, []Entry, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	var header *Header
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if h, ok := ParseHeader(line); ok {
			header = &h
		}
		break
	}

	return header, Parse(lines), nil
}
