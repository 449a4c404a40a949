package decklist

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// Export renders deck in the Complete Card List format. Cards short of
// their needed quantity are listed again in a still-needed section, which
// is omitted when nothing is missing.
func Export(deck *models.Deck) string {
	if deck == nil {
		return ""
	}

	var sb strings.Builder

	writeHeading(&sb, fmt.Sprintf("**%s Complete Card List | %s**", deck.Name, deck.Format))
	for _, card := range deck.Cards {
		if card.QuantityNeeded <= 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d %s\n", card.QuantityNeeded, cardName(card)))
	}

	var missing []string
	for _, card := range deck.Cards {
		if short := card.QuantityNeeded - card.QuantityOwned; short > 0 {
			missing = append(missing, fmt.Sprintf("%dx %s\n", short, cardName(card)))
		}
	}

	if len(missing) > 0 {
		sb.WriteString("\n")
		writeHeading(&sb, StillNeededHeader)
		for _, line := range missing {
			sb.WriteString(line)
		}
	}

	return sb.String()
}

// Filename suggests a download name for deck's export.
func Filename(deck *models.Deck) string {
	name := "deck"
	if deck != nil {
		name = sanitizeFilename(deck.Name)
	}
	return name + ".txt"
}

func writeHeading(sb *strings.Builder, heading string) {
	sb.WriteString(heading)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", utf8.RuneCountInString(heading)))
	sb.WriteString("\n")
}

func cardName(card *models.DeckCard) string {
	if card.Name != "" {
		return card.Name
	}
	return card.Identity
}

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if utf8.RuneCountInString(result) > 100 {
		result = string([]rune(result)[:100])
	}
	if result == "" {
		result = "deck"
	}
	return result
}
