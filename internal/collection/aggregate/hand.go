package aggregate

import (
	"math/rand/v2"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// HandSize is the number of cards in an opening hand.
const HandSize = 7

// DrawOpeningHand expands the deck into one entry per needed copy, shuffles
// and returns the top HandSize cards, or fewer when the deck is smaller.
// rng may be nil to use the global source.
func DrawOpeningHand(deck *models.Deck, rng *rand.Rand) []*models.DeckCard {
	if deck == nil {
		return []*models.DeckCard{}
	}

	size := TotalNeeded(deck.Cards)
	if size < 0 {
		size = 0
	}

	library := make([]*models.DeckCard, 0, size)
	for _, c := range deck.Cards {
		if c == nil {
			continue
		}
		for i := 0; i < c.QuantityNeeded; i++ {
			library = append(library, c)
		}
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(library), func(i, j int) {
		library[i], library[j] = library[j], library[i]
	})

	if len(library) > HandSize {
		library = library[:HandSize]
	}
	return library
}
