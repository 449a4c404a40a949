package decklist

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []Entry
	}{
		{
			name:  "plain and x counts",
			lines: []string{"4 Lightning Bolt", "2x Shock", "20 Mountain"},
			want: []Entry{
				{Quantity: 4, Name: "Lightning Bolt"},
				{Quantity: 2, Name: "Shock"},
				{Quantity: 20, Name: "Mountain"},
			},
		},
		{
			name:  "uppercase x counts",
			lines: []string{"4X Lightning Bolt", "1X Shock"},
			want: []Entry{
				{Quantity: 4, Name: "Lightning Bolt"},
				{Quantity: 1, Name: "Shock"},
			},
		},
		{
			name: "skips header, underline and malformed lines",
			lines: []string{
				"**Burn Complete Card List | Standard**",
				"======================================",
				"Lightning Bolt",
				"x4 Shock",
				"0 Mountain",
				"",
				"  3 Lava Spike  ",
			},
			want: []Entry{{Quantity: 3, Name: "Lava Spike"}},
		},
		{
			name: "stops at still needed section",
			lines: []string{
				"4 Lightning Bolt",
				"",
				StillNeededHeader,
				"========================================",
				"2x Lightning Bolt",
			},
			want: []Entry{{Quantity: 4, Name: "Lightning Bolt"}},
		},
		{
			name:  "numeric card names",
			lines: []string{"1 1996 World Champion"},
			want:  []Entry{{Quantity: 1, Name: "1996 World Champion"}},
		},
		{
			name:  "empty",
			lines: nil,
			want:  []Entry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		line   string
		want   Header
		wantOK bool
	}{
		{"**Burn Complete Card List | Standard**", Header{Name: "Burn", Format: models.FormatStandard}, true},
		{"**My Big Deck Complete Card List | commander**", Header{Name: "My Big Deck", Format: models.FormatCommander}, true},
		{"**Odd Complete Card List | Vintage**", Header{Name: "Odd"}, true},
		{"4 Lightning Bolt", Header{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseHeader(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseHeader() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func testDeck() *models.Deck {
	return &models.Deck{
		Name:   "Burn",
		Format: models.FormatStandard,
		Cards: []*models.DeckCard{
			{Identity: "Lightning Bolt", CardAttributes: models.CardAttributes{Name: "Lightning Bolt"}, QuantityNeeded: 4, QuantityOwned: 2},
			{Identity: "Mountain", QuantityNeeded: 20, QuantityOwned: 25},
		},
	}
}

func TestExport(t *testing.T) {
	got := Export(testDeck())

	want := strings.Join([]string{
		"**Burn Complete Card List | Standard**",
		"======================================",
		"4 Lightning Bolt",
		"20 Mountain",
		"",
		"**The Following Cards Are Still Needed**",
		"========================================",
		"2x Lightning Bolt",
		"",
	}, "\n")

	if got != want {
		t.Errorf("Export() =\n%s\nwant\n%s", got, want)
	}
}

func TestExport_NothingMissing(t *testing.T) {
	deck := testDeck()
	deck.Cards[0].QuantityOwned = 4

	got := Export(deck)
	if strings.Contains(got, StillNeededHeader) {
		t.Errorf("expected no still-needed section, got:\n%s", got)
	}
}

func TestExportThenRead(t *testing.T) {
	header, entries, err := Read(strings.NewReader(Export(testDeck())))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if header == nil || header.Name != "Burn" || header.Format != models.FormatStandard {
		t.Errorf("unexpected header %+v", header)
	}

	want := []Entry{{Quantity: 4, Name: "Lightning Bolt"}, {Quantity: 20, Name: "Mountain"}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		deck *models.Deck
		want string
	}{
		{"plain", &models.Deck{Name: "Burn"}, "Burn.txt"},
		{"invalid characters", &models.Deck{Name: "Mono/Red: \"Fast\""}, "Mono_Red_ _Fast_.txt"},
		{"empty", &models.Deck{Name: "  "}, "deck.txt"},
		{"nil", nil, "deck.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.deck); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}
