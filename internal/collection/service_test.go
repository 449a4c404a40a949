package collection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

type stubResolver map[string]*cardref.Record

func (s stubResolver) Resolve(_ context.Context, q cardref.Query) (*cardref.Record, error) {
	if rec, ok := s[strings.ToLower(q.Name)]; ok {
		return rec, nil
	}
	return nil, cardref.ErrNotFound
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Dispatch(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturePublisher) ofType(t string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func bolt() *cardref.Record {
	p := 1.5
	return &cardref.Record{CardAttributes: models.CardAttributes{
		Name: "Lightning Bolt", Type: models.TypeSorcery, Colors: []string{"R"}, Price: &p,
	}}
}

func newTestService(t *testing.T, users auth.UserResolver) (*Service, *capturePublisher) {
	t.Helper()
	resolver := stubResolver{
		"island":         {CardAttributes: models.CardAttributes{Name: "Island", Type: models.TypeLand}},
		"lightning bolt": bolt(),
	}
	pub := &capturePublisher{}
	gateway := storage.NewGateway(storage.NewTestDB(t), users)
	return NewService(gateway, users, importer.NewPipeline(resolver, nil, 4), pub), pub
}

const exportCSV = `Quantity,Name,Set
4,Island,
1,Checklist Card - Foo,
2,Lightning Bolt,
1,Mystery Card,
`

func TestService_ImportCSV(t *testing.T) {
	svc, pub := newTestService(t, auth.StaticResolver{UserID: "u1"})
	ctx := context.Background()

	result, err := svc.Import(ctx, strings.NewReader(exportCSV), ImportOptions{Source: "export.csv", Format: FormatCSV})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ImportID)
	assert.Len(t, result.Cards, 2)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Unresolved)

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Island", cards[0].Identity)
	assert.Equal(t, 4, cards[0].QuantityOwned)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Size)
	assert.Equal(t, 3.0, summary.Value)
	assert.Equal(t, 1, summary.Unpriced)

	progress := pub.ofType(events.TypeImportProgress)
	require.Len(t, progress, 4)
	last, ok := events.GetTypedData[events.ImportProgressEvent](progress[3])
	require.True(t, ok)
	assert.Equal(t, 4, last.Processed)
	assert.Equal(t, "u1", progress[3].UserID)
	assert.Len(t, pub.ofType(events.TypeImportComplete), 1)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "export.csv", history[0].Source)
	assert.Equal(t, 2, history[0].Imported)
}

func TestService_ReimportIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, auth.StaticResolver{UserID: "u1"})
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader("Name,Quantity\nForest,1\nIsland,9\n"), ImportOptions{Format: FormatCSV})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Import(ctx, strings.NewReader(exportCSV), ImportOptions{Format: FormatCSV})
		require.NoError(t, err)
	}

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2, "Forest never resolved so only Island and Lightning Bolt are stored")
	assert.Equal(t, 4, cards[0].QuantityOwned, "re-import overwrites the stored quantity")
	assert.Equal(t, 2, cards[1].QuantityOwned)
}

func TestService_ImportTextList(t *testing.T) {
	svc, _ := newTestService(t, auth.StaticResolver{UserID: "u1"})
	ctx := context.Background()

	list := "**Burn Complete Card List | Standard**\n====\n4 Lightning Bolt\n2x Island\n"
	result, err := svc.Import(ctx, strings.NewReader(list), ImportOptions{Source: "burn.txt", Format: FormatForFile("burn.txt")})
	require.NoError(t, err)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, 4, result.Cards[0].QuantityOwned)
	assert.Equal(t, 2, result.Cards[1].QuantityOwned)
}

func TestService_ImportRejectsUnreadableUpload(t *testing.T) {
	svc, pub := newTestService(t, auth.StaticResolver{UserID: "u1"})
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(exportCSV), ImportOptions{Format: Format("xlsx")})
	assert.ErrorIs(t, err, ErrInvalidImport)

	_, err = svc.Import(ctx, iotest.ErrReader(errors.New("connection reset")), ImportOptions{Format: FormatCSV})
	assert.ErrorIs(t, err, ErrInvalidImport)

	assert.Empty(t, pub.ofType(events.TypeImportComplete))
	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestService_RefusesWithoutUser(t *testing.T) {
	svc, pub := newTestService(t, auth.StaticResolver{})
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(exportCSV), ImportOptions{Format: FormatCSV})
	assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
	assert.Empty(t, pub.ofType(events.TypeImportProgress), "nothing is resolved for an anonymous caller")

	_, err = svc.List(ctx)
	assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
}

func TestService_SetQuantityAndReplace(t *testing.T) {
	svc, _ := newTestService(t, auth.StaticResolver{UserID: "u1"})
	ctx := context.Background()

	_, err := svc.Replace(ctx, []*models.CollectionCard{
		{Identity: "Island", QuantityOwned: 2},
		{Identity: "island", Set: models.AnySet, QuantityOwned: 3},
		{Identity: "Lightning Bolt", Set: "m10", QuantityOwned: 1},
	})
	require.NoError(t, err)

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, 5, cards[0].QuantityOwned)

	card, err := svc.SetQuantity(ctx, "Lightning Bolt", "M10", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, card.QuantityOwned)

	cards, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2, "zero quantity keeps the card")
	assert.Equal(t, 0, cards[1].QuantityOwned)
	assert.Equal(t, "m10", cards[1].Set)

	_, err = svc.SetQuantity(ctx, "Forest", "", 1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.SetQuantity(ctx, "Island", "", -1)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = svc.Replace(ctx, []*models.CollectionCard{{Identity: "Island", QuantityOwned: -2}})
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
}

func TestFormatForFile(t *testing.T) {
	assert.Equal(t, FormatText, FormatForFile("deck.TXT"))
	assert.Equal(t, FormatCSV, FormatForFile("export.csv"))
	assert.Equal(t, FormatCSV, FormatForFile("export"))
}
