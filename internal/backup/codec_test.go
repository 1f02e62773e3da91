package backup

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/state"
	"github.com/example/vereinskasse/internal/storage"
)

func newTestCodec(t *testing.T) (*Codec, *state.State) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := state.New(context.Background(), storage.NewMemoryStore(), log)
	return NewCodec(log), st
}

func TestCodec_Export_FilenameCarriesDate(t *testing.T) {
	codec, st := newTestCodec(t)
	codec.now = func() time.Time {
		return time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	}

	_, filename := codec.Export(st)

	assert.Equal(t, "vereinskasse-backup-2026-08-30.json", filename)
}

func TestCodec_ExportImportRoundTrip(t *testing.T) {
	codec, st := newTestCodec(t)
	ctx := context.Background()

	// Mutate away from the seed state first.
	active := "e1"
	st.Lock()
	require.NoError(t, st.Events.Set(ctx, []domain.Event{{ID: "e1", Name: "Sommerfest", Date: "2026-07-04"}}))
	require.NoError(t, st.ActiveEventID.Set(ctx, &active))
	require.NoError(t, st.EventProducts.Set(ctx, map[string][]string{"e1": {"101", "103"}}))
	require.NoError(t, st.Transactions.Set(ctx, []domain.Transaction{{
		ID:            "t1",
		Items:         []domain.OrderItem{{ProductID: "101", Name: "Wasser", Price: decimal.NewFromFloat(2.00), Quantity: 2}},
		Total:         decimal.NewFromFloat(4.00),
		PaymentMethod: domain.PaymentCash,
		Date:          "2026-07-04T18:30:00Z",
		EventID:       "e1",
		Status:        domain.StatusCompleted,
	}}))
	st.Unlock()

	envelope, _ := codec.Export(st)
	doc, err := json.Marshal(envelope)
	require.NoError(t, err)

	// Import into a second, fresh state.
	log := logrus.New()
	log.SetOutput(io.Discard)
	other := state.New(ctx, storage.NewMemoryStore(), log)
	require.NoError(t, codec.Import(ctx, other, doc))

	other.Lock()
	restored := other.Snapshot()
	other.Unlock()

	assert.Len(t, restored.Categories, 2)
	assert.Len(t, restored.Products, 5)
	require.Len(t, restored.Transactions, 1)
	assert.True(t, restored.Transactions[0].Total.Equal(decimal.NewFromFloat(4.00)))
	require.NotNil(t, restored.ActiveEventID)
	assert.Equal(t, "e1", *restored.ActiveEventID)
	assert.Equal(t, []string{"101", "103"}, restored.EventProducts["e1"])
}

func TestCodec_Import_MissingFieldRejected(t *testing.T) {
	codec, st := newTestCodec(t)

	// No transactions key at all.
	doc := []byte(`{
		"categories": [], "products": [], "events": [],
		"eventProducts": {}, "activeEventId": null
	}`)

	err := codec.Import(context.Background(), st, doc)

	assert.ErrorIs(t, err, ErrMissingField)
	// The state keeps its seed catalog untouched.
	st.Lock()
	defer st.Unlock()
	assert.Len(t, st.Categories.Get(), 2)
}

func TestCodec_Import_NullCollectionRejected(t *testing.T) {
	codec, st := newTestCodec(t)

	doc := []byte(`{
		"categories": null, "products": [], "events": [],
		"transactions": [], "eventProducts": {}, "activeEventId": null
	}`)

	err := codec.Import(context.Background(), st, doc)

	assert.ErrorIs(t, err, ErrMissingField)
}

func TestCodec_Import_NullActiveEventAndAssignmentsAccepted(t *testing.T) {
	codec, st := newTestCodec(t)

	doc := []byte(`{
		"categories": [], "products": [], "events": [],
		"transactions": [], "eventProducts": null, "activeEventId": null
	}`)

	require.NoError(t, codec.Import(context.Background(), st, doc))

	st.Lock()
	defer st.Unlock()
	assert.Nil(t, st.ActiveEventID.Get())
	assert.Empty(t, st.Categories.Get())
}

func TestCodec_Import_MalformedJSON(t *testing.T) {
	codec, st := newTestCodec(t)

	err := codec.Import(context.Background(), st, []byte(`{truncated`))

	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestCodec_Import_NonObjectDocument(t *testing.T) {
	codec, st := newTestCodec(t)

	err := codec.Import(context.Background(), st, []byte(`[1,2,3]`))

	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestCodec_Import_DanglingReferencesTolerated(t *testing.T) {
	codec, st := newTestCodec(t)

	// Products referencing a missing category, an orphaned transaction and a
	// dangling active id are warnings, never errors.
	doc := []byte(`{
		"categories": [],
		"products": [{"id":"p1","name":"Bier","price":3.5,"categoryId":"missing"}],
		"events": [],
		"transactions": [{"id":"t1","items":[],"total":0,"paymentMethod":"Bar","date":"2026-07-04T18:30:00Z","eventId":"ghost","status":"COMPLETED"}],
		"eventProducts": {"ghost":["p1","gone"]},
		"activeEventId": "ghost"
	}`)

	require.NoError(t, codec.Import(context.Background(), st, doc))

	st.Lock()
	defer st.Unlock()
	require.NotNil(t, st.ActiveEventID.Get())
	assert.Equal(t, "ghost", *st.ActiveEventID.Get())
	assert.Len(t, st.Products.Get(), 1)
}
