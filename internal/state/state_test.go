package state

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/storage"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNew_FreshStoreGetsSeedCatalog(t *testing.T) {
	st := New(context.Background(), storage.NewMemoryStore(), testLogger())

	cats := st.Categories.Get()
	require.Len(t, cats, 2)
	assert.Equal(t, "Getränke", cats[0].Name)
	assert.Equal(t, "Speisen", cats[1].Name)

	prods := st.Products.Get()
	require.Len(t, prods, 5)
	assert.Equal(t, "Wasser", prods[0].Name)
	assert.True(t, prods[0].Price.Equal(decimal.NewFromFloat(2.00)))
	assert.Equal(t, "1", prods[0].CategoryID)
	assert.Equal(t, "Pommes", prods[4].Name)
	assert.Equal(t, "2", prods[4].CategoryID)

	assert.Empty(t, st.Transactions.Get())
	assert.Empty(t, st.Events.Get())
	assert.Nil(t, st.ActiveEventID.Get())
	assert.Empty(t, st.EventProducts.Get())
}

func TestNew_ExistingStoreIsNotReseeded(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, KeyCategories, []byte(`[{"id":"c1","name":"Tombola"}]`)))

	st := New(ctx, store, testLogger())

	cats := st.Categories.Get()
	require.Len(t, cats, 1)
	assert.Equal(t, "Tombola", cats[0].Name)
}

func TestState_ReplaceThenSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := New(ctx, storage.NewMemoryStore(), testLogger())

	active := "e1"
	b := domain.Backup{
		Categories:    []domain.Category{{ID: "c1", Name: "Getränke"}},
		Products:      []domain.Product{{ID: "p1", Name: "Bier", Price: decimal.NewFromFloat(3.50), CategoryID: "c1"}},
		Transactions:  []domain.Transaction{},
		Events:        []domain.Event{{ID: "e1", Name: "Sommerfest", Date: "2026-07-04"}},
		ActiveEventID: &active,
		EventProducts: map[string][]string{"e1": {"p1"}},
	}

	st.Lock()
	require.NoError(t, st.Replace(ctx, b))
	snapshot := st.Snapshot()
	st.Unlock()

	assert.Equal(t, b.Categories, snapshot.Categories)
	assert.Equal(t, b.Products, snapshot.Products)
	assert.Equal(t, b.Events, snapshot.Events)
	assert.Equal(t, b.EventProducts, snapshot.EventProducts)
	require.NotNil(t, snapshot.ActiveEventID)
	assert.Equal(t, "e1", *snapshot.ActiveEventID)
}

func TestState_ReplacePersistsEveryCell(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	st := New(ctx, store, testLogger())

	st.Lock()
	err := st.Replace(ctx, domain.Backup{
		Categories:    []domain.Category{},
		Products:      []domain.Product{},
		Transactions:  []domain.Transaction{},
		Events:        []domain.Event{{ID: "e1", Name: "Flohmarkt", Date: "2026-05-01"}},
		ActiveEventID: nil,
		EventProducts: map[string][]string{"e1": {}},
	})
	st.Unlock()
	require.NoError(t, err)

	// A fresh state over the same store must see the replaced values, not
	// the seed catalog.
	reopened := New(ctx, store, testLogger())
	assert.Empty(t, reopened.Categories.Get())
	assert.Empty(t, reopened.Products.Get())
	require.Len(t, reopened.Events.Get(), 1)
	assert.Equal(t, "Flohmarkt", reopened.Events.Get()[0].Name)
}
