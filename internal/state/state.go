// Package state assembles the six persisted cells into one explicit
// application-state object. Every service receives a *State rather than
// reaching for hidden globals; the embedded mutex serializes mutations the
// way the original single register tab did.
package state

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/storage"
)

// Storage keys. These names are an external contract: any compatible
// import/export tool addresses the same cells.
const (
	KeyCategories    = "pos-categories"
	KeyProducts      = "pos-products"
	KeyTransactions  = "pos-transactions"
	KeyEvents        = "pos-events"
	KeyActiveEventID = "pos-active-event-id"
	KeyEventProducts = "pos-event-products"
)

// State owns the six cells. Mutating callers hold Lock for the whole
// read-modify-write; related writes go behind a single method so partial
// application is only possible on a crash, never on interleaving.
type State struct {
	mu sync.Mutex

	Categories    *storage.Cell[[]domain.Category]
	Products      *storage.Cell[[]domain.Product]
	Transactions  *storage.Cell[[]domain.Transaction]
	Events        *storage.Cell[[]domain.Event]
	ActiveEventID *storage.Cell[*string]
	EventProducts *storage.Cell[map[string][]string]
}

// New binds the cells to the store, seeding the original default catalog
// into a fresh store.
func New(ctx context.Context, store storage.Store, log logrus.FieldLogger) *State {
	return &State{
		Categories:    storage.NewCell(ctx, store, KeyCategories, defaultCategories(), log),
		Products:      storage.NewCell(ctx, store, KeyProducts, defaultProducts(), log),
		Transactions:  storage.NewCell(ctx, store, KeyTransactions, []domain.Transaction{}, log),
		Events:        storage.NewCell(ctx, store, KeyEvents, []domain.Event{}, log),
		ActiveEventID: storage.NewCell[*string](ctx, store, KeyActiveEventID, nil, log),
		EventProducts: storage.NewCell(ctx, store, KeyEventProducts, map[string][]string{}, log),
	}
}

func (s *State) Lock()   { s.mu.Lock() }
func (s *State) Unlock() { s.mu.Unlock() }

// Snapshot copies the current value of every cell into a backup envelope.
// Callers must hold the lock.
func (s *State) Snapshot() domain.Backup {
	return domain.Backup{
		Categories:    s.Categories.Get(),
		Products:      s.Products.Get(),
		Transactions:  s.Transactions.Get(),
		Events:        s.Events.Get(),
		ActiveEventID: s.ActiveEventID.Get(),
		EventProducts: s.EventProducts.Get(),
	}
}

// Replace overwrites every cell with the envelope's values. The six writes
// are sequential; a crash mid-way can leave the cells mixed between old and
// new state, which is why callers force a full reload afterwards. Callers
// must hold the lock.
func (s *State) Replace(ctx context.Context, b domain.Backup) error {
	if err := s.Categories.Set(ctx, b.Categories); err != nil {
		return err
	}
	if err := s.Products.Set(ctx, b.Products); err != nil {
		return err
	}
	if err := s.Events.Set(ctx, b.Events); err != nil {
		return err
	}
	if err := s.Transactions.Set(ctx, b.Transactions); err != nil {
		return err
	}
	if err := s.ActiveEventID.Set(ctx, b.ActiveEventID); err != nil {
		return err
	}
	return s.EventProducts.Set(ctx, b.EventProducts)
}

func defaultCategories() []domain.Category {
	return []domain.Category{
		{ID: "1", Name: "Getränke"},
		{ID: "2", Name: "Speisen"},
	}
}

func defaultProducts() []domain.Product {
	return []domain.Product{
		{ID: "101", Name: "Wasser", Price: decimal.NewFromFloat(2.00), CategoryID: "1"},
		{ID: "102", Name: "Cola", Price: decimal.NewFromFloat(2.50), CategoryID: "1"},
		{ID: "103", Name: "Bier", Price: decimal.NewFromFloat(3.50), CategoryID: "1"},
		{ID: "201", Name: "Wurst", Price: decimal.NewFromFloat(4.00), CategoryID: "2"},
		{ID: "202", Name: "Pommes", Price: decimal.NewFromFloat(3.00), CategoryID: "2"},
	}
}
