// Package sales records checkouts and cancellations at the register.
package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/state"
)

var (
	ErrEmptyOrder          = errors.New("order must have at least one item")
	ErrInvalidQuantity     = errors.New("item quantity must be positive")
	ErrInvalidPayment      = errors.New("unknown payment method")
	ErrNoActiveEvent       = errors.New("no active event selected")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyCancelled    = errors.New("transaction is already cancelled")
)

type Service struct {
	state *state.State
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(st *state.State, log logrus.FieldLogger) *Service {
	return &Service{state: st, log: log, now: time.Now}
}

// Transactions returns every recorded transaction, cancelled ones included.
func (s *Service) Transactions() []domain.Transaction {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.Transactions.Get()
}

// Checkout records a COMPLETED transaction for the active event. The items
// are stored as given (they are snapshots of the catalog at order time); the
// total is always recomputed as Σ price×quantity.
func (s *Service) Checkout(ctx context.Context, items []domain.OrderItem, method domain.PaymentMethod) (*domain.Transaction, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !method.Valid() {
		return nil, ErrInvalidPayment
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	s.state.Lock()
	defer s.state.Unlock()

	active := s.state.ActiveEventID.Get()
	if active == nil {
		return nil, ErrNoActiveEvent
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tx := domain.Transaction{
		ID:            uuid.New().String(),
		Items:         items,
		Total:         total,
		PaymentMethod: method,
		Date:          s.now().UTC().Format(time.RFC3339),
		EventID:       *active,
		Status:        domain.StatusCompleted,
	}

	txs := append(s.state.Transactions.Get(), tx)
	if err := s.state.Transactions.Set(ctx, txs); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Cancel flips a transaction to CANCELLED. The transition is one-way: a
// cancelled transaction stays in the list with its items and total intact
// and is never deleted or reinstated.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.state.Lock()
	defer s.state.Unlock()

	txs := s.state.Transactions.Get()
	updated := make([]domain.Transaction, 0, len(txs))
	found := false
	for _, tx := range txs {
		if tx.ID == id {
			if tx.Status == domain.StatusCancelled {
				return ErrAlreadyCancelled
			}
			tx.Status = domain.StatusCancelled
			found = true
		}
		updated = append(updated, tx)
	}
	if !found {
		return ErrTransactionNotFound
	}
	return s.state.Transactions.Set(ctx, updated)
}
