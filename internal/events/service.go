// Package events manages the occasions sales are tracked under: the event
// list, the per-event sellable product sets, and the single active selection.
package events

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/state"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidName   = errors.New("name is required")
	ErrInvalidDate   = errors.New("date is required")
)

type Service struct {
	state *state.State
	log   logrus.FieldLogger
}

func NewService(st *state.State, log logrus.FieldLogger) *Service {
	return &Service{state: st, log: log}
}

// Events returns all events in insertion order.
func (s *Service) Events() []domain.Event {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.Events.Get()
}

// Create adds an event and initializes its assignment entry to the empty set.
func (s *Service) Create(ctx context.Context, name, date string) (*domain.Event, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if strings.TrimSpace(date) == "" {
		return nil, ErrInvalidDate
	}

	s.state.Lock()
	defer s.state.Unlock()

	ev := domain.Event{ID: uuid.New().String(), Name: name, Date: date}
	evs := append(s.state.Events.Get(), ev)
	if err := s.state.Events.Set(ctx, evs); err != nil {
		return nil, err
	}

	ep := copyAssignments(s.state.EventProducts.Get())
	ep[ev.ID] = []string{}
	if err := s.state.EventProducts.Set(ctx, ep); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Delete removes the event, its assignment entry, and clears the active
// selection when it pointed at the deleted event. Transactions tagged with
// the event id stay behind, orphaned; that inconsistency is accepted and
// tolerated by every consumer.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.state.Lock()
	defer s.state.Unlock()

	evs := s.state.Events.Get()
	remaining := make([]domain.Event, 0, len(evs))
	found := false
	for _, e := range evs {
		if e.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return ErrEventNotFound
	}
	if err := s.state.Events.Set(ctx, remaining); err != nil {
		return err
	}

	if active := s.state.ActiveEventID.Get(); active != nil && *active == id {
		if err := s.state.ActiveEventID.Set(ctx, nil); err != nil {
			return err
		}
	}

	ep := copyAssignments(s.state.EventProducts.Get())
	delete(ep, id)
	return s.state.EventProducts.Set(ctx, ep)
}

// AssignProducts replaces the event's sellable product id set. Ids of
// products deleted later go stale in place and are filtered at read time.
func (s *Service) AssignProducts(ctx context.Context, eventID string, productIDs []string) error {
	s.state.Lock()
	defer s.state.Unlock()

	if !s.eventExists(eventID) {
		return ErrEventNotFound
	}
	if productIDs == nil {
		productIDs = []string{}
	}
	ep := copyAssignments(s.state.EventProducts.Get())
	ep[eventID] = productIDs
	return s.state.EventProducts.Set(ctx, ep)
}

// AssignedProducts returns the assignment set for an event, empty when the
// event has no entry.
func (s *Service) AssignedProducts(eventID string) []string {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.EventProducts.Get()[eventID]
}

// SetActive selects the active event; nil clears the selection.
func (s *Service) SetActive(ctx context.Context, id *string) error {
	s.state.Lock()
	defer s.state.Unlock()

	if id != nil && !s.eventExists(*id) {
		return ErrEventNotFound
	}
	return s.state.ActiveEventID.Set(ctx, id)
}

// ActiveID returns the active event id, nil when none is selected.
func (s *Service) ActiveID() *string {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.ActiveEventID.Get()
}

// Active resolves the active event, nil when none is selected or the
// selection dangles.
func (s *Service) Active() *domain.Event {
	s.state.Lock()
	defer s.state.Unlock()

	id := s.state.ActiveEventID.Get()
	if id == nil {
		return nil
	}
	for _, e := range s.state.Events.Get() {
		if e.ID == *id {
			ev := e
			return &ev
		}
	}
	return nil
}

func (s *Service) eventExists(id string) bool {
	for _, e := range s.state.Events.Get() {
		if e.ID == id {
			return true
		}
	}
	return false
}

func copyAssignments(ep map[string][]string) map[string][]string {
	cp := make(map[string][]string, len(ep))
	for k, v := range ep {
		cp[k] = v
	}
	return cp
}
