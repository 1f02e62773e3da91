package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/vereinskasse/internal/catalog"
	"github.com/example/vereinskasse/internal/events"
	"github.com/example/vereinskasse/internal/report"
	"github.com/example/vereinskasse/internal/state"
)

// EventHandlers serves event administration, product assignment, the active
// event selection, and the event-scoped catalog.
type EventHandlers struct {
	eventService   *events.Service
	catalogService *catalog.Service
	state          *state.State
}

func NewEventHandlers(eventService *events.Service, catalogService *catalog.Service, st *state.State) *EventHandlers {
	return &EventHandlers{
		eventService:   eventService,
		catalogService: catalogService,
		state:          st,
	}
}

type CreateEventRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type AssignProductsRequest struct {
	ProductIDs []string `json:"productIds"`
}

type ActiveEventRequest struct {
	EventID *string `json:"eventId"`
}

func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.eventService.Events())
}

func (h *EventHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := h.eventService.Create(r.Context(), req.Name, req.Date)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ev)
}

func (h *EventHandlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/events/")

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

func (h *EventHandlers) GetAssignedProducts(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/events/"), "/products")

	ids := h.eventService.AssignedProducts(id)
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, ids)
}

func (h *EventHandlers) AssignProducts(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/events/"), "/products")

	var req AssignProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.eventService.AssignProducts(r.Context(), id, req.ProductIDs); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Products assigned"})
}

func (h *EventHandlers) GetActiveEvent(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"eventId": h.eventService.ActiveID(),
		"event":   h.eventService.Active(),
	})
}

func (h *EventHandlers) SetActiveEvent(w http.ResponseWriter, r *http.Request) {
	var req ActiveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.eventService.SetActive(r.Context(), req.EventID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Active event updated"})
}

// GetEventCatalog returns the products and categories sellable at the
// active event; both are empty when no event is active.
func (h *EventHandlers) GetEventCatalog(w http.ResponseWriter, r *http.Request) {
	h.state.Lock()
	snap := h.state.Snapshot()
	h.state.Unlock()

	products, categories := report.EventCatalog(snap.ActiveEventID, snap.EventProducts, snap.Products, snap.Categories)
	respondJSON(w, http.StatusOK, map[string]any{
		"products":   products,
		"categories": categories,
		"event":      h.eventService.Active(),
	})
}
