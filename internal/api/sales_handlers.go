package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/vereinskasse/internal/catalog"
	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/events"
	"github.com/example/vereinskasse/internal/report"
	"github.com/example/vereinskasse/internal/sales"
)

// SalesHandlers serves order entry, the transaction list, and the revenue
// report, all scoped to the active event.
type SalesHandlers struct {
	salesService   *sales.Service
	eventService   *events.Service
	catalogService *catalog.Service
}

func NewSalesHandlers(salesService *sales.Service, eventService *events.Service, catalogService *catalog.Service) *SalesHandlers {
	return &SalesHandlers{
		salesService:   salesService,
		eventService:   eventService,
		catalogService: catalogService,
	}
}

type CheckoutRequest struct {
	Items         []domain.OrderItem   `json:"items"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

func (h *SalesHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.salesService.Checkout(r.Context(), req.Items, req.PaymentMethod)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// GetTransactions lists the active event's transactions, cancelled ones
// included; ?all=true returns the raw unscoped list.
func (h *SalesHandlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.salesService.Transactions()
	if r.URL.Query().Get("all") == "true" {
		respondJSON(w, http.StatusOK, txs)
		return
	}
	respondJSON(w, http.StatusOK, report.TransactionsForEvent(h.eventService.ActiveID(), txs))
}

func (h *SalesHandlers) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/transactions/"), "/cancel")

	if err := h.salesService.Cancel(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Transaction cancelled"})
}

// GetReport computes the revenue summary over the active event's completed
// transactions.
func (h *SalesHandlers) GetReport(w http.ResponseWriter, r *http.Request) {
	activeID := h.eventService.ActiveID()
	scoped := report.TransactionsForEvent(activeID, h.salesService.Transactions())
	completed := report.CompletedOnly(scoped)
	summary := report.Summarize(completed, h.catalogService.Products(), h.catalogService.Categories())

	respondJSON(w, http.StatusOK, map[string]any{
		"event":   h.eventService.Active(),
		"summary": summary,
	})
}
