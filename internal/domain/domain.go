// Package domain holds the entity schema shared by every service: the
// catalog (categories, products), events with their sellable product sets,
// recorded transactions, and the backup envelope that snapshots all of it.
package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices and totals are plain JSON numbers in the persisted cells and in
	// backup files, matching the established backup format.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentMethod is the tender used at checkout. The wire values are the
// German display strings the register has always stored.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "Bar"
	PaymentCard PaymentMethod = "Karte"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

// TransactionStatus is the lifecycle state of a recorded transaction.
// COMPLETED transactions may transition to CANCELLED, never back, and
// transactions are never deleted.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId"`
	// Image is an optional base64 data URL.
	Image string `json:"image,omitempty"`
}

// Event is one occasion (a festival, a club night) at which sales occur.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// OrderItem is a denormalized snapshot of a product at the moment it was
// added to an order, so later catalog edits never alter recorded sales.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Transaction struct {
	ID            string            `json:"id"`
	Items         []OrderItem       `json:"items"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Date          string            `json:"date"`
	EventID       string            `json:"eventId"`
	Status        TransactionStatus `json:"status"`
}

// Backup is the complete, self-contained snapshot of all persisted state.
// It is both the export output and the required import input format.
type Backup struct {
	Categories    []Category          `json:"categories"`
	Products      []Product           `json:"products"`
	Transactions  []Transaction       `json:"transactions"`
	Events        []Event             `json:"events"`
	ActiveEventID *string             `json:"activeEventId"`
	EventProducts map[string][]string `json:"eventProducts"`
}
