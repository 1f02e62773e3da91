// Package report holds the pure derivation functions computed over state
// snapshots: the event-scoped catalog, transaction filtering, and the revenue
// summary. Nothing here mutates state or touches storage.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/example/vereinskasse/internal/domain"
)

// EventCatalog filters the catalog down to what is sellable at the active
// event. With no active event or no assignment entry both results are empty.
// Products keep catalog order, not assignment-set order; categories are kept
// only while at least one surviving product references them. Stale product
// ids in the assignment set are silently dropped.
func EventCatalog(activeEventID *string, eventProducts map[string][]string, products []domain.Product, categories []domain.Category) ([]domain.Product, []domain.Category) {
	if activeEventID == nil {
		return []domain.Product{}, []domain.Category{}
	}
	assigned, ok := eventProducts[*activeEventID]
	if !ok {
		return []domain.Product{}, []domain.Category{}
	}

	assignedSet := make(map[string]struct{}, len(assigned))
	for _, id := range assigned {
		assignedSet[id] = struct{}{}
	}

	scopedProducts := make([]domain.Product, 0, len(assigned))
	categoryIDs := make(map[string]struct{})
	for _, p := range products {
		if _, ok := assignedSet[p.ID]; ok {
			scopedProducts = append(scopedProducts, p)
			categoryIDs[p.CategoryID] = struct{}{}
		}
	}

	scopedCategories := make([]domain.Category, 0, len(categoryIDs))
	for _, c := range categories {
		if _, ok := categoryIDs[c.ID]; ok {
			scopedCategories = append(scopedCategories, c)
		}
	}
	return scopedProducts, scopedCategories
}

// TransactionsForEvent filters by exact event id match; no active event means
// no transactions.
func TransactionsForEvent(activeEventID *string, txs []domain.Transaction) []domain.Transaction {
	if activeEventID == nil {
		return []domain.Transaction{}
	}
	matched := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.EventID == *activeEventID {
			matched = append(matched, tx)
		}
	}
	return matched
}

// CompletedOnly excludes cancelled transactions.
func CompletedOnly(txs []domain.Transaction) []domain.Transaction {
	completed := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Status != domain.StatusCancelled {
			completed = append(completed, tx)
		}
	}
	return completed
}

// ProductSales aggregates one product's sold quantity and revenue.
type ProductSales struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CategorySales rolls product revenue up to the product's live category.
type CategorySales struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// Summary is the revenue report over a set of transactions. Callers exclude
// cancelled transactions before summarizing.
type Summary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	CashRevenue   decimal.Decimal `json:"cashRevenue"`
	CardRevenue   decimal.Decimal `json:"cardRevenue"`
	Count         int             `json:"count"`
	ProductSales  []ProductSales  `json:"productSales"`
	CategorySales []CategorySales `json:"categorySales"`
}

// Summarize computes the revenue summary. Per-product aggregation keys on
// product id; the category rollup resolves each product id against the live
// catalog and silently drops contributions of products deleted since.
// Both breakdowns are sorted by revenue, highest first.
func Summarize(txs []domain.Transaction, products []domain.Product, categories []domain.Category) Summary {
	sum := Summary{
		TotalRevenue: decimal.Zero,
		CashRevenue:  decimal.Zero,
		CardRevenue:  decimal.Zero,
		Count:        len(txs),
	}

	perProduct := make(map[string]*ProductSales)
	productOrder := make([]string, 0)

	for _, tx := range txs {
		sum.TotalRevenue = sum.TotalRevenue.Add(tx.Total)
		switch tx.PaymentMethod {
		case domain.PaymentCash:
			sum.CashRevenue = sum.CashRevenue.Add(tx.Total)
		case domain.PaymentCard:
			sum.CardRevenue = sum.CardRevenue.Add(tx.Total)
		}

		for _, item := range tx.Items {
			ps, ok := perProduct[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID, Name: item.Name, Revenue: decimal.Zero}
				perProduct[item.ProductID] = ps
				productOrder = append(productOrder, item.ProductID)
			}
			ps.Quantity += item.Quantity
			ps.Revenue = ps.Revenue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	categoryByProduct := make(map[string]string, len(products))
	for _, p := range products {
		categoryByProduct[p.ID] = p.CategoryID
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	perCategory := make(map[string]*CategorySales)
	categoryOrder := make([]string, 0)

	sum.ProductSales = make([]ProductSales, 0, len(productOrder))
	for _, id := range productOrder {
		ps := perProduct[id]
		sum.ProductSales = append(sum.ProductSales, *ps)

		categoryID, ok := categoryByProduct[id]
		if !ok {
			// Product deleted from the catalog since the sale; its revenue
			// is dropped from the category rollup, not reported as an error.
			continue
		}
		name, ok := categoryNames[categoryID]
		if !ok {
			continue
		}
		cs, ok := perCategory[categoryID]
		if !ok {
			cs = &CategorySales{CategoryID: categoryID, Name: name, Revenue: decimal.Zero}
			perCategory[categoryID] = cs
			categoryOrder = append(categoryOrder, categoryID)
		}
		cs.Revenue = cs.Revenue.Add(ps.Revenue)
	}

	sum.CategorySales = make([]CategorySales, 0, len(categoryOrder))
	for _, id := range categoryOrder {
		sum.CategorySales = append(sum.CategorySales, *perCategory[id])
	}

	sort.SliceStable(sum.ProductSales, func(i, j int) bool {
		return sum.ProductSales[i].Revenue.GreaterThan(sum.ProductSales[j].Revenue)
	})
	sort.SliceStable(sum.CategorySales, func(i, j int) bool {
		return sum.CategorySales[i].Revenue.GreaterThan(sum.CategorySales[j].Revenue)
	})
	return sum
}
