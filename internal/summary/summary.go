// Package summary projects priced lines plus catalog data into the
// read model returned for carts and orders. Nothing here is persisted.
package summary

import (
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// UnavailableName stands in for entries removed from the catalog.
const UnavailableName = "Product unavailable"

type Line struct {
	ID        string
	ProductID string
	Size      catalog.Size
	Quantity  int
	Price     decimal.Decimal
}

type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl"`
	Size      catalog.Size    `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type Summary struct {
	Items     []Item          `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func Build(lines []Line, products map[string]catalog.Product) Summary {
	s := Summary{Items: make([]Item, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		it := Item{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      UnavailableName,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Price:     l.Price,
			LineTotal: LineTotal(l.Price, l.Quantity),
		}
		if p, ok := products[l.ProductID]; ok {
			it.Name = p.Name
			it.ImageURL = p.ImageURL
		}
		s.Items = append(s.Items, it)
		s.ItemCount += l.Quantity
		s.Subtotal = s.Subtotal.Add(it.LineTotal)
	}
	return s
}

func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// Total is Σ price × quantity without the catalog join.
func Total(lines []Line) decimal.Decimal {
	t := decimal.Zero
	for _, l := range lines {
		t = t.Add(LineTotal(l.Price, l.Quantity))
	}
	return t
}

func ProductIDs(lines []Line) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	return out
}
