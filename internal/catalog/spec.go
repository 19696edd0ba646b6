package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Predicate is one filter criterion over catalog entries. The pgx repo
// translates each concrete type to SQL; the in-memory store calls Matches.
type Predicate interface {
	Matches(p Product) bool
}

// TextMatch is a case-insensitive substring match on name or description.
type TextMatch struct{ Text string }

type CategoryIs struct{ Category Category }

type HasSize struct{ Size Size }

type PriceAtLeast struct{ Min decimal.Decimal }

type PriceAtMost struct{ Max decimal.Decimal }

func (m TextMatch) Matches(p Product) bool {
	needle := strings.ToLower(m.Text)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

func (m CategoryIs) Matches(p Product) bool { return p.Category == m.Category }

func (m HasSize) Matches(p Product) bool { return p.HasSize(m.Size) }

func (m PriceAtLeast) Matches(p Product) bool { return p.Price.GreaterThanOrEqual(m.Min) }

func (m PriceAtMost) Matches(p Product) bool { return p.Price.LessThanOrEqual(m.Max) }

// Spec is the conjunction of its predicates. An empty Spec matches everything.
type Spec []Predicate

func (s Spec) Matches(p Product) bool {
	for _, pr := range s {
		if !pr.Matches(p) {
			return false
		}
	}
	return true
}

func (s Spec) And(p Predicate) Spec {
	out := make(Spec, 0, len(s)+1)
	return append(append(out, s...), p)
}
