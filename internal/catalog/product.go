package catalog

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryMen   Category = "Men"
	CategoryWomen Category = "Women"
	CategoryKids  Category = "Kids"
)

func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.TrimSpace(s)); c {
	case CategoryMen, CategoryWomen, CategoryKids:
		return c, true
	}
	return "", false
}

type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// AllSizes is also the canonical display order.
var AllSizes = []Size{SizeS, SizeM, SizeL, SizeXL}

func ParseSize(s string) (Size, bool) {
	switch z := Size(strings.ToUpper(strings.TrimSpace(s))); z {
	case SizeS, SizeM, SizeL, SizeXL:
		return z, true
	}
	return "", false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Category    Category        `json:"category"`
	Sizes       []Size          `json:"sizes"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p Product) HasSize(s Size) bool {
	for _, z := range p.Sizes {
		if z == s {
			return true
		}
	}
	return false
}

// maxPrice is the exclusive bound of the NUMERIC(12,2) price columns.
var maxPrice = decimal.New(1, 10)

// Draft is the admin payload for create (all fields) and update (nil = keep).
type Draft struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"imageUrl"`
	Category    *string          `json:"category"`
	Sizes       []string         `json:"sizes"`
}

// Apply validates d against p and returns the patched copy.
// For creation pass a zero Product and set requireAll.
func (d Draft) Apply(p Product, requireAll bool) (Product, error) {
	if d.Name != nil || requireAll {
		if d.Name == nil || strings.TrimSpace(*d.Name) == "" {
			return p, apperr.Validation("name is required")
		}
		p.Name = strings.TrimSpace(*d.Name)
	}
	if d.Description != nil {
		p.Description = strings.TrimSpace(*d.Description)
	}
	if d.Price != nil || requireAll {
		if d.Price == nil {
			return p, apperr.Validation("price is required")
		}
		if d.Price.IsNegative() {
			return p, apperr.Validation("price must be >= 0")
		}
		if !d.Price.Equal(d.Price.Round(2)) {
			return p, apperr.Validation("price must have at most 2 decimal places")
		}
		if d.Price.GreaterThanOrEqual(maxPrice) {
			return p, apperr.Validation("price must be below %s", maxPrice.String())
		}
		p.Price = d.Price.Round(2)
	}
	if d.ImageURL != nil || requireAll {
		if d.ImageURL == nil || strings.TrimSpace(*d.ImageURL) == "" {
			return p, apperr.Validation("imageUrl is required")
		}
		p.ImageURL = strings.TrimSpace(*d.ImageURL)
	}
	if d.Category != nil || requireAll {
		if d.Category == nil {
			return p, apperr.Validation("category is required")
		}
		c, ok := ParseCategory(*d.Category)
		if !ok {
			return p, apperr.Validation("category must be one of Men, Women, Kids")
		}
		p.Category = c
	}
	if d.Sizes != nil {
		sizes, err := normalizeSizes(d.Sizes)
		if err != nil {
			return p, err
		}
		p.Sizes = sizes
	} else if requireAll {
		p.Sizes = append([]Size(nil), AllSizes...)
	}
	return p, nil
}

func normalizeSizes(in []string) ([]Size, error) {
	seen := map[Size]bool{}
	for _, raw := range in {
		s, ok := ParseSize(raw)
		if !ok {
			return nil, apperr.Validation("size %q must be one of S, M, L, XL", raw)
		}
		seen[s] = true
	}
	if len(seen) == 0 {
		return nil, apperr.Validation("sizes must not be empty")
	}
	out := make([]Size, 0, len(seen))
	for _, s := range AllSizes {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out, nil
}
