package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
	// MaxPage keeps (page-1)*limit from overflowing.
	MaxPage = math.MaxInt / MaxLimit
)

type SortField string

const (
	SortPrice     SortField = "price"
	SortName      SortField = "name"
	SortCreatedAt SortField = "createdAt"
)

type Sort struct {
	Field SortField
	Desc  bool
}

var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

type ListQuery struct {
	Spec  Spec
	Sort  Sort
	Page  int
	Limit int
}

func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	return (min(q.Page, MaxPage) - 1) * min(q.Limit, MaxLimit)
}

// ParseListQuery turns list query parameters into a ListQuery.
// Unknown category and size values are dropped; malformed prices are rejected.
func ParseListQuery(v url.Values) (ListQuery, error) {
	q := ListQuery{
		Sort:  ParseSort(v.Get("sort")),
		Page:  ClampPage(v.Get("page")),
		Limit: ClampLimit(v.Get("limit")),
	}

	if s := strings.TrimSpace(v.Get("search")); s != "" {
		q.Spec = q.Spec.And(TextMatch{Text: s})
	}
	if c, ok := ParseCategory(v.Get("category")); ok {
		q.Spec = q.Spec.And(CategoryIs{Category: c})
	}
	if z, ok := ParseSize(v.Get("size")); ok {
		q.Spec = q.Spec.And(HasSize{Size: z})
	}

	lo, hasLo, err := parsePrice(v, "price[gte]", "priceMin")
	if err != nil {
		return q, err
	}
	hi, hasHi, err := parsePrice(v, "price[lte]", "priceMax")
	if err != nil {
		return q, err
	}
	if hasLo && hasHi && lo.GreaterThan(hi) {
		return q, apperr.Validation("price lower bound exceeds upper bound")
	}
	if hasLo {
		q.Spec = q.Spec.And(PriceAtLeast{Min: lo})
	}
	if hasHi {
		q.Spec = q.Spec.And(PriceAtMost{Max: hi})
	}
	return q, nil
}

func parsePrice(v url.Values, keys ...string) (decimal.Decimal, bool, error) {
	for _, k := range keys {
		raw := strings.TrimSpace(v.Get(k))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, false, apperr.Validation("%s must be a number", k)
		}
		if d.IsNegative() {
			return decimal.Zero, false, apperr.Validation("%s must be >= 0", k)
		}
		return d, true, nil
	}
	return decimal.Zero, false, nil
}

// ParseSort reads "field:dir". A missing direction means ascending;
// an unknown field falls back to DefaultSort.
func ParseSort(raw string) Sort {
	field, dir, _ := strings.Cut(strings.TrimSpace(raw), ":")
	var s Sort
	switch SortField(field) {
	case SortPrice, SortName, SortCreatedAt:
		s.Field = SortField(field)
	default:
		return DefaultSort
	}
	s.Desc = strings.EqualFold(dir, "desc")
	return s
}

func ClampPage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil || n < 1:
		return 1
	case n > MaxPage:
		return MaxPage
	}
	return n
}

func ClampLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		return DefaultLimit
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

type Page struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
	HasPrev  bool      `json:"hasPrev"`
	HasNext  bool      `json:"hasNext"`
}

// PageCount is ceil(total/limit).
func PageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func NewPage(items []Product, q ListQuery, total int) Page {
	if items == nil {
		items = []Product{}
	}
	pages := PageCount(total, q.Limit)
	return Page{
		Products: items,
		Page:     q.Page,
		Pages:    pages,
		Total:    total,
		HasPrev:  q.Page > 1,
		HasNext:  q.Page < pages,
	}
}
