package cart

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/summary"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrStaleCart means the stored version moved since the cart was read.
	ErrStaleCart = errors.New("cart version changed")
	// ErrNoCart is returned by Store.Find for accounts that never had a cart.
	ErrNoCart = errors.New("cart does not exist")
)

type Cart struct {
	ID        string
	AccountID string
	Lines     []Line
	Version   int64
	UpdatedAt time.Time
}

// Line price is copied from the catalog when the line is created and never refreshed.
type Line struct {
	ID        string
	ProductID string
	Size      catalog.Size
	Quantity  int
	Price     decimal.Decimal
	AddedAt   time.Time
}

type LinePatch struct {
	Quantity *int
	Size     *catalog.Size
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) lineIndex(id string) int {
	for i, l := range c.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) lineFor(productID string, size catalog.Size) int {
	for i, l := range c.Lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

func (c *Cart) Line(id string) (Line, bool) {
	if i := c.lineIndex(id); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

// Add merges into an existing (product, size) line or appends a new line at price.
func (c *Cart) Add(productID string, size catalog.Size, qty int, price decimal.Decimal, now time.Time) error {
	if qty < 1 {
		return apperr.Validation("quantity must be at least 1")
	}
	if i := c.lineFor(productID, size); i >= 0 {
		c.Lines[i].Quantity += qty
		return nil
	}
	c.Lines = append(c.Lines, Line{
		ID:        uuid.NewString(),
		ProductID: productID,
		Size:      size,
		Quantity:  qty,
		Price:     price,
		AddedAt:   now,
	})
	return nil
}

// Update applies p to the line. A size change onto another line of the same
// product folds this line into that one, which keeps its own id and price.
func (c *Cart) Update(lineID string, p LinePatch) error {
	if p.Quantity == nil && p.Size == nil {
		return apperr.Validation("quantity or size is required")
	}
	i := c.lineIndex(lineID)
	if i < 0 {
		return apperr.NotFound("cart line", lineID)
	}
	if p.Quantity != nil && *p.Quantity < 1 {
		return apperr.Validation("quantity must be at least 1")
	}

	l := c.Lines[i]
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.Size != nil && *p.Size != l.Size {
		if j := c.lineFor(l.ProductID, *p.Size); j >= 0 {
			c.Lines[j].Quantity += l.Quantity
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
		l.Size = *p.Size
	}
	c.Lines[i] = l
	return nil
}

func (c *Cart) Remove(lineID string) error {
	i := c.lineIndex(lineID)
	if i < 0 {
		return apperr.NotFound("cart line", lineID)
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return nil
}

func (c *Cart) Clear() { c.Lines = nil }

func (c *Cart) SummaryLines() []summary.Line {
	out := make([]summary.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, summary.Line{ID: l.ID, ProductID: l.ProductID, Size: l.Size, Quantity: l.Quantity, Price: l.Price})
	}
	return out
}

// Clone deep-copies the line slice so retries start from the stored state.
func (c Cart) Clone() Cart {
	c.Lines = append([]Line(nil), c.Lines...)
	return c
}
