package orders

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/summary"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is immutable once placed; TotalPrice is computed at creation and stored.
type Order struct {
	ID         string
	AccountID  string
	Status     Status
	Lines      []Line
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

type Line struct {
	ID        string
	ProductID string
	Size      catalog.Size
	Quantity  int
	Price     decimal.Decimal
}

// FromCart snapshots the cart lines with the prices they were added at.
func FromCart(c cart.Cart, now time.Time) Order {
	o := Order{
		ID:        uuid.NewString(),
		AccountID: c.AccountID,
		Status:    StatusPlaced,
		Lines:     make([]Line, 0, len(c.Lines)),
		CreatedAt: now,
	}
	for _, l := range c.Lines {
		o.Lines = append(o.Lines, Line{
			ID:        uuid.NewString(),
			ProductID: l.ProductID,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	o.TotalPrice = summary.Total(o.SummaryLines())
	return o
}

func (o Order) SummaryLines() []summary.Line {
	out := make([]summary.Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, summary.Line{ID: l.ID, ProductID: l.ProductID, Size: l.Size, Quantity: l.Quantity, Price: l.Price})
	}
	return out
}

// View is the order summary returned to clients.
type View struct {
	ID         string          `json:"id"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	Items      []summary.Item  `json:"items"`
	ItemCount  int             `json:"itemCount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func NewView(o Order, products map[string]catalog.Product) View {
	s := summary.Build(o.SummaryLines(), products)
	return View{
		ID:         o.ID,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		Items:      s.Items,
		ItemCount:  s.ItemCount,
		Subtotal:   s.Subtotal,
		TotalPrice: o.TotalPrice,
	}
}

type Receipt struct {
	Order      View `json:"order"`
	Idempotent bool `json:"idempotent"`
}

type Page struct {
	Orders  []View `json:"orders"`
	Page    int    `json:"page"`
	Pages   int    `json:"pages"`
	Total   int    `json:"total"`
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
}
