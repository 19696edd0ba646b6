package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type PlacedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      catalog.Size    `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderPlacedPayload carries everything the confirmation mail needs,
// so the notifier never reads back from this service.
type OrderPlacedPayload struct {
	OrderID      string          `json:"order_id"`
	AccountID    string          `json:"account_id"`
	ContactEmail string          `json:"contact_email,omitempty"`
	Items        []PlacedItem    `json:"items"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	PlacedAt     time.Time       `json:"placed_at"`
}

func NewOrderPlacedPayload(v View, accountID, email string) OrderPlacedPayload {
	items := make([]PlacedItem, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, PlacedItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.Price,
			LineTotal: it.LineTotal,
		})
	}
	return OrderPlacedPayload{
		OrderID:      v.ID,
		AccountID:    accountID,
		ContactEmail: email,
		Items:        items,
		TotalPrice:   v.TotalPrice,
		PlacedAt:     v.CreatedAt,
	}
}
