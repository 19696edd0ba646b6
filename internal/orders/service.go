package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Store interface {
	// Checkout persists o and empties the cart in one atomic step, provided the
	// cart is still at cartVersion; otherwise it returns cart.ErrStaleCart.
	Checkout(ctx context.Context, o Order, cartID string, cartVersion int64) error
	ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]Order, int, error)
	GetForAccount(ctx context.Context, accountID, orderID string) (Order, error)
}

type Carts interface {
	Find(ctx context.Context, accountID string) (cart.Cart, error)
}

type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Publisher must not block; false means the event was dropped.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

type Idempotency interface {
	Lookup(ctx context.Context, accountID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, accountID, key, orderID string) error
}

type Deps struct {
	Store       Store
	Carts       Carts
	Catalog     Catalog
	Publisher   Publisher   // optional
	Idempotency Idempotency // optional
	CartEvents  cart.Events // optional
	Log         *logger.Logger
	ServiceName string
	MaxAttempts int
}

const (
	replayAttempts = 5
	replayWait     = 20 * time.Millisecond
)

type Service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	d.Log = d.Log.With("component", "orders")
	if d.MaxAttempts < 1 {
		d.MaxAttempts = 1
	}
	return &Service{Deps: d, now: time.Now}
}

// PlaceOrder turns the caller's cart into an order and empties the cart.
// A repeated idempotencyKey returns the order created the first time.
func (s *Service) PlaceOrder(ctx context.Context, sess session.Session, idempotencyKey, traceID string) (Receipt, error) {
	if r, ok := s.replay(ctx, sess.AccountID, idempotencyKey); ok {
		return r, nil
	}

	var o Order
	for attempt := 1; ; attempt++ {
		c, err := s.Carts.Find(ctx, sess.AccountID)
		if errors.Is(err, cart.ErrNoCart) {
			return s.emptyCart(ctx, sess.AccountID, idempotencyKey)
		}
		if err != nil {
			return Receipt{}, err
		}
		if c.IsEmpty() {
			return s.emptyCart(ctx, sess.AccountID, idempotencyKey)
		}

		o = FromCart(c, s.now().UTC())
		err = s.Store.Checkout(ctx, o, c.ID, c.Version)
		if errors.Is(err, cart.ErrStaleCart) {
			if attempt >= s.MaxAttempts {
				return Receipt{}, apperr.Conflict("cart was modified during checkout, please retry")
			}
			continue
		}
		if err != nil {
			return Receipt{}, err
		}
		break
	}

	log := s.Log.With("order_id", o.ID, "account_id", sess.AccountID)
	log.Info("order placed", "lines", len(o.Lines), "total", o.TotalPrice.String())

	// committed: nothing below may fail the request
	if idempotencyKey != "" && s.Idempotency != nil {
		if err := s.Idempotency.Remember(ctx, sess.AccountID, idempotencyKey, o.ID); err != nil {
			log.Warn("remember idempotency key failed", "error", err)
		}
	}
	v := s.view(ctx, o)
	if s.CartEvents != nil {
		if err := s.CartEvents.Publish(ctx, sess.AccountID, cart.ChangeCleared); err != nil {
			log.Warn("cart cleared notice failed", "error", err)
		}
	}
	s.publishPlaced(log, v, sess, traceID)

	return Receipt{Order: v}, nil
}

// emptyCart covers a same-key request racing the one that just emptied the
// cart: the winner's key lands right after its commit, so wait briefly for it.
func (s *Service) emptyCart(ctx context.Context, accountID, key string) (Receipt, error) {
	if key == "" || s.Idempotency == nil {
		return Receipt{}, apperr.EmptyCart()
	}
	for i := 0; i < replayAttempts; i++ {
		if r, ok := s.replay(ctx, accountID, key); ok {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return Receipt{}, apperr.EmptyCart()
		case <-time.After(replayWait):
		}
	}
	return Receipt{}, apperr.EmptyCart()
}

func (s *Service) replay(ctx context.Context, accountID, key string) (Receipt, bool) {
	if key == "" || s.Idempotency == nil {
		return Receipt{}, false
	}
	orderID, ok, err := s.Idempotency.Lookup(ctx, accountID, key)
	if err != nil {
		s.Log.Warn("idempotency lookup failed", "account_id", accountID, "error", err)
		return Receipt{}, false
	}
	if !ok {
		return Receipt{}, false
	}
	o, err := s.Store.GetForAccount(ctx, accountID, orderID)
	if err != nil {
		return Receipt{}, false
	}
	return Receipt{Order: s.view(ctx, o), Idempotent: true}, true
}

func (s *Service) publishPlaced(log *logger.Logger, v View, sess session.Session, traceID string) {
	if s.Publisher == nil {
		return
	}
	if sess.Email == "" {
		log.Warn("no contact address, confirmation will be skipped")
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: v.ID,
		Payload:       kafkax.MustMarshal(NewOrderPlacedPayload(v, sess.AccountID, sess.Email)),
	}
	ok := s.Publisher.Publish(PartitionKey(v.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
	if !ok {
		log.Warn("order placed event dropped")
	}
}

func (s *Service) List(ctx context.Context, accountID string, page, limit int) (Page, error) {
	switch {
	case page < 1:
		page = 1
	case page > catalog.MaxPage:
		page = catalog.MaxPage
	}
	switch {
	case limit < 1:
		limit = 1
	case limit > catalog.MaxLimit:
		limit = catalog.MaxLimit
	}
	list, total, err := s.Store.ListByAccount(ctx, accountID, (page-1)*limit, limit)
	if err != nil {
		return Page{}, err
	}

	var all []Line
	for _, o := range list {
		all = append(all, o.Lines...)
	}
	products := s.products(ctx, Order{Lines: all})

	views := make([]View, 0, len(list))
	for _, o := range list {
		views = append(views, NewView(o, products))
	}
	pages := catalog.PageCount(total, limit)
	return Page{
		Orders:  views,
		Page:    page,
		Pages:   pages,
		Total:   total,
		HasPrev: page > 1,
		HasNext: page < pages,
	}, nil
}

func (s *Service) Get(ctx context.Context, accountID, orderID string) (View, error) {
	o, err := s.Store.GetForAccount(ctx, accountID, orderID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, o), nil
}

func (s *Service) view(ctx context.Context, o Order) View {
	return NewView(o, s.products(ctx, o))
}

// products degrades to placeholders when the catalog is unreachable;
// order data itself is already complete.
func (s *Service) products(ctx context.Context, o Order) map[string]catalog.Product {
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		ids = append(ids, l.ProductID)
	}
	if len(ids) == 0 {
		return nil
	}
	m, err := s.Catalog.GetMany(ctx, ids)
	if err != nil {
		s.Log.Warn("catalog join failed", "order_id", o.ID, "error", err)
		return nil
	}
	return m
}
