// Package memstore is an in-process backend for the catalog, carts and
// orders. It applies the same version rule and checkout atomicity as the
// postgres repos and backs STORAGE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	carts    map[string]cart.Cart // by account id
	orders   []orders.Order
	now      func() time.Time
}

func New() *Store {
	return &Store{
		products: map[string]catalog.Product{},
		carts:    map[string]cart.Cart{},
		now:      time.Now,
	}
}

func (s *Store) Products() *Products { return &Products{s} }
func (s *Store) Carts() *Carts       { return &Carts{s} }
func (s *Store) Orders() *Orders     { return &Orders{s} }

// Products implements catalog.Store.
type Products struct{ s *Store }

func (p *Products) Create(_ context.Context, pr catalog.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pr.Sizes = append([]catalog.Size(nil), pr.Sizes...)
	p.s.products[pr.ID] = pr
	return nil
}

func (p *Products) Update(_ context.Context, pr catalog.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.products[pr.ID]; !ok {
		return apperr.NotFound("product", pr.ID)
	}
	pr.Sizes = append([]catalog.Size(nil), pr.Sizes...)
	p.s.products[pr.ID] = pr
	return nil
}

func (p *Products) Delete(_ context.Context, id string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.products[id]; !ok {
		return apperr.NotFound("product", id)
	}
	delete(p.s.products, id)
	return nil
}

func (p *Products) Get(_ context.Context, id string) (catalog.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pr, ok := p.s.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id)
	}
	return pr, nil
}

func (p *Products) GetMany(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if pr, ok := p.s.products[id]; ok {
			out[id] = pr
		}
	}
	return out, nil
}

func (p *Products) List(_ context.Context, q catalog.ListQuery) ([]catalog.Product, int, error) {
	p.s.mu.Lock()
	matched := make([]catalog.Product, 0, len(p.s.products))
	for _, pr := range p.s.products {
		if q.Spec.Matches(pr) {
			matched = append(matched, pr)
		}
	}
	p.s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var c int
		switch q.Sort.Field {
		case catalog.SortPrice:
			c = a.Price.Cmp(b.Price)
		case catalog.SortName:
			c = strings.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if q.Sort.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return window(matched, q.Offset(), q.Limit), len(matched), nil
}

// Carts implements cart.Store.
type Carts struct{ s *Store }

func (c *Carts) GetOrCreate(_ context.Context, accountID string) (cart.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.carts[accountID]
	if !ok {
		cur = cart.Cart{ID: uuid.NewString(), AccountID: accountID, UpdatedAt: c.s.now().UTC()}
		c.s.carts[accountID] = cur
	}
	return cur.Clone(), nil
}

func (c *Carts) Find(_ context.Context, accountID string) (cart.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.carts[accountID]
	if !ok {
		return cart.Cart{}, cart.ErrNoCart
	}
	return cur.Clone(), nil
}

func (c *Carts) Save(_ context.Context, next cart.Cart) (cart.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.carts[next.AccountID]
	if !ok || cur.ID != next.ID || cur.Version != next.Version {
		return cart.Cart{}, cart.ErrStaleCart
	}
	next = next.Clone()
	next.Version++
	next.UpdatedAt = c.s.now().UTC()
	c.s.carts[next.AccountID] = next
	return next.Clone(), nil
}

// Orders implements orders.Store.
type Orders struct{ s *Store }

func (o *Orders) Checkout(_ context.Context, ord orders.Order, cartID string, cartVersion int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	cur, ok := o.s.carts[ord.AccountID]
	if !ok || cur.ID != cartID || cur.Version != cartVersion {
		return cart.ErrStaleCart
	}
	ord.Lines = append([]orders.Line(nil), ord.Lines...)
	o.s.orders = append(o.s.orders, ord)

	cur.Clear()
	cur.Version++
	cur.UpdatedAt = ord.CreatedAt
	o.s.carts[ord.AccountID] = cur
	return nil
}

func (o *Orders) ListByAccount(_ context.Context, accountID string, offset, limit int) ([]orders.Order, int, error) {
	o.s.mu.Lock()
	var mine []orders.Order
	for _, ord := range o.s.orders {
		if ord.AccountID == accountID {
			mine = append(mine, ord)
		}
	}
	o.s.mu.Unlock()

	sort.Slice(mine, func(i, j int) bool {
		if c := mine[i].CreatedAt.Compare(mine[j].CreatedAt); c != 0 {
			return c > 0
		}
		return mine[i].ID > mine[j].ID
	})
	return window(mine, offset, limit), len(mine), nil
}

func (o *Orders) GetForAccount(_ context.Context, accountID, orderID string) (orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, ord := range o.s.orders {
		if ord.ID == orderID && ord.AccountID == accountID {
			return ord, nil
		}
	}
	return orders.Order{}, apperr.NotFound("order", orderID)
}

// Count is the number of orders stored for accountID.
func (o *Orders) Count(accountID string) int {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	n := 0
	for _, ord := range o.s.orders {
		if ord.AccountID == accountID {
			n++
		}
	}
	return n
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}
