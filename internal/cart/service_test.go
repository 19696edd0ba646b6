package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/summary"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	store   *memstore.Store
	catalog *catalog.Service
	broker  *memstore.Broker
	svc     *cart.Service
	tee     catalog.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	cat := catalog.NewService(st.Products())
	name, img, category := "Classic White T-Shirt", "img/tee.png", "Men"
	price := decimal.RequireFromString("29.99")
	tee, err := cat.Create(context.Background(), catalog.Draft{
		Name: &name, Price: &price, ImageURL: &img, Category: &category, Sizes: []string{"M", "L"},
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	broker := memstore.NewBroker()
	return fixture{
		store:   st,
		catalog: cat,
		broker:  broker,
		svc:     cart.NewService(st.Carts(), cat, broker, logger.Nop(), 50),
		tee:     tee,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strp(s string) *string { return &s }

func intp(n int) *int { return &n }

func TestAddTwiceKeepsOriginalPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	newPrice := dec("35.00")
	if _, err := f.catalog.Update(ctx, f.tee.ID, catalog.Draft{Price: &newPrice}); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	s, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "m", Quantity: 1})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(s.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(s.Items))
	}
	it := s.Items[0]
	if it.Quantity != 2 || !it.Price.Equal(dec("29.99")) {
		t.Fatalf("got %+v", it)
	}
	if it.Name != f.tee.Name || it.ImageURL != f.tee.ImageURL {
		t.Fatalf("catalog join missing: %+v", it)
	}
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	s, err = f.svc.Update(ctx, "acct-1", s.Items[0].ID, cart.UpdateInput{Quantity: intp(5)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.ItemCount != 5 || !s.Subtotal.Equal(dec("149.95")) {
		t.Fatalf("got count=%d subtotal=%s", s.ItemCount, s.Subtotal)
	}
}

func TestUpdateSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, _ := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1})
	lineID := s.Items[0].ID

	if _, err := f.svc.Update(ctx, "acct-1", lineID, cart.UpdateInput{Size: strp("XL")}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unsupported size: expected validation error, got %v", err)
	}
	s, err := f.svc.Update(ctx, "acct-1", lineID, cart.UpdateInput{Size: strp("L")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Items[0].Size != catalog.SizeL || !s.Items[0].Price.Equal(dec("29.99")) {
		t.Fatalf("got %+v", s.Items[0])
	}
}

func TestValidationHappensBeforeWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, _ := f.store.Carts().Find(ctx, "acct-1")

	cases := []struct {
		name string
		in   cart.AddInput
		want error
	}{
		{"zero quantity", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 0}, apperr.ErrValidation},
		{"unknown size", cart.AddInput{ProductID: f.tee.ID, Size: "XXL", Quantity: 1}, apperr.ErrValidation},
		{"size not offered", cart.AddInput{ProductID: f.tee.ID, Size: "S", Quantity: 1}, apperr.ErrValidation},
		{"missing product id", cart.AddInput{Size: "M", Quantity: 1}, apperr.ErrValidation},
		{"unknown product", cart.AddInput{ProductID: "nope", Size: "M", Quantity: 1}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Add(ctx, "acct-1", tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}

	if _, err := f.svc.Update(ctx, "acct-1", before.Lines[0].ID, cart.UpdateInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty update: %v", err)
	}
	if _, err := f.svc.Update(ctx, "acct-1", before.Lines[0].ID, cart.UpdateInput{Quantity: intp(-2)}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative quantity: %v", err)
	}

	after, _ := f.store.Carts().Find(ctx, "acct-1")
	if after.Version != before.Version || after.Lines[0].Quantity != 1 {
		t.Fatalf("rejected calls must not write: before v%d after v%d", before.Version, after.Version)
	}
}

func TestMissingCartOrLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Update(ctx, "ghost", "l1", cart.UpdateInput{Quantity: intp(1)}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("update without cart: %v", err)
	}
	if _, err := f.svc.Remove(ctx, "ghost", "l1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("remove without cart: %v", err)
	}
	if _, err := f.svc.Get(ctx, "acct-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.svc.Remove(ctx, "acct-1", "l1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("remove missing line: %v", err)
	}
}

func TestRemoveLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 2})
	s, _ = f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "L", Quantity: 1})

	s, err := f.svc.Remove(ctx, "acct-1", s.Items[0].ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.Items) != 1 || s.Items[0].Size != catalog.SizeL || s.ItemCount != 1 {
		t.Fatalf("got %+v", s)
	}
}

func TestGetEmptyCart(t *testing.T) {
	f := newFixture(t)
	s, err := f.svc.Get(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Items == nil || len(s.Items) != 0 || s.ItemCount != 0 || !s.Subtotal.IsZero() {
		t.Fatalf("got %+v", s)
	}
}

func TestDeletedProductShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.catalog.Delete(ctx, f.tee.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s, err := f.svc.Get(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Items[0].Name != summary.UnavailableName || !s.Subtotal.Equal(dec("59.98")) {
		t.Fatalf("got %+v", s)
	}
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	f := newFixture(t)
	const N = 20

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add failed: %v", err)
	}

	s, err := f.svc.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(s.Items) != 1 || s.Items[0].Quantity != N {
		t.Fatalf("expected quantity=%d, got %+v", N, s.Items)
	}
}

func TestChangeNoticePublished(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, stop := f.broker.Subscribe(ctx, "acct-1")
	defer stop()

	if _, err := f.svc.Add(ctx, "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := <-ch; got != cart.ChangeUpdated {
		t.Fatalf("got %q", got)
	}
}

type alwaysStale struct{ cart.Store }

func (alwaysStale) Save(context.Context, cart.Cart) (cart.Cart, error) {
	return cart.Cart{}, cart.ErrStaleCart
}

func TestStaleWritesGiveUpWithConflict(t *testing.T) {
	f := newFixture(t)
	svc := cart.NewService(alwaysStale{f.store.Carts()}, f.catalog, nil, nil, 3)
	_, err := svc.Add(context.Background(), "acct-1", cart.AddInput{ProductID: f.tee.ID, Size: "M", Quantity: 1})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
