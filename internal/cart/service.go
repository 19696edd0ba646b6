package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/summary"
)

// Change notices published on the per-account cart channel.
const (
	ChangeUpdated = "updated"
	ChangeCleared = "cleared"
)

type Store interface {
	// GetOrCreate converges concurrent first calls on a single cart.
	GetOrCreate(ctx context.Context, accountID string) (Cart, error)
	Find(ctx context.Context, accountID string) (Cart, error)
	// Save writes c only if the stored version still equals c.Version,
	// otherwise it returns ErrStaleCart. The returned cart carries the new version.
	Save(ctx context.Context, c Cart) (Cart, error)
}

type Catalog interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Events interface {
	Publish(ctx context.Context, accountID, change string) error
}

type AddInput struct {
	ProductID string
	Size      string
	Quantity  int
}

type UpdateInput struct {
	Quantity *int
	Size     *string
}

type Service struct {
	store       Store
	catalog     Catalog
	events      Events
	log         *logger.Logger
	maxAttempts int
	now         func() time.Time
}

func NewService(store Store, products Catalog, events Events, log *logger.Logger, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:       store,
		catalog:     products,
		events:      events,
		log:         log.With("component", "cart"),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *Service) Get(ctx context.Context, accountID string) (summary.Summary, error) {
	c, err := s.store.GetOrCreate(ctx, accountID)
	if err != nil {
		return summary.Summary{}, err
	}
	return s.Summarize(ctx, c)
}

func (s *Service) Add(ctx context.Context, accountID string, in AddInput) (summary.Summary, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		return summary.Summary{}, apperr.Validation("productId is required")
	}
	if in.Quantity < 1 {
		return summary.Summary{}, apperr.Validation("quantity must be at least 1")
	}
	size, ok := catalog.ParseSize(in.Size)
	if !ok {
		return summary.Summary{}, apperr.Validation("size must be one of S, M, L, XL")
	}
	p, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return summary.Summary{}, err
	}
	if !p.HasSize(size) {
		return summary.Summary{}, apperr.Validation("size %s is not available for %s", size, p.Name)
	}

	return s.mutate(ctx, accountID, true, func(c *Cart) error {
		return c.Add(p.ID, size, in.Quantity, p.Price, s.now().UTC())
	})
}

func (s *Service) Update(ctx context.Context, accountID, lineID string, in UpdateInput) (summary.Summary, error) {
	if in.Quantity == nil && in.Size == nil {
		return summary.Summary{}, apperr.Validation("quantity or size is required")
	}
	patch := LinePatch{Quantity: in.Quantity}
	if in.Size != nil {
		size, ok := catalog.ParseSize(*in.Size)
		if !ok {
			return summary.Summary{}, apperr.Validation("size must be one of S, M, L, XL")
		}
		patch.Size = &size
	}

	return s.mutate(ctx, accountID, false, func(c *Cart) error {
		l, ok := c.Line(lineID)
		if !ok {
			return apperr.NotFound("cart line", lineID)
		}
		if patch.Size != nil && *patch.Size != l.Size {
			p, err := s.catalog.Get(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if !p.HasSize(*patch.Size) {
				return apperr.Validation("size %s is not available for %s", *patch.Size, p.Name)
			}
		}
		return c.Update(lineID, patch)
	})
}

func (s *Service) Remove(ctx context.Context, accountID, lineID string) (summary.Summary, error) {
	return s.mutate(ctx, accountID, false, func(c *Cart) error {
		return c.Remove(lineID)
	})
}

// mutate runs fn against a fresh read and saves with a version check,
// re-reading and re-applying fn when another writer got there first.
// fn must not write anything outside c.
func (s *Service) mutate(ctx context.Context, accountID string, create bool, fn func(*Cart) error) (summary.Summary, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.load(ctx, accountID, create)
		if err != nil {
			return summary.Summary{}, err
		}
		next := c.Clone()
		if err := fn(&next); err != nil {
			return summary.Summary{}, err
		}
		saved, err := s.store.Save(ctx, next)
		if errors.Is(err, ErrStaleCart) {
			if attempt >= s.maxAttempts {
				s.log.Warn("cart write gave up", "account_id", accountID, "attempts", attempt)
				return summary.Summary{}, apperr.Conflict("cart was modified concurrently, please retry")
			}
			s.log.Debug("stale cart write, retrying", "account_id", accountID, "attempt", attempt)
			continue
		}
		if err != nil {
			return summary.Summary{}, err
		}
		s.Notify(ctx, accountID, ChangeUpdated)
		return s.Summarize(ctx, saved)
	}
}

func (s *Service) load(ctx context.Context, accountID string, create bool) (Cart, error) {
	if create {
		return s.store.GetOrCreate(ctx, accountID)
	}
	c, err := s.store.Find(ctx, accountID)
	if errors.Is(err, ErrNoCart) {
		return Cart{}, apperr.NotFound("cart for account", accountID)
	}
	return c, err
}

// Summarize joins c's lines with the catalog.
func (s *Service) Summarize(ctx context.Context, c Cart) (summary.Summary, error) {
	lines := c.SummaryLines()
	products, err := s.catalog.GetMany(ctx, summary.ProductIDs(lines))
	if err != nil {
		return summary.Summary{}, err
	}
	return summary.Build(lines, products), nil
}

// Notify publishes a change notice; failures only get logged.
func (s *Service) Notify(ctx context.Context, accountID, change string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, accountID, change); err != nil {
		s.log.Warn("cart change notice failed", "account_id", accountID, "change", change, "error", err)
	}
}
