package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
)

// Store is implemented by the pgx Repo and by memstore.
type Store interface {
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return NewPage(items, q, total), nil
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, apperr.Validation("product id is required")
	}
	return s.store.Get(ctx, id)
}

// GetMany returns the entries that exist; missing ids are simply absent.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	if len(ids) == 0 {
		return map[string]Product{}, nil
	}
	return s.store.GetMany(ctx, ids)
}

func (s *Service) Create(ctx context.Context, d Draft) (Product, error) {
	p, err := d.Apply(Product{}, true)
	if err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.Create(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, d Draft) (Product, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p, err := d.Apply(cur, false)
	if err != nil {
		return Product{}, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("product id is required")
	}
	return s.store.Delete(ctx, id)
}
