package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, description, price::text, image_url, category, sizes, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price, image_url, category, sizes, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, string(p.Category), sizeStrings(p.Sizes), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4::numeric, image_url=$5, category=$6, sizes=$7, updated_at=$8
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, string(p.Category), sizeStrings(p.Sizes), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product", p.ID)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	return p, err
}

func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	where, args, err := whereClause(q.Spec)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	if total == 0 {
		return []Product{}, 0, nil
	}

	n := len(args)
	args = append(args, q.Limit, q.Offset())
	rows, err := r.DB.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+orderClause(q.Sort)+
			fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, q.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// whereClause renders the conjunction as a parameterized WHERE clause.
func whereClause(spec Spec) (string, []any, error) {
	if len(spec) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(spec))
	args := make([]any, 0, len(spec))
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, pr := range spec {
		switch p := pr.(type) {
		case TextMatch:
			ph := next("%" + escapeLike(p.Text) + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", ph, ph))
		case CategoryIs:
			conds = append(conds, "category = "+next(string(p.Category)))
		case HasSize:
			conds = append(conds, next(string(p.Size))+" = ANY(sizes)")
		case PriceAtLeast:
			conds = append(conds, "price >= "+next(p.Min.String())+"::numeric")
		case PriceAtMost:
			conds = append(conds, "price <= "+next(p.Max.String())+"::numeric")
		default:
			return "", nil, fmt.Errorf("unsupported predicate %T", pr)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func orderClause(s Sort) string {
	col := "created_at"
	switch s.Field {
	case SortPrice:
		col = "price"
	case SortName:
		col = "name"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
		cat   string
		sizes []string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &cat, &sizes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = d
	p.Category = Category(cat)
	p.Sizes = make([]Size, 0, len(sizes))
	for _, s := range sizes {
		p.Sizes = append(p.Sizes, Size(s))
	}
	return p, nil
}

func sizeStrings(in []Size) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
