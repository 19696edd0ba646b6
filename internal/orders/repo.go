package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// Checkout: cart version check, order insert and cart clear commit together or not at all.
func (r *Repo) Checkout(ctx context.Context, o Order, cartID string, cartVersion int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := cart.BumpVersionTx(ctx, tx, cartID, cartVersion, o.CreatedAt); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, account_id, status, total_price, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)`,
		o.ID, o.AccountID, string(o.Status), o.TotalPrice.String(), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, position, product_id, size, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)`,
			l.ID, o.ID, i, l.ProductID, string(l.Size), l.Quantity, l.Price.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := cart.ClearLinesTx(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]Order, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE account_id=$1`, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if total == 0 {
		return []Order{}, 0, nil
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, account_id, status, total_price::text, created_at
		FROM orders WHERE account_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachLines(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repo) GetForAccount(ctx context.Context, accountID, orderID string) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, account_id, status, total_price::text, created_at
		FROM orders WHERE id=$1 AND account_id=$2`, orderID, accountID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order", orderID)
	}
	if err != nil {
		return Order{}, err
	}
	list := []Order{o}
	if err := r.attachLines(ctx, list); err != nil {
		return Order{}, err
	}
	return list[0], nil
}

func (r *Repo) attachLines(ctx context.Context, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[string]int, len(list))
	ids := make([]string, 0, len(list))
	for i, o := range list {
		idx[o.ID] = i
		ids = append(ids, o.ID)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, id, product_id, size, quantity, price::text
		FROM order_lines WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID, size, price string
			l                    Line
		)
		if err := rows.Scan(&orderID, &l.ID, &l.ProductID, &size, &l.Quantity, &price); err != nil {
			return err
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("order line %s price: %w", l.ID, err)
		}
		l.Size = catalog.Size(size)
		i := idx[orderID]
		list[i].Lines = append(list[i].Lines, l)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o             Order
		status, total string
	)
	if err := row.Scan(&o.ID, &o.AccountID, &status, &total, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return Order{}, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	o.Status, o.TotalPrice = Status(status), d
	return o, nil
}
