package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetOrCreate(ctx context.Context, accountID string) (Cart, error) {
	// one cart per account: losers of the insert race read the winner's row
	_, err := r.DB.Exec(ctx, `
		INSERT INTO carts(id, account_id, version, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (account_id) DO NOTHING`, uuid.NewString(), accountID)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return r.Find(ctx, accountID)
}

func (r *Repo) Find(ctx context.Context, accountID string) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `SELECT id, account_id, version, updated_at FROM carts WHERE account_id=$1`, accountID).
		Scan(&c.ID, &c.AccountID, &c.Version, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrNoCart
	}
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, size, quantity, price::text, added_at
		FROM cart_lines WHERE cart_id=$1
		ORDER BY added_at, id`, c.ID)
	if err != nil {
		return Cart{}, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l     Line
			size  string
			price string
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &size, &l.Quantity, &price, &l.AddedAt); err != nil {
			return Cart{}, err
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return Cart{}, fmt.Errorf("cart line %s price: %w", l.ID, err)
		}
		l.Size = catalog.Size(size)
		c.Lines = append(c.Lines, l)
	}
	return c, rows.Err()
}

func (r *Repo) Save(ctx context.Context, c Cart) (Cart, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Cart{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	next, err := BumpVersionTx(ctx, tx, c.ID, c.Version, now)
	if err != nil {
		return Cart{}, err
	}
	if err := ClearLinesTx(ctx, tx, c.ID); err != nil {
		return Cart{}, err
	}
	for _, l := range c.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO cart_lines(id, cart_id, product_id, size, quantity, price, added_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
			l.ID, c.ID, l.ProductID, string(l.Size), l.Quantity, l.Price.String(), l.AddedAt,
		)
		if err != nil {
			return Cart{}, fmt.Errorf("insert cart line: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Cart{}, err
	}
	c.Version, c.UpdatedAt = next, now
	return c, nil
}

// BumpVersionTx is the compare-and-swap every cart write goes through.
func BumpVersionTx(ctx context.Context, tx pgx.Tx, cartID string, expected int64, now time.Time) (int64, error) {
	var next int64
	err := tx.QueryRow(ctx, `
		UPDATE carts SET version = version + 1, updated_at = $3
		WHERE id=$1 AND version=$2
		RETURNING version`, cartID, expected, now).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStaleCart
	}
	if err != nil {
		return 0, fmt.Errorf("bump cart version: %w", err)
	}
	return next, nil
}

func ClearLinesTx(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, cartID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return nil
}
