package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// GetBalance returns the account balance, zero when no row exists.
func (s *Store) GetBalance(ctx context.Context, account string) (domain.Money, error) {
	var cents int64
	err := s.q.QueryRowContext(ctx, `
SELECT cents FROM balances WHERE account = ?
`, account).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return domain.Money(cents), nil
}

// SetBalance upserts the account balance row.
func (s *Store) SetBalance(ctx context.Context, account string, cents domain.Money, updatedAt time.Time) error {
	if cents < 0 {
		return fmt.Errorf("balance must not be negative")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO balances (account, cents, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(account) DO UPDATE SET cents = excluded.cents, updated_at = excluded.updated_at
`, account, int64(cents), toMillis(updatedAt))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// DeleteBalance removes the account balance row.
func (s *Store) DeleteBalance(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM balances WHERE account = ?`, account)
	if err != nil {
		return fmt.Errorf("delete balance: %w", err)
	}
	return nil
}

// TopBalances returns the n highest balances, ties by insertion order.
func (s *Store) TopBalances(ctx context.Context, n int) ([]storage.Balance, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT account, cents, updated_at
FROM balances
ORDER BY cents DESC, rowid ASC
LIMIT ?
`, n)
	if err != nil {
		return nil, fmt.Errorf("top balances: %w", err)
	}
	defer rows.Close()

	var out []storage.Balance
	for rows.Next() {
		var b storage.Balance
		var cents, updatedAt int64
		if err := rows.Scan(&b.Account, &cents, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Cents = domain.Money(cents)
		b.UpdatedAt = fromMillis(updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
