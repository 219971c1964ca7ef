package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// AddSackEntry inserts a caught fish and returns its id.
func (s *Store) AddSackEntry(ctx context.Context, entry storage.SackEntry) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
INSERT INTO sack_entries (account, species, weight, price_cents, is_bait, caught_at)
VALUES (?, ?, ?, ?, ?, ?)
`, entry.Account, entry.Species, entry.Weight, int64(entry.Price), entry.IsBait, toMillis(entry.CaughtAt))
	if err != nil {
		return 0, fmt.Errorf("add sack entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add sack entry: %w", err)
	}
	return id, nil
}

// ListSackEntries returns the account's sack in catch order.
func (s *Store) ListSackEntries(ctx context.Context, account string) ([]storage.SackEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT id, account, species, weight, price_cents, is_bait, caught_at
FROM sack_entries
WHERE account = ?
ORDER BY id ASC
`, account)
	if err != nil {
		return nil, fmt.Errorf("list sack entries: %w", err)
	}
	defer rows.Close()

	var out []storage.SackEntry
	for rows.Next() {
		var entry storage.SackEntry
		var price, caughtAt int64
		if err := rows.Scan(&entry.ID, &entry.Account, &entry.Species, &entry.Weight, &price, &entry.IsBait, &caughtAt); err != nil {
			return nil, fmt.Errorf("scan sack entry: %w", err)
		}
		entry.Price = domain.Money(price)
		entry.CaughtAt = fromMillis(caughtAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// CountSackEntries returns how many fish the account holds.
func (s *Store) CountSackEntries(ctx context.Context, account string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM sack_entries WHERE account = ?
`, account).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sack entries: %w", err)
	}
	return count, nil
}

// DeleteSackEntry removes one fish by id, scoped to the account.
func (s *Store) DeleteSackEntry(ctx context.Context, account string, id int64) error {
	result, err := s.q.ExecContext(ctx, `
DELETE FROM sack_entries WHERE account = ? AND id = ?
`, account, id)
	if err != nil {
		return fmt.Errorf("delete sack entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sack entry: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteNonBaitEntries empties the sack except any flagged bait.
func (s *Store) DeleteNonBaitEntries(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM sack_entries WHERE account = ? AND is_bait = 0
`, account)
	if err != nil {
		return fmt.Errorf("delete non-bait entries: %w", err)
	}
	return nil
}

// SetBait clears any prior bait flag for the account, then flags id. Both
// statements run on the caller's transaction so exactly one bait survives.
func (s *Store) SetBait(ctx context.Context, account string, id int64) error {
	if _, err := s.q.ExecContext(ctx, `
UPDATE sack_entries SET is_bait = 0 WHERE account = ? AND is_bait = 1
`, account); err != nil {
		return fmt.Errorf("clear prior bait: %w", err)
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE sack_entries SET is_bait = 1 WHERE account = ? AND id = ?
`, account, id)
	if err != nil {
		return fmt.Errorf("set bait: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set bait: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClearBait unflags any bait entry for the account.
func (s *Store) ClearBait(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `
UPDATE sack_entries SET is_bait = 0 WHERE account = ? AND is_bait = 1
`, account)
	if err != nil {
		return fmt.Errorf("clear bait: %w", err)
	}
	return nil
}

// GetBait returns the account's flagged bait entry.
func (s *Store) GetBait(ctx context.Context, account string) (storage.SackEntry, error) {
	var entry storage.SackEntry
	var price, caughtAt int64
	err := s.q.QueryRowContext(ctx, `
SELECT id, account, species, weight, price_cents, is_bait, caught_at
FROM sack_entries
WHERE account = ? AND is_bait = 1
LIMIT 1
`, account).Scan(&entry.ID, &entry.Account, &entry.Species, &entry.Weight, &price, &entry.IsBait, &caughtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SackEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SackEntry{}, fmt.Errorf("get bait: %w", err)
	}
	entry.Price = domain.Money(price)
	entry.CaughtAt = fromMillis(caughtAt)
	return entry, nil
}

// ReassignSack moves every sack row from one account to another. The bait
// flag is dropped on the way over so the target's own bait, if any, stays
// unique.
func (s *Store) ReassignSack(ctx context.Context, from, to string) error {
	_, err := s.q.ExecContext(ctx, `
UPDATE sack_entries SET account = ?, is_bait = 0 WHERE account = ?
`, to, from)
	if err != nil {
		return fmt.Errorf("reassign sack: %w", err)
	}
	return nil
}
