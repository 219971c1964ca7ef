package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// ListTrophies returns the account's trophies in display order.
func (s *Store) ListTrophies(ctx context.Context, account string) ([]storage.TrophyEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT id, account, species, weight, price_cents, added_at
FROM trophy_fish
WHERE account = ?
ORDER BY id ASC
`, account)
	if err != nil {
		return nil, fmt.Errorf("list trophies: %w", err)
	}
	defer rows.Close()

	var out []storage.TrophyEntry
	for rows.Next() {
		var entry storage.TrophyEntry
		var price, addedAt int64
		if err := rows.Scan(&entry.ID, &entry.Account, &entry.Species, &entry.Weight, &price, &addedAt); err != nil {
			return nil, fmt.Errorf("scan trophy: %w", err)
		}
		entry.Price = domain.Money(price)
		entry.AddedAt = fromMillis(addedAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) CountTrophies(ctx context.Context, account string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM trophy_fish WHERE account = ?
`, account).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trophies: %w", err)
	}
	return count, nil
}

func (s *Store) InsertTrophy(ctx context.Context, entry storage.TrophyEntry) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
INSERT INTO trophy_fish (account, species, weight, price_cents, added_at)
VALUES (?, ?, ?, ?, ?)
`, entry.Account, entry.Species, entry.Weight, int64(entry.Price), toMillis(entry.AddedAt))
	if err != nil {
		return 0, fmt.Errorf("insert trophy: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert trophy: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteTrophy(ctx context.Context, account string, id int64) error {
	result, err := s.q.ExecContext(ctx, `
DELETE FROM trophy_fish WHERE account = ? AND id = ?
`, account, id)
	if err != nil {
		return fmt.Errorf("delete trophy: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trophy: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ReassignTrophies(ctx context.Context, from, to string) error {
	_, err := s.q.ExecContext(ctx, `
UPDATE trophy_fish SET account = ? WHERE account = ?
`, to, from)
	if err != nil {
		return fmt.Errorf("reassign trophies: %w", err)
	}
	return nil
}
