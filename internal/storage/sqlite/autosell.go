package sqlite

import (
	"context"
	"fmt"
)

func (s *Store) ListAutosell(ctx context.Context, account string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT species FROM autosell_fish WHERE account = ? ORDER BY species
`, account)
	if err != nil {
		return nil, fmt.Errorf("list autosell: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var species string
		if err := rows.Scan(&species); err != nil {
			return nil, fmt.Errorf("scan autosell: %w", err)
		}
		out = append(out, species)
	}
	return out, rows.Err()
}

func (s *Store) AddAutosell(ctx context.Context, account, species string) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO autosell_fish (account, species)
VALUES (?, ?)
ON CONFLICT(account, species) DO NOTHING
`, account, species)
	if err != nil {
		return fmt.Errorf("add autosell: %w", err)
	}
	return nil
}

func (s *Store) RemoveAutosell(ctx context.Context, account, species string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM autosell_fish WHERE account = ? AND species = ?
`, account, species)
	if err != nil {
		return fmt.Errorf("remove autosell: %w", err)
	}
	return nil
}

func (s *Store) ClearAutosell(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM autosell_fish WHERE account = ?
`, account)
	if err != nil {
		return fmt.Errorf("clear autosell: %w", err)
	}
	return nil
}

// ReassignAutosell folds one account's list into another, dropping species
// the target already lists.
func (s *Store) ReassignAutosell(ctx context.Context, from, to string) error {
	if _, err := s.q.ExecContext(ctx, `
INSERT INTO autosell_fish (account, species)
SELECT ?, species FROM autosell_fish WHERE account = ?
ON CONFLICT(account, species) DO NOTHING
`, to, from); err != nil {
		return fmt.Errorf("reassign autosell: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, `
DELETE FROM autosell_fish WHERE account = ?
`, from); err != nil {
		return fmt.Errorf("reassign autosell: %w", err)
	}
	return nil
}
