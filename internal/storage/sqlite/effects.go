package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/tacklebox/internal/storage"
)

func (s *Store) ListEffects(ctx context.Context, account string) ([]storage.StatusEffect, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT account, module_id, effect_id, expires_at
FROM status_effects
WHERE account = ?
ORDER BY module_id, effect_id
`, account)
	if err != nil {
		return nil, fmt.Errorf("list effects: %w", err)
	}
	defer rows.Close()

	var out []storage.StatusEffect
	for rows.Next() {
		var effect storage.StatusEffect
		var expiresAt int64
		if err := rows.Scan(&effect.Account, &effect.ModuleID, &effect.EffectID, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		effect.ExpiresAt = fromMillis(expiresAt)
		out = append(out, effect)
	}
	return out, rows.Err()
}

func (s *Store) UpsertEffect(ctx context.Context, effect storage.StatusEffect) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO status_effects (account, module_id, effect_id, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(account, module_id, effect_id) DO UPDATE SET expires_at = excluded.expires_at
`, effect.Account, effect.ModuleID, effect.EffectID, toMillis(effect.ExpiresAt))
	if err != nil {
		return fmt.Errorf("upsert effect: %w", err)
	}
	return nil
}

func (s *Store) DeleteEffect(ctx context.Context, account, moduleID, effectID string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM status_effects WHERE account = ? AND module_id = ? AND effect_id = ?
`, account, moduleID, effectID)
	if err != nil {
		return fmt.Errorf("delete effect: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllEffects(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM status_effects WHERE account = ?
`, account)
	if err != nil {
		return fmt.Errorf("delete all effects: %w", err)
	}
	return nil
}
