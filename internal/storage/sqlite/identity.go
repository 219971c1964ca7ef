package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/tacklebox/internal/storage"
)

func (s *Store) GetLink(ctx context.Context, platform, handle string) (storage.AccountLink, error) {
	var link storage.AccountLink
	var linkedAt int64
	err := s.q.QueryRowContext(ctx, `
SELECT account_id, platform, handle, linked_at
FROM account_links
WHERE platform = ? AND handle = ?
`, platform, handle).Scan(&link.AccountID, &link.Platform, &link.Handle, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.AccountLink{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.AccountLink{}, fmt.Errorf("get link: %w", err)
	}
	link.LinkedAt = fromMillis(linkedAt)
	return link, nil
}

func (s *Store) ListLinks(ctx context.Context, accountID int64) ([]storage.AccountLink, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT account_id, platform, handle, linked_at
FROM account_links
WHERE account_id = ?
ORDER BY platform, handle
`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []storage.AccountLink
	for rows.Next() {
		var link storage.AccountLink
		var linkedAt int64
		if err := rows.Scan(&link.AccountID, &link.Platform, &link.Handle, &linkedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		link.LinkedAt = fromMillis(linkedAt)
		out = append(out, link)
	}
	return out, rows.Err()
}

func (s *Store) InsertLink(ctx context.Context, link storage.AccountLink) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO account_links (account_id, platform, handle, linked_at)
VALUES (?, ?, ?, ?)
`, link.AccountID, link.Platform, link.Handle, toMillis(link.LinkedAt))
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// NextAccountID allocates the next canonical account id. Callers run it
// inside the linking transaction, so MAX+1 cannot race.
func (s *Store) NextAccountID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.q.QueryRowContext(ctx, `
SELECT MAX(account_id) FROM account_links
`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next account id: %w", err)
	}
	return max.Int64 + 1, nil
}

func (s *Store) GetLinkCode(ctx context.Context, code string) (storage.LinkCode, error) {
	var lc storage.LinkCode
	var expiresAt int64
	err := s.q.QueryRowContext(ctx, `
SELECT code, platform, handle, expires_at
FROM link_codes
WHERE code = ?
`, code).Scan(&lc.Code, &lc.Platform, &lc.Handle, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.LinkCode{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.LinkCode{}, fmt.Errorf("get link code: %w", err)
	}
	lc.ExpiresAt = fromMillis(expiresAt)
	return lc, nil
}

// PutLinkCode stores a pending code, replacing any earlier code issued for
// the same platform identity.
func (s *Store) PutLinkCode(ctx context.Context, code storage.LinkCode) error {
	if err := s.DeleteLinkCodeForIdentity(ctx, code.Platform, code.Handle); err != nil {
		return fmt.Errorf("replace link code: %w", err)
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO link_codes (code, platform, handle, expires_at)
VALUES (?, ?, ?, ?)
`, code.Code, code.Platform, code.Handle, toMillis(code.ExpiresAt))
	if err != nil {
		return fmt.Errorf("put link code: %w", err)
	}
	return nil
}

func (s *Store) DeleteLinkCode(ctx context.Context, code string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM link_codes WHERE code = ?
`, code)
	if err != nil {
		return fmt.Errorf("delete link code: %w", err)
	}
	return nil
}

func (s *Store) DeleteLinkCodeForIdentity(ctx context.Context, platform, handle string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM link_codes WHERE platform = ? AND handle = ?
`, platform, handle)
	if err != nil {
		return fmt.Errorf("delete link code for identity: %w", err)
	}
	return nil
}
