package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

func marshalAttributes(attrs domain.ItemAttributes) (string, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal item attributes: %w", err)
	}
	return string(data), nil
}

func unmarshalAttributes(data string) (domain.ItemAttributes, error) {
	var attrs domain.ItemAttributes
	if data == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return attrs, fmt.Errorf("unmarshal item attributes: %w", err)
	}
	return attrs, nil
}

func (s *Store) scanItem(row *sql.Row) (storage.InventoryItem, error) {
	var item storage.InventoryItem
	var attrs string
	err := row.Scan(&item.Account, &item.Name, &attrs, &item.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.InventoryItem{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.InventoryItem{}, fmt.Errorf("scan inventory item: %w", err)
	}
	item.Attributes, err = unmarshalAttributes(attrs)
	if err != nil {
		return storage.InventoryItem{}, err
	}
	return item, nil
}

// GetItem returns the exact-named item stack.
func (s *Store) GetItem(ctx context.Context, account, name string) (storage.InventoryItem, error) {
	row := s.q.QueryRowContext(ctx, `
SELECT account, name, attributes, quantity
FROM inventory_items
WHERE account = ? AND name = ?
`, account, name)
	return s.scanItem(row)
}

// GetItemFold returns the item stack matching name case-insensitively.
func (s *Store) GetItemFold(ctx context.Context, account, name string) (storage.InventoryItem, error) {
	row := s.q.QueryRowContext(ctx, `
SELECT account, name, attributes, quantity
FROM inventory_items
WHERE account = ? AND name = ? COLLATE NOCASE
LIMIT 1
`, account, name)
	return s.scanItem(row)
}

// AddItemQuantity upserts the item row, summing quantities.
func (s *Store) AddItemQuantity(ctx context.Context, item storage.InventoryItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	attrs, err := marshalAttributes(item.Attributes)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
INSERT INTO inventory_items (account, name, attributes, quantity)
VALUES (?, ?, ?, ?)
ON CONFLICT(account, name) DO UPDATE SET quantity = inventory_items.quantity + excluded.quantity
`, item.Account, item.Name, attrs, item.Quantity)
	if err != nil {
		return fmt.Errorf("add item quantity: %w", err)
	}
	return nil
}

// SetItemQuantity overwrites the stack quantity, deleting the row at zero.
func (s *Store) SetItemQuantity(ctx context.Context, account, name string, quantity int) error {
	if quantity <= 0 {
		return s.DeleteItem(ctx, account, name)
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE inventory_items SET quantity = ? WHERE account = ? AND name = ?
`, quantity, account, name)
	if err != nil {
		return fmt.Errorf("set item quantity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set item quantity: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteItem removes one item stack.
func (s *Store) DeleteItem(ctx context.Context, account, name string) error {
	_, err := s.q.ExecContext(ctx, `
DELETE FROM inventory_items WHERE account = ? AND name = ?
`, account, name)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// DeleteAllItems removes every stack owned by the account.
func (s *Store) DeleteAllItems(ctx context.Context, account string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM inventory_items WHERE account = ?`, account)
	if err != nil {
		return fmt.Errorf("delete all items: %w", err)
	}
	return nil
}

// ListItems returns the account's inventory in name order.
func (s *Store) ListItems(ctx context.Context, account string) ([]storage.InventoryItem, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT account, name, attributes, quantity
FROM inventory_items
WHERE account = ?
ORDER BY name ASC
`, account)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []storage.InventoryItem
	for rows.Next() {
		var item storage.InventoryItem
		var attrs string
		if err := rows.Scan(&item.Account, &item.Name, &attrs, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		item.Attributes, err = unmarshalAttributes(attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
