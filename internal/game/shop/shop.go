// Package shop sells catalog equipment and consumables.
package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// Receipt summarizes a purchase.
type Receipt struct {
	Item     catalog.ShopItem
	Quantity int
	Cost     domain.Money
	Balance  domain.Money
}

// Service lists shop stock and settles purchases.
type Service struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewService creates a shop service.
func NewService(store storage.Store, cat *catalog.Catalog, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, catalog: cat, now: now}
}

// Categories lists the shop categories.
func (s *Service) Categories() []string {
	return s.catalog.ShopCategories()
}

// Stock returns the items of one category, case-insensitively.
func (s *Service) Stock(category string) ([]catalog.ShopItem, error) {
	items, ok := s.catalog.ShopCategory(category)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"shop category not found",
			map[string]string{"Item": category})
	}
	return items, nil
}

// Buy debits the ledger and adds the item to the inventory. The per-item
// ownership cap and the funds check run in the same transaction as the
// debit, so a rejected purchase changes nothing.
func (s *Service) Buy(ctx context.Context, account, name string, qty int) (Receipt, error) {
	if qty <= 0 {
		return Receipt{}, apperrors.New(apperrors.CodeInvalidAmount, "quantity must be greater than zero")
	}
	item, ok := s.catalog.ShopItem(name)
	if !ok {
		return Receipt{}, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"item not sold here",
			map[string]string{"Item": name})
	}

	var receipt Receipt
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		owned := 0
		existing, err := tx.GetItemFold(ctx, account, item.Name)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("read item: %w", err)
		}
		if err == nil {
			owned = existing.Quantity
		}
		if owned+qty > item.Max {
			return apperrors.WithMetadata(apperrors.CodeOwnershipCapReached,
				"ownership cap reached",
				map[string]string{"Item": item.Name, "Max": strconv.Itoa(item.Max)})
		}

		cost := item.Price * domain.Money(qty)
		balance, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		if cost > balance {
			return apperrors.WithMetadata(apperrors.CodeInsufficientFunds,
				"purchase exceeds balance",
				map[string]string{"Balance": balance.Format()})
		}

		balance -= cost
		if err := tx.SetBalance(ctx, account, balance, s.now()); err != nil {
			return err
		}
		if err := tx.AddItemQuantity(ctx, storage.InventoryItem{
			Account:    account,
			Name:       item.Name,
			Attributes: item.Attributes,
			Quantity:   qty,
		}); err != nil {
			return fmt.Errorf("stock item: %w", err)
		}

		receipt = Receipt{Item: item, Quantity: qty, Cost: cost, Balance: balance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}
