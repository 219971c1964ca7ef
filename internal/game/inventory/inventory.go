// Package inventory manages per-account item stacks and the perishable
// catch sack.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// Service provides item and sack operations. Item identity is the exact
// name; removal and lookups match case-insensitively.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates an inventory service backed by store.
func NewService(store storage.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// AddItem upserts an item stack, summing quantity into any existing stack.
func (s *Service) AddItem(ctx context.Context, account, name string, attrs domain.ItemAttributes, qty int) error {
	if qty <= 0 {
		return apperrors.New(apperrors.CodeInvalidAmount, "quantity must be greater than zero")
	}
	return s.store.AddItemQuantity(ctx, storage.InventoryItem{
		Account:    account,
		Name:       name,
		Attributes: attrs,
		Quantity:   qty,
	})
}

// RemoveItem subtracts qty from the named stack, matching the name
// case-insensitively. The row is deleted when the stack reaches zero.
func (s *Service) RemoveItem(ctx context.Context, account, name string, qty int) error {
	if qty <= 0 {
		return apperrors.New(apperrors.CodeInvalidAmount, "quantity must be greater than zero")
	}
	return s.store.InTransaction(ctx, func(tx storage.Store) error {
		item, err := tx.GetItemFold(ctx, account, name)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeItemNotFound,
				"item not held",
				map[string]string{"Item": name})
		}
		if err != nil {
			return fmt.Errorf("read item: %w", err)
		}
		if item.Quantity < qty {
			return apperrors.WithMetadata(apperrors.CodeInsufficientQuantity,
				"stack smaller than removal",
				map[string]string{"Item": item.Name, "Held": strconv.Itoa(item.Quantity)})
		}
		return tx.SetItemQuantity(ctx, account, item.Name, item.Quantity-qty)
	})
}

// Item returns the named item, matching case-insensitively.
func (s *Service) Item(ctx context.Context, account, name string) (storage.InventoryItem, error) {
	item, err := s.store.GetItemFold(ctx, account, name)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.InventoryItem{}, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"item not held",
			map[string]string{"Item": name})
	}
	return item, err
}

// Items lists every stack the account holds.
func (s *Service) Items(ctx context.Context, account string) ([]storage.InventoryItem, error) {
	return s.store.ListItems(ctx, account)
}

// ItemsByType filters the account's items by kind, case-insensitively.
func (s *Service) ItemsByType(ctx context.Context, account, kind string) ([]storage.InventoryItem, error) {
	items, err := s.store.ListItems(ctx, account)
	if err != nil {
		return nil, err
	}
	var out []storage.InventoryItem
	for _, item := range items {
		if strings.EqualFold(item.Attributes.Kind, kind) {
			out = append(out, item)
		}
	}
	return out, nil
}

// FuzzyFind returns the held item whose name is most similar to query. The
// match is accepted only at similarity 0.8 or above; below the threshold the
// best candidate is still reported but accepted is false, so callers never
// substitute silently.
func (s *Service) FuzzyFind(ctx context.Context, account, query string) (storage.InventoryItem, float64, bool, error) {
	items, err := s.store.ListItems(ctx, account)
	if err != nil {
		return storage.InventoryItem{}, 0, false, err
	}

	var best storage.InventoryItem
	bestScore := -1.0
	for _, item := range items {
		score := Similarity(query, item.Name)
		if score > bestScore {
			best = item
			bestScore = score
		}
	}
	if bestScore < 0 {
		return storage.InventoryItem{}, 0, false, nil
	}
	return best, bestScore, bestScore >= similarityThreshold, nil
}

const similarityThreshold = 0.8

// Similarity scores two names on [0,1] using normalized edit distance.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// AddCatch stores a caught fish in the account's sack.
func (s *Service) AddCatch(ctx context.Context, account, species string, weight float64, price domain.Money) (int64, error) {
	return s.store.AddSackEntry(ctx, storage.SackEntry{
		Account:  account,
		Species:  species,
		Weight:   weight,
		Price:    price,
		CaughtAt: s.now(),
	})
}

// RemoveCatch deletes one sack entry by id.
func (s *Service) RemoveCatch(ctx context.Context, account string, id int64) error {
	err := s.store.DeleteSackEntry(ctx, account, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeFishNotFound, "sack entry not found")
	}
	return err
}

// ListCatches returns the account's sack in catch order.
func (s *Service) ListCatches(ctx context.Context, account string) ([]storage.SackEntry, error) {
	return s.store.ListSackEntries(ctx, account)
}

// SetBait flags one sack entry as bait, clearing any prior flag in the same
// transaction so at most one bait exists per account.
func (s *Service) SetBait(ctx context.Context, account string, id int64) error {
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		return tx.SetBait(ctx, account, id)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeFishNotFound, "sack entry not found")
	}
	return err
}

// ClearBait removes the account's bait flag, if any.
func (s *Service) ClearBait(ctx context.Context, account string) error {
	return s.store.ClearBait(ctx, account)
}

// Bait returns the flagged bait entry, or found=false when none is set.
func (s *Service) Bait(ctx context.Context, account string) (storage.SackEntry, bool, error) {
	entry, err := s.store.GetBait(ctx, account)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.SackEntry{}, false, nil
	}
	if err != nil {
		return storage.SackEntry{}, false, err
	}
	return entry, true, nil
}
