// Package consume implements drinking and smoking: a consumable item is
// removed from the inventory and its status effects are applied.
package consume

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/game/inventory"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// Consumable kinds.
const (
	KindBeer    = "beer"
	KindTobacco = "tobacco"
)

// Result is the outcome of consuming an item.
type Result struct {
	Item     string
	Quantity int
	// Descriptions joins the flavor text of every applied effect.
	Descriptions []string
}

// Service resolves and consumes drinkable and smokable items.
type Service struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewService creates a consumption service.
func NewService(store storage.Store, cat *catalog.Catalog, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, catalog: cat, now: now}
}

// Drink consumes a beer. An empty target drinks the first beer held; "all"
// drains every unit of that beer, stacking its effects.
func (s *Service) Drink(ctx context.Context, account, target string) (Result, error) {
	return s.consume(ctx, account, KindBeer, target)
}

// Smoke consumes a tobacco item.
func (s *Service) Smoke(ctx context.Context, account, target string) (Result, error) {
	return s.consume(ctx, account, KindTobacco, target)
}

func (s *Service) consume(ctx context.Context, account, kind, target string) (Result, error) {
	target = strings.TrimSpace(target)
	all := strings.EqualFold(target, "all")
	if all {
		target = ""
	}

	var result Result
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		item, err := resolve(ctx, tx, account, kind, target)
		if err != nil {
			return err
		}

		quantity := 1
		if all {
			quantity = item.Quantity
		}
		if err := tx.SetItemQuantity(ctx, account, item.Name, item.Quantity-quantity); err != nil {
			return fmt.Errorf("consume %s: %w", item.Name, err)
		}

		engine := effects.NewEngine(tx, s.catalog, s.now)
		result = Result{Item: item.Name, Quantity: quantity}
		for i := 0; i < quantity; i++ {
			for _, ref := range item.Attributes.Effects {
				applied, err := engine.Add(ctx, account, ref)
				if err != nil {
					return err
				}
				if i == 0 {
					result.Descriptions = append(result.Descriptions, applied.Description)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// resolve picks the consumable to use: the first held item of the kind when
// target is empty, otherwise the closest fuzzy name match at or above the
// acceptance threshold.
func resolve(ctx context.Context, tx storage.Store, account, kind, target string) (storage.InventoryItem, error) {
	items, err := tx.ListItems(ctx, account)
	if err != nil {
		return storage.InventoryItem{}, fmt.Errorf("read items: %w", err)
	}

	var held []storage.InventoryItem
	for _, item := range items {
		if strings.EqualFold(item.Attributes.Kind, kind) {
			held = append(held, item)
		}
	}
	if len(held) == 0 {
		return storage.InventoryItem{}, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"no consumable of kind held",
			map[string]string{"Item": kind})
	}
	if target == "" {
		return held[0], nil
	}

	best := held[0]
	bestScore := inventory.Similarity(target, best.Name)
	for _, item := range held[1:] {
		if score := inventory.Similarity(target, item.Name); score > bestScore {
			best = item
			bestScore = score
		}
	}
	if bestScore < 0.8 {
		return storage.InventoryItem{}, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"no close name match",
			map[string]string{"Item": target})
	}
	return best, nil
}
