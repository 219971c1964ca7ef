// Package catch implements the fishing roll and the verbs that move fish
// out of the sack: sell, eat, bait and autosell.
package catch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/storage"
)

const (
	// defaultCapacity bounds the sack when no sack item is owned.
	defaultCapacity = 5
	// baseMissChance is the miss probability before rod and effect scaling.
	baseMissChance = 0.3
	// baitMissStep is the miss-chance bump per rarity tier between the bait
	// and the rod's rarity floor.
	baitMissStep = 0.1
	// itemRatePenalty halves a non-fish entry's rate per tier below the floor.
	itemRatePenalty = 0.5

	effectModule = "fishing"
)

// OutcomeKind classifies a cast result.
type OutcomeKind int

const (
	// OutcomeNone is a cast that caught nothing.
	OutcomeNone OutcomeKind = iota
	// OutcomeFish landed a fish into the sack.
	OutcomeFish
	// OutcomeItem pulled up a non-fish item into the inventory.
	OutcomeItem
)

// Outcome is the result of one cast. A no-catch is data, not a failure.
type Outcome struct {
	Kind        OutcomeKind
	Species     string
	Weight      float64
	Price       domain.Money
	Description string
	// BaitUsed names the consumed bait species, empty when none was set.
	BaitUsed string
	// Autosold reports the fish was sold immediately per the autosell list.
	Autosold bool
	Balance  domain.Money
}

// SellReceipt summarizes a sell verb.
type SellReceipt struct {
	Sold    []storage.SackEntry
	Total   domain.Money
	Balance domain.Money
}

// EatResult is the outcome of eating a fish.
type EatResult struct {
	Species     string
	Description string
}

// Engine rolls catches and settles fish against the ledger. All verbs run
// as single transactions; the dispatcher additionally serializes verbs per
// account.
type Engine struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
	// roll returns a uniform draw in [0,1). One injected source keeps casts
	// deterministic under test.
	roll func() float64
}

// NewEngine creates a catch engine.
func NewEngine(store storage.Store, cat *catalog.Catalog, now func() time.Time, roll func() float64) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, catalog: cat, now: now, roll: roll}
}

type candidate struct {
	entry catalog.CatchEntry
	rate  float64
}

// Cast performs one fishing roll for the account.
func (e *Engine) Cast(ctx context.Context, account string) (Outcome, error) {
	var out Outcome
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		out = Outcome{}

		items, err := tx.ListItems(ctx, account)
		if err != nil {
			return fmt.Errorf("read items: %w", err)
		}
		rod := equippedRod(items)
		capacity := equippedCapacity(items)

		if capacity > 0 {
			count, err := tx.CountSackEntries(ctx, account)
			if err != nil {
				return fmt.Errorf("count sack: %w", err)
			}
			if count >= capacity {
				return apperrors.WithMetadata(apperrors.CodeInsufficientCapacity,
					"sack at capacity",
					map[string]string{"Capacity": strconv.Itoa(capacity)})
			}
		}

		active, err := effects.NewEngine(tx, e.catalog, e.now).Active(ctx, account)
		if err != nil {
			return err
		}

		rodNoneMult := rod.FishNoneRateMultiplier
		if rodNoneMult == 0 {
			rodNoneMult = 1
		}
		missChance := baseMissChance * rodNoneMult * effects.MultFor(active, effectModule, "miss_rate")
		floor, _ := domain.ParseRarity(rod.FishMinimumRarity)

		bait, baitSet, err := currentBait(ctx, tx, account)
		if err != nil {
			return err
		}
		if baitSet {
			if err := tx.DeleteSackEntry(ctx, account, bait.ID); err != nil {
				return fmt.Errorf("consume bait: %w", err)
			}
			out.BaitUsed = bait.Species
			baitRarity := domain.RarityCommon
			if entry, ok := e.catalog.Entry(bait.Species); ok {
				baitRarity = entry.Rarity
			}
			if bump := baitMissStep * float64(baitRarity-floor); bump > 0 {
				missChance += bump
			}
			if baitRarity > floor {
				floor = baitRarity
			}
		}

		missChance = clamp01(missChance)

		candidates := e.buildCandidates(floor, active)
		var mass float64
		for _, c := range candidates {
			mass += c.rate
		}
		total := mass * (1 + missChance)
		if total <= 0 {
			out.Kind = OutcomeNone
			return nil
		}

		r := e.roll() * total
		var cum float64
		for _, c := range candidates {
			cum += c.rate
			if r <= cum {
				return e.land(ctx, tx, account, c.entry, active, &out)
			}
		}

		// The draw fell in the miss mass past the candidate rates.
		out.Kind = OutcomeNone
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// buildCandidates assembles the eligible catch-table rows with their scaled
// rates. Fish below the rarity floor drop out; non-fish entries stay in at
// a halved rate per tier below the floor.
func (e *Engine) buildCandidates(floor domain.Rarity, active []effects.ActiveEffect) []candidate {
	catchMult := effects.MultFor(active, effectModule, "catch_rate")
	legendaryMult := effects.MultFor(active, effectModule, "legendary_rate")
	itemMult := effects.MultFor(active, effectModule, "item_rate") *
		effects.MultFor(active, effectModule, "case_rate")

	var out []candidate
	for _, entry := range e.catalog.Catch {
		rate := entry.CatchRate
		if entry.Kind == catalog.KindFish {
			if entry.Rarity < floor {
				continue
			}
			if entry.Rarity == domain.RarityLegendary {
				rate *= legendaryMult
			}
		} else {
			rate *= math.Pow(itemRatePenalty, float64(entry.Rarity.StepsBelow(floor)))
			rate *= itemMult
		}
		rate *= catchMult
		if rate <= 0 {
			continue
		}
		out = append(out, candidate{entry: entry, rate: rate})
	}
	return out
}

// land persists a drawn catch-table entry and fills the outcome.
func (e *Engine) land(ctx context.Context, tx storage.Store, account string, entry catalog.CatchEntry, active []effects.ActiveEffect, out *Outcome) error {
	if entry.Kind != catalog.KindFish {
		out.Kind = OutcomeItem
		out.Species = entry.Name
		out.Description = entry.Description
		return tx.AddItemQuantity(ctx, storage.InventoryItem{
			Account:    account,
			Name:       entry.Name,
			Attributes: entry.Attributes,
			Quantity:   1,
		})
	}

	weight := entry.MinWeight + e.roll()*(entry.MaxWeight-entry.MinWeight)
	price := weight * entry.PriceMultiplier * effects.MultFor(active, effectModule, "price")

	out.Kind = OutcomeFish
	out.Species = entry.Name
	out.Weight = weight
	out.Price = domain.MoneyFromFloat(price)
	out.Description = entry.Description

	id, err := tx.AddSackEntry(ctx, storage.SackEntry{
		Account:  account,
		Species:  entry.Name,
		Weight:   weight,
		Price:    out.Price,
		CaughtAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("store catch: %w", err)
	}

	listed, err := onAutosellList(ctx, tx, account, entry.Name)
	if err != nil {
		return err
	}
	if !listed {
		return nil
	}
	if err := tx.DeleteSackEntry(ctx, account, id); err != nil {
		return fmt.Errorf("autosell catch: %w", err)
	}
	balance, err := tx.GetBalance(ctx, account)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	out.Autosold = true
	out.Balance = balance + out.Price
	return tx.SetBalance(ctx, account, out.Balance, e.now())
}

// Sell converts sack fish to balance. An empty target sells the first fish,
// "all" sells everything except the bait, any other target sells the first
// case-insensitive species match.
func (e *Engine) Sell(ctx context.Context, account, target string) (SellReceipt, error) {
	target = strings.TrimSpace(target)
	var receipt SellReceipt
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		receipt = SellReceipt{}

		entries, err := tx.ListSackEntries(ctx, account)
		if err != nil {
			return fmt.Errorf("read sack: %w", err)
		}

		var sold []storage.SackEntry
		switch {
		case strings.EqualFold(target, "all"):
			for _, entry := range entries {
				if entry.IsBait {
					continue
				}
				sold = append(sold, entry)
			}
			if len(sold) == 0 {
				return apperrors.New(apperrors.CodeSackEmpty, "nothing to sell")
			}
		case target == "":
			if len(entries) == 0 {
				return apperrors.New(apperrors.CodeSackEmpty, "nothing to sell")
			}
			sold = entries[:1]
		default:
			for _, entry := range entries {
				if strings.EqualFold(entry.Species, target) {
					sold = append(sold, entry)
					break
				}
			}
			if len(sold) == 0 {
				return apperrors.WithMetadata(apperrors.CodeFishNotFound,
					"no matching fish in sack",
					map[string]string{"Fish": target})
			}
		}

		if strings.EqualFold(target, "all") {
			if err := tx.DeleteNonBaitEntries(ctx, account); err != nil {
				return fmt.Errorf("remove sold fish: %w", err)
			}
			for _, entry := range sold {
				receipt.Total += entry.Price
			}
		} else {
			for _, entry := range sold {
				if err := tx.DeleteSackEntry(ctx, account, entry.ID); err != nil {
					return fmt.Errorf("remove sold fish: %w", err)
				}
				receipt.Total += entry.Price
			}
		}
		receipt.Sold = sold

		balance, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		receipt.Balance = balance + receipt.Total
		return tx.SetBalance(ctx, account, receipt.Balance, e.now())
	})
	if err != nil {
		return SellReceipt{}, err
	}
	return receipt, nil
}

// Eat removes a fish from the sack and returns its catalog description. An
// empty target eats the first fish.
func (e *Engine) Eat(ctx context.Context, account, target string) (EatResult, error) {
	target = strings.TrimSpace(target)
	var result EatResult
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		entries, err := tx.ListSackEntries(ctx, account)
		if err != nil {
			return fmt.Errorf("read sack: %w", err)
		}
		if len(entries) == 0 {
			return apperrors.New(apperrors.CodeSackEmpty, "nothing to eat")
		}

		var meal *storage.SackEntry
		if target == "" {
			meal = &entries[0]
		} else {
			for i := range entries {
				if strings.EqualFold(entries[i].Species, target) {
					meal = &entries[i]
					break
				}
			}
			if meal == nil {
				return apperrors.WithMetadata(apperrors.CodeFishNotFound,
					"no matching fish in sack",
					map[string]string{"Fish": target})
			}
		}

		if err := tx.DeleteSackEntry(ctx, account, meal.ID); err != nil {
			return fmt.Errorf("remove eaten fish: %w", err)
		}
		result.Species = meal.Species
		result.Description = fmt.Sprintf("You eat the %s.", meal.Species)
		if entry, ok := e.catalog.Entry(meal.Species); ok && entry.Description != "" {
			result.Description = entry.Description
		}
		return nil
	})
	if err != nil {
		return EatResult{}, err
	}
	return result, nil
}

// SetBait flags a sack fish as the next cast's bait. An empty target picks
// the cheapest fish. Returns the flagged entry; alreadySet reports the
// chosen fish was the bait before the call.
func (e *Engine) SetBait(ctx context.Context, account, target string) (storage.SackEntry, bool, error) {
	target = strings.TrimSpace(target)
	var chosen storage.SackEntry
	var alreadySet bool
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		entries, err := tx.ListSackEntries(ctx, account)
		if err != nil {
			return fmt.Errorf("read sack: %w", err)
		}
		if len(entries) == 0 {
			return apperrors.New(apperrors.CodeSackEmpty, "no fish to use as bait")
		}

		found := false
		if target == "" {
			chosen = entries[0]
			for _, entry := range entries[1:] {
				if entry.Price < chosen.Price {
					chosen = entry
				}
			}
			found = true
		} else {
			for _, entry := range entries {
				if strings.EqualFold(entry.Species, target) {
					chosen = entry
					found = true
					break
				}
			}
		}
		if !found {
			return apperrors.WithMetadata(apperrors.CodeFishNotFound,
				"no matching fish in sack",
				map[string]string{"Fish": target})
		}

		if chosen.IsBait {
			alreadySet = true
			return nil
		}
		return tx.SetBait(ctx, account, chosen.ID)
	})
	if err != nil {
		return storage.SackEntry{}, false, err
	}
	return chosen, alreadySet, nil
}

// Autosell returns the account's autosell species list.
func (e *Engine) Autosell(ctx context.Context, account string) ([]string, error) {
	return e.store.ListAutosell(ctx, account)
}

// AddAutosell lists a species for immediate sale on catch. The species must
// exist in the catch table as a fish.
func (e *Engine) AddAutosell(ctx context.Context, account, species string) (string, error) {
	entry, ok := e.catalog.Entry(species)
	if !ok || entry.Kind != catalog.KindFish {
		return "", apperrors.WithMetadata(apperrors.CodeFishNotFound,
			"species not in catch table",
			map[string]string{"Fish": species})
	}
	if err := e.store.AddAutosell(ctx, account, entry.Name); err != nil {
		return "", err
	}
	return entry.Name, nil
}

// RemoveAutosell delists a species.
func (e *Engine) RemoveAutosell(ctx context.Context, account, species string) (string, error) {
	entry, ok := e.catalog.Entry(species)
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeFishNotFound,
			"species not in catch table",
			map[string]string{"Fish": species})
	}
	if err := e.store.RemoveAutosell(ctx, account, entry.Name); err != nil {
		return "", err
	}
	return entry.Name, nil
}

// ClearAutosell empties the account's autosell list.
func (e *Engine) ClearAutosell(ctx context.Context, account string) error {
	return e.store.ClearAutosell(ctx, account)
}

func currentBait(ctx context.Context, tx storage.Store, account string) (storage.SackEntry, bool, error) {
	bait, err := tx.GetBait(ctx, account)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.SackEntry{}, false, nil
	}
	if err != nil {
		return storage.SackEntry{}, false, fmt.Errorf("read bait: %w", err)
	}
	return bait, true, nil
}

func onAutosellList(ctx context.Context, tx storage.Store, account, species string) (bool, error) {
	listed, err := tx.ListAutosell(ctx, account)
	if err != nil {
		return false, fmt.Errorf("read autosell list: %w", err)
	}
	for _, name := range listed {
		if strings.EqualFold(name, species) {
			return true, nil
		}
	}
	return false, nil
}

// equippedRod picks the attributes of the account's best rod: the highest
// rarity floor wins, ties broken by the lowest no-catch multiplier.
func equippedRod(items []storage.InventoryItem) domain.ItemAttributes {
	var best domain.ItemAttributes
	found := false
	for _, item := range items {
		if !strings.EqualFold(item.Attributes.Kind, "rod") {
			continue
		}
		if !found {
			best = item.Attributes
			found = true
			continue
		}
		bestFloor, _ := domain.ParseRarity(best.FishMinimumRarity)
		floor, _ := domain.ParseRarity(item.Attributes.FishMinimumRarity)
		switch {
		case floor > bestFloor:
			best = item.Attributes
		case floor == bestFloor && noneMult(item.Attributes) < noneMult(best):
			best = item.Attributes
		}
	}
	return best
}

func noneMult(attrs domain.ItemAttributes) float64 {
	if attrs.FishNoneRateMultiplier == 0 {
		return 1
	}
	return attrs.FishNoneRateMultiplier
}

// equippedCapacity picks the account's best sack capacity: an unbounded
// sack (capacity <= 0) wins, otherwise the largest. Falls back to the
// default capacity when no sack is owned.
func equippedCapacity(items []storage.InventoryItem) int {
	capacity := defaultCapacity
	found := false
	for _, item := range items {
		if !strings.EqualFold(item.Attributes.Kind, "sack") {
			continue
		}
		c := item.Attributes.FishCapacity
		if !found {
			capacity = c
			found = true
			continue
		}
		if capacity <= 0 {
			continue
		}
		if c <= 0 || c > capacity {
			capacity = c
		}
	}
	return capacity
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
