// Package trophy manages the capacity-bounded trophy case.
package trophy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// caseCapacity is the trophy case size.
const caseCapacity = 5

// Service moves fish between the sack and the trophy case.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a trophy service.
func NewService(store storage.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// List returns the account's trophies in display order.
func (s *Service) List(ctx context.Context, account string) ([]storage.TrophyEntry, error) {
	return s.store.ListTrophies(ctx, account)
}

// Add moves the heaviest sack fish whose species contains target (any fish
// when target is empty) into the trophy case.
func (s *Service) Add(ctx context.Context, account, target string) (storage.TrophyEntry, error) {
	target = strings.TrimSpace(target)
	var trophy storage.TrophyEntry
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		count, err := tx.CountTrophies(ctx, account)
		if err != nil {
			return fmt.Errorf("count trophies: %w", err)
		}
		if count >= caseCapacity {
			return apperrors.WithMetadata(apperrors.CodeTrophyCaseFull,
				"trophy case full",
				map[string]string{"Max": strconv.Itoa(caseCapacity)})
		}

		entries, err := tx.ListSackEntries(ctx, account)
		if err != nil {
			return fmt.Errorf("read sack: %w", err)
		}

		var pick *storage.SackEntry
		for i := range entries {
			entry := &entries[i]
			if target != "" && !strings.Contains(strings.ToLower(entry.Species), strings.ToLower(target)) {
				continue
			}
			if pick == nil || entry.Weight > pick.Weight {
				pick = entry
			}
		}
		if pick == nil {
			if target == "" {
				return apperrors.New(apperrors.CodeSackEmpty, "no fish to mount")
			}
			return apperrors.WithMetadata(apperrors.CodeFishNotFound,
				"no matching fish in sack",
				map[string]string{"Fish": target})
		}

		if err := tx.DeleteSackEntry(ctx, account, pick.ID); err != nil {
			return fmt.Errorf("remove fish from sack: %w", err)
		}
		trophy = storage.TrophyEntry{
			Account: account,
			Species: pick.Species,
			Weight:  pick.Weight,
			Price:   pick.Price,
			AddedAt: s.now(),
		}
		id, err := tx.InsertTrophy(ctx, trophy)
		if err != nil {
			return fmt.Errorf("mount trophy: %w", err)
		}
		trophy.ID = id
		return nil
	})
	if err != nil {
		return storage.TrophyEntry{}, err
	}
	return trophy, nil
}

// Remove takes the trophy in the 1-based display slot off the wall and
// returns it to the sack.
func (s *Service) Remove(ctx context.Context, account string, slot int) (storage.TrophyEntry, error) {
	var removed storage.TrophyEntry
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		trophies, err := tx.ListTrophies(ctx, account)
		if err != nil {
			return fmt.Errorf("read trophies: %w", err)
		}
		if len(trophies) == 0 {
			return apperrors.New(apperrors.CodeTrophyNotFound, "trophy case empty")
		}
		if slot < 1 || slot > len(trophies) {
			return apperrors.WithMetadata(apperrors.CodeInvalidTrophySlot,
				"trophy slot out of range",
				map[string]string{"Count": strconv.Itoa(len(trophies))})
		}

		removed = trophies[slot-1]
		if err := tx.DeleteTrophy(ctx, account, removed.ID); err != nil {
			return fmt.Errorf("remove trophy: %w", err)
		}
		if _, err := tx.AddSackEntry(ctx, storage.SackEntry{
			Account:  account,
			Species:  removed.Species,
			Weight:   removed.Weight,
			Price:    removed.Price,
			CaughtAt: s.now(),
		}); err != nil {
			return fmt.Errorf("return fish to sack: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.TrophyEntry{}, err
	}
	return removed, nil
}
