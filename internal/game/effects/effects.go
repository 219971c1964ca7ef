// Package effects manages timed per-account status modifiers.
//
// Effects are inert rows keyed by "module.effect". Other components read
// them and interpret effect-id prefixes (miss_rate, catch_rate,
// legendary_rate, item_rate, price, luck) multiplicatively; prefixes a
// caller does not recognize are ignored.
package effects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// ActiveEffect is one unexpired effect enriched with its catalog data and
// remaining duration.
type ActiveEffect struct {
	ModuleID    string
	EffectID    string
	Mult        float64
	Description string
	Remaining   time.Duration
}

// Ref returns the canonical "module.effect" reference.
func (e ActiveEffect) Ref() string {
	return e.ModuleID + "." + e.EffectID
}

// Engine applies and reads timed status effects against the static catalog.
type Engine struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewEngine creates a status effect engine.
func NewEngine(store storage.Store, cat *catalog.Catalog, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, catalog: cat, now: now}
}

// Add applies the referenced effect to the account. Reapplying an unexpired
// effect stacks: the new expiry is now + remaining + base duration, so two
// back-to-back applications of a duration-d effect expire at now + 2d.
func (e *Engine) Add(ctx context.Context, account, ref string) (ActiveEffect, error) {
	spec, ok := e.catalog.Effect(ref)
	if !ok {
		return ActiveEffect{}, apperrors.WithMetadata(apperrors.CodeEffectNotFound,
			"effect not in catalog",
			map[string]string{"Effect": ref})
	}

	now := e.now()
	expiry := now.Add(spec.Duration)
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		rows, err := tx.ListEffects(ctx, account)
		if err != nil {
			return fmt.Errorf("read effects: %w", err)
		}
		for _, row := range rows {
			if row.ModuleID != spec.ModuleID || row.EffectID != spec.EffectID {
				continue
			}
			if remaining := row.ExpiresAt.Sub(now); remaining > 0 {
				expiry = now.Add(remaining + spec.Duration)
			}
			break
		}
		return tx.UpsertEffect(ctx, storage.StatusEffect{
			Account:   account,
			ModuleID:  spec.ModuleID,
			EffectID:  spec.EffectID,
			ExpiresAt: expiry,
		})
	})
	if err != nil {
		return ActiveEffect{}, err
	}
	return ActiveEffect{
		ModuleID:    spec.ModuleID,
		EffectID:    spec.EffectID,
		Mult:        spec.Mult,
		Description: spec.Description,
		Remaining:   expiry.Sub(now),
	}, nil
}

// Active returns the account's unexpired effects. Expired rows are deleted
// inside the same transaction as the read, so a read may trigger writes.
func (e *Engine) Active(ctx context.Context, account string) ([]ActiveEffect, error) {
	now := e.now()
	var out []ActiveEffect
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		out = nil
		rows, err := tx.ListEffects(ctx, account)
		if err != nil {
			return fmt.Errorf("read effects: %w", err)
		}
		for _, row := range rows {
			remaining := row.ExpiresAt.Sub(now)
			if remaining <= 0 {
				if err := tx.DeleteEffect(ctx, account, row.ModuleID, row.EffectID); err != nil {
					return fmt.Errorf("expire effect: %w", err)
				}
				continue
			}
			active := ActiveEffect{
				ModuleID:  row.ModuleID,
				EffectID:  row.EffectID,
				Mult:      1,
				Remaining: remaining,
			}
			if spec, ok := e.catalog.Effect(active.Ref()); ok {
				active.Mult = spec.Mult
				active.Description = spec.Description
			}
			out = append(out, active)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the referenced effect from the account.
func (e *Engine) Remove(ctx context.Context, account, ref string) error {
	spec, ok := e.catalog.Effect(ref)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeEffectNotFound,
			"effect not in catalog",
			map[string]string{"Effect": ref})
	}
	return e.store.DeleteEffect(ctx, account, spec.ModuleID, spec.EffectID)
}

// MultFor multiplies the mults of the account effects whose module matches
// moduleID and whose effect id starts with prefix. Returns 1 when none
// apply.
func MultFor(active []ActiveEffect, moduleID, prefix string) float64 {
	mult := 1.0
	for _, effect := range active {
		if effect.ModuleID != moduleID {
			continue
		}
		if !strings.HasPrefix(effect.EffectID, prefix) {
			continue
		}
		mult *= effect.Mult
	}
	return mult
}
