// Package casino implements the coin-flip wager.
package casino

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// winCutoff is the base probability of winning a flip before luck effects.
const winCutoff = 0.5

const effectModule = "casino"

// FlipResult is the outcome of one wager.
type FlipResult struct {
	Won     bool
	Wager   domain.Money
	Balance domain.Money
}

// Service runs wagers against the ledger.
type Service struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
	roll    func() float64
}

// NewService creates a casino service.
func NewService(store storage.Store, cat *catalog.Catalog, now func() time.Time, roll func() float64) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, catalog: cat, now: now, roll: roll}
}

// Flip wagers amount on a coin flip. Luck effects scale the win cutoff. A
// win credits the wager, a loss debits it; the funds check and the
// settlement run in one transaction.
func (s *Service) Flip(ctx context.Context, account string, wager domain.Money) (FlipResult, error) {
	if wager <= 0 {
		return FlipResult{}, apperrors.New(apperrors.CodeInvalidAmount, "wager must be greater than zero")
	}

	var result FlipResult
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		balance, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		if wager > balance {
			return apperrors.WithMetadata(apperrors.CodeInsufficientFunds,
				"wager exceeds balance",
				map[string]string{"Balance": balance.Format()})
		}

		active, err := effects.NewEngine(tx, s.catalog, s.now).Active(ctx, account)
		if err != nil {
			return err
		}
		cutoff := winCutoff * effects.MultFor(active, effectModule, "luck")
		if cutoff > 1 {
			cutoff = 1
		}

		result = FlipResult{Wager: wager, Won: s.roll() < cutoff}
		if result.Won {
			balance += wager
		} else {
			balance -= wager
		}
		result.Balance = balance
		return tx.SetBalance(ctx, account, balance, s.now())
	})
	if err != nil {
		return FlipResult{}, err
	}
	return result, nil
}
