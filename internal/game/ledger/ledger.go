// Package ledger manages per-account currency balances.
package ledger

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// ErrInvalidAmount indicates a credit or debit of zero or less.
var ErrInvalidAmount = apperrors.New(apperrors.CodeInvalidAmount, "amount must be greater than zero")

// Service provides atomic balance operations. Balances never go negative; a
// debit past the balance is rejected without mutation.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a ledger service backed by store.
func NewService(store storage.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Balance returns the account balance, zero for accounts with no row.
func (s *Service) Balance(ctx context.Context, account string) (domain.Money, error) {
	return s.store.GetBalance(ctx, account)
}

// Credit adds amount to the account balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, account string, amount domain.Money) (domain.Money, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance domain.Money
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		current, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		balance = current + amount
		return tx.SetBalance(ctx, account, balance, s.now())
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit subtracts amount from the account balance and returns the new
// balance. Fails with InsufficientFunds when amount exceeds the balance.
func (s *Service) Debit(ctx context.Context, account string, amount domain.Money) (domain.Money, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance domain.Money
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		current, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		if amount > current {
			return apperrors.WithMetadata(apperrors.CodeInsufficientFunds,
				"debit exceeds balance",
				map[string]string{"Balance": current.Format()})
		}
		balance = current - amount
		return tx.SetBalance(ctx, account, balance, s.now())
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Top returns the n highest balances, ties broken by insertion order.
func (s *Service) Top(ctx context.Context, n int) ([]storage.Balance, error) {
	if n <= 0 {
		n = 10
	}
	return s.store.TopBalances(ctx, n)
}
