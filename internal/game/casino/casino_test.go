package casino

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/storage/sqlite"
)

func newTestService(t *testing.T, rolls ...float64) (*Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cat, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	now := time.Unix(1700000000, 0)
	i := 0
	roll := func() float64 {
		if i < len(rolls)-1 {
			i++
			return rolls[i-1]
		}
		return rolls[len(rolls)-1]
	}
	return NewService(store, cat, func() time.Time { return now }, roll), store
}

func TestFlipWinCreditsWager(t *testing.T) {
	svc, store := newTestService(t, 0.4)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", 1000, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	result, err := svc.Flip(ctx, "angler", 300)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !result.Won || result.Balance != 1300 {
		t.Fatalf("expected a 13.00 balance win, got %+v", result)
	}
}

func TestFlipLossDebitsWager(t *testing.T) {
	svc, store := newTestService(t, 0.6)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", 1000, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	result, err := svc.Flip(ctx, "angler", 300)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if result.Won || result.Balance != 700 {
		t.Fatalf("expected a 7.00 balance loss, got %+v", result)
	}

	balance, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 700 {
		t.Fatalf("loss not persisted, got %d", balance)
	}
}

func TestFlipLuckRaisesCutoff(t *testing.T) {
	// 0.55 loses at the base cutoff but wins under casino.luck (x1.2).
	svc, store := newTestService(t, 0.55)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", 1000, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	engine := effects.NewEngine(store, mustCatalog(t), func() time.Time { return time.Unix(1700000000, 0) })
	if _, err := engine.Add(ctx, "angler", "casino.luck"); err != nil {
		t.Fatalf("apply luck: %v", err)
	}

	result, err := svc.Flip(ctx, "angler", 100)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !result.Won {
		t.Fatalf("expected luck to flip the outcome, got %+v", result)
	}
}

func TestFlipValidation(t *testing.T) {
	svc, store := newTestService(t, 0)
	ctx := context.Background()

	_, err := svc.Flip(ctx, "angler", 0)
	if !apperrors.IsCode(err, apperrors.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	if err := store.SetBalance(ctx, "angler", 100, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	_, err = svc.Flip(ctx, "angler", domain.Money(101))
	if !apperrors.IsCode(err, apperrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	balance, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("rejected wager must not debit, got %d", balance)
	}
}

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}
