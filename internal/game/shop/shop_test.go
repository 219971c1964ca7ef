package shop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
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
	return NewService(store, cat, func() time.Time { return now }), store
}

func TestStockUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Stock("Rods"); err != nil {
		t.Fatalf("stock rods: %v", err)
	}
	_, err := svc.Stock("Submarines")
	if !apperrors.IsCode(err, apperrors.CodeItemNotFound) {
		t.Fatalf("expected unknown category error, got %v", err)
	}
}

func TestBuyDebitsAndStocks(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", domain.MoneyFromFloat(200), time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	receipt, err := svc.Buy(ctx, "angler", "Birch Rod", 1)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.Cost != domain.MoneyFromFloat(150) {
		t.Fatalf("expected 150.00 cost, got %s", receipt.Cost.Format())
	}
	if receipt.Balance != domain.MoneyFromFloat(50) {
		t.Fatalf("expected 50.00 left, got %s", receipt.Balance.Format())
	}

	item, err := store.GetItem(ctx, "angler", "Birch Rod")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 1 || item.Attributes.Kind != "rod" {
		t.Fatalf("expected one rod with attributes, got %+v", item)
	}
}

func TestBuyInsufficientFundsMutatesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", domain.MoneyFromFloat(10), time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	_, err := svc.Buy(ctx, "angler", "Birch Rod", 1)
	if !apperrors.IsCode(err, apperrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != domain.MoneyFromFloat(10) {
		t.Fatalf("rejected purchase must not debit, got %d", balance)
	}
	items, err := store.ListItems(ctx, "angler")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected purchase must not stock, got %+v", items)
	}
}

func TestBuyOwnershipCap(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "angler", domain.MoneyFromFloat(10000), time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	// Rods cap at one owned.
	if _, err := svc.Buy(ctx, "angler", "Birch Rod", 1); err != nil {
		t.Fatalf("first rod: %v", err)
	}
	_, err := svc.Buy(ctx, "angler", "Birch Rod", 1)
	if !apperrors.IsCode(err, apperrors.CodeOwnershipCapReached) {
		t.Fatalf("expected cap reached, got %v", err)
	}

	// Consumables stack up to their catalog cap.
	if _, err := svc.Buy(ctx, "angler", "Dockside Pilsner", 10); err != nil {
		t.Fatalf("buy beer: %v", err)
	}
	_, err = svc.Buy(ctx, "angler", "Dockside Pilsner", 1)
	if !apperrors.IsCode(err, apperrors.CodeOwnershipCapReached) {
		t.Fatalf("expected cap reached on beer, got %v", err)
	}
}

func TestBuyValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Buy(ctx, "angler", "Birch Rod", 0)
	if !apperrors.IsCode(err, apperrors.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	_, err = svc.Buy(ctx, "angler", "Perpetual Motion Machine", 1)
	if !apperrors.IsCode(err, apperrors.CodeItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}
