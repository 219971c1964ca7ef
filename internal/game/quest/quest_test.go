package quest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
	"github.com/louisbranch/tacklebox/internal/storage/sqlite"
)

func newTestEngine(t *testing.T, now *time.Time, roll func() float64) (*Engine, *sqlite.Store) {
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
	if roll == nil {
		roll = func() float64 { return 0 }
	}
	return NewEngine(store, cat, func() time.Time { return *now }, roll), store
}

func seedFish(t *testing.T, store *sqlite.Store, account, species string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := store.AddSackEntry(context.Background(), storage.SackEntry{
			Account: account, Species: species, Weight: 0.3, Price: 36,
			CaughtAt: time.Unix(1700000000, 0),
		}); err != nil {
			t.Fatalf("seed %s: %v", species, err)
		}
	}
}

func TestDailyAssignsAndSticksWithinTTL(t *testing.T) {
	now := time.Unix(1700000000, 0)
	// A zero roll always lands in the first (heaviest) weight bucket.
	engine, _ := newTestEngine(t, &now, nil)
	ctx := context.Background()

	first, err := engine.Daily(ctx, "angler")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if first.Quest.Kind != catalog.QuestDaily {
		t.Fatalf("expected a daily quest, got %+v", first.Quest)
	}

	now = now.Add(12 * time.Hour)
	second, err := engine.Daily(ctx, "angler")
	if err != nil {
		t.Fatalf("daily again: %v", err)
	}
	if second.Quest.ID != first.Quest.ID {
		t.Fatalf("assignment changed within TTL: %s -> %s", first.Quest.ID, second.Quest.ID)
	}
	if second.UntilNext != 12*time.Hour {
		t.Fatalf("expected 12h left, got %s", second.UntilNext)
	}

	now = now.Add(13 * time.Hour)
	third, err := engine.Daily(ctx, "angler")
	if err != nil {
		t.Fatalf("daily after expiry: %v", err)
	}
	if third.UntilNext != 24*time.Hour || third.Completed {
		t.Fatalf("expected fresh assignment, got %+v", third)
	}
}

func TestClaimDailyFailureMutatesNothing(t *testing.T) {
	now := time.Unix(1700000000, 0)
	engine, store := newTestEngine(t, &now, nil)
	ctx := context.Background()

	// One Minnow against the three the Minnow Run quest needs.
	seedFish(t, store, "angler", "Minnow", 1)

	_, err := engine.ClaimDaily(ctx, "angler")
	if !apperrors.IsCode(err, apperrors.CodeRequirementUnmet) {
		t.Fatalf("expected requirement unmet, got %v", err)
	}
	meta := apperrors.GetMetadata(err)
	if meta["Needed"] != "3" || meta["Held"] != "1" {
		t.Fatalf("expected shortfall reported, got %v", meta)
	}

	count, err := store.CountSackEntries(ctx, "angler")
	if err != nil {
		t.Fatalf("count sack: %v", err)
	}
	if count != 1 {
		t.Fatalf("failed claim must not consume fish, got %d", count)
	}
	balance, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("failed claim must not credit, got %d", balance)
	}
}

func TestClaimDailyConsumesAndCredits(t *testing.T) {
	now := time.Unix(1700000000, 0)
	engine, store := newTestEngine(t, &now, nil)
	ctx := context.Background()

	seedFish(t, store, "angler", "Minnow", 4)

	summary, err := engine.ClaimDaily(ctx, "angler")
	if err != nil {
		t.Fatalf("claim daily: %v", err)
	}
	if summary.Total != domain.MoneyFromFloat(120) {
		t.Fatalf("expected 120.00 reward, got %s", summary.Total.Format())
	}
	if summary.Balance != summary.Total {
		t.Fatalf("expected balance equal to reward, got %d", summary.Balance)
	}

	count, err := store.CountSackEntries(ctx, "angler")
	if err != nil {
		t.Fatalf("count sack: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 3 of 4 minnows consumed, %d left", count)
	}

	_, err = engine.ClaimDaily(ctx, "angler")
	if !apperrors.IsCode(err, apperrors.CodeAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
}

func TestClaimDailyConsumesSackBeforeInventory(t *testing.T) {
	now := time.Unix(1700000000, 0)
	engine, store := newTestEngine(t, &now, nil)
	ctx := context.Background()

	seedFish(t, store, "angler", "Minnow", 2)
	if err := store.AddItemQuantity(ctx, storage.InventoryItem{
		Account: "angler", Name: "Minnow", Quantity: 2,
	}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	if _, err := engine.ClaimDaily(ctx, "angler"); err != nil {
		t.Fatalf("claim daily: %v", err)
	}

	count, err := store.CountSackEntries(ctx, "angler")
	if err != nil {
		t.Fatalf("count sack: %v", err)
	}
	if count != 0 {
		t.Fatalf("perishables go first: expected empty sack, got %d", count)
	}
	item, err := store.GetItem(ctx, "angler", "Minnow")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 1 {
		t.Fatalf("expected 1 inventory minnow left, got %d", item.Quantity)
	}
}

func TestClaimAllRegular(t *testing.T) {
	now := time.Unix(1700000000, 0)
	engine, store := newTestEngine(t, &now, nil)
	ctx := context.Background()

	_, err := engine.ClaimAllRegular(ctx, "angler")
	if !apperrors.IsCode(err, apperrors.CodeNoQuestsClaimable) {
		t.Fatalf("expected nothing claimable, got %v", err)
	}

	// Boot Bounty needs 2 Old Boots; Lost and Found needs a Rusty Lure.
	if err := store.AddItemQuantity(ctx, storage.InventoryItem{
		Account: "angler", Name: "Old Boot", Quantity: 2,
	}); err != nil {
		t.Fatalf("seed boots: %v", err)
	}
	if err := store.AddItemQuantity(ctx, storage.InventoryItem{
		Account: "angler", Name: "Rusty Lure", Quantity: 1,
	}); err != nil {
		t.Fatalf("seed lure: %v", err)
	}

	summary, err := engine.ClaimAllRegular(ctx, "angler")
	if err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if len(summary.Claims) != 2 {
		t.Fatalf("expected both regular quests claimed, got %+v", summary.Claims)
	}
	if summary.Total != domain.MoneyFromFloat(115) {
		t.Fatalf("expected 115.00 total, got %s", summary.Total.Format())
	}

	// Requirements were consumed, so a second pass has nothing to claim.
	_, err = engine.ClaimAllRegular(ctx, "angler")
	if !apperrors.IsCode(err, apperrors.CodeNoQuestsClaimable) {
		t.Fatalf("expected nothing claimable after consumption, got %v", err)
	}
}

func TestCheckRequirementsFailsFast(t *testing.T) {
	now := time.Unix(1700000000, 0)
	engine, store := newTestEngine(t, &now, nil)
	ctx := context.Background()

	seedFish(t, store, "angler", "Perch", 2)

	reqs := []catalog.Requirement{
		{Name: "Perch", Quantity: 2},
		{Name: "Bream", Quantity: 1},
		{Name: "Minnow", Quantity: 5},
	}
	unmet, ok, err := engine.CheckRequirements(ctx, "angler", reqs)
	if err != nil {
		t.Fatalf("check requirements: %v", err)
	}
	if ok {
		t.Fatal("expected requirements unmet")
	}
	if unmet.Name != "Bream" || unmet.Needed != 1 || unmet.Held != 0 {
		t.Fatalf("expected first unmet requirement reported, got %+v", unmet)
	}
}
