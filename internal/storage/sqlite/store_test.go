package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cents, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if cents != 0 {
		t.Fatalf("expected zero balance for new account, got %d", cents)
	}

	now := time.Now()
	if err := store.SetBalance(ctx, "angler", domain.Money(347), now); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	cents, err = store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if cents != 347 {
		t.Fatalf("expected 347 cents, got %d", cents)
	}

	if err := store.SetBalance(ctx, "angler", domain.Money(-1), now); err == nil {
		t.Fatal("expected error for negative balance")
	}

	if err := store.DeleteBalance(ctx, "angler"); err != nil {
		t.Fatalf("delete balance: %v", err)
	}
	cents, err = store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("get balance after delete: %v", err)
	}
	if cents != 0 {
		t.Fatalf("expected zero balance after delete, got %d", cents)
	}
}

func TestTopBalancesOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, account := range []string{"first", "second", "third", "tied"} {
		cents := domain.Money(100 * (i + 1))
		if account == "tied" {
			cents = 300
		}
		if err := store.SetBalance(ctx, account, cents, now); err != nil {
			t.Fatalf("set balance %s: %v", account, err)
		}
	}

	top, err := store.TopBalances(ctx, 3)
	if err != nil {
		t.Fatalf("top balances: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	if top[0].Account != "third" {
		t.Fatalf("expected third on top, got %s", top[0].Account)
	}
	// Ties keep insertion order.
	if top[1].Account != "tied" {
		t.Fatalf("expected tied second, got %s", top[1].Account)
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item := storage.InventoryItem{
		Account: "angler",
		Name:    "Old Boot",
		Attributes: domain.ItemAttributes{
			Kind: "junk",
		},
		Quantity: 2,
	}
	if err := store.AddItemQuantity(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := store.AddItemQuantity(ctx, item); err != nil {
		t.Fatalf("add item again: %v", err)
	}

	got, err := store.GetItem(ctx, "angler", "Old Boot")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Quantity != 4 {
		t.Fatalf("expected summed quantity 4, got %d", got.Quantity)
	}
	if got.Attributes.Kind != "junk" {
		t.Fatalf("expected attributes to round trip, got %+v", got.Attributes)
	}

	folded, err := store.GetItemFold(ctx, "angler", "old boot")
	if err != nil {
		t.Fatalf("get item fold: %v", err)
	}
	if folded.Name != "Old Boot" {
		t.Fatalf("expected canonical name, got %s", folded.Name)
	}

	if err := store.SetItemQuantity(ctx, "angler", "Old Boot", 1); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := store.SetItemQuantity(ctx, "angler", "Old Boot", 0); err != nil {
		t.Fatalf("set quantity to zero: %v", err)
	}
	if _, err := store.GetItem(ctx, "angler", "Old Boot"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after zero quantity, got %v", err)
	}
}

func TestSackBaitStaysUnique(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	var ids []int64
	for _, species := range []string{"Minnow", "Perch", "Carp"} {
		id, err := store.AddSackEntry(ctx, storage.SackEntry{
			Account:  "angler",
			Species:  species,
			Weight:   1.5,
			Price:    domain.Money(120),
			CaughtAt: now,
		})
		if err != nil {
			t.Fatalf("add %s: %v", species, err)
		}
		ids = append(ids, id)
	}

	if err := store.SetBait(ctx, "angler", ids[0]); err != nil {
		t.Fatalf("set bait: %v", err)
	}
	if err := store.SetBait(ctx, "angler", ids[1]); err != nil {
		t.Fatalf("move bait: %v", err)
	}

	bait, err := store.GetBait(ctx, "angler")
	if err != nil {
		t.Fatalf("get bait: %v", err)
	}
	if bait.ID != ids[1] {
		t.Fatalf("expected bait on entry %d, got %d", ids[1], bait.ID)
	}

	if err := store.DeleteNonBaitEntries(ctx, "angler"); err != nil {
		t.Fatalf("delete non-bait: %v", err)
	}
	entries, err := store.ListSackEntries(ctx, "angler")
	if err != nil {
		t.Fatalf("list sack: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsBait {
		t.Fatalf("expected bait to survive, got %+v", entries)
	}
}

func TestSackCountAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.AddSackEntry(ctx, storage.SackEntry{
		Account:  "angler",
		Species:  "Trout",
		Weight:   2.2,
		Price:    domain.Money(450),
		CaughtAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("add sack entry: %v", err)
	}

	count, err := store.CountSackEntries(ctx, "angler")
	if err != nil {
		t.Fatalf("count sack: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}

	if err := store.DeleteSackEntry(ctx, "other", id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for wrong account, got %v", err)
	}
	if err := store.DeleteSackEntry(ctx, "angler", id); err != nil {
		t.Fatalf("delete sack entry: %v", err)
	}
}

func TestEffectUpsertAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	effect := storage.StatusEffect{
		Account:   "angler",
		ModuleID:  "fishing",
		EffectID:  "miss_rate_chum",
		ExpiresAt: expiry,
	}
	if err := store.UpsertEffect(ctx, effect); err != nil {
		t.Fatalf("upsert effect: %v", err)
	}

	effect.ExpiresAt = expiry.Add(time.Hour)
	if err := store.UpsertEffect(ctx, effect); err != nil {
		t.Fatalf("upsert effect again: %v", err)
	}

	effects, err := store.ListEffects(ctx, "angler")
	if err != nil {
		t.Fatalf("list effects: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(effects))
	}
	if got := effects[0].ExpiresAt.UnixMilli(); got != expiry.Add(time.Hour).UnixMilli() {
		t.Fatalf("expected extended expiry, got %d", got)
	}
}

func TestDailyQuestLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.LatestDailyQuest(ctx, "angler"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for fresh account, got %v", err)
	}

	older := storage.DailyQuest{Account: "angler", QuestID: "catch_three", AssignedAt: now.Add(-48 * time.Hour)}
	newer := storage.DailyQuest{Account: "angler", QuestID: "boot_bounty", AssignedAt: now}
	for _, q := range []storage.DailyQuest{older, newer} {
		if err := store.InsertDailyQuest(ctx, q); err != nil {
			t.Fatalf("insert quest %s: %v", q.QuestID, err)
		}
	}

	latest, err := store.LatestDailyQuest(ctx, "angler")
	if err != nil {
		t.Fatalf("latest quest: %v", err)
	}
	if latest.QuestID != "boot_bounty" {
		t.Fatalf("expected newest assignment, got %s", latest.QuestID)
	}

	if err := store.CompleteDailyQuest(ctx, "angler", "boot_bounty", now); err != nil {
		t.Fatalf("complete quest: %v", err)
	}
	if err := store.CompleteDailyQuest(ctx, "angler", "boot_bounty", now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found on double completion, got %v", err)
	}

	latest, err = store.LatestDailyQuest(ctx, "angler")
	if err != nil {
		t.Fatalf("latest quest after completion: %v", err)
	}
	if !latest.Completed || latest.CompletedAt == nil {
		t.Fatalf("expected completed assignment, got %+v", latest)
	}
}

func TestTrophyRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.InsertTrophy(ctx, storage.TrophyEntry{
		Account: "angler",
		Species: "Leviathan Fry",
		Weight:  88.4,
		Price:   domain.Money(125000),
		AddedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert trophy: %v", err)
	}

	count, err := store.CountTrophies(ctx, "angler")
	if err != nil {
		t.Fatalf("count trophies: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 trophy, got %d", count)
	}

	if err := store.DeleteTrophy(ctx, "angler", id); err != nil {
		t.Fatalf("delete trophy: %v", err)
	}
	if err := store.DeleteTrophy(ctx, "angler", id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestLinkCodeReplacesPrior(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(10 * time.Minute)

	first := storage.LinkCode{Code: "111111", Platform: "discord", Handle: "angler#1", ExpiresAt: expiry}
	second := storage.LinkCode{Code: "222222", Platform: "discord", Handle: "angler#1", ExpiresAt: expiry}
	if err := store.PutLinkCode(ctx, first); err != nil {
		t.Fatalf("put first code: %v", err)
	}
	if err := store.PutLinkCode(ctx, second); err != nil {
		t.Fatalf("put second code: %v", err)
	}

	if _, err := store.GetLinkCode(ctx, "111111"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected first code replaced, got %v", err)
	}
	code, err := store.GetLinkCode(ctx, "222222")
	if err != nil {
		t.Fatalf("get second code: %v", err)
	}
	if code.Handle != "angler#1" {
		t.Fatalf("expected handle to round trip, got %s", code.Handle)
	}
}

func TestNextAccountID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.NextAccountID(ctx)
	if err != nil {
		t.Fatalf("next account id: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id 1, got %d", id)
	}

	now := time.Now()
	if err := store.InsertLink(ctx, storage.AccountLink{AccountID: id, Platform: "discord", Handle: "angler#1", LinkedAt: now}); err != nil {
		t.Fatalf("insert link: %v", err)
	}
	if err := store.InsertLink(ctx, storage.AccountLink{AccountID: id, Platform: "twitch", Handle: "angler", LinkedAt: now}); err != nil {
		t.Fatalf("insert second link: %v", err)
	}

	next, err := store.NextAccountID(ctx)
	if err != nil {
		t.Fatalf("next account id: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected next id 2, got %d", next)
	}

	links, err := store.ListLinks(ctx, id)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
}

func TestAutosellReassignMerges(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, species := range []string{"Minnow", "Perch"} {
		if err := store.AddAutosell(ctx, "a", species); err != nil {
			t.Fatalf("add autosell a: %v", err)
		}
	}
	for _, species := range []string{"Perch", "Carp"} {
		if err := store.AddAutosell(ctx, "b", species); err != nil {
			t.Fatalf("add autosell b: %v", err)
		}
	}

	if err := store.ReassignAutosell(ctx, "a", "b"); err != nil {
		t.Fatalf("reassign autosell: %v", err)
	}

	merged, err := store.ListAutosell(ctx, "b")
	if err != nil {
		t.Fatalf("list autosell: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected merged list of 3, got %v", merged)
	}
	remaining, err := store.ListAutosell(ctx, "a")
	if err != nil {
		t.Fatalf("list autosell a: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected source list emptied, got %v", remaining)
	}
}

func TestInTransactionRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	boom := fmt.Errorf("boom")

	err := store.InTransaction(ctx, func(tx storage.Store) error {
		if err := tx.SetBalance(ctx, "angler", domain.Money(500), time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	cents, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if cents != 0 {
		t.Fatalf("expected rollback, got %d cents", cents)
	}
}

func TestInTransactionNestedReuse(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.InTransaction(ctx, func(tx storage.Store) error {
		if err := tx.SetBalance(ctx, "angler", domain.Money(100), time.Now()); err != nil {
			return err
		}
		return tx.InTransaction(ctx, func(inner storage.Store) error {
			return inner.SetBalance(ctx, "angler", domain.Money(200), time.Now())
		})
	})
	if err != nil {
		t.Fatalf("nested transaction: %v", err)
	}

	cents, err := store.GetBalance(ctx, "angler")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if cents != 200 {
		t.Fatalf("expected 200 cents, got %d", cents)
	}
}
