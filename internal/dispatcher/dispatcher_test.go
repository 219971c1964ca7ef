package dispatcher

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/casino"
	"github.com/louisbranch/tacklebox/internal/game/catch"
	"github.com/louisbranch/tacklebox/internal/game/consume"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/game/inventory"
	"github.com/louisbranch/tacklebox/internal/game/ledger"
	"github.com/louisbranch/tacklebox/internal/game/quest"
	"github.com/louisbranch/tacklebox/internal/game/shop"
	"github.com/louisbranch/tacklebox/internal/game/trophy"
	"github.com/louisbranch/tacklebox/internal/identity"
	"github.com/louisbranch/tacklebox/internal/platform/keylock"
	"github.com/louisbranch/tacklebox/internal/storage"
	"github.com/louisbranch/tacklebox/internal/storage/sqlite"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *sqlite.Store) {
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

	locks := keylock.NewRing()
	now := func() time.Time { return time.Unix(1700000000, 0) }
	roll := func() float64 { return 0.123456 }

	services := Services{
		Identity:  identity.NewResolver(store, locks, now, roll, "discord"),
		Ledger:    ledger.NewService(store, now),
		Inventory: inventory.NewService(store, now),
		Effects:   effects.NewEngine(store, cat, now),
		Catch:     catch.NewEngine(store, cat, now, roll),
		Quests:    quest.NewEngine(store, cat, now, roll),
		Trophies:  trophy.NewService(store, now),
		Shop:      shop.NewService(store, cat, now),
		Consume:   consume.NewService(store, cat, now),
		Casino:    casino.NewService(store, cat, now, roll),
	}
	return New(services, locks), store
}

func invoke(t *testing.T, d *Dispatcher, verb string, args ...string) Result {
	t.Helper()
	result, err := d.Invoke(context.Background(), Request{
		Platform: "discord",
		Handle:   "quint",
		Verb:     verb,
		Args:     args,
	})
	if err != nil {
		t.Fatalf("invoke %s: %v", verb, err)
	}
	return result
}

func TestInvokeUnknownVerb(t *testing.T) {
	d, _ := newTestDispatcher(t)

	result := invoke(t, d, "juggle")
	if result.Code != string(apperrors.CodeUnknownVerb) {
		t.Fatalf("expected unknown-verb code, got %+v", result)
	}
	if result.Message == "" {
		t.Fatal("expected a relay-ready message")
	}
}

func TestInvokeBalance(t *testing.T) {
	d, store := newTestDispatcher(t)

	if err := store.SetBalance(context.Background(), "quint", 123456, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	result := invoke(t, d, "Balance")
	if result.Code != "" {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Message != "Your balance is $1,234.56." {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestDomainErrorsBecomeResults(t *testing.T) {
	d, _ := newTestDispatcher(t)

	result := invoke(t, d, "sell")
	if result.Code != string(apperrors.CodeSackEmpty) {
		t.Fatalf("expected sack-empty result, got %+v", result)
	}
	if result.Message == "" {
		t.Fatal("domain failures must carry a player-facing message")
	}

	result = invoke(t, d, "flip", "100")
	if result.Code != string(apperrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient-funds result, got %+v", result)
	}
}

func TestBuyParsesTrailingQuantity(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "quint", 100000, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	result := invoke(t, d, "buy", "Dockside", "Pilsner", "3")
	if result.Code != "" {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.HasPrefix(result.Message, "Bought 3x Dockside Pilsner") {
		t.Fatalf("unexpected message %q", result.Message)
	}

	item, err := store.GetItem(ctx, "quint", "Dockside Pilsner")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 3 {
		t.Fatalf("expected 3 beers, got %d", item.Quantity)
	}
}

func TestLinkAndRedeemAcrossPlatforms(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, "quint", 500, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed discord side: %v", err)
	}

	result := invoke(t, d, "link")
	if result.Code != "" {
		t.Fatalf("link failed: %+v", result)
	}
	code, ok := result.Data.(string)
	if !ok || code == "" {
		t.Fatalf("expected a code in the result, got %+v", result)
	}

	redeemed, err := d.Invoke(ctx, Request{
		Platform: "twitch",
		Handle:   "quint_live",
		Verb:     "redeem",
		Args:     []string{code},
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Code != "" {
		t.Fatalf("redeem rejected: %+v", redeemed)
	}

	// Either platform now reads the shared balance.
	balanced, err := d.Invoke(ctx, Request{
		Platform: "twitch",
		Handle:   "quint_live",
		Verb:     "balance",
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balanced.Message != "Your balance is $5.00." {
		t.Fatalf("expected merged balance visible from twitch, got %q", balanced.Message)
	}
}

func TestTopShowsHandlesForLinkedAccounts(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	result := invoke(t, d, "link")
	code, ok := result.Data.(string)
	if !ok || code == "" {
		t.Fatalf("expected a code in the result, got %+v", result)
	}
	redeemed, err := d.Invoke(ctx, Request{
		Platform: "twitch",
		Handle:   "quint_live",
		Verb:     "redeem",
		Args:     []string{code},
	})
	if err != nil || redeemed.Code != "" {
		t.Fatalf("redeem: %v %+v", err, redeemed)
	}

	if err := store.SetBalance(ctx, "account_1", 900, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed linked balance: %v", err)
	}
	if err := store.SetBalance(ctx, "hooper", 400, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("seed unlinked balance: %v", err)
	}

	result = invoke(t, d, "top")
	if result.Code != "" {
		t.Fatalf("expected leaderboard, got %+v", result)
	}
	if !strings.Contains(result.Message, "1. quint $9.00") {
		t.Fatalf("linked accounts show a handle, got %q", result.Message)
	}
	if strings.Contains(result.Message, "account_") {
		t.Fatalf("raw account keys leaked into %q", result.Message)
	}
	if !strings.Contains(result.Message, "2. hooper $4.00") {
		t.Fatalf("unlinked handles display as-is, got %q", result.Message)
	}
}

func TestShopListsCategoriesAndStock(t *testing.T) {
	d, _ := newTestDispatcher(t)

	result := invoke(t, d, "shop")
	if !strings.HasPrefix(result.Message, "Shop sections: ") {
		t.Fatalf("unexpected message %q", result.Message)
	}

	result = invoke(t, d, "shop", "rods")
	if result.Code != "" {
		t.Fatalf("expected stock listing, got %+v", result)
	}
	if !strings.Contains(result.Message, "Birch Rod") {
		t.Fatalf("expected rods listed, got %q", result.Message)
	}
}

func TestTrophySubcommands(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	result := invoke(t, d, "trophy")
	if result.Message != "Your trophy case is empty." {
		t.Fatalf("unexpected message %q", result.Message)
	}

	if _, err := store.AddSackEntry(ctx, storage.SackEntry{
		Account: "quint", Species: "Pike", Weight: 4.2,
		Price: 420, CaughtAt: time.Unix(1700000000, 0),
	}); err != nil {
		t.Fatalf("seed sack: %v", err)
	}
	result = invoke(t, d, "trophy", "add", "pike")
	if result.Code != "" {
		t.Fatalf("expected mount, got %+v", result)
	}

	result = invoke(t, d, "trophy", "remove", "first")
	if result.Code != string(apperrors.CodeInvalidTrophySlot) {
		t.Fatalf("expected invalid-slot result, got %+v", result)
	}

	result = invoke(t, d, "trophy", "remove", "1")
	if result.Code != "" {
		t.Fatalf("expected removal, got %+v", result)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * time.Second, "2m"},
		{45 * time.Minute, "45m"},
		{26 * time.Hour, "26h00m"},
		{3*time.Hour + 7*time.Minute, "3h07m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Fatalf("formatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
