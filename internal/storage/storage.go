// Package storage defines persistence contracts for the game state core.
//
// Every record is owned by an account key. Unlinked players play under
// their bare platform handle; linked players share a canonical
// "account_<id>" key minted by the identity resolver.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/tacklebox/internal/game/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Balance is one account's currency balance.
type Balance struct {
	Account   string
	Cents     domain.Money
	UpdatedAt time.Time
}

// InventoryItem is one stack of a uniquely named item.
type InventoryItem struct {
	Account    string
	Name       string
	Attributes domain.ItemAttributes
	Quantity   int
}

// SackEntry is one perishable caught fish.
type SackEntry struct {
	ID       int64
	Account  string
	Species  string
	Weight   float64
	Price    domain.Money
	IsBait   bool
	CaughtAt time.Time
}

// StatusEffect is one timed modifier row.
type StatusEffect struct {
	Account   string
	ModuleID  string
	EffectID  string
	ExpiresAt time.Time
}

// DailyQuest is one daily quest assignment.
type DailyQuest struct {
	Account     string
	QuestID     string
	AssignedAt  time.Time
	Completed   bool
	CompletedAt *time.Time
}

// QuestCompletion is one append-only completion log row.
type QuestCompletion struct {
	Account     string
	QuestID     string
	CompletedAt time.Time
}

// TrophyEntry is one fish on display in the trophy case.
type TrophyEntry struct {
	ID      int64
	Account string
	Species string
	Weight  float64
	Price   domain.Money
	AddedAt time.Time
}

// AccountLink binds one platform identity to a canonical account id.
type AccountLink struct {
	AccountID int64
	Platform  string
	Handle    string
	LinkedAt  time.Time
}

// LinkCode is one pending identity-linking code.
type LinkCode struct {
	Code      string
	Platform  string
	Handle    string
	ExpiresAt time.Time
}

// LedgerStore persists account balances.
type LedgerStore interface {
	GetBalance(ctx context.Context, account string) (domain.Money, error)
	SetBalance(ctx context.Context, account string, cents domain.Money, updatedAt time.Time) error
	DeleteBalance(ctx context.Context, account string) error
	TopBalances(ctx context.Context, n int) ([]Balance, error)
}

// InventoryStore persists unique-keyed item stacks.
type InventoryStore interface {
	GetItem(ctx context.Context, account, name string) (InventoryItem, error)
	// GetItemFold matches the name case-insensitively.
	GetItemFold(ctx context.Context, account, name string) (InventoryItem, error)
	// AddItemQuantity upserts the row, summing quantity into any existing stack.
	AddItemQuantity(ctx context.Context, item InventoryItem) error
	SetItemQuantity(ctx context.Context, account, name string, quantity int) error
	DeleteItem(ctx context.Context, account, name string) error
	DeleteAllItems(ctx context.Context, account string) error
	ListItems(ctx context.Context, account string) ([]InventoryItem, error)
}

// SackStore persists the bounded perishable catch collection.
type SackStore interface {
	AddSackEntry(ctx context.Context, entry SackEntry) (int64, error)
	ListSackEntries(ctx context.Context, account string) ([]SackEntry, error)
	CountSackEntries(ctx context.Context, account string) (int, error)
	DeleteSackEntry(ctx context.Context, account string, id int64) error
	DeleteNonBaitEntries(ctx context.Context, account string) error
	// SetBait clears any prior bait flag for the account and flags id.
	SetBait(ctx context.Context, account string, id int64) error
	ClearBait(ctx context.Context, account string) error
	GetBait(ctx context.Context, account string) (SackEntry, error)
	ReassignSack(ctx context.Context, from, to string) error
}

// EffectStore persists timed status effect rows.
type EffectStore interface {
	ListEffects(ctx context.Context, account string) ([]StatusEffect, error)
	UpsertEffect(ctx context.Context, effect StatusEffect) error
	DeleteEffect(ctx context.Context, account, moduleID, effectID string) error
	DeleteAllEffects(ctx context.Context, account string) error
}

// QuestStore persists daily assignments and the completion log.
type QuestStore interface {
	LatestDailyQuest(ctx context.Context, account string) (DailyQuest, error)
	InsertDailyQuest(ctx context.Context, assignment DailyQuest) error
	CompleteDailyQuest(ctx context.Context, account, questID string, completedAt time.Time) error
	AppendQuestCompletion(ctx context.Context, completion QuestCompletion) error
	ReassignQuests(ctx context.Context, from, to string) error
}

// TrophyStore persists the capacity-bounded trophy case.
type TrophyStore interface {
	ListTrophies(ctx context.Context, account string) ([]TrophyEntry, error)
	CountTrophies(ctx context.Context, account string) (int, error)
	InsertTrophy(ctx context.Context, entry TrophyEntry) (int64, error)
	DeleteTrophy(ctx context.Context, account string, id int64) error
	ReassignTrophies(ctx context.Context, from, to string) error
}

// IdentityStore persists platform identity links and pending link codes.
type IdentityStore interface {
	GetLink(ctx context.Context, platform, handle string) (AccountLink, error)
	ListLinks(ctx context.Context, accountID int64) ([]AccountLink, error)
	InsertLink(ctx context.Context, link AccountLink) error
	// NextAccountID allocates the next canonical account id.
	NextAccountID(ctx context.Context) (int64, error)
	GetLinkCode(ctx context.Context, code string) (LinkCode, error)
	PutLinkCode(ctx context.Context, code LinkCode) error
	DeleteLinkCode(ctx context.Context, code string) error
	DeleteLinkCodeForIdentity(ctx context.Context, platform, handle string) error
}

// AutosellStore persists per-account species autosell lists.
type AutosellStore interface {
	ListAutosell(ctx context.Context, account string) ([]string, error)
	AddAutosell(ctx context.Context, account, species string) error
	RemoveAutosell(ctx context.Context, account, species string) error
	ClearAutosell(ctx context.Context, account string) error
	ReassignAutosell(ctx context.Context, from, to string) error
}

// Store bundles every entity store behind one handle.
type Store interface {
	LedgerStore
	InventoryStore
	SackStore
	EffectStore
	QuestStore
	TrophyStore
	IdentityStore
	AutosellStore

	// InTransaction runs fn against a transaction-scoped store. All writes
	// fn performs commit together or not at all. Nested calls reuse the
	// current transaction.
	InTransaction(ctx context.Context, fn func(tx Store) error) error
}
