// Package quest manages daily quest assignment and quest claiming.
package quest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/tacklebox/internal/catalog"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// assignmentTTL is how long a daily assignment stays current before it is
// re-rolled.
const assignmentTTL = 24 * time.Hour

// Assignment is the account's current daily quest.
type Assignment struct {
	Quest      catalog.Quest
	AssignedAt time.Time
	Completed  bool
	// UntilNext is the time left until a fresh quest is rolled.
	UntilNext time.Duration
}

// Claim is one successfully claimed quest.
type Claim struct {
	Quest  catalog.Quest
	Reward domain.Money
}

// ClaimSummary aggregates the result of claiming quests.
type ClaimSummary struct {
	Claims  []Claim
	Total   domain.Money
	Balance domain.Money
}

// Unmet describes the first failed requirement check.
type Unmet struct {
	Name   string
	Needed int
	Held   int
}

// Engine assigns daily quests and settles claims against the ledger.
type Engine struct {
	store   storage.Store
	catalog *catalog.Catalog
	now     func() time.Time
	// roll drives the weighted daily assignment draw.
	roll func() float64
}

// NewEngine creates a quest engine.
func NewEngine(store storage.Store, cat *catalog.Catalog, now func() time.Time, roll func() float64) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, catalog: cat, now: now, roll: roll}
}

// Daily returns the account's current daily assignment, rolling a fresh one
// when none exists or the last one aged past its TTL.
func (e *Engine) Daily(ctx context.Context, account string) (Assignment, error) {
	var assignment Assignment
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		current, err := e.currentAssignment(ctx, tx, account)
		if err != nil {
			return err
		}
		assignment = current
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

// currentAssignment loads the latest daily row, re-rolling when it is
// missing or expired. A completed assignment is held until its TTL runs
// out rather than re-rolled on the spot, so the daily cannot be claimed
// twice in one window. Runs on the caller's transaction.
func (e *Engine) currentAssignment(ctx context.Context, tx storage.Store, account string) (Assignment, error) {
	now := e.now()
	latest, err := tx.LatestDailyQuest(ctx, account)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Assignment{}, fmt.Errorf("read daily quest: %w", err)
	}

	fresh := err == nil && now.Sub(latest.AssignedAt) < assignmentTTL
	if fresh {
		quest, ok := e.catalog.Quest(latest.QuestID)
		if !ok {
			// Catalog changed under a stored assignment; roll a new one.
			fresh = false
		} else {
			return Assignment{
				Quest:      quest,
				AssignedAt: latest.AssignedAt,
				Completed:  latest.Completed,
				UntilNext:  assignmentTTL - now.Sub(latest.AssignedAt),
			}, nil
		}
	}

	quest, err := e.rollDaily()
	if err != nil {
		return Assignment{}, err
	}
	if err := tx.InsertDailyQuest(ctx, storage.DailyQuest{
		Account:    account,
		QuestID:    quest.ID,
		AssignedAt: now,
	}); err != nil {
		return Assignment{}, fmt.Errorf("assign daily quest: %w", err)
	}
	return Assignment{Quest: quest, AssignedAt: now, UntilNext: assignmentTTL}, nil
}

// rollDaily draws a weighted-random daily quest from the catalog.
func (e *Engine) rollDaily() (catalog.Quest, error) {
	dailies := e.catalog.DailyQuests()
	if len(dailies) == 0 {
		return catalog.Quest{}, apperrors.New(apperrors.CodeQuestNotFound, "no daily quests in catalog")
	}

	var totalWeight float64
	for _, q := range dailies {
		totalWeight += float64(q.Weight)
	}
	r := e.roll() * totalWeight
	var cum float64
	for _, q := range dailies {
		cum += float64(q.Weight)
		if r <= cum {
			return q, nil
		}
	}
	return dailies[len(dailies)-1], nil
}

// CheckRequirements sums sack entries and inventory quantity per required
// name and fails fast on the first shortfall.
func (e *Engine) CheckRequirements(ctx context.Context, account string, reqs []catalog.Requirement) (Unmet, bool, error) {
	var unmet Unmet
	var met bool
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		u, ok, err := checkRequirements(ctx, tx, account, reqs)
		if err != nil {
			return err
		}
		unmet, met = u, ok
		return nil
	})
	if err != nil {
		return Unmet{}, false, err
	}
	return unmet, met, nil
}

func checkRequirements(ctx context.Context, tx storage.Store, account string, reqs []catalog.Requirement) (Unmet, bool, error) {
	for _, req := range reqs {
		held, err := countHeld(ctx, tx, account, req.Name)
		if err != nil {
			return Unmet{}, false, err
		}
		if held < req.Quantity {
			return Unmet{Name: req.Name, Needed: req.Quantity, Held: held}, false, nil
		}
	}
	return Unmet{}, true, nil
}

func countHeld(ctx context.Context, tx storage.Store, account, name string) (int, error) {
	entries, err := tx.ListSackEntries(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("read sack: %w", err)
	}
	held := 0
	for _, entry := range entries {
		if strings.EqualFold(entry.Species, name) {
			held++
		}
	}
	item, err := tx.GetItemFold(ctx, account, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("read item: %w", err)
	}
	if err == nil {
		held += item.Quantity
	}
	return held, nil
}

// consumeRequirements removes the required goods, draining matching sack
// entries before touching inventory so perishables go first.
func consumeRequirements(ctx context.Context, tx storage.Store, account string, reqs []catalog.Requirement) error {
	for _, req := range reqs {
		remaining := req.Quantity

		entries, err := tx.ListSackEntries(ctx, account)
		if err != nil {
			return fmt.Errorf("read sack: %w", err)
		}
		for _, entry := range entries {
			if remaining == 0 {
				break
			}
			if !strings.EqualFold(entry.Species, req.Name) {
				continue
			}
			if err := tx.DeleteSackEntry(ctx, account, entry.ID); err != nil {
				return fmt.Errorf("consume sack fish: %w", err)
			}
			remaining--
		}
		if remaining == 0 {
			continue
		}

		item, err := tx.GetItemFold(ctx, account, req.Name)
		if err != nil {
			return fmt.Errorf("consume item %q: %w", req.Name, err)
		}
		if item.Quantity < remaining {
			return fmt.Errorf("consume item %q: short %d", req.Name, remaining-item.Quantity)
		}
		if err := tx.SetItemQuantity(ctx, account, item.Name, item.Quantity-remaining); err != nil {
			return fmt.Errorf("consume item %q: %w", req.Name, err)
		}
	}
	return nil
}

// ClaimDaily claims the current daily quest: requirement re-check, goods
// consumption, reward credit and completion mark run as one unit. Any
// failure leaves the account untouched.
func (e *Engine) ClaimDaily(ctx context.Context, account string) (ClaimSummary, error) {
	var summary ClaimSummary
	err := e.store.InTransaction(ctx, func(tx storage.Store) error {
		summary = ClaimSummary{}

		assignment, err := e.currentAssignment(ctx, tx, account)
		if err != nil {
			return err
		}
		if assignment.Completed {
			return apperrors.New(apperrors.CodeAlreadyCompleted, "daily quest already claimed")
		}

		unmet, ok, err := checkRequirements(ctx, tx, account, assignment.Quest.Requirements)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeRequirementUnmet,
				"daily quest requirements unmet",
				map[string]string{
					"Item":   unmet.Name,
					"Needed": strconv.Itoa(unmet.Needed),
					"Held":   strconv.Itoa(unmet.Held),
				})
		}

		if err := consumeRequirements(ctx, tx, account, assignment.Quest.Requirements); err != nil {
			return err
		}

		now := e.now()
		balance, err := tx.GetBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		balance += assignment.Quest.Reward
		if err := tx.SetBalance(ctx, account, balance, now); err != nil {
			return err
		}
		if err := tx.CompleteDailyQuest(ctx, account, assignment.Quest.ID, now); err != nil {
			return fmt.Errorf("mark quest complete: %w", err)
		}
		if err := tx.AppendQuestCompletion(ctx, storage.QuestCompletion{
			Account:     account,
			QuestID:     assignment.Quest.ID,
			CompletedAt: now,
		}); err != nil {
			return fmt.Errorf("log quest completion: %w", err)
		}

		summary.Claims = []Claim{{Quest: assignment.Quest, Reward: assignment.Quest.Reward}}
		summary.Total = assignment.Quest.Reward
		summary.Balance = balance
		return nil
	})
	if err != nil {
		return ClaimSummary{}, err
	}
	return summary, nil
}

// ClaimAllRegular claims every repeatable quest whose requirements the
// account currently meets. Each quest claims as its own atomic step; a
// failure in one does not roll back the others.
func (e *Engine) ClaimAllRegular(ctx context.Context, account string) (ClaimSummary, error) {
	var summary ClaimSummary
	for _, quest := range e.catalog.RegularQuests() {
		quest := quest
		err := e.store.InTransaction(ctx, func(tx storage.Store) error {
			_, ok, err := checkRequirements(ctx, tx, account, quest.Requirements)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := consumeRequirements(ctx, tx, account, quest.Requirements); err != nil {
				return err
			}

			now := e.now()
			balance, err := tx.GetBalance(ctx, account)
			if err != nil {
				return fmt.Errorf("read balance: %w", err)
			}
			balance += quest.Reward
			if err := tx.SetBalance(ctx, account, balance, now); err != nil {
				return err
			}
			if err := tx.AppendQuestCompletion(ctx, storage.QuestCompletion{
				Account:     account,
				QuestID:     quest.ID,
				CompletedAt: now,
			}); err != nil {
				return fmt.Errorf("log quest completion: %w", err)
			}

			summary.Claims = append(summary.Claims, Claim{Quest: quest, Reward: quest.Reward})
			summary.Total += quest.Reward
			summary.Balance = balance
			return nil
		})
		if err != nil {
			return ClaimSummary{}, err
		}
	}
	if len(summary.Claims) == 0 {
		return ClaimSummary{}, apperrors.New(apperrors.CodeNoQuestsClaimable, "no claimable quests")
	}
	return summary, nil
}
