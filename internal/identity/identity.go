// Package identity binds per-platform handles to canonical accounts.
//
// An unlinked (platform, handle) plays under the bare handle as its account
// key. Redeeming a link code attaches identities to a canonical account id
// and relocates the absorbed identity's rows onto the shared key.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/platform/keylock"
	"github.com/louisbranch/tacklebox/internal/storage"
)

// codeTTL bounds how long a link code stays redeemable.
const codeTTL = 10 * time.Minute

// accountKey renders the storage key of a canonical account.
func accountKey(accountID int64) string {
	return fmt.Sprintf("account_%d", accountID)
}

// Identity is one (platform, handle) pair.
type Identity struct {
	Platform string
	Handle   string
}

func (i Identity) normalize() Identity {
	return Identity{
		Platform: strings.ToLower(strings.TrimSpace(i.Platform)),
		Handle:   strings.TrimSpace(i.Handle),
	}
}

func (i Identity) equal(other Identity) bool {
	return i.Platform == other.Platform && strings.EqualFold(i.Handle, other.Handle)
}

// LinkResult reports the outcome of a successful redeem.
type LinkResult struct {
	AccountID int64
	// AlreadyLinked reports both identities were on the account before the
	// call; nothing changed.
	AlreadyLinked bool
}

// Resolver owns the (platform, handle) to account mapping.
type Resolver struct {
	store storage.Store
	locks *keylock.Ring
	now   func() time.Time
	// roll drives link-code generation.
	roll func() float64
	// canonicalPlatform is preferred by PreferredIdentifier lookups.
	canonicalPlatform string
}

// NewResolver creates an identity resolver.
func NewResolver(store storage.Store, locks *keylock.Ring, now func() time.Time, roll func() float64, canonicalPlatform string) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store:             store,
		locks:             locks,
		now:               now,
		roll:              roll,
		canonicalPlatform: strings.ToLower(canonicalPlatform),
	}
}

// Resolve returns the account key the identity plays under: the canonical
// account key when linked, the bare handle otherwise.
func (r *Resolver) Resolve(ctx context.Context, platform, handle string) (string, error) {
	id := Identity{Platform: platform, Handle: handle}.normalize()
	link, err := r.store.GetLink(ctx, id.Platform, id.Handle)
	if errors.Is(err, storage.ErrNotFound) {
		return id.Handle, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return accountKey(link.AccountID), nil
}

// GenerateCode issues a 6-digit link code for the identity, replacing any
// live code it already holds. Codes expire after ten minutes.
func (r *Resolver) GenerateCode(ctx context.Context, platform, handle string) (storage.LinkCode, error) {
	id := Identity{Platform: platform, Handle: handle}.normalize()
	code := storage.LinkCode{
		Code:      fmt.Sprintf("%06d", int(r.roll()*1_000_000)),
		Platform:  id.Platform,
		Handle:    id.Handle,
		ExpiresAt: r.now().Add(codeTTL),
	}
	if err := r.store.PutLinkCode(ctx, code); err != nil {
		return storage.LinkCode{}, err
	}
	return code, nil
}

// Redeem links the identity that generated the code with the target
// identity. Exactly one of four cases applies: allocate a fresh account,
// attach to the one linked side, report already linked, or reject two
// distinct linked accounts.
func (r *Resolver) Redeem(ctx context.Context, code, targetPlatform, targetHandle string) (LinkResult, error) {
	target := Identity{Platform: targetPlatform, Handle: targetHandle}.normalize()

	pending, err := r.store.GetLinkCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, storage.ErrNotFound) {
		return LinkResult{}, apperrors.New(apperrors.CodeInvalidCode, "link code not found")
	}
	if err != nil {
		return LinkResult{}, fmt.Errorf("read link code: %w", err)
	}
	if r.now().After(pending.ExpiresAt) {
		if err := r.store.DeleteLinkCode(ctx, pending.Code); err != nil {
			return LinkResult{}, fmt.Errorf("drop expired code: %w", err)
		}
		return LinkResult{}, apperrors.New(apperrors.CodeExpired, "link code expired")
	}

	source := Identity{Platform: pending.Platform, Handle: pending.Handle}.normalize()
	if source.equal(target) {
		return LinkResult{}, apperrors.New(apperrors.CodeSelfLink, "cannot link identity to itself")
	}

	// Both identities' current account keys bound the rows the merge can
	// touch; lock them in fixed order before the transaction.
	sourceKey, err := r.Resolve(ctx, source.Platform, source.Handle)
	if err != nil {
		return LinkResult{}, err
	}
	targetKey, err := r.Resolve(ctx, target.Platform, target.Handle)
	if err != nil {
		return LinkResult{}, err
	}
	unlock := r.locks.LockPair(sourceKey, targetKey)
	defer unlock()

	var result LinkResult
	err = r.store.InTransaction(ctx, func(tx storage.Store) error {
		sourceLink, sourceLinked, err := lookupLink(ctx, tx, source)
		if err != nil {
			return err
		}
		targetLink, targetLinked, err := lookupLink(ctx, tx, target)
		if err != nil {
			return err
		}

		switch {
		case sourceLinked && targetLinked && sourceLink.AccountID == targetLink.AccountID:
			result = LinkResult{AccountID: sourceLink.AccountID, AlreadyLinked: true}
			return tx.DeleteLinkCode(ctx, pending.Code)

		case sourceLinked && targetLinked:
			return apperrors.New(apperrors.CodeConflictingLinks,
				"identities belong to different accounts")

		case sourceLinked:
			result = LinkResult{AccountID: sourceLink.AccountID}
			return r.attach(ctx, tx, target, sourceLink.AccountID, pending.Code)

		case targetLinked:
			result = LinkResult{AccountID: targetLink.AccountID}
			return r.attach(ctx, tx, source, targetLink.AccountID, pending.Code)

		default:
			accountID, err := tx.NextAccountID(ctx)
			if err != nil {
				return err
			}
			result = LinkResult{AccountID: accountID}
			if err := r.attach(ctx, tx, source, accountID, ""); err != nil {
				return err
			}
			return r.attach(ctx, tx, target, accountID, pending.Code)
		}
	})
	if err != nil {
		return LinkResult{}, err
	}
	return result, nil
}

// attach links the identity to the account and folds its bare-handle rows
// into the canonical key. When code is non-empty the pending link code is
// consumed in the same transaction.
func (r *Resolver) attach(ctx context.Context, tx storage.Store, id Identity, accountID int64, code string) error {
	if err := tx.InsertLink(ctx, storage.AccountLink{
		AccountID: accountID,
		Platform:  id.Platform,
		Handle:    id.Handle,
		LinkedAt:  r.now(),
	}); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	if err := merge(ctx, tx, id.Handle, accountKey(accountID), r.now()); err != nil {
		return err
	}
	if code == "" {
		return nil
	}
	return tx.DeleteLinkCode(ctx, code)
}

// merge relocates the rows of the absorbed account key onto the target key:
// balance summed, inventory quantities summed per item key, sack and
// trophies and quests reassigned wholesale, status effects keeping the
// later expiry per key, autosell lists unioned.
func merge(ctx context.Context, tx storage.Store, from, to string, now time.Time) error {
	if from == to {
		return nil
	}

	fromBalance, err := tx.GetBalance(ctx, from)
	if err != nil {
		return fmt.Errorf("read absorbed balance: %w", err)
	}
	if fromBalance > 0 {
		toBalance, err := tx.GetBalance(ctx, to)
		if err != nil {
			return fmt.Errorf("read target balance: %w", err)
		}
		if err := tx.SetBalance(ctx, to, toBalance+fromBalance, now); err != nil {
			return err
		}
	}
	if err := tx.DeleteBalance(ctx, from); err != nil {
		return err
	}

	items, err := tx.ListItems(ctx, from)
	if err != nil {
		return fmt.Errorf("read absorbed items: %w", err)
	}
	for _, item := range items {
		item.Account = to
		if err := tx.AddItemQuantity(ctx, item); err != nil {
			return fmt.Errorf("merge item %q: %w", item.Name, err)
		}
	}
	if err := tx.DeleteAllItems(ctx, from); err != nil {
		return err
	}

	if err := tx.ReassignSack(ctx, from, to); err != nil {
		return err
	}

	fromEffects, err := tx.ListEffects(ctx, from)
	if err != nil {
		return fmt.Errorf("read absorbed effects: %w", err)
	}
	toEffects, err := tx.ListEffects(ctx, to)
	if err != nil {
		return fmt.Errorf("read target effects: %w", err)
	}
	existing := map[string]time.Time{}
	for _, effect := range toEffects {
		existing[effect.ModuleID+"."+effect.EffectID] = effect.ExpiresAt
	}
	for _, effect := range fromEffects {
		if expiry, ok := existing[effect.ModuleID+"."+effect.EffectID]; ok && expiry.After(effect.ExpiresAt) {
			continue
		}
		effect.Account = to
		if err := tx.UpsertEffect(ctx, effect); err != nil {
			return fmt.Errorf("merge effect: %w", err)
		}
	}
	if err := tx.DeleteAllEffects(ctx, from); err != nil {
		return err
	}

	if err := tx.ReassignQuests(ctx, from, to); err != nil {
		return err
	}
	if err := tx.ReassignTrophies(ctx, from, to); err != nil {
		return err
	}
	return tx.ReassignAutosell(ctx, from, to)
}

func lookupLink(ctx context.Context, tx storage.Store, id Identity) (storage.AccountLink, bool, error) {
	link, err := tx.GetLink(ctx, id.Platform, id.Handle)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.AccountLink{}, false, nil
	}
	if err != nil {
		return storage.AccountLink{}, false, fmt.Errorf("read link: %w", err)
	}
	return link, true, nil
}

// PreferredIdentifier returns the handle front ends should display for the
// identity: a linked handle on the canonical platform when one exists, the
// queried handle otherwise.
func (r *Resolver) PreferredIdentifier(ctx context.Context, platform, handle string) (string, error) {
	id := Identity{Platform: platform, Handle: handle}.normalize()
	link, err := r.store.GetLink(ctx, id.Platform, id.Handle)
	if errors.Is(err, storage.ErrNotFound) {
		return id.Handle, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}

	links, err := r.store.ListLinks(ctx, link.AccountID)
	if err != nil {
		return "", fmt.Errorf("list links: %w", err)
	}
	if preferred, ok := r.preferredHandle(links); ok {
		return preferred, nil
	}
	return id.Handle, nil
}

// DisplayName renders an account key for player-facing listings: canonical
// account keys resolve to a linked handle, bare handles display as-is.
func (r *Resolver) DisplayName(ctx context.Context, key string) (string, error) {
	idStr, ok := strings.CutPrefix(key, "account_")
	if !ok {
		return key, nil
	}
	accountID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return key, nil
	}

	links, err := r.store.ListLinks(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list links: %w", err)
	}
	if preferred, ok := r.preferredHandle(links); ok {
		return preferred, nil
	}
	if len(links) > 0 {
		return links[0].Handle, nil
	}
	return key, nil
}

// preferredHandle picks the canonical platform's handle among an account's
// links, if one exists.
func (r *Resolver) preferredHandle(links []storage.AccountLink) (string, bool) {
	for _, l := range links {
		if l.Platform == r.canonicalPlatform {
			return l.Handle, true
		}
	}
	return "", false
}
