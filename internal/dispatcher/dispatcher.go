// Package dispatcher exposes the single verb boundary front ends call:
// resolve the caller's account, run one verb as one serialized unit, and
// return a structured result with a relay-ready message.
package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/tacklebox/internal/errors"
	"github.com/louisbranch/tacklebox/internal/game/casino"
	"github.com/louisbranch/tacklebox/internal/game/catch"
	"github.com/louisbranch/tacklebox/internal/game/consume"
	"github.com/louisbranch/tacklebox/internal/game/domain"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/game/inventory"
	"github.com/louisbranch/tacklebox/internal/game/ledger"
	"github.com/louisbranch/tacklebox/internal/game/quest"
	"github.com/louisbranch/tacklebox/internal/game/shop"
	"github.com/louisbranch/tacklebox/internal/game/trophy"
	"github.com/louisbranch/tacklebox/internal/identity"
	"github.com/louisbranch/tacklebox/internal/platform/keylock"
)

var tracer = otel.Tracer("github.com/louisbranch/tacklebox/internal/dispatcher")

// Request is one inbound verb call from a front end.
type Request struct {
	Platform string
	Handle   string
	Verb     string
	Args     []string
}

// Result is the structured outcome of a verb. Code is empty on success;
// Message is always safe to relay to chat unchanged.
type Result struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Services bundles the components a dispatcher drives.
type Services struct {
	Identity  *identity.Resolver
	Ledger    *ledger.Service
	Inventory *inventory.Service
	Effects   *effects.Engine
	Catch     *catch.Engine
	Quests    *quest.Engine
	Trophies  *trophy.Service
	Shop      *shop.Service
	Consume   *consume.Service
	Casino    *casino.Service
}

// Dispatcher routes verbs to components, serializing the verbs that mutate
// one account behind that account's lock.
type Dispatcher struct {
	services Services
	locks    *keylock.Ring
}

// New creates a dispatcher.
func New(services Services, locks *keylock.Ring) *Dispatcher {
	return &Dispatcher{services: services, locks: locks}
}

type handler func(ctx context.Context, account string, req Request) (Result, error)

// Invoke runs one verb. Expected game outcomes, including failures like
// insufficient funds, come back as a Result with a code; only system-level
// failures (storage loss) surface as the returned error.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (Result, error) {
	verb := strings.ToLower(strings.TrimSpace(req.Verb))
	ctx, span := tracer.Start(ctx, "dispatcher.invoke",
		trace.WithAttributes(
			attribute.String("verb", verb),
			attribute.String("platform", req.Platform),
		))
	defer span.End()

	// Link verbs manage their own locking: a redeem spans two accounts and
	// takes both locks in fixed order inside the resolver.
	switch verb {
	case "link":
		result, err := d.link(ctx, req)
		return d.finish(span, result, err)
	case "redeem":
		result, err := d.redeem(ctx, req)
		return d.finish(span, result, err)
	}

	h, ok := d.handlers()[verb]
	if !ok {
		return d.finish(span, Result{}, apperrors.WithMetadata(apperrors.CodeUnknownVerb,
			"verb not registered",
			map[string]string{"Verb": req.Verb}))
	}

	account, err := d.services.Identity.Resolve(ctx, req.Platform, req.Handle)
	if err != nil {
		return d.finish(span, Result{}, err)
	}
	span.SetAttributes(attribute.String("account", account))

	unlock := d.locks.Lock(account)
	defer unlock()

	result, err := h(ctx, account, req)
	return d.finish(span, result, err)
}

// finish converts domain errors to data results and records system errors.
func (d *Dispatcher) finish(span trace.Span, result Result, err error) (Result, error) {
	if err == nil {
		return result, nil
	}
	if code := apperrors.GetCode(err); code != apperrors.CodeUnknown {
		span.SetAttributes(attribute.String("outcome", string(code)))
		return Result{Code: string(code), Message: apperrors.UserMessage(err)}, nil
	}
	span.RecordError(err)
	return Result{}, err
}

func (d *Dispatcher) handlers() map[string]handler {
	return map[string]handler{
		"cast":      d.cast,
		"sack":      d.sack,
		"sell":      d.sell,
		"eat":       d.eat,
		"bait":      d.bait,
		"autosell":  d.autosell,
		"inventory": d.inventory,
		"balance":   d.balance,
		"top":       d.top,
		"effects":   d.activeEffects,
		"quest":     d.dailyQuest,
		"claim":     d.claimDaily,
		"claim-all": d.claimAllRegular,
		"trophy":    d.trophyVerb,
		"shop":      d.shopVerb,
		"buy":       d.buy,
		"drink":     d.drink,
		"smoke":     d.smoke,
		"flip":      d.flip,
	}
}

func joinedArgs(req Request) string {
	return strings.TrimSpace(strings.Join(req.Args, " "))
}

func (d *Dispatcher) cast(ctx context.Context, account string, _ Request) (Result, error) {
	outcome, err := d.services.Catch.Cast(ctx, account)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	if outcome.BaitUsed != "" {
		fmt.Fprintf(&b, "Your %s bait disappears beneath the surface. ", outcome.BaitUsed)
	}
	switch outcome.Kind {
	case catch.OutcomeNone:
		b.WriteString("Not even a nibble.")
	case catch.OutcomeItem:
		fmt.Fprintf(&b, "You reel in a %s.", outcome.Species)
	case catch.OutcomeFish:
		fmt.Fprintf(&b, "You caught a %.2f lb %s worth %s!",
			outcome.Weight, outcome.Species, outcome.Price.Format())
		if outcome.Autosold {
			fmt.Fprintf(&b, " Sold on the spot. Balance: %s.", outcome.Balance.Format())
		}
	}
	return Result{Message: b.String(), Data: outcome}, nil
}

func (d *Dispatcher) sack(ctx context.Context, account string, _ Request) (Result, error) {
	entries, err := d.services.Inventory.ListCatches(ctx, account)
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{Message: "Your sack is empty."}, nil
	}

	var b strings.Builder
	b.WriteString("In your sack: ")
	for i, entry := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%.2f lb, %s)", entry.Species, entry.Weight, entry.Price.Format())
		if entry.IsBait {
			b.WriteString(" [bait]")
		}
	}
	return Result{Message: b.String(), Data: entries}, nil
}

func (d *Dispatcher) sell(ctx context.Context, account string, req Request) (Result, error) {
	receipt, err := d.services.Catch.Sell(ctx, account, joinedArgs(req))
	if err != nil {
		return Result{}, err
	}

	msg := fmt.Sprintf("Sold %d fish for %s. Balance: %s.",
		len(receipt.Sold), receipt.Total.Format(), receipt.Balance.Format())
	if len(receipt.Sold) == 1 {
		msg = fmt.Sprintf("Sold the %s for %s. Balance: %s.",
			receipt.Sold[0].Species, receipt.Total.Format(), receipt.Balance.Format())
	}
	return Result{Message: msg, Data: receipt}, nil
}

func (d *Dispatcher) eat(ctx context.Context, account string, req Request) (Result, error) {
	meal, err := d.services.Catch.Eat(ctx, account, joinedArgs(req))
	if err != nil {
		return Result{}, err
	}
	return Result{Message: meal.Description, Data: meal}, nil
}

func (d *Dispatcher) bait(ctx context.Context, account string, req Request) (Result, error) {
	entry, alreadySet, err := d.services.Catch.SetBait(ctx, account, joinedArgs(req))
	if err != nil {
		return Result{}, err
	}
	if alreadySet {
		return Result{Message: fmt.Sprintf("The %s is already on the hook.", entry.Species), Data: entry}, nil
	}
	return Result{Message: fmt.Sprintf("You rig the %s as bait for your next cast.", entry.Species), Data: entry}, nil
}

func (d *Dispatcher) autosell(ctx context.Context, account string, req Request) (Result, error) {
	sub := ""
	if len(req.Args) > 0 {
		sub = strings.ToLower(req.Args[0])
	}
	rest := strings.TrimSpace(strings.Join(req.Args[min(1, len(req.Args)):], " "))

	switch sub {
	case "add":
		species, err := d.services.Catch.AddAutosell(ctx, account, rest)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%s will now be sold as soon as you catch one.", species)}, nil
	case "remove":
		species, err := d.services.Catch.RemoveAutosell(ctx, account, rest)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%s taken off the autosell list.", species)}, nil
	case "clear":
		if err := d.services.Catch.ClearAutosell(ctx, account); err != nil {
			return Result{}, err
		}
		return Result{Message: "Autosell list cleared."}, nil
	default:
		listed, err := d.services.Catch.Autosell(ctx, account)
		if err != nil {
			return Result{}, err
		}
		if len(listed) == 0 {
			return Result{Message: "Your autosell list is empty."}, nil
		}
		return Result{Message: "Autoselling: " + strings.Join(listed, ", "), Data: listed}, nil
	}
}

func (d *Dispatcher) inventory(ctx context.Context, account string, _ Request) (Result, error) {
	items, err := d.services.Inventory.Items(ctx, account)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{Message: "You own nothing but the clothes on your back."}, nil
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return Result{Message: "You own: " + strings.Join(parts, ", "), Data: items}, nil
}

func (d *Dispatcher) balance(ctx context.Context, account string, _ Request) (Result, error) {
	balance, err := d.services.Ledger.Balance(ctx, account)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Your balance is %s.", balance.Format()), Data: balance}, nil
}

func (d *Dispatcher) top(ctx context.Context, account string, req Request) (Result, error) {
	n := 10
	if len(req.Args) > 0 {
		if parsed, err := strconv.Atoi(req.Args[0]); err == nil {
			n = parsed
		}
	}
	top, err := d.services.Ledger.Top(ctx, n)
	if err != nil {
		return Result{}, err
	}
	if len(top) == 0 {
		return Result{Message: "Nobody has earned a cent yet."}, nil
	}

	parts := make([]string, 0, len(top))
	for i, row := range top {
		name, err := d.services.Identity.DisplayName(ctx, row.Account)
		if err != nil {
			return Result{}, err
		}
		parts = append(parts, fmt.Sprintf("%d. %s %s", i+1, name, row.Cents.Format()))
	}
	return Result{Message: strings.Join(parts, " | "), Data: top}, nil
}

func (d *Dispatcher) activeEffects(ctx context.Context, account string, _ Request) (Result, error) {
	active, err := d.services.Effects.Active(ctx, account)
	if err != nil {
		return Result{}, err
	}
	if len(active) == 0 {
		return Result{Message: "No active effects."}, nil
	}

	parts := make([]string, 0, len(active))
	for _, effect := range active {
		parts = append(parts, fmt.Sprintf("%s (%s left)", effect.Ref(), formatDuration(effect.Remaining)))
	}
	return Result{Message: "Active effects: " + strings.Join(parts, ", "), Data: active}, nil
}

func (d *Dispatcher) dailyQuest(ctx context.Context, account string, _ Request) (Result, error) {
	assignment, err := d.services.Quests.Daily(ctx, account)
	if err != nil {
		return Result{}, err
	}

	if assignment.Completed {
		msg := fmt.Sprintf("Daily quest %q already completed. New quest in %s.",
			assignment.Quest.Title, formatDuration(assignment.UntilNext))
		return Result{Message: msg, Data: assignment}, nil
	}

	reqs := make([]string, 0, len(assignment.Quest.Requirements))
	for _, r := range assignment.Quest.Requirements {
		reqs = append(reqs, fmt.Sprintf("%dx %s", r.Quantity, r.Name))
	}
	msg := fmt.Sprintf("Daily quest: %s — bring %s for %s. Expires in %s.",
		assignment.Quest.Title, strings.Join(reqs, ", "),
		assignment.Quest.Reward.Format(), formatDuration(assignment.UntilNext))
	return Result{Message: msg, Data: assignment}, nil
}

func (d *Dispatcher) claimDaily(ctx context.Context, account string, _ Request) (Result, error) {
	summary, err := d.services.Quests.ClaimDaily(ctx, account)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Quest %q complete! You earned %s. Balance: %s.",
		summary.Claims[0].Quest.Title, summary.Total.Format(), summary.Balance.Format())
	return Result{Message: msg, Data: summary}, nil
}

func (d *Dispatcher) claimAllRegular(ctx context.Context, account string, _ Request) (Result, error) {
	summary, err := d.services.Quests.ClaimAllRegular(ctx, account)
	if err != nil {
		return Result{}, err
	}

	titles := make([]string, 0, len(summary.Claims))
	for _, claim := range summary.Claims {
		titles = append(titles, claim.Quest.Title)
	}
	msg := fmt.Sprintf("Claimed %s for %s. Balance: %s.",
		strings.Join(titles, ", "), summary.Total.Format(), summary.Balance.Format())
	return Result{Message: msg, Data: summary}, nil
}

func (d *Dispatcher) trophyVerb(ctx context.Context, account string, req Request) (Result, error) {
	sub := ""
	if len(req.Args) > 0 {
		sub = strings.ToLower(req.Args[0])
	}
	rest := strings.TrimSpace(strings.Join(req.Args[min(1, len(req.Args)):], " "))

	switch sub {
	case "add":
		entry, err := d.services.Trophies.Add(ctx, account, rest)
		if err != nil {
			return Result{}, err
		}
		msg := fmt.Sprintf("The %.2f lb %s goes up on the wall.", entry.Weight, entry.Species)
		return Result{Message: msg, Data: entry}, nil
	case "remove":
		slot, err := strconv.Atoi(rest)
		if err != nil {
			return Result{}, apperrors.New(apperrors.CodeInvalidTrophySlot, "trophy slot must be a number")
		}
		entry, err := d.services.Trophies.Remove(ctx, account, slot)
		if err != nil {
			return Result{}, err
		}
		msg := fmt.Sprintf("The %s comes off the wall and back into your sack.", entry.Species)
		return Result{Message: msg, Data: entry}, nil
	default:
		trophies, err := d.services.Trophies.List(ctx, account)
		if err != nil {
			return Result{}, err
		}
		if len(trophies) == 0 {
			return Result{Message: "Your trophy case is empty."}, nil
		}
		parts := make([]string, 0, len(trophies))
		for i, entry := range trophies {
			parts = append(parts, fmt.Sprintf("%d. %s (%.2f lb)", i+1, entry.Species, entry.Weight))
		}
		return Result{Message: "Trophy case: " + strings.Join(parts, ", "), Data: trophies}, nil
	}
}

func (d *Dispatcher) shopVerb(ctx context.Context, _ string, req Request) (Result, error) {
	category := joinedArgs(req)
	if category == "" {
		categories := d.services.Shop.Categories()
		return Result{Message: "Shop sections: " + strings.Join(categories, ", "), Data: categories}, nil
	}

	stock, err := d.services.Shop.Stock(category)
	if err != nil {
		return Result{}, err
	}
	parts := make([]string, 0, len(stock))
	for _, item := range stock {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Name, item.Price.Format()))
	}
	return Result{Message: "For sale: " + strings.Join(parts, ", "), Data: stock}, nil
}

func (d *Dispatcher) buy(ctx context.Context, account string, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, apperrors.WithMetadata(apperrors.CodeItemNotFound,
			"buy requires an item name",
			map[string]string{"Item": ""})
	}

	args := req.Args
	qty := 1
	if len(args) > 1 {
		if parsed, err := strconv.Atoi(args[len(args)-1]); err == nil {
			qty = parsed
			args = args[:len(args)-1]
		}
	}
	name := strings.TrimSpace(strings.Join(args, " "))

	receipt, err := d.services.Shop.Buy(ctx, account, name, qty)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Bought %dx %s for %s. Balance: %s.",
		receipt.Quantity, receipt.Item.Name, receipt.Cost.Format(), receipt.Balance.Format())
	return Result{Message: msg, Data: receipt}, nil
}

func (d *Dispatcher) drink(ctx context.Context, account string, req Request) (Result, error) {
	result, err := d.services.Consume.Drink(ctx, account, joinedArgs(req))
	if err != nil {
		return Result{}, err
	}
	return Result{Message: consumeMessage(result), Data: result}, nil
}

func (d *Dispatcher) smoke(ctx context.Context, account string, req Request) (Result, error) {
	result, err := d.services.Consume.Smoke(ctx, account, joinedArgs(req))
	if err != nil {
		return Result{}, err
	}
	return Result{Message: consumeMessage(result), Data: result}, nil
}

func consumeMessage(result consume.Result) string {
	msg := fmt.Sprintf("You finish %dx %s.", result.Quantity, result.Item)
	if len(result.Descriptions) > 0 {
		msg += " " + strings.Join(result.Descriptions, ". ") + "."
	}
	return msg
}

func (d *Dispatcher) flip(ctx context.Context, account string, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, apperrors.New(apperrors.CodeInvalidAmount, "flip requires a wager")
	}
	amount, err := strconv.ParseFloat(req.Args[0], 64)
	if err != nil {
		return Result{}, apperrors.New(apperrors.CodeInvalidAmount, "wager must be a number")
	}

	result, err := d.services.Casino.Flip(ctx, account, domain.MoneyFromFloat(amount))
	if err != nil {
		return Result{}, err
	}
	if result.Won {
		msg := fmt.Sprintf("Heads! You win %s. Balance: %s.", result.Wager.Format(), result.Balance.Format())
		return Result{Message: msg, Data: result}, nil
	}
	msg := fmt.Sprintf("Tails. You lose %s. Balance: %s.", result.Wager.Format(), result.Balance.Format())
	return Result{Message: msg, Data: result}, nil
}

func (d *Dispatcher) link(ctx context.Context, req Request) (Result, error) {
	code, err := d.services.Identity.GenerateCode(ctx, req.Platform, req.Handle)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Your link code is %s. Redeem it from your other account within 10 minutes.", code.Code)
	return Result{Message: msg, Data: code.Code}, nil
}

func (d *Dispatcher) redeem(ctx context.Context, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, apperrors.New(apperrors.CodeInvalidCode, "redeem requires a code")
	}
	result, err := d.services.Identity.Redeem(ctx, req.Args[0], req.Platform, req.Handle)
	if err != nil {
		return Result{}, err
	}
	if result.AlreadyLinked {
		return Result{Message: "These accounts are already linked.", Data: result}, nil
	}
	return Result{Message: "Accounts linked! Your progress now follows you everywhere.", Data: result}, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
