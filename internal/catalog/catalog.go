// Package catalog loads the static game data: the catch table, the status
// effect definitions, the quest list and the shop stock. Catalogs are read
// once at startup and are immutable afterwards.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/louisbranch/tacklebox/internal/game/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embeddedFS embed.FS

// EntryKind distinguishes fish from non-fish catch-table entries.
const (
	KindFish = "fish"
	KindItem = "item"
)

// CatchEntry is one row of the catch table.
type CatchEntry struct {
	Name            string
	Kind            string
	Rarity          domain.Rarity
	CatchRate       float64
	MinWeight       float64
	MaxWeight       float64
	PriceMultiplier float64
	Description     string
	Attributes      domain.ItemAttributes
}

// EffectSpec is one status effect definition.
type EffectSpec struct {
	ModuleID    string
	EffectID    string
	Duration    time.Duration
	Mult        float64
	Description string
}

// Ref returns the canonical "module.effect" reference.
func (e EffectSpec) Ref() string {
	return e.ModuleID + "." + e.EffectID
}

// Requirement is one item-or-fish demand of a quest.
type Requirement struct {
	Name     string
	Quantity int
}

// Quest kinds.
const (
	QuestDaily   = "daily"
	QuestRegular = "regular"
)

// Quest is one quest definition.
type Quest struct {
	ID           string
	Title        string
	Kind         string
	Weight       int
	Requirements []Requirement
	Reward       domain.Money
}

// ShopItem is one purchasable item.
type ShopItem struct {
	Name       string
	Category   string
	Price      domain.Money
	Max        int
	Attributes domain.ItemAttributes
}

// Catalog bundles all static game data.
type Catalog struct {
	Catch   []CatchEntry
	Quests  []Quest
	effects map[string]EffectSpec
	shop    map[string][]ShopItem
}

// LoadEmbedded loads the catalogs bundled with the binary.
func LoadEmbedded() (*Catalog, error) {
	return Load(embeddedFS)
}

// Load reads fish.yaml, effects.yaml, quests.yaml and shop.yaml from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{
		effects: map[string]EffectSpec{},
		shop:    map[string][]ShopItem{},
	}
	if err := c.loadCatch(fsys); err != nil {
		return nil, err
	}
	if err := c.loadEffects(fsys); err != nil {
		return nil, err
	}
	if err := c.loadQuests(fsys); err != nil {
		return nil, err
	}
	if err := c.loadShop(fsys); err != nil {
		return nil, err
	}
	return c, nil
}

type catchFile struct {
	Catch []struct {
		Name            string  `yaml:"name"`
		Type            string  `yaml:"type"`
		Rarity          string  `yaml:"rarity"`
		CatchRate       float64 `yaml:"catch_rate"`
		MinWeight       float64 `yaml:"min_weight"`
		MaxWeight       float64 `yaml:"max_weight"`
		PriceMultiplier float64 `yaml:"price_multiplier"`
		Description     string  `yaml:"description"`
	} `yaml:"catch"`
}

func (c *Catalog) loadCatch(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, "data/fish.yaml")
	if err != nil {
		return fmt.Errorf("read fish catalog: %w", err)
	}
	var file catchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse fish catalog: %w", err)
	}
	for _, row := range file.Catch {
		if row.Name == "" {
			return fmt.Errorf("catch entry without name")
		}
		kind := row.Type
		if kind == "" {
			kind = KindFish
		}
		if kind != KindFish && kind != KindItem {
			return fmt.Errorf("catch entry %q: unknown type %q", row.Name, row.Type)
		}
		rarity, _ := domain.ParseRarity(row.Rarity)
		if row.CatchRate <= 0 {
			return fmt.Errorf("catch entry %q: catch_rate must be positive", row.Name)
		}
		if kind == KindFish && row.MaxWeight < row.MinWeight {
			return fmt.Errorf("catch entry %q: max_weight below min_weight", row.Name)
		}
		entry := CatchEntry{
			Name:            row.Name,
			Kind:            kind,
			Rarity:          rarity,
			CatchRate:       row.CatchRate,
			MinWeight:       row.MinWeight,
			MaxWeight:       row.MaxWeight,
			PriceMultiplier: row.PriceMultiplier,
			Description:     row.Description,
		}
		if entry.Description == "" && kind == KindFish {
			entry.Description = defaultFishDescription(entry.Name)
		}
		if kind == KindItem {
			entry.Attributes = domain.ItemAttributes{Kind: KindItem}
		}
		c.Catch = append(c.Catch, entry)
	}
	return nil
}

// defaultFishDescription backfills missing eat descriptions.
func defaultFishDescription(name string) string {
	if strings.Contains(strings.ToLower(name), "crab") {
		return fmt.Sprintf("You crack into the %s, buttery and rich with a salty ocean finish.", name)
	}
	return fmt.Sprintf("You eat the %s. Fresh catch, solid meal.", name)
}

type effectsFile map[string]map[string]struct {
	Duration    int     `yaml:"duration"`
	Mult        float64 `yaml:"mult"`
	Description string  `yaml:"description"`
}

func (c *Catalog) loadEffects(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, "data/effects.yaml")
	if err != nil {
		return fmt.Errorf("read effects catalog: %w", err)
	}
	var file effectsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse effects catalog: %w", err)
	}
	for moduleID, effects := range file {
		for effectID, spec := range effects {
			if spec.Duration <= 0 {
				return fmt.Errorf("effect %s.%s: duration must be positive", moduleID, effectID)
			}
			e := EffectSpec{
				ModuleID:    strings.ToLower(moduleID),
				EffectID:    strings.ToLower(effectID),
				Duration:    time.Duration(spec.Duration) * time.Second,
				Mult:        spec.Mult,
				Description: spec.Description,
			}
			if e.Mult == 0 {
				e.Mult = 1
			}
			if e.Description == "" {
				e.Description = "You feel bubbly"
			}
			c.effects[e.Ref()] = e
		}
	}
	return nil
}

type questsFile struct {
	Quests []struct {
		ID           string `yaml:"id"`
		Title        string `yaml:"title"`
		Kind         string `yaml:"kind"`
		Weight       int    `yaml:"weight"`
		Requirements []struct {
			Name     string `yaml:"name"`
			Quantity int    `yaml:"quantity"`
		} `yaml:"requirements"`
		Reward float64 `yaml:"reward"`
	} `yaml:"quests"`
}

func (c *Catalog) loadQuests(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, "data/quests.yaml")
	if err != nil {
		return fmt.Errorf("read quests catalog: %w", err)
	}
	var file questsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse quests catalog: %w", err)
	}
	for _, row := range file.Quests {
		if row.ID == "" {
			return fmt.Errorf("quest without id")
		}
		kind := row.Kind
		if kind == "" {
			kind = QuestDaily
		}
		if kind != QuestDaily && kind != QuestRegular {
			return fmt.Errorf("quest %q: unknown kind %q", row.ID, row.Kind)
		}
		q := Quest{
			ID:     row.ID,
			Title:  row.Title,
			Kind:   kind,
			Weight: row.Weight,
			Reward: domain.MoneyFromFloat(row.Reward),
		}
		if q.Weight <= 0 {
			q.Weight = 1
		}
		for _, req := range row.Requirements {
			if req.Name == "" || req.Quantity <= 0 {
				return fmt.Errorf("quest %q: invalid requirement", row.ID)
			}
			q.Requirements = append(q.Requirements, Requirement{Name: req.Name, Quantity: req.Quantity})
		}
		if len(q.Requirements) == 0 {
			return fmt.Errorf("quest %q: at least one requirement required", row.ID)
		}
		c.Quests = append(c.Quests, q)
	}
	return nil
}

type shopFile struct {
	Categories map[string][]struct {
		Name       string                `yaml:"name"`
		Price      float64               `yaml:"price"`
		Max        int                   `yaml:"max"`
		Attributes domain.ItemAttributes `yaml:"attributes"`
	} `yaml:"categories"`
}

func (c *Catalog) loadShop(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, "data/shop.yaml")
	if err != nil {
		return fmt.Errorf("read shop catalog: %w", err)
	}
	var file shopFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse shop catalog: %w", err)
	}
	for category, items := range file.Categories {
		for _, row := range items {
			if row.Name == "" {
				return fmt.Errorf("shop category %q: item without name", category)
			}
			item := ShopItem{
				Name:       row.Name,
				Category:   category,
				Price:      domain.MoneyFromFloat(row.Price),
				Max:        row.Max,
				Attributes: row.Attributes,
			}
			if item.Max <= 0 {
				item.Max = 1
			}
			c.shop[category] = append(c.shop[category], item)
		}
	}
	return nil
}

// Effect resolves a "module.effect" reference, case-insensitively.
func (c *Catalog) Effect(ref string) (EffectSpec, bool) {
	e, ok := c.effects[strings.ToLower(strings.TrimSpace(ref))]
	return e, ok
}

// Entry returns the catch-table entry with the given name, case-insensitively.
func (c *Catalog) Entry(name string) (CatchEntry, bool) {
	for _, entry := range c.Catch {
		if strings.EqualFold(entry.Name, name) {
			return entry, true
		}
	}
	return CatchEntry{}, false
}

// Quest returns the quest with the given id.
func (c *Catalog) Quest(id string) (Quest, bool) {
	for _, q := range c.Quests {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}

// DailyQuests returns the quests eligible for daily assignment.
func (c *Catalog) DailyQuests() []Quest {
	var out []Quest
	for _, q := range c.Quests {
		if q.Kind == QuestDaily {
			out = append(out, q)
		}
	}
	return out
}

// RegularQuests returns the repeatable quests.
func (c *Catalog) RegularQuests() []Quest {
	var out []Quest
	for _, q := range c.Quests {
		if q.Kind == QuestRegular {
			out = append(out, q)
		}
	}
	return out
}

// ShopCategories lists the shop categories in sorted order.
func (c *Catalog) ShopCategories() []string {
	out := make([]string, 0, len(c.shop))
	for category := range c.shop {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// ShopCategory returns the stock of one category, case-insensitively.
func (c *Catalog) ShopCategory(category string) ([]ShopItem, bool) {
	for name, items := range c.shop {
		if strings.EqualFold(name, category) {
			return items, true
		}
	}
	return nil, false
}

// ShopItem returns the shop item with the given name, case-insensitively,
// searching every category.
func (c *Catalog) ShopItem(name string) (ShopItem, bool) {
	for _, items := range c.shop {
		for _, item := range items {
			if strings.EqualFold(item.Name, name) {
				return item, true
			}
		}
	}
	return ShopItem{}, false
}
