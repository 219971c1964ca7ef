// Package domain holds the shared value types of the game core.
package domain

import "strings"

// Rarity is the ordered catch-table tier, ascending in value.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythical
)

var rarityNames = [...]string{
	"Common",
	"Uncommon",
	"Rare",
	"Epic",
	"Legendary",
	"Mythical",
}

// String returns the display name of the rarity.
func (r Rarity) String() string {
	if r < RarityCommon || r > RarityMythical {
		return "Common"
	}
	return rarityNames[r]
}

// ParseRarity resolves a rarity name case-insensitively.
// Unknown names fall back to Common, matching how the catch table treats
// untagged entries.
func ParseRarity(name string) (Rarity, bool) {
	trimmed := strings.TrimSpace(name)
	for i, known := range rarityNames {
		if strings.EqualFold(trimmed, known) {
			return Rarity(i), true
		}
	}
	return RarityCommon, false
}

// StepsBelow returns how many tiers r sits below floor, 0 when at or above.
func (r Rarity) StepsBelow(floor Rarity) int {
	if r >= floor {
		return 0
	}
	return int(floor - r)
}
