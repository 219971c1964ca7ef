package domain

// ItemAttributes is the closed set of optional attributes an inventory item
// can carry. Rod, sack and consumable logic read these fields directly
// instead of poking at an open map.
type ItemAttributes struct {
	Kind string `json:"type,omitempty" yaml:"type,omitempty"`

	// Rod attributes
	FishNoneRateMultiplier float64 `json:"fish_none_rate_multiplier,omitempty" yaml:"fish_none_rate_multiplier,omitempty"`
	FishMinimumRarity      string  `json:"fish_minimum_rarity,omitempty" yaml:"fish_minimum_rarity,omitempty"`

	// Sack attributes
	FishCapacity int `json:"fish_capacity,omitempty" yaml:"fish_capacity,omitempty"`

	// Consumable attributes: status effects applied on use, as
	// "module.effect" references into the effect catalog.
	Effects []string `json:"effects,omitempty" yaml:"effects,omitempty"`
}
