package actor

import (
	"strings"
	"time"
)

// Character is the player character owned by the persistence layer.
// Handlers and the turn engine only ever hold a per-request copy.
type Character struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Class      string          `json:"class"`      // Free-text tag, only used for starting defaults
	Background string          `json:"background"` // Player-written backstory
	Stats      Stats           `json:"stats"`
	Inventory  []InventoryItem `json:"inventory"` // Acquisition order
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Stats is the full character sheet.
type Stats struct {
	Health       int `json:"health"`
	MaxHealth    int `json:"maxHealth"`
	Mana         int `json:"mana"`
	MaxMana      int `json:"maxMana"`
	Strength     int `json:"strength"`
	Intelligence int `json:"intelligence"`
	Dexterity    int `json:"dexterity"`
	Charisma     int `json:"charisma"`
	Wisdom       int `json:"wisdom"`
	Constitution int `json:"constitution"`
	Level        int `json:"level"`
	Experience   int `json:"experience"`
	Gold         int `json:"gold"`
}

// StatUpdates is a partial Stats. Nil fields are left untouched when applied.
type StatUpdates struct {
	Health       *int `json:"health,omitempty"`
	MaxHealth    *int `json:"maxHealth,omitempty"`
	Mana         *int `json:"mana,omitempty"`
	MaxMana      *int `json:"maxMana,omitempty"`
	Strength     *int `json:"strength,omitempty"`
	Intelligence *int `json:"intelligence,omitempty"`
	Dexterity    *int `json:"dexterity,omitempty"`
	Charisma     *int `json:"charisma,omitempty"`
	Wisdom       *int `json:"wisdom,omitempty"`
	Constitution *int `json:"constitution,omitempty"`
	Level        *int `json:"level,omitempty"`
	Experience   *int `json:"experience,omitempty"`
	Gold         *int `json:"gold,omitempty"`
}

// StatNames lists the wire names of every stat in sheet order.
var StatNames = []string{
	"health", "maxHealth", "mana", "maxMana",
	"strength", "intelligence", "dexterity", "charisma", "wisdom", "constitution",
	"level", "experience", "gold",
}

func (s *Stats) field(name string) *int {
	switch name {
	case "health":
		return &s.Health
	case "maxHealth":
		return &s.MaxHealth
	case "mana":
		return &s.Mana
	case "maxMana":
		return &s.MaxMana
	case "strength":
		return &s.Strength
	case "intelligence":
		return &s.Intelligence
	case "dexterity":
		return &s.Dexterity
	case "charisma":
		return &s.Charisma
	case "wisdom":
		return &s.Wisdom
	case "constitution":
		return &s.Constitution
	case "level":
		return &s.Level
	case "experience":
		return &s.Experience
	case "gold":
		return &s.Gold
	}
	return nil
}

// Get returns the stat with the given wire name.
func (s Stats) Get(name string) (int, bool) {
	p := s.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Apply merges the touched fields of u, then clamps health and mana to their maximums.
// Primary attributes may leave the conventional 1-20 range.
func (s *Stats) Apply(u StatUpdates) {
	for name, v := range u.Fields() {
		*s.field(name) = v
	}
	s.clamp()
}

func (s *Stats) clamp() {
	if s.MaxHealth < 0 {
		s.MaxHealth = 0
	}
	if s.MaxMana < 0 {
		s.MaxMana = 0
	}
	s.Health = min(max(s.Health, 0), s.MaxHealth)
	s.Mana = min(max(s.Mana, 0), s.MaxMana)
}

// Set records an absolute value for the named stat. It reports false for unknown names.
func (u *StatUpdates) Set(name string, value int) bool {
	var p **int
	switch name {
	case "health":
		p = &u.Health
	case "maxHealth":
		p = &u.MaxHealth
	case "mana":
		p = &u.Mana
	case "maxMana":
		p = &u.MaxMana
	case "strength":
		p = &u.Strength
	case "intelligence":
		p = &u.Intelligence
	case "dexterity":
		p = &u.Dexterity
	case "charisma":
		p = &u.Charisma
	case "wisdom":
		p = &u.Wisdom
	case "constitution":
		p = &u.Constitution
	case "level":
		p = &u.Level
	case "experience":
		p = &u.Experience
	case "gold":
		p = &u.Gold
	default:
		return false
	}
	*p = &value
	return true
}

// Fields returns the touched fields keyed by wire name.
func (u StatUpdates) Fields() map[string]int {
	out := make(map[string]int)
	for name, p := range map[string]*int{
		"health": u.Health, "maxHealth": u.MaxHealth,
		"mana": u.Mana, "maxMana": u.MaxMana,
		"strength": u.Strength, "intelligence": u.Intelligence,
		"dexterity": u.Dexterity, "charisma": u.Charisma,
		"wisdom": u.Wisdom, "constitution": u.Constitution,
		"level": u.Level, "experience": u.Experience, "gold": u.Gold,
	} {
		if p != nil {
			out[name] = *p
		}
	}
	return out
}

// IsEmpty reports whether no field is touched.
func (u StatUpdates) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Merge overlays other onto u; fields touched in other win.
func (u *StatUpdates) Merge(other StatUpdates) {
	for name, v := range other.Fields() {
		u.Set(name, v)
	}
}

// DefaultStats returns the starting sheet for a class. Class matching is case-insensitive
// and unknown classes get the base sheet.
func DefaultStats(class string) Stats {
	s := Stats{
		Health: 100, MaxHealth: 100,
		Mana: 50, MaxMana: 50,
		Strength: 10, Intelligence: 10, Dexterity: 10,
		Charisma: 10, Wisdom: 10, Constitution: 10,
		Level: 1, Experience: 0, Gold: 100,
	}

	switch strings.ToLower(strings.TrimSpace(class)) {
	case "warrior":
		s.Strength = 14
		s.Constitution = 12
		s.Health, s.MaxHealth = 120, 120
	case "mage":
		s.Intelligence = 14
		s.Wisdom = 12
		s.Mana, s.MaxMana = 80, 80
	case "rogue":
		s.Dexterity = 14
		s.Charisma = 12
	case "cleric":
		s.Wisdom = 14
		s.Constitution = 12
		s.Mana, s.MaxMana = 70, 70
	}
	return s
}

// NewCharacter builds an unsaved character with class defaults applied.
func NewCharacter(name, class, background string) *Character {
	return &Character{
		Name:       name,
		Class:      class,
		Background: background,
		Stats:      DefaultStats(class),
		Inventory:  StartingInventory(class),
	}
}

// HasItem reports whether any inventory item name contains target, ignoring case.
func (c *Character) HasItem(target string) bool {
	needle := strings.ToLower(target)
	for _, item := range c.Inventory {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}
	return false
}
