package actor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
	ItemMisc       ItemType = "misc"
)

// InventoryItem is one stack of items. IDs are stable keys, not global identifiers.
type InventoryItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        ItemType     `json:"type"`
	Value       int          `json:"value"`
	Quantity    int          `json:"quantity"`
	Effects     []ItemEffect `json:"effects,omitempty"`
}

// ItemEffect is a passive or on-use effect attached to an item.
type ItemEffect struct {
	Type     string `json:"type"` // stat, ability or spell
	Target   string `json:"target"`
	Value    int    `json:"value"`
	Duration *int   `json:"duration,omitempty"` // Seconds
}

// InventoryChanges is the inventory delta of one turn. Lost entries match by id or name.
type InventoryChanges struct {
	Gained []InventoryItem `json:"gained"`
	Lost   []string        `json:"lost"`
}

func (c InventoryChanges) IsEmpty() bool {
	return len(c.Gained) == 0 && len(c.Lost) == 0
}

// Validate checks the item invariants.
func (i InventoryItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("item name is required")
	}
	switch i.Type {
	case ItemWeapon, ItemArmor, ItemConsumable, ItemMisc:
	default:
		return fmt.Errorf("item %q has invalid type %q", i.Name, i.Type)
	}
	if i.Value < 0 {
		return fmt.Errorf("item %q has negative value", i.Name)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("item %q has quantity %d", i.Name, i.Quantity)
	}
	return nil
}

// MergeInventory applies changes to a copy of current. A gained item whose name matches an
// existing entry adds to that entry's quantity; otherwise it is appended. Lost names and ids
// are removed afterwards.
func MergeInventory(current []InventoryItem, changes InventoryChanges) []InventoryItem {
	out := slices.Clone(current)

	for _, gained := range changes.Gained {
		if gained.Quantity < 1 {
			gained.Quantity = 1
		}
		idx := slices.IndexFunc(out, func(item InventoryItem) bool {
			return item.Name == gained.Name
		})
		if idx >= 0 {
			out[idx].Quantity += gained.Quantity
			continue
		}
		if gained.ID == "" {
			gained.ID = "item-" + uuid.NewString()
		}
		if gained.Type == "" {
			gained.Type = ItemMisc
		}
		out = append(out, gained)
	}

	if len(changes.Lost) == 0 {
		return out
	}
	return slices.DeleteFunc(out, func(item InventoryItem) bool {
		return slices.Contains(changes.Lost, item.ID) || slices.Contains(changes.Lost, item.Name)
	})
}

// StartingInventory returns the kit every character starts with plus the class items.
func StartingInventory(class string) []InventoryItem {
	items := []InventoryItem{
		{ID: "basic_clothes", Name: "Basic Clothes", Description: "Simple but sturdy clothing", Type: ItemMisc, Value: 5, Quantity: 1},
		{ID: "rations", Name: "Rations", Description: "Dried food for the road", Type: ItemConsumable, Value: 2, Quantity: 3},
	}

	switch strings.ToLower(strings.TrimSpace(class)) {
	case "warrior":
		items = append(items,
			InventoryItem{ID: "iron_sword", Name: "Iron Sword", Description: "A reliable iron blade", Type: ItemWeapon, Value: 25, Quantity: 1},
			InventoryItem{ID: "leather_armor", Name: "Leather Armor", Description: "Basic protection for combat", Type: ItemArmor, Value: 15, Quantity: 1},
		)
	case "mage":
		items = append(items,
			InventoryItem{ID: "staff", Name: "Wooden Staff", Description: "A staff that channels magical energy", Type: ItemWeapon, Value: 20, Quantity: 1},
			InventoryItem{ID: "spellbook", Name: "Spellbook", Description: "Contains basic spells", Type: ItemMisc, Value: 30, Quantity: 1},
		)
	case "rogue":
		items = append(items,
			InventoryItem{ID: "dagger", Name: "Iron Dagger", Description: "A sharp, concealable blade", Type: ItemWeapon, Value: 15, Quantity: 1},
			InventoryItem{ID: "thieves_tools", Name: "Thieves' Tools", Description: "Tools for picking locks and disarming traps", Type: ItemMisc, Value: 25, Quantity: 1},
		)
	case "cleric":
		items = append(items,
			InventoryItem{ID: "mace", Name: "Wooden Mace", Description: "A blessed wooden mace", Type: ItemWeapon, Value: 18, Quantity: 1},
			InventoryItem{ID: "holy_symbol", Name: "Holy Symbol", Description: "A symbol of divine power", Type: ItemMisc, Value: 20, Quantity: 1},
		)
	}
	return items
}
