package conditionals

import (
	"github.com/google/uuid"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

// Deltas is the state change produced by a choice's declared consequences.
type Deltas struct {
	CharacterUpdates actor.StatUpdates      `json:"characterUpdates"`
	InventoryChanges actor.InventoryChanges `json:"inventoryChanges"`
	WorldFlagUpdates map[string]any         `json:"worldFlagUpdates"`
}

// ApplyConsequences computes the deltas of taking choice. stat_change values are turned into
// absolute stat values; repeated changes to one stat accumulate. Invalid consequences are skipped.
func ApplyConsequences(c *actor.Character, choice scenario.Choice) Deltas {
	d := Deltas{
		InventoryChanges: actor.InventoryChanges{Gained: []actor.InventoryItem{}, Lost: []string{}},
		WorldFlagUpdates: map[string]any{},
	}
	running := c.Stats

	for _, cons := range choice.Consequences {
		if cons.Validate() != nil {
			continue
		}
		switch v := cons.Value.(type) {
		case scenario.StatDelta:
			current, ok := running.Get(cons.Target)
			if !ok {
				continue
			}
			next := current + int(v)
			var u actor.StatUpdates
			u.Set(cons.Target, next)
			running.Apply(u)
			d.CharacterUpdates.Set(cons.Target, next)

		case scenario.ItemGrant:
			d.InventoryChanges.Gained = append(d.InventoryChanges.Gained, grantItem(cons.Target, cons.Description, v))

		case scenario.ItemDrop:
			d.InventoryChanges.Lost = append(d.InventoryChanges.Lost, cons.Target)

		case scenario.FlagValue:
			d.WorldFlagUpdates[cons.Target] = v.Value

		case scenario.EventPayload:
			d.WorldFlagUpdates[scenario.EventFlagPrefix+cons.Target] = true
		}
	}
	return d
}

func grantItem(name, description string, g scenario.ItemGrant) actor.InventoryItem {
	item := actor.InventoryItem{
		ID:          "item-" + uuid.NewString(),
		Name:        name,
		Description: description,
		Type:        actor.ItemMisc,
		Value:       max(g.Value, 0),
		Quantity:    g.Quantity,
	}
	if item.Description == "" {
		item.Description = g.Description
	}
	if item.Description == "" {
		item.Description = "An item"
	}
	switch g.Type {
	case actor.ItemWeapon, actor.ItemArmor, actor.ItemConsumable:
		item.Type = g.Type
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return item
}

// IsEmpty reports whether the deltas change nothing.
func (d Deltas) IsEmpty() bool {
	return d.CharacterUpdates.IsEmpty() && d.InventoryChanges.IsEmpty() && len(d.WorldFlagUpdates) == 0
}

// MergeInto folds the deltas into r ahead of the model's own deltas: where both touch the
// same stat or flag, the model's value is kept. Inventory changes are concatenated.
func (d Deltas) MergeInto(r *state.TurnResult) {
	if d.IsEmpty() {
		return
	}

	if !d.CharacterUpdates.IsEmpty() {
		merged := d.CharacterUpdates
		if r.CharacterUpdates != nil {
			merged.Merge(*r.CharacterUpdates)
		}
		r.CharacterUpdates = &merged
	}

	if len(d.WorldFlagUpdates) > 0 {
		flags := make(map[string]any, len(d.WorldFlagUpdates)+len(r.WorldFlagUpdates))
		for k, v := range d.WorldFlagUpdates {
			flags[k] = v
		}
		for k, v := range r.WorldFlagUpdates {
			flags[k] = v
		}
		r.WorldFlagUpdates = flags
	}

	if !d.InventoryChanges.IsEmpty() {
		changes := actor.InventoryChanges{
			Gained: append([]actor.InventoryItem{}, d.InventoryChanges.Gained...),
			Lost:   append([]string{}, d.InventoryChanges.Lost...),
		}
		if r.InventoryChanges != nil {
			changes.Gained = append(changes.Gained, r.InventoryChanges.Gained...)
			changes.Lost = append(changes.Lost, r.InventoryChanges.Lost...)
		}
		r.InventoryChanges = &changes
	}
}
