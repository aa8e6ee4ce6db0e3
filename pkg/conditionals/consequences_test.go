package conditionals

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

func TestApplyConsequences(t *testing.T) {
	c := actor.NewCharacter("Test", "warrior", "")
	choice := scenario.Choice{
		ID: "fight",
		Consequences: []scenario.Consequence{
			{Type: scenario.ConsequenceStatChange, Target: "health", Value: scenario.StatDelta(-10)},
			{Type: scenario.ConsequenceStatChange, Target: "gold", Value: scenario.StatDelta(25)},
			{Type: scenario.ConsequenceStatChange, Target: "gold", Value: scenario.StatDelta(5)},
			{Type: scenario.ConsequenceItemGain, Target: "Troll Tooth", Value: scenario.ItemGrant{Quantity: 2}},
			{Type: scenario.ConsequenceItemGain, Target: "Map", Value: scenario.ItemGrant{}, Description: "A torn map"},
			{Type: scenario.ConsequenceItemLoss, Target: "Rations", Value: scenario.ItemDrop{}},
			{Type: scenario.ConsequenceWorldFlag, Target: "troll_defeated", Value: scenario.FlagValue{Value: true}},
			{Type: scenario.ConsequenceEvent, Target: "bridge_collapse", Value: scenario.EventPayload{Value: "rumble"}},
			{Type: scenario.ConsequenceStatChange, Target: "luck", Value: scenario.StatDelta(1)},
			{Type: "teleport", Target: "moon"},
		},
	}

	d := ApplyConsequences(c, choice)

	fields := d.CharacterUpdates.Fields()
	assert.Equal(t, map[string]int{"health": 110, "gold": 130}, fields, "stat_change records current + delta")

	require.Len(t, d.InventoryChanges.Gained, 2)
	tooth := d.InventoryChanges.Gained[0]
	assert.Equal(t, "Troll Tooth", tooth.Name)
	assert.Equal(t, 2, tooth.Quantity)
	assert.Equal(t, actor.ItemMisc, tooth.Type)
	assert.Equal(t, 0, tooth.Value)
	assert.Equal(t, "An item", tooth.Description)
	assert.True(t, strings.HasPrefix(tooth.ID, "item-"))

	mapItem := d.InventoryChanges.Gained[1]
	assert.Equal(t, 1, mapItem.Quantity, "quantity defaults to 1")
	assert.Equal(t, "A torn map", mapItem.Description)
	assert.NotEqual(t, tooth.ID, mapItem.ID, "synthesized ids are unique")

	assert.Equal(t, []string{"Rations"}, d.InventoryChanges.Lost)
	assert.Equal(t, map[string]any{"troll_defeated": true, "event_bridge_collapse": true}, d.WorldFlagUpdates)

	// The character itself is untouched.
	assert.Equal(t, 120, c.Stats.Health)
}

func TestApplyConsequences_Empty(t *testing.T) {
	d := ApplyConsequences(actor.NewCharacter("T", "", ""), scenario.Choice{ID: "wait"})
	assert.True(t, d.IsEmpty())
	assert.NotNil(t, d.WorldFlagUpdates)
}

func TestDeltas_MergeInto(t *testing.T) {
	var choiceStats actor.StatUpdates
	choiceStats.Set("health", 80)
	choiceStats.Set("gold", 120)
	d := Deltas{
		CharacterUpdates: choiceStats,
		InventoryChanges: actor.InventoryChanges{Gained: []actor.InventoryItem{{Name: "Key", Quantity: 1}}},
		WorldFlagUpdates: map[string]any{"door_open": true, "alarm": false},
	}

	var modelStats actor.StatUpdates
	modelStats.Set("health", 75)
	r := &state.TurnResult{
		CharacterUpdates: &modelStats,
		WorldFlagUpdates: map[string]any{"alarm": true},
		InventoryChanges: &actor.InventoryChanges{Lost: []string{"Key"}},
	}

	d.MergeInto(r)

	assert.Equal(t, map[string]int{"health": 75, "gold": 120}, r.CharacterUpdates.Fields())
	assert.Equal(t, map[string]any{"door_open": true, "alarm": true}, r.WorldFlagUpdates)
	require.NotNil(t, r.InventoryChanges)
	assert.Len(t, r.InventoryChanges.Gained, 1)
	assert.Equal(t, []string{"Key"}, r.InventoryChanges.Lost)
}

func TestDeltas_MergeIntoEmptyResult(t *testing.T) {
	var u actor.StatUpdates
	u.Set("mana", 10)
	r := &state.TurnResult{}
	Deltas{CharacterUpdates: u}.MergeInto(r)

	require.NotNil(t, r.CharacterUpdates)
	assert.Equal(t, map[string]int{"mana": 10}, r.CharacterUpdates.Fields())
	assert.Nil(t, r.InventoryChanges)
	assert.Nil(t, r.WorldFlagUpdates)
}
