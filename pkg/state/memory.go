package state

import (
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
)

// GameMemory is the cross-turn context handed to the prompt builder.
type GameMemory struct {
	CharacterMemory CharacterMemory `json:"characterMemory"`
	SceneMemory     SceneMemory     `json:"sceneMemory"`
	WorldMemory     WorldMemory     `json:"worldMemory"`
}

type CharacterMemory struct {
	Character         *actor.Character `json:"character"`
	RecentChoices     []string         `json:"recentChoices"`
	PersonalityTraits []string         `json:"personalityTraits"`
	Relationships     map[string]int   `json:"relationships"`
}

type SceneMemory struct {
	RecentScenes    []scenario.Scene `json:"recentScenes"` // Newest first
	ImportantEvents []string         `json:"importantEvents"`
	LocationHistory []string         `json:"locationHistory"`
}

type WorldMemory struct {
	Flags        []scenario.WorldFlag `json:"flags"`
	GlobalEvents []string             `json:"globalEvents"`
	NPCStates    map[string]any       `json:"npcStates"`
	WorldState   string               `json:"worldState"`
}

const (
	WorldStateInitial = "initial"
	WorldStateActive  = "active"
)

// EmptyMemory is the memory of a character the store has never seen.
func EmptyMemory() GameMemory {
	return GameMemory{
		CharacterMemory: EmptyCharacterMemory(nil),
		SceneMemory:     EmptySceneMemory(),
		WorldMemory:     EmptyWorldMemory(),
	}
}

func EmptyCharacterMemory(c *actor.Character) CharacterMemory {
	return CharacterMemory{
		Character:         c,
		RecentChoices:     []string{},
		PersonalityTraits: []string{},
		Relationships:     map[string]int{},
	}
}

func EmptySceneMemory() SceneMemory {
	return SceneMemory{
		RecentScenes:    []scenario.Scene{},
		ImportantEvents: []string{},
		LocationHistory: []string{},
	}
}

func EmptyWorldMemory() WorldMemory {
	return WorldMemory{
		Flags:        []scenario.WorldFlag{},
		GlobalEvents: []string{},
		NPCStates:    map[string]any{},
		WorldState:   WorldStateInitial,
	}
}

// Session is the snapshot saved after each generated turn.
type Session struct {
	CharacterID int64           `json:"characterId"`
	Character   actor.Character `json:"character"`
	LastTurn    TurnResult      `json:"lastTurn"`
}
