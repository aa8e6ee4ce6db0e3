package state

import (
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
)

// TurnResult is the normalized output of one generation call.
type TurnResult struct {
	SceneText        string                  `json:"sceneText"`
	Choices          []scenario.Choice       `json:"choices"`
	VisualMetadata   scenario.SceneMetadata  `json:"visualMetadata"`
	IsEnding         bool                    `json:"isEnding"`
	EndingType       scenario.EndingType     `json:"endingType,omitempty"`
	CharacterUpdates *actor.StatUpdates      `json:"characterUpdates,omitempty"` // Absolute values, not increments
	WorldFlagUpdates map[string]any          `json:"worldFlagUpdates,omitempty"`
	InventoryChanges *actor.InventoryChanges `json:"inventoryChanges,omitempty"`
}

// HasDeltas reports whether the result changes any character or world state.
func (r *TurnResult) HasDeltas() bool {
	return (r.CharacterUpdates != nil && !r.CharacterUpdates.IsEmpty()) ||
		len(r.WorldFlagUpdates) > 0 ||
		(r.InventoryChanges != nil && !r.InventoryChanges.IsEmpty())
}

// NewScene converts the result into an unsaved scene for the given character.
func (r *TurnResult) NewScene(characterID int64, sceneNumber int) scenario.Scene {
	s := scenario.Scene{
		CharacterID: characterID,
		SceneNumber: sceneNumber,
		Description: r.SceneText,
		Choices:     r.Choices,
		Metadata:    r.VisualMetadata,
		IsEnding:    r.IsEnding,
	}
	if r.IsEnding {
		s.EndingType = r.EndingType
	}
	if s.Choices == nil {
		s.Choices = []scenario.Choice{}
	}
	s.Metadata.EnsureLists()
	return s
}
