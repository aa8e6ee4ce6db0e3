package state

import (
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
)

// GameState is the read view of one character's game, assembled on every query.
// It is never stored as its own record.
type GameState struct {
	Character    actor.Character      `json:"character"`
	CurrentScene scenario.Scene       `json:"currentScene"`
	SceneHistory []scenario.Scene     `json:"sceneHistory"` // Ascending by sceneNumber
	WorldFlags   []scenario.WorldFlag `json:"worldFlags"`
	GameProgress GameProgress         `json:"gameProgress"`
}

type GameProgress struct {
	TotalScenes        int  `json:"totalScenes"`
	CurrentSceneNumber int  `json:"currentSceneNumber"`
	IsGameOver         bool `json:"isGameOver"`
	EndingReached      bool `json:"endingReached,omitempty"`
}

// NewGameState assembles the view. The current scene is the last scene of history,
// so history must not be empty.
func NewGameState(c actor.Character, history []scenario.Scene, flags []scenario.WorldFlag) *GameState {
	if flags == nil {
		flags = []scenario.WorldFlag{}
	}
	current := history[len(history)-1]
	return &GameState{
		Character:    c,
		CurrentScene: current,
		SceneHistory: history,
		WorldFlags:   flags,
		GameProgress: GameProgress{
			TotalScenes:        len(history),
			CurrentSceneNumber: current.SceneNumber,
			IsGameOver:         current.IsEnding,
			EndingReached:      current.IsEnding,
		},
	}
}
