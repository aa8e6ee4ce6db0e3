package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

var (
	// ErrNotFound is returned when a character, scene or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a scene number is already taken for a character.
	ErrConflict = errors.New("conflict")
)

// Repository persists characters and their scene history.
type Repository interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Characters. Create assigns the id and timestamps.
	CreateCharacter(ctx context.Context, c *actor.Character) (*actor.Character, error)
	GetCharacter(ctx context.Context, id int64) (*actor.Character, error)
	ListCharacters(ctx context.Context) ([]actor.Character, error) // Newest first
	DeleteCharacter(ctx context.Context, id int64) error           // Also removes scenes and session
	UpdateCharacterStats(ctx context.Context, id int64, u actor.StatUpdates) (*actor.Character, error)
	UpdateInventory(ctx context.Context, id int64, items []actor.InventoryItem) (*actor.Character, error)

	// Scenes are append-only apart from SetChosenChoice.
	CreateScene(ctx context.Context, s *scenario.Scene) (*scenario.Scene, error)
	GetScene(ctx context.Context, id int64) (*scenario.Scene, error)
	GetSceneHistory(ctx context.Context, characterID int64) ([]scenario.Scene, error) // Ascending scene number
	GetLatestScene(ctx context.Context, characterID int64) (*scenario.Scene, error)
	SetChosenChoice(ctx context.Context, sceneID int64, choiceID string) error
	SceneStatistics(ctx context.Context, characterID int64) (SceneStatistics, error)
}

// FlagStore holds the global world flags. Writes are last-writer-wins per name.
type FlagStore interface {
	ListFlags(ctx context.Context) ([]scenario.WorldFlag, error) // Sorted by name
	SetFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error)
}

// SessionStore keeps the latest turn snapshot per character.
type SessionStore interface {
	SaveSession(ctx context.Context, s state.Session) error
	LoadSession(ctx context.Context, characterID int64) (*state.Session, error)
}

// SceneStatistics summarizes a character's scene history.
type SceneStatistics struct {
	TotalScenes            int           `json:"totalScenes"`
	EndingScenes           int           `json:"endingScenes"`
	AverageChoicesPerScene float64       `json:"averageChoicesPerScene"`
	MostCommonMood         scenario.Mood `json:"mostCommonMood"`
}

// ComputeStatistics derives statistics from a history. An empty history has mood neutral.
// Ties between moods go to the mood seen first.
func ComputeStatistics(history []scenario.Scene) SceneStatistics {
	stats := SceneStatistics{TotalScenes: len(history), MostCommonMood: scenario.MoodNeutral}
	if len(history) == 0 {
		return stats
	}

	choices := 0
	counts := make(map[scenario.Mood]int)
	var order []scenario.Mood // first appearance
	for _, s := range history {
		choices += len(s.Choices)
		if s.IsEnding {
			stats.EndingScenes++
		}
		if s.Metadata.Mood == "" {
			continue
		}
		if counts[s.Metadata.Mood] == 0 {
			order = append(order, s.Metadata.Mood)
		}
		counts[s.Metadata.Mood]++
	}
	best := 0
	for _, mood := range order {
		if counts[mood] > best {
			best = counts[mood]
			stats.MostCommonMood = mood
		}
	}
	stats.AverageChoicesPerScene = float64(choices) / float64(len(history))
	return stats
}
