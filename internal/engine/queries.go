package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	"github.com/jwebster45206/storylines/pkg/storage"
	"github.com/jwebster45206/storylines/pkg/tree"
)

func (e *Engine) Character(ctx context.Context, id int64) (*actor.Character, error) {
	return e.loadCharacter(ctx, id)
}

func (e *Engine) Characters(ctx context.Context) ([]actor.Character, error) {
	chars, err := e.repo.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	if chars == nil {
		chars = []actor.Character{}
	}
	return chars, nil
}

// DeleteCharacter removes the character together with its scenes.
func (e *Engine) DeleteCharacter(ctx context.Context, id int64) error {
	err := e.repo.DeleteCharacter(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrCharacterNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	e.logger.Info("Character deleted", "character_id", id)
	return nil
}

// GameState assembles the current view. A character without scenes has no game state.
func (e *Engine) GameState(ctx context.Context, characterID int64) (*state.GameState, error) {
	c, history, err := e.history(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: character %d has no scenes", ErrSceneNotFound, characterID)
	}
	gs, _ := e.assemble(ctx, c, history)
	return gs, nil
}

func (e *Engine) DecisionTree(ctx context.Context, characterID int64) (tree.DecisionTree, error) {
	_, history, err := e.history(ctx, characterID)
	if err != nil {
		return tree.DecisionTree{}, err
	}
	return tree.Build(history), nil
}

func (e *Engine) SceneStatistics(ctx context.Context, characterID int64) (storage.SceneStatistics, error) {
	if _, err := e.loadCharacter(ctx, characterID); err != nil {
		return storage.SceneStatistics{}, err
	}
	stats, err := e.repo.SceneStatistics(ctx, characterID)
	if err != nil {
		return storage.SceneStatistics{}, fmt.Errorf("failed to compute scene statistics: %w", err)
	}
	return stats, nil
}

func (e *Engine) WorldFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	return e.mem.GetWorldFlags(ctx)
}

func (e *Engine) history(ctx context.Context, characterID int64) (*actor.Character, []scenario.Scene, error) {
	c, err := e.loadCharacter(ctx, characterID)
	if err != nil {
		return nil, nil, err
	}
	history, err := e.repo.GetSceneHistory(ctx, characterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scene history: %w", err)
	}
	return c, history, nil
}
