// Package memory provides world flags and the cross-turn memory aggregates the prompt
// builder reads. Store answers locally; the MCP server and client carry the same contract
// across processes.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	"github.com/jwebster45206/storylines/pkg/storage"
)

const (
	// GameStateSceneLimit is how many recent scenes LoadGameState returns.
	GameStateSceneLimit = 5
	// SceneMemoryLimit is how many recent scenes GetSceneMemory returns.
	SceneMemoryLimit = 10
)

// Service is the world-flag and memory contract used by the turn engine.
type Service interface {
	GetWorldFlags(ctx context.Context) ([]scenario.WorldFlag, error)
	SetWorldFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error)
	GetCharacterMemory(ctx context.Context, characterID int64) (state.CharacterMemory, error)
	GetSceneMemory(ctx context.Context, characterID int64) (state.SceneMemory, error)
	GetWorldMemory(ctx context.Context) (state.WorldMemory, error)
	LoadGameState(ctx context.Context, characterID int64) (state.GameMemory, error)
	SaveGameState(ctx context.Context, session state.Session) error
}

// Store implements Service on top of the repository and a flag and session store.
type Store struct {
	repo     storage.Repository
	flags    storage.FlagStore
	sessions storage.SessionStore
	logger   *slog.Logger
}

var _ Service = (*Store)(nil)

func NewStore(repo storage.Repository, flags storage.FlagStore, sessions storage.SessionStore, logger *slog.Logger) *Store {
	return &Store{repo: repo, flags: flags, sessions: sessions, logger: logger}
}

func (s *Store) GetWorldFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	flags, err := s.flags.ListFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("get world flags: %w", err)
	}
	if flags == nil {
		flags = []scenario.WorldFlag{}
	}
	return flags, nil
}

func (s *Store) SetWorldFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error) {
	f, err := s.flags.SetFlag(ctx, name, value)
	if err != nil {
		return nil, fmt.Errorf("set world flag %s: %w", name, err)
	}
	s.logger.Debug("World flag set", "flag", name)
	return f, nil
}

// GetCharacterMemory returns an empty memory for unknown characters. Recent choices are the
// texts of the choices taken in the most recent scenes, newest first.
func (s *Store) GetCharacterMemory(ctx context.Context, characterID int64) (state.CharacterMemory, error) {
	c, err := s.repo.GetCharacter(ctx, characterID)
	if errors.Is(err, storage.ErrNotFound) {
		return state.EmptyCharacterMemory(nil), nil
	}
	if err != nil {
		return state.CharacterMemory{}, fmt.Errorf("get character memory: %w", err)
	}

	mem := state.EmptyCharacterMemory(c)
	history, err := s.repo.GetSceneHistory(ctx, characterID)
	if err != nil {
		return state.CharacterMemory{}, fmt.Errorf("get character memory: %w", err)
	}
	mem.RecentChoices = recentChoices(newestFirst(history, GameStateSceneLimit))
	return mem, nil
}

func (s *Store) GetSceneMemory(ctx context.Context, characterID int64) (state.SceneMemory, error) {
	history, err := s.repo.GetSceneHistory(ctx, characterID)
	if err != nil {
		return state.SceneMemory{}, fmt.Errorf("get scene memory: %w", err)
	}
	mem := state.EmptySceneMemory()
	mem.RecentScenes = newestFirst(history, SceneMemoryLimit)
	return mem, nil
}

func (s *Store) GetWorldMemory(ctx context.Context) (state.WorldMemory, error) {
	flags, err := s.GetWorldFlags(ctx)
	if err != nil {
		return state.WorldMemory{}, err
	}
	mem := state.EmptyWorldMemory()
	mem.Flags = flags
	mem.WorldState = state.WorldStateActive
	return mem, nil
}

// LoadGameState assembles the full memory. A character the store has never seen gets the
// empty memory with world state "initial".
func (s *Store) LoadGameState(ctx context.Context, characterID int64) (state.GameMemory, error) {
	c, err := s.repo.GetCharacter(ctx, characterID)
	if errors.Is(err, storage.ErrNotFound) {
		return state.EmptyMemory(), nil
	}
	if err != nil {
		return state.GameMemory{}, fmt.Errorf("load game state: %w", err)
	}

	history, err := s.repo.GetSceneHistory(ctx, characterID)
	if err != nil {
		return state.GameMemory{}, fmt.Errorf("load game state: %w", err)
	}
	world, err := s.GetWorldMemory(ctx)
	if err != nil {
		return state.GameMemory{}, fmt.Errorf("load game state: %w", err)
	}

	mem := state.GameMemory{
		CharacterMemory: state.EmptyCharacterMemory(c),
		SceneMemory:     state.EmptySceneMemory(),
		WorldMemory:     world,
	}
	mem.SceneMemory.RecentScenes = newestFirst(history, GameStateSceneLimit)
	mem.CharacterMemory.RecentChoices = recentChoices(mem.SceneMemory.RecentScenes)
	return mem, nil
}

func (s *Store) SaveGameState(ctx context.Context, session state.Session) error {
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

// newestFirst returns up to limit scenes of an ascending history in descending order.
func newestFirst(history []scenario.Scene, limit int) []scenario.Scene {
	n := min(limit, len(history))
	out := make([]scenario.Scene, 0, n)
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, history[i])
	}
	return out
}

func recentChoices(scenes []scenario.Scene) []string {
	out := []string{}
	for _, scene := range scenes {
		if choice, ok := scene.FindChoice(scene.ChosenChoiceID); ok {
			out = append(out, choice.Text)
		}
	}
	return out
}
