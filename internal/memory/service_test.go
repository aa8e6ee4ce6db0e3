package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	"github.com/jwebster45206/storylines/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MockRepository) {
	t.Helper()
	mock := storage.NewMockRepository()
	return NewStore(mock, mock, mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

// seedScenes stores n scenes for c. Every scene but the last has its first choice taken.
func seedScenes(t *testing.T, mock *storage.MockRepository, c *actor.Character, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		s, err := mock.CreateScene(ctx, &scenario.Scene{
			CharacterID: c.ID,
			SceneNumber: i,
			Description: "Scene",
			Choices: []scenario.Choice{
				{ID: "1", Text: "Take path " + string(rune('A'+i-1))},
				{ID: "2", Text: "Wait"},
			},
		})
		require.NoError(t, err)
		if i < n {
			require.NoError(t, mock.SetChosenChoice(ctx, s.ID, "1"))
		}
	}
}

func TestStore_LoadGameState_UnknownCharacter(t *testing.T) {
	store, _ := newTestStore(t)

	mem, err := store.LoadGameState(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, mem.CharacterMemory.Character)
	assert.Empty(t, mem.SceneMemory.RecentScenes)
	assert.NotNil(t, mem.SceneMemory.RecentScenes)
	assert.Equal(t, state.WorldStateInitial, mem.WorldMemory.WorldState)
}

func TestStore_LoadGameState(t *testing.T) {
	store, mock := newTestStore(t)
	ctx := context.Background()

	c, err := mock.CreateCharacter(ctx, actor.NewCharacter("Bran", "warrior", "A smith's son"))
	require.NoError(t, err)
	seedScenes(t, mock, c, 7)
	_, err = store.SetWorldFlag(ctx, scenario.FlagGameStarted, true)
	require.NoError(t, err)

	mem, err := store.LoadGameState(ctx, c.ID)
	require.NoError(t, err)

	require.NotNil(t, mem.CharacterMemory.Character)
	assert.Equal(t, "Bran", mem.CharacterMemory.Character.Name)

	scenes := mem.SceneMemory.RecentScenes
	require.Len(t, scenes, GameStateSceneLimit)
	assert.Equal(t, 7, scenes[0].SceneNumber, "newest first")
	assert.Equal(t, 3, scenes[4].SceneNumber)

	// Scene 7 has no choice taken yet
	assert.Equal(t, []string{"Take path F", "Take path E", "Take path D", "Take path C"}, mem.CharacterMemory.RecentChoices)

	assert.Equal(t, state.WorldStateActive, mem.WorldMemory.WorldState)
	assert.Equal(t, true, scenario.FlagMap(mem.WorldMemory.Flags)[scenario.FlagGameStarted])
}

func TestStore_GetSceneMemory(t *testing.T) {
	store, mock := newTestStore(t)
	ctx := context.Background()

	c, err := mock.CreateCharacter(ctx, actor.NewCharacter("Iris", "mage", ""))
	require.NoError(t, err)
	seedScenes(t, mock, c, 12)

	mem, err := store.GetSceneMemory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, mem.RecentScenes, SceneMemoryLimit)
	assert.Equal(t, 12, mem.RecentScenes[0].SceneNumber)
	assert.Equal(t, 3, mem.RecentScenes[9].SceneNumber)
}

func TestStore_GetCharacterMemory(t *testing.T) {
	store, mock := newTestStore(t)
	ctx := context.Background()

	mem, err := store.GetCharacterMemory(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, mem.Character)
	assert.Empty(t, mem.RecentChoices)

	c, err := mock.CreateCharacter(ctx, actor.NewCharacter("Oric", "rogue", ""))
	require.NoError(t, err)
	seedScenes(t, mock, c, 2)

	mem, err = store.GetCharacterMemory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oric", mem.Character.Name)
	assert.Equal(t, []string{"Take path A"}, mem.RecentChoices)
}

func TestStore_WorldFlags(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	flags, err := store.GetWorldFlags(ctx)
	require.NoError(t, err)
	assert.NotNil(t, flags)
	assert.Empty(t, flags)

	f, err := store.SetWorldFlag(ctx, scenario.FlagEndingType, "heroic")
	require.NoError(t, err)
	assert.Equal(t, "heroic", f.Value)

	world, err := store.GetWorldMemory(ctx)
	require.NoError(t, err)
	require.Len(t, world.Flags, 1)
	assert.Equal(t, scenario.FlagEndingType, world.Flags[0].Name)
}

func TestStore_Errors(t *testing.T) {
	store, mock := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("connection refused")

	c, err := mock.CreateCharacter(ctx, actor.NewCharacter("Bran", "warrior", ""))
	require.NoError(t, err)

	mock.FailOn("SetFlag", boom)
	_, err = store.SetWorldFlag(ctx, "x", 1)
	assert.ErrorIs(t, err, boom)

	mock.FailOn("ListFlags", boom)
	_, err = store.LoadGameState(ctx, c.ID)
	assert.ErrorIs(t, err, boom)

	mock.FailOn("GetCharacter", boom)
	_, err = store.GetCharacterMemory(ctx, c.ID)
	assert.ErrorIs(t, err, boom)

	mock.FailOn("SaveSession", boom)
	err = store.SaveGameState(ctx, state.Session{CharacterID: c.ID})
	assert.ErrorIs(t, err, boom)
}

func TestStore_SaveGameState(t *testing.T) {
	store, mock := newTestStore(t)
	ctx := context.Background()

	c := actor.NewCharacter("Bran", "warrior", "")
	c.ID = 4
	require.NoError(t, store.SaveGameState(ctx, state.Session{CharacterID: 4, Character: *c}))

	s, err := mock.LoadSession(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Bran", s.Character.Name)
}
