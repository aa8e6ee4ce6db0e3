package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	repo "github.com/jwebster45206/storylines/pkg/storage"
)

// newTestPostgres connects to TEST_DATABASE_URL. Tests using it are skipped without it.
func newTestPostgres(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	r, err := NewPostgresRepository(context.Background(), dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPostgresRepository_CharacterLifecycle(t *testing.T) {
	r := newTestPostgres(t)
	ctx := context.Background()

	c, err := r.CreateCharacter(ctx, actor.NewCharacter("Iris", "mage", "Raised by the tower"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.DeleteCharacter(ctx, c.ID) })
	assert.NotZero(t, c.ID)
	assert.Equal(t, 80, c.Stats.Mana)
	assert.Len(t, c.Inventory, 4)

	health := 40
	updated, err := r.UpdateCharacterStats(ctx, c.ID, actor.StatUpdates{Health: &health})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Stats.Health)
	assert.Equal(t, 14, updated.Stats.Intelligence, "untouched stats persist")

	items := actor.MergeInventory(updated.Inventory, actor.InventoryChanges{Lost: []string{"Spellbook"}})
	updated, err = r.UpdateInventory(ctx, c.ID, items)
	require.NoError(t, err)
	assert.False(t, updated.HasItem("spellbook"))

	_, err = r.GetCharacter(ctx, -1)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestPostgresRepository_Scenes(t *testing.T) {
	r := newTestPostgres(t)
	ctx := context.Background()

	c, err := r.CreateCharacter(ctx, actor.NewCharacter("Oric", "rogue", "Street kid"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.DeleteCharacter(ctx, c.ID) })

	for i := 1; i <= 2; i++ {
		_, err := r.CreateScene(ctx, &scenario.Scene{
			CharacterID: c.ID,
			SceneNumber: i,
			Description: "Scene",
			Choices:     []scenario.Choice{{ID: "1", Text: "Go"}},
			Metadata:    scenario.SceneMetadata{Mood: scenario.MoodTense, TimeOfDay: scenario.Night, Weather: scenario.WeatherRainy},
		})
		require.NoError(t, err)
	}

	_, err = r.CreateScene(ctx, &scenario.Scene{CharacterID: c.ID, SceneNumber: 2, Description: "Dup"})
	assert.True(t, errors.Is(err, repo.ErrConflict))

	history, err := r.GetSceneHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].SceneNumber)

	latest, err := r.GetLatestScene(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.SceneNumber)

	require.NoError(t, r.SetChosenChoice(ctx, history[0].ID, "1"))
	first, err := r.GetScene(ctx, history[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "1", first.ChosenChoiceID)

	stats, err := r.SceneStatistics(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalScenes)
	assert.Equal(t, scenario.MoodTense, stats.MostCommonMood)

	require.NoError(t, r.SaveSession(ctx, state.Session{CharacterID: c.ID, Character: *c}))
	s, err := r.LoadSession(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oric", s.Character.Name)

	require.NoError(t, r.DeleteCharacter(ctx, c.ID))
	history, err = r.GetSceneHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "scenes are removed with the character")
}

func TestPostgresRepository_Flags(t *testing.T) {
	r := newTestPostgres(t)
	ctx := context.Background()

	f, err := r.SetFlag(ctx, "test_flag_pg", map[string]any{"count": 1})
	require.NoError(t, err)
	assert.Equal(t, "test_flag_pg", f.Name)

	f, err = r.SetFlag(ctx, "test_flag_pg", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.Value)

	flags, err := r.ListFlags(ctx)
	require.NoError(t, err)
	found := scenario.FlagMap(flags)
	assert.EqualValues(t, 2, found["test_flag_pg"])
}
