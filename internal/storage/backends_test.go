package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/internal/config"
	repo "github.com/jwebster45206/storylines/pkg/storage"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("in-memory only", func(t *testing.T) {
		b, err := Open(ctx, &config.Config{}, logger)
		require.NoError(t, err)
		defer b.Close()

		assert.False(t, b.Database)
		assert.Nil(t, b.Redis)
		mock, ok := b.Repo.(*repo.MockRepository)
		require.True(t, ok)
		assert.Same(t, mock, b.Flags)
		assert.Same(t, mock, b.Sessions)
	})

	t.Run("redis for flags and sessions", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := Open(ctx, &config.Config{RedisURL: "redis://" + mr.Addr()}, logger)
		require.NoError(t, err)
		defer b.Close()

		require.NotNil(t, b.Redis)
		assert.Same(t, b.Redis, b.Flags)
		assert.Same(t, b.Redis, b.Sessions)

		_, err = b.Flags.SetFlag(ctx, "gate_open", true)
		require.NoError(t, err)
		assert.True(t, mr.Exists(flagsKey))
	})

	t.Run("bad redis url", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{RedisURL: "not a url"}, logger)
		assert.Error(t, err)
	})
}
