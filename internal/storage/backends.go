package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/storylines/internal/config"
	repo "github.com/jwebster45206/storylines/pkg/storage"
)

// Backends is the storage selected by configuration. Redis is nil when REDIS_URL is unset,
// in which case flags and sessions live in the repository.
type Backends struct {
	Repo     repo.Repository
	Flags    repo.FlagStore
	Sessions repo.SessionStore
	Redis    *RedisStore
	Database bool // Repo is Postgres rather than the in-memory mock
}

// Open connects the configured backends. Without DATABASE_URL the in-memory repository is used.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		pg, err := NewPostgresRepository(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		b.Repo, b.Flags, b.Sessions, b.Database = pg, pg, pg, true
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		mock := repo.NewMockRepository()
		b.Repo, b.Flags, b.Sessions = mock, mock, mock
	}

	if cfg.RedisURL != "" {
		rs, err := NewRedisStore(cfg.RedisURL, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := rs.WaitForConnection(ctx, 5, 2*time.Second); err != nil {
			_ = rs.Close()
			b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.Redis = rs
		b.Flags, b.Sessions = rs, rs
	}
	return b, nil
}

func (b *Backends) Close() error {
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.Repo != nil {
		errs = append(errs, b.Repo.Close())
	}
	return errors.Join(errs...)
}
