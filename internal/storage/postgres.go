package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	repo "github.com/jwebster45206/storylines/pkg/storage"
)

//go:embed schema.sql
var schemaSQL string

const (
	characterFields = `id, name, class, background, stats, inventory, created_at, updated_at`
	sceneFields     = `id, character_id, scene_number, description, choices, metadata, is_ending, ending_type, chosen_choice_id, created_at`
	flagFields      = `name, value, description, created_at, updated_at`

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresRepository implements the repository, flag and session contracts on Postgres.
// Stats, inventory, choices and metadata are stored as JSONB documents.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ repo.Repository   = (*PostgresRepository)(nil)
	_ repo.FlagStore    = (*PostgresRepository)(nil)
	_ repo.SessionStore = (*PostgresRepository)(nil)
)

// NewPostgresRepository connects to dsn, pings it and applies the schema.
func NewPostgresRepository(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	r := &PostgresRepository{pool: pool, logger: logger}
	if err := r.Migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Database connection established")
	return r, nil
}

// Migrate creates the tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Health and lifecycle methods

func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	r.logger.Info("Database connection closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*actor.Character, error) {
	var c actor.Character
	var stats, inventory []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Class, &c.Background, &stats, &inventory, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(stats, &c.Stats); err != nil {
		return nil, fmt.Errorf("decode stats of character %d: %w", c.ID, err)
	}
	if err := json.Unmarshal(inventory, &c.Inventory); err != nil {
		return nil, fmt.Errorf("decode inventory of character %d: %w", c.ID, err)
	}
	if c.Inventory == nil {
		c.Inventory = []actor.InventoryItem{}
	}
	return &c, nil
}

func scanScene(row rowScanner) (*scenario.Scene, error) {
	var s scenario.Scene
	var choices, metadata []byte
	var endingType, chosen *string
	if err := row.Scan(&s.ID, &s.CharacterID, &s.SceneNumber, &s.Description, &choices, &metadata,
		&s.IsEnding, &endingType, &chosen, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(choices, &s.Choices); err != nil {
		return nil, fmt.Errorf("decode choices of scene %d: %w", s.ID, err)
	}
	if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of scene %d: %w", s.ID, err)
	}
	if s.Choices == nil {
		s.Choices = []scenario.Choice{}
	}
	s.Metadata.EnsureLists()
	if endingType != nil {
		s.EndingType = scenario.EndingType(*endingType)
	}
	if chosen != nil {
		s.ChosenChoiceID = *chosen
	}
	return &s, nil
}

// Character operations

func (r *PostgresRepository) CreateCharacter(ctx context.Context, c *actor.Character) (*actor.Character, error) {
	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}
	inventory := c.Inventory
	if inventory == nil {
		inventory = []actor.InventoryItem{}
	}
	items, err := json.Marshal(inventory)
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO characters (name, class, background, stats, inventory)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+characterFields,
		c.Name, c.Class, c.Background, stats, items)
	created, err := scanCharacter(row)
	if err != nil {
		r.logger.Error("Failed to create character", "name", c.Name, "error", err)
		return nil, fmt.Errorf("create character: %w", err)
	}
	r.logger.Debug("Character created", "character_id", created.ID)
	return created, nil
}

func (r *PostgresRepository) GetCharacter(ctx context.Context, id int64) (*actor.Character, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+characterFields+` FROM characters WHERE id = $1`, id)
	c, err := scanCharacter(row)
	if err != nil {
		return nil, fmt.Errorf("get character %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepository) ListCharacters(ctx context.Context) ([]actor.Character, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+characterFields+` FROM characters ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	out := []actor.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("list characters: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return out, nil
}

// DeleteCharacter removes the character; scenes and the session go with it by cascade.
func (r *PostgresRepository) DeleteCharacter(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete character %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete character %d: %w", id, repo.ErrNotFound)
	}
	return nil
}

// UpdateCharacterStats merges u into the stored sheet inside a transaction so concurrent
// partial updates do not drop each other's fields.
func (r *PostgresRepository) UpdateCharacterStats(ctx context.Context, id int64, u actor.StatUpdates) (*actor.Character, error) {
	var updated *actor.Character
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := scanCharacter(tx.QueryRow(ctx, `SELECT `+characterFields+` FROM characters WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		c.Stats.Apply(u)
		stats, err := json.Marshal(c.Stats)
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		updated, err = scanCharacter(tx.QueryRow(ctx, `
			UPDATE characters SET stats = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+characterFields, id, stats))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update stats of character %d: %w", id, err)
	}
	return updated, nil
}

func (r *PostgresRepository) UpdateInventory(ctx context.Context, id int64, items []actor.InventoryItem) (*actor.Character, error) {
	if items == nil {
		items = []actor.InventoryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}
	c, err := scanCharacter(r.pool.QueryRow(ctx, `
		UPDATE characters SET inventory = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+characterFields, id, data))
	if err != nil {
		return nil, fmt.Errorf("update inventory of character %d: %w", id, err)
	}
	return c, nil
}

// Scene operations

func (r *PostgresRepository) CreateScene(ctx context.Context, s *scenario.Scene) (*scenario.Scene, error) {
	choices := s.Choices
	if choices == nil {
		choices = []scenario.Choice{}
	}
	choiceData, err := json.Marshal(choices)
	if err != nil {
		return nil, fmt.Errorf("encode choices: %w", err)
	}
	metadata := s.Metadata
	metadata.EnsureLists()
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var endingType *string
	if s.IsEnding && s.EndingType != "" {
		t := string(s.EndingType)
		endingType = &t
	}

	created, err := scanScene(r.pool.QueryRow(ctx, `
		INSERT INTO scenes (character_id, scene_number, description, choices, metadata, is_ending, ending_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sceneFields,
		s.CharacterID, s.SceneNumber, s.Description, choiceData, metaData, s.IsEnding, endingType))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				r.logger.Warn("Scene number already taken", "character_id", s.CharacterID, "scene_number", s.SceneNumber)
				return nil, fmt.Errorf("scene %d of character %d: %w", s.SceneNumber, s.CharacterID, repo.ErrConflict)
			case pgForeignKeyViolation:
				return nil, fmt.Errorf("character %d: %w", s.CharacterID, repo.ErrNotFound)
			}
		}
		r.logger.Error("Failed to create scene", "character_id", s.CharacterID, "error", err)
		return nil, fmt.Errorf("create scene: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetScene(ctx context.Context, id int64) (*scenario.Scene, error) {
	s, err := scanScene(r.pool.QueryRow(ctx, `SELECT `+sceneFields+` FROM scenes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get scene %d: %w", id, err)
	}
	return s, nil
}

func (r *PostgresRepository) GetSceneHistory(ctx context.Context, characterID int64) ([]scenario.Scene, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sceneFields+` FROM scenes WHERE character_id = $1 ORDER BY scene_number ASC`, characterID)
	if err != nil {
		return nil, fmt.Errorf("scene history of character %d: %w", characterID, err)
	}
	defer rows.Close()

	out := []scenario.Scene{}
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scene history of character %d: %w", characterID, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scene history of character %d: %w", characterID, err)
	}
	return out, nil
}

func (r *PostgresRepository) GetLatestScene(ctx context.Context, characterID int64) (*scenario.Scene, error) {
	s, err := scanScene(r.pool.QueryRow(ctx, `
		SELECT `+sceneFields+` FROM scenes
		WHERE character_id = $1
		ORDER BY scene_number DESC
		LIMIT 1`, characterID))
	if err != nil {
		return nil, fmt.Errorf("latest scene of character %d: %w", characterID, err)
	}
	return s, nil
}

func (r *PostgresRepository) SetChosenChoice(ctx context.Context, sceneID int64, choiceID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE scenes SET chosen_choice_id = $2, updated_at = NOW() WHERE id = $1`, sceneID, choiceID)
	if err != nil {
		return fmt.Errorf("record choice on scene %d: %w", sceneID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record choice on scene %d: %w", sceneID, repo.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) SceneStatistics(ctx context.Context, characterID int64) (repo.SceneStatistics, error) {
	history, err := r.GetSceneHistory(ctx, characterID)
	if err != nil {
		return repo.SceneStatistics{}, err
	}
	return repo.ComputeStatistics(history), nil
}

// World flag operations

func (r *PostgresRepository) ListFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+flagFields+` FROM world_flags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list world flags: %w", err)
	}
	defer rows.Close()

	out := []scenario.WorldFlag{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("list world flags: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SetFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error) {
	if name == "" {
		return nil, fmt.Errorf("flag name cannot be empty")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode flag %s: %w", name, err)
	}
	f, err := scanFlag(r.pool.QueryRow(ctx, `
		INSERT INTO world_flags (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING `+flagFields, name, data))
	if err != nil {
		r.logger.Error("Failed to set world flag", "flag", name, "error", err)
		return nil, fmt.Errorf("set world flag %s: %w", name, err)
	}
	return f, nil
}

func scanFlag(row rowScanner) (*scenario.WorldFlag, error) {
	var f scenario.WorldFlag
	var value []byte
	if err := row.Scan(&f.Name, &value, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &f.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", f.Name, err)
	}
	return &f, nil
}

// Session operations

func (r *PostgresRepository) SaveSession(ctx context.Context, s state.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO game_sessions (character_id, game_state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (character_id) DO UPDATE SET game_state = EXCLUDED.game_state, updated_at = NOW()`,
		s.CharacterID, data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("session for character %d: %w", s.CharacterID, repo.ErrNotFound)
		}
		return fmt.Errorf("save session for character %d: %w", s.CharacterID, err)
	}
	return nil
}

func (r *PostgresRepository) LoadSession(ctx context.Context, characterID int64) (*state.Session, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT game_state FROM game_sessions WHERE character_id = $1`, characterID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session for character %d: %w", characterID, repo.ErrNotFound)
		}
		return nil, fmt.Errorf("load session for character %d: %w", characterID, err)
	}
	var s state.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session for character %d: %w", characterID, err)
	}
	return &s, nil
}
