// Package engine runs the game turn pipeline: prompt, generate, normalize, apply deltas,
// persist the scene and assemble the resulting game state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jwebster45206/storylines/internal/memory"
	"github.com/jwebster45206/storylines/internal/services"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/conditionals"
	"github.com/jwebster45206/storylines/pkg/prompts"
	"github.com/jwebster45206/storylines/pkg/response"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	"github.com/jwebster45206/storylines/pkg/storage"
	"github.com/jwebster45206/storylines/pkg/textfilter"
)

const (
	DefaultMaxScenes       = 20
	DefaultGenerateTimeout = 60 * time.Second
	DefaultLockTTL         = 30 * time.Second

	MaxNameLength  = 50
	MaxClassLength = 50
)

// Options tunes the engine. Zero fields take the defaults.
type Options struct {
	MaxScenes       int           // Scene number at which the next turn is a forced ending
	GenerateTimeout time.Duration // Upper bound on one model call
	LockTTL         time.Duration // Expiry of the per-character turn lock
}

func (o Options) withDefaults() Options {
	if o.MaxScenes <= 0 {
		o.MaxScenes = DefaultMaxScenes
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = DefaultGenerateTimeout
	}
	if o.LockTTL <= 0 {
		o.LockTTL = DefaultLockTTL
	}
	return o
}

// Engine owns the turn state machine. It is safe for concurrent use; turns for one
// character are serialized by the Locker.
type Engine struct {
	repo   storage.Repository
	mem    memory.Service
	llm    services.LLMService
	locker Locker
	opts   Options
	logger *slog.Logger
}

// New builds an engine. A nil locker selects a LocalLocker.
func New(repo storage.Repository, mem memory.Service, llm services.LLMService, locker Locker, opts Options, logger *slog.Logger) *Engine {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Engine{
		repo:   repo,
		mem:    mem,
		llm:    llm,
		locker: locker,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Effect records the outcome of a best-effort side operation. A failed effect is logged
// and never aborts the turn.
type Effect struct {
	Op  string `json:"op"`
	Err error  `json:"-"`
}

func (f Effect) OK() bool {
	return f.Err == nil
}

// Turn is the result of StartGame, Advance and Choose.
type Turn struct {
	Character *actor.Character
	Scene     *scenario.Scene
	GameState *state.GameState
	Effects   []Effect
	Fallback  bool // Model output was unusable and the fallback scene was stored
}

// Failed returns the effects that did not succeed.
func (t *Turn) Failed() []Effect {
	var out []Effect
	for _, f := range t.Effects {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// StartInput is the character creation form.
type StartInput struct {
	Name       string `json:"characterName"`
	Class      string `json:"characterClass"`
	Background string `json:"characterBackground"`
}

// Normalize cleans the fields and validates them.
func (in StartInput) Normalize() (StartInput, error) {
	out := StartInput{
		Name:       textfilter.Clean(in.Name),
		Class:      textfilter.Clean(in.Class),
		Background: textfilter.CleanMultiline(in.Background),
	}
	switch {
	case out.Name == "":
		return out, invalid("characterName", "characterName is required")
	case textfilter.RuneLen(out.Name) > MaxNameLength:
		return out, invalid("characterName", fmt.Sprintf("characterName must be at most %d characters", MaxNameLength))
	case out.Class == "":
		return out, invalid("characterClass", "characterClass is required")
	case textfilter.RuneLen(out.Class) > MaxClassLength:
		return out, invalid("characterClass", fmt.Sprintf("characterClass must be at most %d characters", MaxClassLength))
	case out.Background == "":
		return out, invalid("characterBackground", "characterBackground is required")
	}
	return out, nil
}

// AdvanceInput names the scene being left and the choice taken.
type AdvanceInput struct {
	CharacterID    int64
	CurrentSceneID int64
	ChoiceID       string
}

func (in AdvanceInput) Validate() error {
	switch {
	case in.CharacterID <= 0:
		return invalid("characterId", "characterId must be a positive number")
	case in.CurrentSceneID <= 0:
		return invalid("currentSceneId", "currentSceneId must be a positive number")
	case in.ChoiceID == "":
		return invalid("choiceId", "choiceId is required")
	}
	return nil
}

// StartGame creates the character, generates and stores scene 1, then applies the
// deltas the model proposed.
func (e *Engine) StartGame(ctx context.Context, in StartInput) (*Turn, error) {
	start := time.Now()
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	c, err := e.repo.CreateCharacter(ctx, actor.NewCharacter(in.Name, in.Class, in.Background))
	if err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}
	log := e.logger.With("character_id", c.ID)
	log.Info("Character created", "name", c.Name, "class", c.Class)

	req, err := prompts.InitialScene(c)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial prompt: %w", err)
	}
	out := e.generate(ctx, req, log)
	res := out.Result

	scene := res.NewScene(c.ID, 1)
	saved, err := e.repo.CreateScene(ctx, &scene)
	if err != nil {
		return nil, fmt.Errorf("failed to save opening scene: %w", err)
	}

	c, err = e.applyDeltas(ctx, c, &res)
	if err != nil {
		return nil, err
	}

	t := &Turn{Character: c, Scene: saved, Fallback: out.Fallback}
	t.Effects = append(t.Effects,
		e.setFlag(ctx, log, scenario.FlagGameStarted, true),
		e.setFlag(ctx, log, scenario.FlagCharacterCreated, c.Name),
	)

	gs, effect := e.assemble(ctx, c, []scenario.Scene{*saved})
	t.GameState = gs
	t.Effects = append(t.Effects, effect, e.saveSession(ctx, log, c, res))

	log.Info("Game started", "scene_id", saved.ID, "fallback", out.Fallback, "duration_s", time.Since(start).Seconds())
	return t, nil
}

// Advance generates the scene that follows in.CurrentSceneID. The named scene must be the
// character's latest scene. At MaxScenes the next scene is a neutral ending.
func (e *Engine) Advance(ctx context.Context, in AdvanceInput) (*Turn, error) {
	return e.turn(ctx, in, false)
}

// Choose is Advance for a declared choice: its requirements must hold and its consequences
// are applied ahead of the model's own deltas.
func (e *Engine) Choose(ctx context.Context, in AdvanceInput) (*Turn, error) {
	return e.turn(ctx, in, true)
}

func (e *Engine) turn(ctx context.Context, in AdvanceInput, declared bool) (*Turn, error) {
	start := time.Now()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	log := e.logger.With("character_id", in.CharacterID, "scene_id", in.CurrentSceneID)

	token, ok, err := e.locker.TryLock(ctx, in.CharacterID, e.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return nil, ErrTurnInProgress
	}
	defer func() {
		if err := e.locker.Unlock(context.WithoutCancel(ctx), in.CharacterID, token); err != nil {
			log.Error("Failed to release turn lock", "error", err)
		}
	}()

	c, err := e.loadCharacter(ctx, in.CharacterID)
	if err != nil {
		return nil, err
	}
	current, err := e.repo.GetScene(ctx, in.CurrentSceneID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSceneNotFound, in.CurrentSceneID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	if current.CharacterID != c.ID {
		return nil, ErrSceneMismatch
	}
	latest, err := e.repo.GetLatestScene(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scene: %w", err)
	}
	if latest.ID != current.ID {
		return nil, fmt.Errorf("%w: latest is scene %d", ErrStaleScene, latest.SceneNumber)
	}
	if current.IsEnding {
		return nil, ErrGameOver
	}

	choice, found := current.FindChoice(in.ChoiceID)
	if !found {
		log.Warn("Choice not offered by scene", "choice_id", in.ChoiceID)
	}

	var deltas conditionals.Deltas
	if declared && found {
		flags, err := e.mem.GetWorldFlags(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load world flags: %w", err)
		}
		if v := conditionals.CanChoose(c, scenario.FlagMap(flags), *choice); !v.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrRequirementNotMet, v.Reason)
		}
		deltas = conditionals.ApplyConsequences(c, *choice)
	}

	t := &Turn{}
	forced := current.SceneNumber >= e.opts.MaxScenes
	var req prompts.Request
	if forced {
		log.Info("Scene limit reached, generating ending", "scene_number", current.SceneNumber, "max_scenes", e.opts.MaxScenes)
		req, err = prompts.EndingScene(c, scenario.EndingNeutral)
	} else {
		mem, effect := e.loadMemory(ctx, c.ID)
		t.Effects = append(t.Effects, effect)
		req, err = prompts.NextScene(c, current, in.ChoiceID, mem)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	out := e.generate(ctx, req, log)
	res := out.Result
	t.Fallback = out.Fallback
	if forced {
		res.IsEnding = true
		res.EndingType = scenario.EndingNeutral
	}
	deltas.MergeInto(&res)

	c, err = e.applyDeltas(ctx, c, &res)
	if err != nil {
		return nil, err
	}

	next := res.NewScene(c.ID, current.SceneNumber+1)
	saved, err := e.repo.CreateScene(ctx, &next)
	if errors.Is(err, storage.ErrConflict) {
		return nil, fmt.Errorf("%w: scene %d already exists", ErrStaleScene, next.SceneNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save scene: %w", err)
	}

	if res.IsEnding {
		t.Effects = append(t.Effects,
			e.setFlag(ctx, log, scenario.FlagGameEnded, true),
			e.setFlag(ctx, log, scenario.FlagEndingType, string(res.EndingType)),
		)
		if forced {
			t.Effects = append(t.Effects, e.setFlag(ctx, log, scenario.FlagFinalScene, current.SceneNumber+1))
		}
	}

	if found {
		t.Effects = append(t.Effects, e.effect("record_choice", log, func() error {
			return e.repo.SetChosenChoice(ctx, current.ID, choice.ID)
		}))
	}

	history, err := e.repo.GetSceneHistory(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene history: %w", err)
	}
	gs, effect := e.assemble(ctx, c, history)

	t.Character, t.Scene, t.GameState = c, saved, gs
	t.Effects = append(t.Effects, effect, e.saveSession(ctx, log, c, res))

	log.Info("Turn completed",
		"new_scene_id", saved.ID,
		"scene_number", saved.SceneNumber,
		"is_ending", saved.IsEnding,
		"fallback", out.Fallback,
		"duration_s", time.Since(start).Seconds(),
	)
	return t, nil
}

// generate calls the model and normalizes its output. A provider error or timeout yields
// the fallback result. The call is detached from the caller's cancellation and bounded by
// GenerateTimeout only.
func (e *Engine) generate(ctx context.Context, req prompts.Request, log *slog.Logger) response.Outcome {
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.GenerateTimeout)
	defer cancel()

	log.Debug("Sending scene request to LLM", "kind", req.Kind, "provider", e.llm.Name())
	raw, err := e.llm.Generate(genCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("LLM request timed out, using fallback scene", "kind", req.Kind, "timeout", e.opts.GenerateTimeout)
		} else {
			log.Error("LLM request failed, using fallback scene", "kind", req.Kind, "error", err)
		}
		return response.Fallback(fmt.Errorf("generate %s scene: %w", req.Kind, err))
	}

	out := response.Normalize(raw)
	if out.Fallback {
		log.Warn("Unusable LLM output, using fallback scene", "kind", req.Kind, "error", out.Err)
	}
	for _, r := range out.Repairs {
		log.Debug("Repaired LLM output", "repair", r)
	}
	return out
}

// applyDeltas writes stats, then world flags, then inventory. Each write is fatal.
func (e *Engine) applyDeltas(ctx context.Context, c *actor.Character, res *state.TurnResult) (*actor.Character, error) {
	if u := res.CharacterUpdates; u != nil && !u.IsEmpty() {
		updated, err := e.repo.UpdateCharacterStats(ctx, c.ID, *u)
		if err != nil {
			return nil, fmt.Errorf("failed to update character stats: %w", err)
		}
		c = updated
	}

	names := make([]string, 0, len(res.WorldFlagUpdates))
	for name := range res.WorldFlagUpdates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := e.mem.SetWorldFlag(ctx, name, res.WorldFlagUpdates[name]); err != nil {
			return nil, fmt.Errorf("failed to set world flag %s: %w", name, err)
		}
	}

	if changes := res.InventoryChanges; changes != nil && !changes.IsEmpty() {
		items := actor.MergeInventory(c.Inventory, *changes)
		updated, err := e.repo.UpdateInventory(ctx, c.ID, items)
		if err != nil {
			return nil, fmt.Errorf("failed to update inventory: %w", err)
		}
		c = updated
	}
	return c, nil
}

func (e *Engine) effect(op string, log *slog.Logger, fn func() error) Effect {
	err := fn()
	if err != nil {
		log.Warn("Best-effort operation failed", "op", op, "error", err)
	}
	return Effect{Op: op, Err: err}
}

func (e *Engine) setFlag(ctx context.Context, log *slog.Logger, name string, value any) Effect {
	return e.effect("set_flag:"+name, log, func() error {
		_, err := e.mem.SetWorldFlag(ctx, name, value)
		return err
	})
}

func (e *Engine) saveSession(ctx context.Context, log *slog.Logger, c *actor.Character, res state.TurnResult) Effect {
	return e.effect("save_session", log, func() error {
		return e.mem.SaveGameState(ctx, state.Session{CharacterID: c.ID, Character: *c, LastTurn: res})
	})
}

// loadMemory falls back to the empty memory when the collaborator fails.
func (e *Engine) loadMemory(ctx context.Context, characterID int64) (state.GameMemory, Effect) {
	mem, err := e.mem.LoadGameState(ctx, characterID)
	if err != nil {
		e.logger.Warn("Failed to load game memory, continuing without it", "character_id", characterID, "error", err)
		return state.EmptyMemory(), Effect{Op: "load_memory", Err: err}
	}
	return mem, Effect{Op: "load_memory"}
}

// assemble builds the game state view. World flags are best-effort.
func (e *Engine) assemble(ctx context.Context, c *actor.Character, history []scenario.Scene) (*state.GameState, Effect) {
	flags, err := e.mem.GetWorldFlags(ctx)
	if err != nil {
		e.logger.Warn("Failed to load world flags for game state", "character_id", c.ID, "error", err)
		flags = nil
	}
	return state.NewGameState(*c, history, flags), Effect{Op: "load_world_flags", Err: err}
}

func (e *Engine) loadCharacter(ctx context.Context, id int64) (*actor.Character, error) {
	c, err := e.repo.GetCharacter(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCharacterNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	return c, nil
}
